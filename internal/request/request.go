package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

var client = &http.Client{Timeout: 30 * time.Second}

// ToJsonReq marshals a payload into a buffer usable as an HTTP request body.
func ToJsonReq(payload interface{}) (*bytes.Buffer, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return bytes.NewBuffer(jsonData), nil
}

// Call executes an HTTP request and decodes a JSON response body into target.
// Non-2XX responses are returned as errors with the status code.
func Call(req *http.Request, target interface{}) (*http.Response, error) {
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, fmt.Errorf("request to %s failed with status %d", req.URL, resp.StatusCode)
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return resp, err
		}
	}
	return resp, nil
}
