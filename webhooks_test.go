package artha

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthabank/artha/config"
)

func webhookTask(t *testing.T, hook NewWebhook) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(hook)
	require.NoError(t, err)
	return asynq.NewTask("artha_webhook", payload)
}

func TestProcessWebhookDelivers(t *testing.T) {
	cnf := &config.Configuration{}
	cnf.Notification.Webhook.Url = "http://sink.example.com/hooks"
	cnf.Notification.Webhook.Headers = map[string]string{"X-Signature": "sig-1"}
	config.MockConfig(cnf)

	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var gotSignature string
	httpmock.RegisterResponder("POST", "http://sink.example.com/hooks",
		func(req *http.Request) (*http.Response, error) {
			gotSignature = req.Header.Get("X-Signature")
			return httpmock.NewJsonResponse(200, map[string]interface{}{"received": true})
		})

	task := webhookTask(t, NewWebhook{
		Event:   EventLoanDisbursed,
		Payload: map[string]interface{}{"loan_id": "lon_1"},
	})

	err := ProcessWebhook(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.Equal(t, "sig-1", gotSignature)
}

func TestProcessWebhookSkipsWhenUnconfigured(t *testing.T) {
	config.MockConfig(&config.Configuration{})

	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	task := webhookTask(t, NewWebhook{Event: EventDepositMatured, Payload: map[string]interface{}{}})

	err := ProcessWebhook(context.Background(), task)
	require.NoError(t, err)
	assert.Zero(t, httpmock.GetTotalCallCount())
}
