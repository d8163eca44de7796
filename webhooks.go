package artha

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hibiken/asynq"

	"github.com/arthabank/artha/config"
	"github.com/arthabank/artha/internal/request"
)

// NewWebhook is the envelope every outbound notification is wrapped in.
type NewWebhook struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"data"`
}

const (
	EventTransactionApplied = "transaction.applied"
	EventAccountFrozen      = "account.frozen"
	EventLoanDisbursed      = "loan.disbursed"
	EventInstallmentPaid    = "loan.installment.paid"
	EventInstallmentOverdue = "loan.installment.overdue"
	EventLoanClosed         = "loan.closed"
	EventDepositMatured     = "deposit.matured"
	EventDepositBroken      = "deposit.broken"
)

func processHTTP(data NewWebhook) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := request.ToJsonReq(data)
	if err != nil {
		log.Println("Error marshaling webhook payload:", err)
		return err
	}

	req, err := http.NewRequest("POST", conf.Notification.Webhook.Url, payload)
	if err != nil {
		return err
	}
	for key, value := range conf.Notification.Webhook.Headers {
		req.Header.Set(key, value)
	}

	var response map[string]interface{}
	resp, err := request.Call(req, &response)
	if err != nil {
		log.Println("Error sending webhook:", err)
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("Webhook delivery failed with status code: %d", resp.StatusCode)
		return nil
	}
	return nil
}

// ProcessWebhook delivers a queued notification, retrying transient failures
// with exponential backoff before letting asynq reschedule the task.
func ProcessWebhook(_ context.Context, task *asynq.Task) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	var payload NewWebhook
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		log.Printf("Error unmarshaling webhook payload: %v", err)
		return err
	}

	retry := backoff.NewExponentialBackOff()
	retry.MaxElapsedTime = 2 * time.Minute
	return backoff.Retry(func() error {
		return processHTTP(payload)
	}, retry)
}
