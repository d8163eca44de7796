package artha

import (
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"

	"github.com/arthabank/artha/config"
	redis_db "github.com/arthabank/artha/internal/redis-db"
)

// Queue wraps the asynq client used for webhook delivery and the daily
// schedule sweeps.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// queueWebhook enqueues a webhook delivery task. Delivery failures are retried
// by the worker, not here.
func (q *Queue) queueWebhook(webhook NewWebhook) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}
	if cfg.Notification.Webhook.Url == "" {
		return nil
	}

	payload, err := json.Marshal(webhook)
	if err != nil {
		return err
	}
	task := asynq.NewTask(cfg.Queue.WebhookQueue, payload, asynq.Queue(cfg.Queue.WebhookQueue))
	if _, err := q.Client.Enqueue(task); err != nil {
		log.Printf("Error enqueuing webhook: %v", err)
		return err
	}
	return nil
}
