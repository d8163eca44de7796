package main

import (
	"context"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/arthabank/artha"
	"github.com/arthabank/artha/config"
	redis_db "github.com/arthabank/artha/internal/redis-db"
)

func initializeQueues(cfg *config.Configuration) map[string]int {
	queues := make(map[string]int)
	queues[cfg.Queue.WebhookQueue] = 3
	queues[cfg.Queue.SweepQueue] = 1
	return queues
}

func redisConnOpt(conf *config.Configuration) (asynq.RedisClientOpt, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("error parsing Redis URL: %v", err)
	}
	return asynq.RedisClientOpt{
		Addr:      redisOption.Addr,
		Password:  redisOption.Password,
		DB:        redisOption.DB,
		TLSConfig: redisOption.TLSConfig,
	}, nil
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	connOpt, err := redisConnOpt(conf)
	if err != nil {
		return nil, err
	}

	return asynq.NewServer(
		connOpt,
		asynq.Config{
			Concurrency: 1,
			Queues:      queues,
		},
	), nil
}

func initializeTaskHandlers(a *arthaInstance, cfg *config.Configuration, mux *asynq.ServeMux) {
	mux.HandleFunc(cfg.Queue.WebhookQueue, artha.ProcessWebhook)
	mux.HandleFunc(cfg.Queue.SweepQueue, a.artha.ProcessSweep)
}

// startSweepScheduler registers the recurring sweep task. The scheduler
// enqueues on the sweep queue at the configured cron cadence and the worker
// picks it up like any other task.
func startSweepScheduler(conf *config.Configuration) (*asynq.Scheduler, error) {
	connOpt, err := redisConnOpt(conf)
	if err != nil {
		return nil, err
	}

	scheduler := asynq.NewScheduler(connOpt, nil)
	task := asynq.NewTask(conf.Queue.SweepQueue, nil, asynq.Queue(conf.Queue.SweepQueue))
	if _, err := scheduler.Register(conf.Queue.SweepCron, task); err != nil {
		return nil, fmt.Errorf("error registering sweep schedule: %v", err)
	}
	return scheduler, nil
}

// workerCommands defines the "workers" command. The workers drain the
// webhook and sweep queues.
func workerCommands(a *arthaInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start artha workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			shutdown, err := initializeTracing(ctx, conf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()

			queues := initializeQueues(conf)

			srv, err := initializeWorkerServer(conf, queues)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(a, conf, mux)

			scheduler, err := startSweepScheduler(conf)
			if err != nil {
				log.Fatal(err)
			}
			go func() {
				if err := scheduler.Run(); err != nil {
					log.Fatalf("could not run sweep scheduler: %v", err)
				}
			}()

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
