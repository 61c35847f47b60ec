package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"vidshare_backend/internal/worker"
	"vidshare_backend/pkg/config"
	"vidshare_backend/pkg/database"
	"vidshare_backend/pkg/email"
	"vidshare_backend/pkg/utils/cloudflare"
	"vidshare_backend/pkg/utils/storage"
)

func main() {
	cfg := config.Load()

	if cfg.Redis.Addr == "" {
		log.Fatal("REDIS_ADDR is required for the worker")
	}

	database.InitDB(cfg.Database)

	var opts []worker.Option

	r2, err := cloudflare.NewR2(context.Background(), cloudflare.R2Config{
		AccountID: cfg.Storage.R2AccountID,
		AccessKey: cfg.Storage.R2AccessKey,
		SecretKey: cfg.Storage.R2SecretKey,
		Bucket:    cfg.Storage.R2Bucket,
		PublicURL: cfg.Storage.R2PublicURL,
	})
	if err != nil {
		log.Printf("Object storage disabled: %v", err)
	} else {
		opts = append(opts, worker.WithObjectStore(r2))
	}

	if err := email.InitEmailService(cfg.Email.APIKey, email.WithAPIURL(cfg.Email.APIURL), email.WithFrom(cfg.Email.From)); err != nil {
		log.Printf("Email service disabled: %v", err)
	} else {
		opts = append(opts, worker.WithMailer(email.GlobalEmailService))
	}

	handler := worker.NewTaskHandler(database.GetDB(), storage.NewLocalStorage(cfg.Storage.UploadDir), opts...)

	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			"critical": 4,
			"default":  2,
		},
		RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
			delay := 30 * time.Second
			for i := 0; i < n; i++ {
				delay *= 2
				if delay > time.Hour {
					return time.Hour
				}
			}
			log.Printf("Task %s failed %d times, retrying in %v", task.Type(), n+1, delay)
			return delay
		},
	})

	log.Printf("Worker starting, redis %s", cfg.Redis.Addr)
	if err := srv.Run(handler.Mux()); err != nil {
		log.Fatalf("could not run server: %v", err)
	}
}
