package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"schoolattendance/internal/config"
	"schoolattendance/internal/queue"
	"schoolattendance/internal/store"
	"schoolattendance/internal/tally"
)

// Worker drains the shared Redis queue into the daily tally.
func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg).With("component", "worker")
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	if cfg.QueueBackend != "redis" {
		log.Error("worker needs QUEUE_BACKEND=redis; the memory queue is consumed inside the api process")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := store.NewRedis(cfg.RedisAddr)
	if err != nil {
		log.Error("redis config", "err", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Warn("redis not reachable yet, will keep polling", "addr", cfg.RedisAddr)
	}

	t := tally.NewRedis(redisClient.Client, "")

	q := queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	log.Info("worker started, waiting for events", "queue", cfg.QueueKey)
	if err := tally.Consume(ctx, q, t, log); err != nil {
		log.Error("queue consume failed", "err", err)
		os.Exit(1)
	}
	log.Info("worker stopped")
}
