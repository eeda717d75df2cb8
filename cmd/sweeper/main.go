package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"kidscheckin/internal/checkin"
	"kidscheckin/internal/config"
	"kidscheckin/internal/queue"
	"kidscheckin/internal/store"
)

// Sweeper binary: expires stale pending requests on a fixed interval and
// publishes the resulting lifecycle events for the notification service.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "kidscheckin:events")
	}

	repo := checkin.NewRepository(db.Client)
	sweeper := checkin.NewSweeper(repo, cfg.SweepInterval)
	sweeper.Notify = func(requestIDs []string) {
		for _, id := range requestIDs {
			msg := queue.Message{Type: queue.EventRequestExpired, Body: []byte(id)}
			if err := q.Publish(ctx, msg); err != nil {
				log.Printf("publish expired event for %s failed: %v", id, err)
			}
		}
	}

	log.Printf("sweeper started, interval %s", cfg.SweepInterval)
	sweeper.Run(ctx)
	log.Println("sweeper stopped")
}
