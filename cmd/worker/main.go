package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rollcall/internal/config"
	"rollcall/internal/notify"
	"rollcall/internal/queue"
	"rollcall/internal/store"
)

// Worker consumes notification messages and persists them.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "rollcall:notifications")
	}

	repo := notify.NewRepository(db.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != notify.MessageType {
			continue
		}

		n, err := notify.Decode(msg.Body)
		if err != nil {
			log.Printf("decode notification failed: %v", err)
			continue
		}

		if err := repo.Create(ctx, &n); err != nil {
			log.Printf("persist notification for user %d failed: %v", n.UserID, err)
			continue
		}

		log.Printf("notification %s delivered to user %d", n.Type, n.UserID)
	}

	log.Println("worker stopped")
}
