package main

// Run the notification feed consumer on its own, e.g. with FEED_EMBEDDED=false on the API:
//   go run ./cmd/worker

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"student-dashboard/internal/bootstrap"
	"student-dashboard/internal/shared/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if strings.TrimSpace(cfg.AMQPURL) == "" {
		log.Fatal("AMQP_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	log.Printf("worker started queue=%s", app.Feed.Queue)
	app.Feed.Serve(ctx, app.Config.FeedRetry)
	log.Printf("worker stopped")
}
