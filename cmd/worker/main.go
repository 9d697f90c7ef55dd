package main

// Standalone session cleanup, for deployments that run the API with several replicas
// and want exactly one process pruning Redis and the session database:
//   go run ./cmd/worker          # loop every CLEANUP_INTERVAL
//   go run ./cmd/worker -once    # single pass, e.g. from cron

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"interview-backend/internal/bootstrap"
	"interview-backend/internal/shared/config"
)

type cleaner interface {
	RunOnce(ctx context.Context) (storeRemoved, repoRemoved int, err error)
	Run(ctx context.Context)
}

func main() {
	once := flag.Bool("once", false, "run a single cleanup pass and exit")
	flag.Parse()

	cfg := config.Load()
	if cfg.SessionDB == "memory" {
		log.Printf("SESSION_DB=memory: nothing durable to clean from a separate process")
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, app.Janitor, *once); err != nil {
		log.Printf("cleanup: %v", err)
		app.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, c cleaner, once bool) error {
	if once {
		storeRemoved, repoRemoved, err := c.RunOnce(ctx)
		log.Printf("cleanup pass done store_removed=%d repo_removed=%d", storeRemoved, repoRemoved)
		return err
	}
	log.Printf("cleanup worker started")
	c.Run(ctx)
	log.Printf("cleanup worker stopped")
	return nil
}
