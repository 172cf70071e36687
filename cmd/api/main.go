package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"taskdeck/internal/app"
	"taskdeck/internal/config"
	"taskdeck/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	a := app.New(cfg)
	if err := a.Init(ctx); err != nil {
		log.Fatalf("initializing app: %v", err)
	}

	if err := a.Run(ctx); err != nil {
		logger.Error("App: exited with error", err)
	}
}
