package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/you-humble/printq/api/internal/app"
)

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "api/configs/local.yaml"), "path to the YAML config")
	flag.Parse()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	a := app.New(ctx, *configPath)
	if err := a.Run(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
