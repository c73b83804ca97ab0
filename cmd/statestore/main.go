// The statestore binary serves the shared run state over HTTP so multiple
// pipeline processes can work against one store.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"hedge-machine/config"
	"hedge-machine/observability"
	"hedge-machine/statestore"
)

func main() {
	if err := godotenv.Load(); err != nil {
		observability.Debug("no .env file found, using environment variables")
	}

	observability.InitLogger(os.Getenv("ENV") == "production")
	observability.InitMetrics()

	cfg, err := config.Load()
	if err != nil {
		observability.Fatal("invalid configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := statestore.NewServer(statestore.NewFileStore(cfg.StateStore.FilePath))

	observability.Info("state store starting",
		"addr", cfg.HTTP.Addr,
		"file", cfg.StateStore.FilePath)

	if err := server.ListenAndServe(ctx, cfg.HTTP.Addr); err != nil {
		observability.Fatal("state store server failed", "error", err)
	}
}
