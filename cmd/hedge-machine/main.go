package main

import (
	"os"

	"github.com/joho/godotenv"

	"hedge-machine/internal/cli"
	"hedge-machine/observability"
)

func main() {
	if err := godotenv.Load(); err != nil {
		observability.Debug("no .env file found, using environment variables")
	}

	observability.InitLogger(os.Getenv("ENV") == "production")
	observability.InitMetrics()

	if err := cli.NewRootCmd().Execute(); err != nil {
		observability.Error("command failed", "error", err)
		os.Exit(1)
	}
}
