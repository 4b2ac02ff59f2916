package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/candidatory/electionbot/internal/config"
	"github.com/candidatory/electionbot/internal/logger"
	"github.com/candidatory/electionbot/internal/pipeline"
)

func main() {
	// Missing .env is fine; production injects the environment directly.
	_ = godotenv.Load()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GlobalDeadline)
	defer cancel()

	stats := pipeline.New(cfg, log).Run(ctx)

	out, err := json.Marshal(stats)
	if err != nil {
		log.Error("summary encode failed", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
