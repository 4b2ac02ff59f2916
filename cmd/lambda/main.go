package main

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/candidatory/electionbot/internal/config"
	"github.com/candidatory/electionbot/internal/logger"
	"github.com/candidatory/electionbot/internal/pipeline"
)

// handler runs one pipeline round per invocation. The scheduler's payload is
// ignored; all tuning comes from the environment.
func handler(ctx context.Context, _ json.RawMessage) (*pipeline.Stats, error) {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		return nil, err
	}

	// The function's own timeout should exceed the pipeline deadline; the
	// inner deadline keeps the run's budget accounting independent of how
	// the function is provisioned.
	rctx, cancel := context.WithTimeout(ctx, cfg.GlobalDeadline)
	defer cancel()

	return pipeline.New(cfg, log).Run(rctx), nil
}

func main() {
	lambda.Start(handler)
}
