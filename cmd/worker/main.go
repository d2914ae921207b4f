package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/imrishuroy/go-idempotent-payments/internal/aws"
	"github.com/imrishuroy/go-idempotent-payments/internal/config"
	"github.com/imrishuroy/go-idempotent-payments/internal/logging"
	"github.com/imrishuroy/go-idempotent-payments/internal/payments"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.RunLocal)
	slog.SetDefault(logger)

	clients, err := aws.NewClients(context.Background())
	if err != nil {
		logger.Error("failed to init aws clients", slog.Any("error", err))
		os.Exit(1)
	}

	processor := NewProcessor(payments.NewStore(clients.DynamoDB, cfg.ChargesTable), nil, logger)

	// If RUN_LOCAL=true, simulate a single SQS event for local testing.
	if cfg.RunLocal {
		testBody := os.Getenv("LOCAL_SQS_BODY")
		if testBody == "" {
			testBody = `{"transaction_id":"txn_local-1","idempotency_key":"local-key-1","amount":100,"currency":"GHS"}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{
				{MessageId: "local-1", Body: testBody},
			},
		}
		resp, _ := processor.Handle(context.Background(), event)
		if len(resp.BatchItemFailures) > 0 {
			logger.Error("local handler reported failures", slog.Int("failed", len(resp.BatchItemFailures)))
			os.Exit(1)
		}
		return
	}

	lambda.Start(processor.Handle)
}
