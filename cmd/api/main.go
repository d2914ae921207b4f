package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-idempotent-payments/internal/aws"
	"github.com/imrishuroy/go-idempotent-payments/internal/config"
	"github.com/imrishuroy/go-idempotent-payments/internal/handlers"
	"github.com/imrishuroy/go-idempotent-payments/internal/idempotency"
	"github.com/imrishuroy/go-idempotent-payments/internal/logging"
	"github.com/imrishuroy/go-idempotent-payments/internal/metrics"
	"github.com/imrishuroy/go-idempotent-payments/internal/payments"
)

func setupRouter(cfg handlers.HandlerConfig, prom *metrics.Prometheus) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), prom.Middleware())

	handlers.RegisterHealthRoutes(r)
	r.GET("/metrics", gin.WrapH(prom.Handler()))
	handlers.RegisterPaymentsRoutes(r, cfg)

	return r
}

// newChargeService wires the ledger and event publisher only when their
// table and queue are configured; otherwise charges stay in memory.
func newChargeService(cfg *config.Config, clients *aws.Clients, logger *slog.Logger) *payments.Service {
	var (
		ledger    payments.Ledger
		publisher payments.EventPublisher
	)
	if cfg.ChargesTable != "" {
		ledger = payments.NewStore(clients.DynamoDB, cfg.ChargesTable)
	}
	if cfg.ChargeEventsURL != "" {
		publisher = aws.NewPublisher(clients.SQS, cfg.ChargeEventsURL)
	}
	return payments.NewService(ledger, publisher, cfg.PaymentDelay, logger)
}

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

	prom := metrics.NewPrometheus(cfg.MetricsNamespace)
	recorders := metrics.Multi{prom}
	if !cfg.RunLocal {
		recorders = append(recorders, aws.NewMetricsRecorder(clients.CloudWatch, cfg.MetricsNamespace, logger))
	}

	coordinator := idempotency.NewCoordinator(
		idempotency.NewStore(cfg.IdempotencyTTL),
		idempotency.Config{
			OperationTimeout:       cfg.OperationTimeout,
			WaitTimeout:            cfg.WaitTimeout,
			RejectInFlightMismatch: cfg.RejectInFlightMismatch,
			FailureMessage:         handlers.MessageChargeFailed,
		},
		idempotency.WithLogger(logger),
		idempotency.WithRecorder(recorders),
	)

	r := setupRouter(handlers.HandlerConfig{
		Coordinator: coordinator,
		Charger:     newChargeService(cfg, clients, logger),
		Logger:      logger,
	}, prom)

	// if RUN_LOCAL is true, run a local HTTP server for development.
	if cfg.RunLocal {
		logger.Info("running local server", slog.String("addr", cfg.Addr()))
		if err := r.Run(cfg.Addr()); err != nil {
			logger.Error("failed to run local server", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
