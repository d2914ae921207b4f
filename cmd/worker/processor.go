package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/imrishuroy/go-idempotent-payments/internal/payments"
)

const defaultMaxAttempts = 5

// ChargeStore is the part of payments.Store the worker needs.
type ChargeStore interface {
	Get(ctx context.Context, transactionID string) (*payments.Charge, error)
	UpdateStatus(ctx context.Context, transactionID, expectedStatus, newStatus string) error
	IncrementAttempts(ctx context.Context, transactionID string) error
}

// Settler captures a pending charge with the payment provider.
type Settler interface {
	Settle(ctx context.Context, charge payments.Charge) error
}

// SettlerFunc adapts a function to Settler.
type SettlerFunc func(ctx context.Context, charge payments.Charge) error

// Settle calls f.
func (f SettlerFunc) Settle(ctx context.Context, charge payments.Charge) error {
	return f(ctx, charge)
}

// instantSettler accepts every charge.
var instantSettler = SettlerFunc(func(context.Context, payments.Charge) error { return nil })

// Processor settles charges announced on the charge events queue.
type Processor struct {
	store       ChargeStore
	settler     Settler
	maxAttempts int
	logger      *slog.Logger
}

// NewProcessor creates a worker processor. A nil settler accepts every charge.
func NewProcessor(store ChargeStore, settler Settler, logger *slog.Logger) *Processor {
	if settler == nil {
		settler = instantSettler
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		store:       store,
		settler:     settler,
		maxAttempts: defaultMaxAttempts,
		logger:      logger.With(slog.String("component", "settlement")),
	}
}

// Handle processes an SQS batch and reports failed messages individually, so
// only those are redelivered (and eventually land in the DLQ).
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.logger.Error("settlement failed",
				slog.String("message_id", rec.MessageId), slog.Any("error", err))
			resp.BatchItemFailures = append(resp.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg payments.ChargeEvent
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if msg.TransactionID == "" {
		return errors.New("message has no transaction_id")
	}

	logger := p.logger.With(
		slog.String("transaction_id", msg.TransactionID),
		slog.String("idempotency_key", msg.IdempotencyKey),
		slog.String("correlation_id", msg.CorrelationID),
	)
	logger.Info("received charge event")

	charge, err := p.store.Get(ctx, msg.TransactionID)
	if err != nil {
		return fmt.Errorf("failed to fetch charge: %w", err)
	}
	if charge == nil {
		return fmt.Errorf("charge not found: %s", msg.TransactionID)
	}

	switch charge.Status {
	case payments.StatusSettled:
		logger.Info("charge already settled")
		return nil
	case payments.StatusFailed:
		logger.Warn("charge already failed")
		return nil
	}

	if err := p.settler.Settle(ctx, *charge); err != nil {
		return p.recordFailure(ctx, logger, charge, err)
	}

	err = p.store.UpdateStatus(ctx, msg.TransactionID, payments.StatusPending, payments.StatusSettled)
	if errors.Is(err, payments.ErrStatusMismatch) {
		// a concurrent delivery got there first
		current, getErr := p.store.Get(ctx, msg.TransactionID)
		if getErr != nil {
			return fmt.Errorf("failed to re-read charge: %w", getErr)
		}
		if current != nil && current.Status == payments.StatusSettled {
			logger.Info("duplicate settlement event")
			return nil
		}
		status := "<missing>"
		if current != nil {
			status = current.Status
		}
		return fmt.Errorf("unexpected status for charge=%s: %s", msg.TransactionID, status)
	}
	if err != nil {
		return fmt.Errorf("failed to update status to SETTLED: %w", err)
	}

	logger.Info("charge settled")
	return nil
}

// recordFailure counts the attempt. Once maxAttempts is reached the charge is
// marked FAILED and the message acknowledged.
func (p *Processor) recordFailure(ctx context.Context, logger *slog.Logger, charge *payments.Charge, cause error) error {
	if err := p.store.IncrementAttempts(ctx, charge.TransactionID); err != nil {
		return fmt.Errorf("settle: %w (attempt not recorded: %v)", cause, err)
	}

	attempts := charge.Attempts + 1
	if attempts < p.maxAttempts {
		return fmt.Errorf("settle attempt %d: %w", attempts, cause)
	}

	err := p.store.UpdateStatus(ctx, charge.TransactionID, payments.StatusPending, payments.StatusFailed)
	if err != nil && !errors.Is(err, payments.ErrStatusMismatch) {
		return fmt.Errorf("failed to mark charge FAILED: %w", err)
	}
	logger.Error("giving up on charge", slog.Int("attempts", attempts), slog.Any("error", cause))
	return nil
}
