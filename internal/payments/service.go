package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DefaultProcessingDelay mimics the latency of the upstream payment gateway.
const DefaultProcessingDelay = 2 * time.Second

// Ledger records charges. *Store implements it.
type Ledger interface {
	Create(ctx context.Context, charge Charge) error
}

// EventPublisher emits charge events. *aws.Publisher implements it.
type EventPublisher interface {
	Publish(ctx context.Context, payload any, attributes map[string]string) (string, error)
}

// Service performs payment charges. A nil ledger or publisher is skipped.
type Service struct {
	ledger  Ledger
	events  EventPublisher
	delay   time.Duration
	logger  *slog.Logger
	nowFunc func() time.Time
	newID   func() string
}

// NewService wires a Service. delay < 0 disables the simulated latency.
func NewService(ledger Ledger, events EventPublisher, delay time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		ledger:  ledger,
		events:  events,
		delay:   delay,
		logger:  logger.With(slog.String("component", "payments")),
		nowFunc: time.Now,
		newID:   func() string { return "txn_" + uuid.NewString() },
	}
}

// Charge takes the payment, records it as PENDING and announces it to the
// settlement worker. A failed event publish is logged, not returned: the
// charge already happened and must not be repeated.
func (s *Service) Charge(ctx context.Context, in ChargeInput) (*Result, error) {
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("charge aborted: %w", ctx.Err())
		}
	}

	txnID := s.newID()
	message := fmt.Sprintf("Charged %s %s", strconv.FormatFloat(in.Amount, 'f', -1, 64), in.Currency)
	logger := s.logger.With(
		slog.String("transaction_id", txnID),
		slog.String("idempotency_key", in.IdempotencyKey))

	if s.ledger != nil {
		charge := Charge{
			TransactionID:  txnID,
			IdempotencyKey: in.IdempotencyKey,
			Amount:         in.Amount,
			Currency:       in.Currency,
			Status:         StatusPending,
			Message:        message,
			CreatedAt:      s.nowFunc().UTC(),
		}
		if err := s.ledger.Create(ctx, charge); err != nil {
			return nil, fmt.Errorf("record charge: %w", err)
		}
	}

	if s.events != nil {
		event := ChargeEvent{
			TransactionID:  txnID,
			IdempotencyKey: in.IdempotencyKey,
			Amount:         in.Amount,
			Currency:       in.Currency,
			CorrelationID:  in.CorrelationID,
		}
		attrs := map[string]string{
			"transaction_id":  txnID,
			"idempotency_key": in.IdempotencyKey,
			"correlation_id":  in.CorrelationID,
		}
		if _, err := s.events.Publish(ctx, event, attrs); err != nil {
			logger.Error("publish charge event failed", slog.Any("error", err))
		}
	}

	logger.Info("charge completed", slog.String("message", message))
	return &Result{
		Success:       true,
		Message:       message,
		TransactionID: txnID,
	}, nil
}
