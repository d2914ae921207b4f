// Package idempotency deduplicates side-effecting requests by idempotency key.
//
// The first request for a key (the leader) runs the operation. Requests that
// arrive while it runs (followers) wait for its outcome, and requests that
// arrive after it completed replay the cached outcome, provided their body
// fingerprints the same. Records expire after the store's TTL.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// Operation is the side effect guarded by the coordinator. It runs at most
// once per key and fingerprint within the TTL window.
type Operation func(ctx context.Context) (Outcome, error)

// Coordinator admits one leader per key and serves everyone else from it.
type Coordinator struct {
	store    *Store
	cfg      Config
	logger   *slog.Logger
	recorder Recorder
}

// NewCoordinator returns a Coordinator backed by store.
func NewCoordinator(store *Store, cfg Config, opts ...Option) *Coordinator {
	cfg.setDefaults()

	opt := options{logger: slog.Default()}
	for _, o := range opts {
		o(&opt)
	}

	return &Coordinator{
		store:    store,
		cfg:      cfg,
		logger:   opt.logger.With(slog.String("component", "idempotency")),
		recorder: opt.recorder,
	}
}

// Execute runs op for a new key, waits for an in-flight duplicate, or replays
// a completed one.
//
// Errors: ErrMissingKey, ErrFingerprintMismatch, ErrRequestInFlight, and
// ErrOperationFailed. With ErrOperationFailed the returned Response is the
// failure outcome that was also handed to the followers.
func (c *Coordinator) Execute(ctx context.Context, key string, body any, op Operation) (Response, error) {
	if key == "" {
		c.record(ctx, OutcomeMissingKey)
		return Response{}, ErrMissingKey
	}

	fp, err := Fingerprint(body)
	if err != nil {
		return Response{}, err
	}

	rec, created := c.store.GetOrCreate(key, fp)
	if created {
		return c.lead(ctx, rec, op)
	}

	logger := c.logger.With(slog.String("key", key))

	switch rec.Status {
	case StatusCompleted:
		if rec.Fingerprint != fp {
			logger.Info("idempotency key reused with a different body")
			c.record(ctx, OutcomeConflict)
			return Response{}, ErrFingerprintMismatch
		}
		logger.Debug("replaying completed request", slog.Int("status", rec.StatusCode))
		c.record(ctx, OutcomeReplay)
		return Response{StatusCode: rec.StatusCode, Body: rec.ResponseBody, CacheHit: true}, nil
	default:
		if c.cfg.RejectInFlightMismatch && rec.Fingerprint != fp {
			logger.Info("in-flight idempotency key reused with a different body")
			c.record(ctx, OutcomeConflict)
			return Response{}, ErrFingerprintMismatch
		}
		return c.follow(ctx, logger, rec)
	}
}

// Handle is Execute with every error folded into an HTTP-shaped response.
func (c *Coordinator) Handle(ctx context.Context, key string, body any, op Operation) Response {
	resp, err := c.Execute(ctx, key, body, op)
	if err == nil || errors.Is(err, ErrOperationFailed) {
		return resp
	}
	if !isClientError(err) {
		c.logger.Error("idempotent request failed", slog.String("key", key), slog.Any("error", err))
	}
	return ResponseFor(err)
}

func (c *Coordinator) follow(ctx context.Context, logger *slog.Logger, rec Record) (Response, error) {
	waitCtx := ctx
	if c.cfg.WaitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.cfg.WaitTimeout)
		defer cancel()
	}

	logger.Debug("waiting for in-flight request")
	out, err := rec.completion.Await(waitCtx)
	if err != nil {
		logger.Warn("stopped waiting for in-flight request", slog.Any("error", err))
		c.record(ctx, OutcomeInFlightTimeout)
		return Response{}, fmt.Errorf("%w: %w", ErrRequestInFlight, err)
	}

	c.record(ctx, OutcomeFollower)
	return out.response(true), nil
}

func (c *Coordinator) lead(ctx context.Context, rec Record, op Operation) (Response, error) {
	logger := c.logger.With(slog.String("key", rec.Key))

	opCtx := context.WithoutCancel(ctx)
	if c.cfg.OperationTimeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(opCtx, c.cfg.OperationTimeout)
		defer cancel()
	}

	failure := Outcome{
		StatusCode: http.StatusInternalServerError,
		Body:       ErrorBody{Error: c.cfg.FailureMessage},
	}

	settled := false
	defer func() {
		// op panicked: free the key, let the panic continue.
		if !settled {
			logger.Error("operation panicked, releasing key")
			c.store.Release(rec, failure)
			c.record(ctx, OutcomeFailed)
		}
	}()

	logger.Debug("executing operation")
	out, err := op(opCtx)
	settled = true

	if err != nil {
		logger.Error("operation failed, releasing key", slog.Any("error", err))
		c.store.Release(rec, failure)
		c.record(ctx, OutcomeFailed)
		return failure.response(false), fmt.Errorf("%w: %w", ErrOperationFailed, err)
	}

	c.store.Complete(rec, out)
	logger.Info("operation completed", slog.Int("status", out.StatusCode))
	c.record(ctx, OutcomeLeader)
	return out.response(false), nil
}

func (c *Coordinator) record(ctx context.Context, outcome string) {
	if c.recorder != nil {
		c.recorder.RecordOutcome(ctx, outcome)
	}
}

func isClientError(err error) bool {
	return errors.Is(err, ErrMissingKey) ||
		errors.Is(err, ErrFingerprintMismatch) ||
		errors.Is(err, ErrRequestInFlight)
}
