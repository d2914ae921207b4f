package idempotency

import (
	"context"
	"log/slog"
	"time"
)

// Outcome labels passed to a Recorder.
const (
	OutcomeLeader          = "leader"
	OutcomeReplay          = "replay"
	OutcomeFollower        = "follower"
	OutcomeConflict        = "conflict"
	OutcomeMissingKey      = "missing_key"
	OutcomeFailed          = "failed"
	OutcomeInFlightTimeout = "in_flight_timeout"
)

const defaultFailureMessage = "Operation failed"

// Config tunes a Coordinator. Zero durations mean no bound.
type Config struct {
	// OperationTimeout bounds the leader's operation. The operation does not
	// inherit the caller's cancellation, only this deadline.
	OperationTimeout time.Duration

	// WaitTimeout bounds how long a follower waits for the leader.
	WaitTimeout time.Duration

	// RejectInFlightMismatch makes a follower whose body differs from the
	// in-flight request fail with ErrFingerprintMismatch instead of waiting.
	RejectInFlightMismatch bool

	// FailureMessage is the error text published when the operation fails.
	FailureMessage string
}

func (c *Config) setDefaults() {
	if c.FailureMessage == "" {
		c.FailureMessage = defaultFailureMessage
	}
}

// Recorder receives one outcome label per Execute call.
type Recorder interface {
	RecordOutcome(ctx context.Context, outcome string)
}

// Option configures a Coordinator.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	recorder Recorder
}

// WithLogger sets the logger. The coordinator adds a component attribute.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecorder sets the outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}
