package metrics

import "context"

// OutcomeRecorder matches idempotency.Recorder.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, outcome string)
}

// Multi fans one outcome out to several recorders. Nil entries are skipped.
type Multi []OutcomeRecorder

// RecordOutcome forwards to every recorder in order.
func (m Multi) RecordOutcome(ctx context.Context, outcome string) {
	for _, r := range m {
		if r != nil {
			r.RecordOutcome(ctx, outcome)
		}
	}
}
