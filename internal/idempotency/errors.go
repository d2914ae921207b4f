package idempotency

import (
	"errors"
	"net/http"
)

var (
	// ErrMissingKey is returned when a request carries no idempotency key. No record is created.
	ErrMissingKey = errors.New("idempotency: key is missing")

	// ErrFingerprintMismatch is returned when a completed key is reused with a different body.
	ErrFingerprintMismatch = errors.New("idempotency: key already used for a different request body")

	// ErrRequestInFlight is returned when a follower stops waiting before the leader finishes.
	ErrRequestInFlight = errors.New("idempotency: request with the same key still in flight")

	// ErrOperationFailed wraps a leader's operation error. The key has been released.
	ErrOperationFailed = errors.New("idempotency: operation failed")
)

// Client-facing messages.
const (
	MessageMissingKey = "Idempotency-Key header is missing"
	MessageConflict   = "Idempotency key already used for a different request body."
	MessageInFlight   = "A request with this Idempotency-Key is still being processed. Retry later."
	MessageInternal   = "internal_error"
)

// ResponseFor maps an error returned by Execute to an HTTP-shaped response.
func ResponseFor(err error) Response {
	switch {
	case errors.Is(err, ErrMissingKey):
		return Response{StatusCode: http.StatusBadRequest, Body: ErrorBody{Error: MessageMissingKey}}
	case errors.Is(err, ErrFingerprintMismatch):
		return Response{StatusCode: http.StatusUnprocessableEntity, Body: ErrorBody{Error: MessageConflict}}
	case errors.Is(err, ErrRequestInFlight):
		return Response{StatusCode: http.StatusConflict, Body: ErrorBody{Error: MessageInFlight}}
	default:
		return Response{StatusCode: http.StatusInternalServerError, Body: ErrorBody{Error: MessageInternal}}
	}
}
