package idempotency

import "time"

// Status is the lifecycle state of an idempotency record.
type Status string

// Record statuses
const (
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
)

// DefaultTTL is how long a record is honoured before it is treated as absent.
const DefaultTTL = time.Hour

// Record is the per-key entry kept by the Store.
type Record struct {
	Key          string    `json:"key"`
	Status       Status    `json:"status"`
	Fingerprint  string    `json:"fingerprint"`
	CreatedAt    time.Time `json:"created_at"`
	StatusCode   int       `json:"status_code,omitempty"`   // COMPLETED only
	ResponseBody any       `json:"response_body,omitempty"` // COMPLETED only

	completion *Completion
}

// Outcome is the status code and payload produced by an operation.
type Outcome struct {
	StatusCode int
	Body       any
}

// Response is what the coordinator hands back to the transport layer.
type Response struct {
	StatusCode int
	Body       any
	CacheHit   bool
}

func (o Outcome) response(cacheHit bool) Response {
	return Response{StatusCode: o.StatusCode, Body: o.Body, CacheHit: cacheHit}
}

// ErrorBody is the JSON shape of every error payload produced here.
type ErrorBody struct {
	Error string `json:"error"`
}
