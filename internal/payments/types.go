package payments

import "time"

// Charge statuses
const (
	StatusPending = "PENDING"
	StatusSettled = "SETTLED"
	StatusFailed  = "FAILED"
)

// Charge is the item stored in the charges DynamoDB table.
type Charge struct {
	TransactionID  string    `dynamodbav:"transaction_id"` // PK
	IdempotencyKey string    `dynamodbav:"idempotency_key,omitempty"`
	Amount         float64   `dynamodbav:"amount"`
	Currency       string    `dynamodbav:"currency"`
	Status         string    `dynamodbav:"status"` // PENDING | SETTLED | FAILED
	Message        string    `dynamodbav:"message,omitempty"`
	CreatedAt      time.Time `dynamodbav:"created_at"`
	UpdatedAt      time.Time `dynamodbav:"updated_at"`
	Attempts       int       `dynamodbav:"attempts,omitempty"`
}

// Result is the response body of a successful charge.
type Result struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	TransactionID string `json:"transactionId"`
}

// ChargeEvent is the payload sent from the API -> SQS -> worker.
type ChargeEvent struct {
	TransactionID  string  `json:"transaction_id"`
	IdempotencyKey string  `json:"idempotency_key"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	CorrelationID  string  `json:"correlation_id,omitempty"`
}

// ChargeInput is what a caller asks the Service to charge.
type ChargeInput struct {
	Amount         float64
	Currency       string
	IdempotencyKey string
	CorrelationID  string
}
