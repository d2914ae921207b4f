package validation

// ChargeRequest is the payload for POST /process-payment
type ChargeRequest struct {
	Amount   float64 `json:"amount" validate:"required,gt=0"`               // major units, at most two decimals
	Currency string  `json:"currency" validate:"required,len=3,uppercase"` // ISO 4217 code, e.g. GHS
}
