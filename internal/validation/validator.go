package validation

import (
	"math"

	validatorv10 "github.com/go-playground/validator/v10"
)

// fractions of a minor unit below this are float noise, not precision
const amountEpsilon = 1e-6

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// amounts are charged in minor units, so more than two decimals cannot be honoured
	v.RegisterStructValidation(chargeStructValidation, ChargeRequest{})

	return v
}

func chargeStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(ChargeRequest)

	cents := req.Amount * 100
	if math.Abs(cents-math.Round(cents)) > amountEpsilon {
		sl.ReportError(req.Amount, "amount", "Amount", "amount_precision", "")
	}
}
