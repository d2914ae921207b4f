package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

// MessageRequired is returned when amount or currency is missing.
const MessageRequired = "Amount and currency are required"

// ErrEmptyBody is returned by ParseJSON for a blank payload.
var ErrEmptyBody = errors.New("empty request body")

// ParseJSON decodes raw into generic JSON values (maps, slices, json.Number).
// Trailing data after the first value is rejected.
func ParseJSON(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyBody
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return out, nil
}

// DecodeAndValidate unmarshals raw into out and runs validation.
// On failure it returns the 400 payload to send; ok is false.
// A blank payload is validated as an empty object.
func DecodeAndValidate(raw []byte, out any, v *validatorv10.Validate) (problem gin.H, ok bool) {
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return gin.H{
				"error": "invalid_request_body",
				"msg":   err.Error(),
			}, false
		}
	}

	if err := v.Struct(out); err != nil {
		if missingRequired(err) {
			return gin.H{"error": MessageRequired}, false
		}
		return gin.H{
			"error":  "validation_failed",
			"fields": validationErrorsToMap(err),
		}, false
	}
	return nil, true
}

func missingRequired(err error) bool {
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		return false
	}
	for _, fe := range ve {
		if fe.Tag() == "required" {
			return true
		}
	}
	return false
}

func validationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	var ve validatorv10.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fe.StructNamespace()] = fe.Error()
		}
	} else {
		out["error"] = err.Error()
	}
	return out
}
