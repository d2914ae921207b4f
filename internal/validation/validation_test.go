package validation

import (
	"encoding/json"
	"testing"
)

func TestChargeRequest_Valid(t *testing.T) {
	v := New()

	req := ChargeRequest{Amount: 100, Currency: "GHS"}
	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}

	req = ChargeRequest{Amount: 12.34, Currency: "USD"}
	if err := v.Struct(req); err != nil {
		t.Fatalf("expected two decimals to be valid, got error: %v", err)
	}
}

func TestChargeRequest_InvalidPrecision(t *testing.T) {
	v := New()

	req := ChargeRequest{Amount: 1.005, Currency: "USD"}
	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation error for sub-cent amount, got nil")
	}
}

func TestChargeRequest_MissingFields(t *testing.T) {
	v := New()

	if err := v.Struct(ChargeRequest{}); err == nil {
		t.Fatal("expected validation errors for missing required fields, got nil")
	}
}

func TestDecodeAndValidate_Required(t *testing.T) {
	v := New()

	for _, raw := range []string{``, `{}`, `{"amount":100}`, `{"currency":"GHS"}`} {
		var req ChargeRequest
		problem, ok := DecodeAndValidate([]byte(raw), &req, v)
		if ok {
			t.Fatalf("%q: expected failure", raw)
		}
		if problem["error"] != MessageRequired {
			t.Fatalf("%q: expected %q, got %v", raw, MessageRequired, problem["error"])
		}
	}
}

func TestDecodeAndValidate_FieldErrors(t *testing.T) {
	v := New()

	var req ChargeRequest
	problem, ok := DecodeAndValidate([]byte(`{"amount":-5,"currency":"usd"}`), &req, v)
	if ok {
		t.Fatal("expected failure")
	}
	if problem["error"] != "validation_failed" {
		t.Fatalf("expected validation_failed, got %v", problem["error"])
	}
	fields, _ := problem["fields"].(map[string]string)
	if _, ok := fields["ChargeRequest.Amount"]; !ok {
		t.Fatalf("expected Amount field error, got %v", fields)
	}
	if _, ok := fields["ChargeRequest.Currency"]; !ok {
		t.Fatalf("expected Currency field error, got %v", fields)
	}
}

func TestDecodeAndValidate_WrongType(t *testing.T) {
	v := New()

	var req ChargeRequest
	problem, ok := DecodeAndValidate([]byte(`{"amount":"100","currency":"GHS"}`), &req, v)
	if ok {
		t.Fatal("expected failure")
	}
	if problem["error"] != "invalid_request_body" {
		t.Fatalf("expected invalid_request_body, got %v", problem["error"])
	}
}

func TestDecodeAndValidate_OK(t *testing.T) {
	v := New()

	var req ChargeRequest
	if problem, ok := DecodeAndValidate([]byte(`{"amount":100,"currency":"GHS"}`), &req, v); !ok {
		t.Fatalf("expected success, got %v", problem)
	}
	if req.Amount != 100 || req.Currency != "GHS" {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestParseJSON(t *testing.T) {
	got, err := ParseJSON([]byte(` {"amount":100,"currency":"GHS"} `))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T", got)
	}
	if _, ok := m["amount"].(json.Number); !ok {
		t.Fatalf("expected json.Number, got %T", m["amount"])
	}

	if _, err := ParseJSON([]byte("   ")); err != ErrEmptyBody {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
	if _, err := ParseJSON([]byte(`{"amount":`)); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
	if _, err := ParseJSON([]byte(`{} {}`)); err == nil {
		t.Fatal("expected error for trailing data")
	}
}
