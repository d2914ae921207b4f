package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFingerprint(t *testing.T, body any) string {
	t.Helper()
	fp, err := Fingerprint(body)
	require.NoError(t, err)
	return fp
}

func decode(t *testing.T, raw string) any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var out any
	require.NoError(t, dec.Decode(&out))
	return out
}

func TestFingerprint_KeyOrderInsensitive(t *testing.T) {
	a := map[string]any{"amount": 100.0, "currency": "USD"}
	b := map[string]any{"currency": "USD", "amount": 100.0}

	assert.Equal(t, mustFingerprint(t, a), mustFingerprint(t, b))
	assert.Equal(t,
		mustFingerprint(t, decode(t, `{"amount":100,"currency":"USD"}`)),
		mustFingerprint(t, decode(t, `{"currency":"USD","amount":100}`)))
}

func TestFingerprint_ValueSensitive(t *testing.T) {
	assert.NotEqual(t,
		mustFingerprint(t, map[string]any{"amount": 100.0}),
		mustFingerprint(t, map[string]any{"amount": 200.0}))
	assert.NotEqual(t,
		mustFingerprint(t, map[string]any{"amount": 100.0}),
		mustFingerprint(t, map[string]any{"amount": "100"}))
	assert.NotEqual(t,
		mustFingerprint(t, map[string]any{"amount": 100.0}),
		mustFingerprint(t, map[string]any{"total": 100.0}))
}

func TestFingerprint_ArrayOrderMatters(t *testing.T) {
	assert.NotEqual(t,
		mustFingerprint(t, []any{1.0, 2.0}),
		mustFingerprint(t, []any{2.0, 1.0}))
}

func TestFingerprint_RecursesIntoArrayElements(t *testing.T) {
	a := decode(t, `{"items":[{"sku":"a","qty":1},{"meta":{"x":1,"y":2}}]}`)
	b := decode(t, `{"items":[{"qty":1,"sku":"a"},{"meta":{"y":2,"x":1}}]}`)
	assert.Equal(t, mustFingerprint(t, a), mustFingerprint(t, b))
}

func TestFingerprint_CanonicalForm(t *testing.T) {
	// {"amount":100,"currency":"GHS"} hashed directly
	sum := sha256.Sum256([]byte(`{"amount":100,"currency":"GHS"}`))
	want := hex.EncodeToString(sum[:])

	assert.Equal(t, want, mustFingerprint(t, decode(t, `{"currency":"GHS","amount":100.0}`)))
	assert.Len(t, want, 64)
}

func TestFingerprint_NumberNormalisation(t *testing.T) {
	assert.Equal(t,
		mustFingerprint(t, decode(t, `{"amount":100}`)),
		mustFingerprint(t, map[string]any{"amount": 100}))
	assert.Equal(t,
		mustFingerprint(t, decode(t, `{"amount":1e2}`)),
		mustFingerprint(t, decode(t, `{"amount":100.0}`)))
}

func TestFingerprint_EmptyNullAndAbsent(t *testing.T) {
	empty := mustFingerprint(t, map[string]any{})
	null := mustFingerprint(t, nil)
	absent := mustFingerprint(t, NoBody)

	assert.Equal(t, empty, mustFingerprint(t, map[string]any{}))
	assert.Equal(t, null, mustFingerprint(t, nil))
	assert.Equal(t, absent, mustFingerprint(t, NoBody))

	sum := sha256.Sum256(nil)
	assert.Equal(t, hex.EncodeToString(sum[:]), absent)
	assert.NotEqual(t, empty, null)
	assert.NotEqual(t, null, absent)
}

func TestFingerprint_TypedValues(t *testing.T) {
	type charge struct {
		Currency string  `json:"currency"`
		Amount   float64 `json:"amount"`
	}
	assert.Equal(t,
		mustFingerprint(t, decode(t, `{"amount":100,"currency":"USD"}`)),
		mustFingerprint(t, charge{Currency: "USD", Amount: 100}))
}

func TestFingerprint_HTMLNotEscaped(t *testing.T) {
	sum := sha256.Sum256([]byte(`{"note":"a<b&c"}`))
	assert.Equal(t, hex.EncodeToString(sum[:]), mustFingerprint(t, map[string]any{"note": "a<b&c"}))
}

func TestFingerprint_RejectsNaN(t *testing.T) {
	_, err := Fingerprint(map[string]any{"amount": math.NaN()})
	assert.Error(t, err)
}
