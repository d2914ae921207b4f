package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

type noBody struct{}

// NoBody stands for a request without a payload. It fingerprints to the
// digest of the empty string, distinct from JSON null and from {}.
var NoBody = noBody{}

// Fingerprint returns the lowercase hex SHA-256 of the canonical form of body.
// Map keys are sorted at every depth, so two bodies that differ only in key
// order share a fingerprint; array order is significant.
func Fingerprint(body any) (string, error) {
	var b strings.Builder
	if _, absent := body.(noBody); !absent {
		if err := canonicalize(&b, body); err != nil {
			return "", fmt.Errorf("fingerprint: %w", err)
		}
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:]), nil
}

func canonicalize(b *strings.Builder, v any) error {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(t))
	case string:
		return writeString(b, t)
	case json.Number:
		return writeNumber(b, t)
	case float64:
		return writeFloat(b, t)
	case float32:
		return writeFloat(b, float64(t))
	case int:
		b.WriteString(strconv.Itoa(t))
	case int64:
		b.WriteString(strconv.FormatInt(t, 10))
	case int32:
		b.WriteString(strconv.FormatInt(int64(t), 10))
	case uint:
		b.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint64:
		b.WriteString(strconv.FormatUint(t, 10))
	case []any:
		b.WriteByte('[')
		for i, el := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := canonicalize(b, el); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeString(b, k); err != nil {
				return err
			}
			b.WriteByte(':')
			if err := canonicalize(b, t[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		generic, err := toGeneric(v)
		if err != nil {
			return err
		}
		return canonicalize(b, generic)
	}
	return nil
}

// toGeneric round-trips typed values (structs, typed maps and slices) into
// the map[string]any / []any / json.Number shapes handled above.
func toGeneric(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode %T: %w", v, err)
	}
	return out, nil
}

func writeString(b *strings.Builder, s string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	b.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return nil
}

// writeNumber normalises json.Number so 100, 100.0 and 1e2 agree.
func writeNumber(b *strings.Builder, n json.Number) error {
	f, err := n.Float64()
	if err != nil {
		b.WriteString(n.String())
		return nil
	}
	return writeFloat(b, f)
}

func writeFloat(b *strings.Builder, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("unsupported number %v", f)
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return err
	}
	b.Write(raw)
	return nil
}
