package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Quantity is an optional numeric value from the analysis payload. The
// service emits numbers, numeric strings or null depending on which stage
// produced the value, so all three are accepted.
type Quantity struct {
	Value float64
	Valid bool
}

// Q returns a present quantity.
func Q(v float64) Quantity {
	return Quantity{Value: v, Valid: true}
}

// Present reports whether the quantity carries a non-zero value. Zero, null
// and absent are all treated as "nothing to show".
func (q Quantity) Present() bool {
	return q.Valid && q.Value != 0
}

// String formats the value without trailing zeros.
func (q Quantity) String() string {
	if !q.Valid {
		return ""
	}
	return strconv.FormatFloat(q.Value, 'f', -1, 64)
}

// UnmarshalJSON implements json.Unmarshaler.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = Quantity{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			// Unparseable text such as "unknown" is treated as absent.
			*q = Quantity{}
			return nil
		}
		*q = Q(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*q = Q(v)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (q Quantity) MarshalJSON() ([]byte, error) {
	if !q.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(q.Value)
}
