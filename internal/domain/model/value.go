package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindNumber
	KindText
)

// Value is a series value: a number, a string, or null when the store
// recorded neither.
type Value struct {
	kind ValueKind
	num  float64
	text string
}

// Number returns a numeric Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Text returns a string Value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Null returns the empty Value.
func Null() Value { return Value{} }

// Kind reports which variant v holds.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v holds no value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float returns the numeric payload and whether v is a number.
func (v Value) Float() (float64, bool) { return v.num, v.kind == KindNumber }

// Str returns the text payload and whether v is text.
func (v Value) Str() (string, bool) { return v.text, v.kind == KindText }

// String formats v for display.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindText:
		return v.text
	default:
		return "null"
	}
}

// MarshalJSON encodes numbers as JSON numbers, text as strings and null as
// null. NaN and infinities have no JSON number form and are written as the
// strings "NaN", "+Inf" and "-Inf".
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return json.Marshal(v.String())
		}
		return json.Marshal(v.num)
	case KindText:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON number, string or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Null()
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidValue, string(data))
		}
		*v = Number(f)
		return nil
	}
}
