package feature

import (
	"strconv"
	"strings"
)

// Value is a single raw field value, either text or a number.
type Value struct {
	text    string
	num     float64
	numeric bool
}

// Text returns a text value.
func Text(s string) Value { return Value{text: s} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{num: f, numeric: true} }

// IsNumber reports whether the value was supplied as a number.
func (v Value) IsNumber() bool { return v.numeric }

// String renders the value as category text. Whole numbers render without a
// fractional part so that 1 and "1" encode identically.
func (v Value) String() string {
	if !v.numeric {
		return v.text
	}
	return strconv.FormatFloat(v.num, 'f', -1, 64)
}

// Float returns the numeric form of the value. Text values are parsed after
// trimming surrounding whitespace.
func (v Value) Float() (float64, bool) {
	if v.numeric {
		return v.num, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Record maps field names to raw values. Fields may be missing; unknown
// fields are carried along and ignored by the feature order.
type Record map[string]Value

// EncodedRecord maps field names to encoded numeric values.
type EncodedRecord map[string]float64
