package core

import (
	"math"
	"strconv"
	"strings"
)

// Value is a single cell of a respondent table. Missing is an explicit
// state: a missing Value compares equal to another missing Value and
// never equal to any text, including the literal string "NA".
type Value struct {
	text    string
	num     float64
	numeric bool
	missing bool
}

// Missing returns the missing value.
func Missing() Value {
	return Value{missing: true}
}

// NewText creates a textual value. Whitespace-only text is missing.
func NewText(s string) Value {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Missing()
	}
	return Value{text: trimmed}
}

// NewNumber creates a numeric value. NaN and infinities are missing.
func NewNumber(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Missing()
	}
	return Value{
		text:    strconv.FormatFloat(f, 'f', -1, 64),
		num:     f,
		numeric: true,
	}
}

// ParseValue creates a value from raw cell text, detecting numerics.
func ParseValue(s string) Value {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Missing()
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Missing()
		}
		return Value{text: trimmed, num: f, numeric: true}
	}
	return Value{text: trimmed}
}

// IsMissing reports whether the value is missing.
func (v Value) IsMissing() bool {
	return v.missing
}

// Text returns the trimmed textual representation, empty when missing.
func (v Value) Text() string {
	if v.missing {
		return ""
	}
	return v.text
}

// Float returns the numeric value and whether one is available.
func (v Value) Float() (float64, bool) {
	if v.missing || !v.numeric {
		return 0, false
	}
	return v.num, true
}

// IsNumeric reports whether the value carries a numeric interpretation.
func (v Value) IsNumeric() bool {
	return !v.missing && v.numeric
}

// Equals compares two values. Missing equals missing; a missing value
// never equals a present one. Text comparison is case-sensitive on the
// trimmed representation; numeric values also match on equal numbers.
func (v Value) Equals(other Value) bool {
	if v.missing || other.missing {
		return v.missing && other.missing
	}
	if v.numeric && other.numeric {
		return v.num == other.num
	}
	return v.text == other.text
}

// EqualsText reports whether a present value matches the given option
// text, case-sensitive with both sides trimmed. Missing never matches.
func (v Value) EqualsText(option string) bool {
	if v.missing {
		return false
	}
	return v.text == strings.TrimSpace(option)
}
