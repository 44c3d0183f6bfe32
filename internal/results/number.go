package results

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"ledgerview/internal/core"
)

// Number is a decimal amount received from a loosely typed payload.
//
// Backends send amounts as JSON numbers or numeric strings. A value that does
// not parse keeps its raw text for display but counts as zero in arithmetic.
type Number struct {
	value decimal.Decimal
	raw   string
	valid bool
}

// NumberOf wraps a known-good decimal.
func NumberOf(d decimal.Decimal) Number {
	return Number{value: d, raw: d.String(), valid: true}
}

// ParseNumber parses s leniently. Surrounding whitespace is ignored; literals
// longer than core.MaxDecimalLength or with an exponent beyond
// core.MaxDecimalExponent are malformed.
func ParseNumber(s string) Number {
	d, err := core.ParseDecimal(s)
	if err != nil {
		return Number{raw: s}
	}
	return Number{value: d, raw: s, valid: true}
}

// Decimal returns the value for arithmetic; malformed numbers are zero.
func (n Number) Decimal() decimal.Decimal {
	if !n.valid {
		return decimal.Zero
	}
	return n.value
}

func (n Number) Valid() bool { return n.valid }

// Raw returns the text as it was received.
func (n Number) Raw() string { return n.raw }

// Currency formats the amount as "$12.30". Malformed values are shown verbatim;
// a missing value reads as "$0.00".
func (n Number) Currency() string {
	if !n.valid {
		if strings.TrimSpace(n.raw) == "" {
			return "$0.00"
		}
		return n.raw
	}
	return "$" + n.value.StringFixed(2)
}

// UnmarshalJSON accepts numbers, strings and null. Any other JSON value is kept
// as raw text and marked invalid; it never fails.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*n = Number{}
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*n = Number{raw: string(b)}
			return nil
		}
		*n = ParseNumber(s)
	default:
		*n = ParseNumber(string(b))
	}
	return nil
}

// MarshalJSON writes valid numbers as JSON numbers and malformed ones as strings.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		if n.raw == "" {
			return []byte("null"), nil
		}
		return json.Marshal(n.raw)
	}
	return []byte(n.value.String()), nil
}
