package results

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ScalarKind is the JSON type of a table cell.
type ScalarKind int

const (
	ScalarNull ScalarKind = iota
	ScalarBool
	ScalarNumber
	ScalarString
)

// Scalar is a single table cell as transmitted. Numbers keep their literal text
// so that the classifier sees exactly what the backend sent.
type Scalar struct {
	kind ScalarKind
	text string
	b    bool
}

func NullScalar() Scalar { return Scalar{kind: ScalarNull} }

func BoolScalar(b bool) Scalar { return Scalar{kind: ScalarBool, b: b} }

// NumberScalar wraps a JSON number literal such as "12.5" or "3".
func NumberScalar(literal string) Scalar { return Scalar{kind: ScalarNumber, text: literal} }

func StringScalar(s string) Scalar { return Scalar{kind: ScalarString, text: s} }

func (s Scalar) Kind() ScalarKind { return s.kind }

// Text returns the cell as it would be printed without any formatting.
func (s Scalar) Text() string {
	switch s.kind {
	case ScalarBool:
		return strconv.FormatBool(s.b)
	case ScalarNull:
		return ""
	default:
		return s.text
	}
}

// UnmarshalJSON never fails on valid JSON: objects and arrays become string
// cells holding their compact JSON text.
func (s *Scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		*s = NullScalar()
		return nil
	}
	switch b[0] {
	case 'n':
		*s = NullScalar()
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = BoolScalar(v)
	case '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = StringScalar(v)
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, b); err != nil {
			return err
		}
		*s = StringScalar(buf.String())
	default:
		*s = NumberScalar(string(b))
	}
	return nil
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case ScalarNull:
		return []byte("null"), nil
	case ScalarBool:
		return json.Marshal(s.b)
	case ScalarNumber:
		return []byte(s.text), nil
	default:
		return json.Marshal(s.text)
	}
}
