package results

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPayload is returned when the envelope is not valid JSON.
var ErrMalformedPayload = errors.New("malformed result payload")

// Envelope is the wire shape produced by the backend: a tag and its data.
// "type" is accepted as an alias of "data_type".
type Envelope struct {
	DataType string          `json:"data_type,omitempty"`
	Type     string          `json:"type,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Tag returns the discriminant, normalized to lower case.
func (e Envelope) Tag() Kind {
	tag := e.DataType
	if tag == "" {
		tag = e.Type
	}
	return Kind(strings.ToLower(strings.TrimSpace(tag)))
}

// Decode parses an envelope. A JSON null (or empty input) yields a nil result,
// meaning no query has completed yet. Only syntactically invalid JSON is an
// error; an unknown tag or data that does not match it yields a result with a
// nil payload, which dispatches to the placeholder.
func Decode(b []byte) (*QueryResult, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil, nil
	}
	if !json.Valid(b) {
		return nil, ErrMalformedPayload
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		// valid JSON that is not an object, e.g. a bare array
		return &QueryResult{}, nil
	}
	return DecodePayload(env.Tag(), env.Data), nil
}

// DecodePayload decodes data for a known tag. It never returns nil.
func DecodePayload(kind Kind, data json.RawMessage) *QueryResult {
	r := &QueryResult{Kind: kind}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return r
	}
	p, err := decodeData(kind, data)
	if err != nil {
		return r
	}
	r.Payload = p
	return r
}

// decodeData decodes data for kind. Array elements that do not fit their type
// are dropped; only a top-level shape mismatch fails the payload.
func decodeData(kind Kind, data []byte) (Payload, error) {
	switch kind {
	case KindTable:
		var aux struct {
			Headers []json.RawMessage `json:"headers"`
			Rows    []json.RawMessage `json:"rows"`
		}
		err := unmarshalInto(data, &aux)
		return TablePayload{Headers: decodeEach[string](aux.Headers), Rows: decodeEach[Row](aux.Rows)}, err
	case KindList:
		var aux struct {
			Items []json.RawMessage `json:"items"`
		}
		err := unmarshalInto(data, &aux)
		return ListPayload{Items: decodeEach[ListItem](aux.Items)}, err
	case KindInsights:
		var aux struct {
			Sections []json.RawMessage `json:"sections"`
		}
		err := unmarshalInto(data, &aux)
		return InsightsPayload{Sections: decodeEach[Section](aux.Sections)}, err
	case KindText:
		var p TextPayload
		err := unmarshalInto(data, &p)
		return p, err
	case KindTrends:
		var aux struct {
			PeriodLabel string            `json:"period_label"`
			Data        []json.RawMessage `json:"data"`
		}
		err := unmarshalInto(data, &aux)
		return TrendsPayload{PeriodLabel: aux.PeriodLabel, Data: decodeEach[TimeSeriesPoint](aux.Data)}, err
	case KindCategories:
		var aux struct {
			PeriodLabel string            `json:"period_label"`
			Total       Number            `json:"total"`
			Categories  []json.RawMessage `json:"categories"`
		}
		err := unmarshalInto(data, &aux)
		return CategoriesPayload{
			PeriodLabel: aux.PeriodLabel,
			Total:       aux.Total,
			Categories:  decodeEach[RawCategorySlice](aux.Categories),
		}, err
	default:
		return nil, fmt.Errorf("decode %q: unknown kind", kind)
	}
}

// decodeEach decodes every element it can and skips the rest.
func decodeEach[T any](raw []json.RawMessage) []T {
	if raw == nil {
		return nil
	}
	out := make([]T, 0, len(raw))
	for _, elem := range raw {
		var v T
		if err := json.Unmarshal(elem, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func unmarshalInto(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

// Encode renders a result back into its envelope form.
func Encode(r *QueryResult) ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	env := Envelope{DataType: string(r.Kind)}
	if r.Payload != nil {
		data, err := json.Marshal(r.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", r.Kind, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}
