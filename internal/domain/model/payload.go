package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// methodologyStem is matched against folded category keys.
const methodologyStem = "methodolog"

// ResultPayload is the typed view of an assessment's scoring result.
// Producers fill it at the boundary; scorers read the named fields only.
type ResultPayload struct {
	// PrecisionIndex is correct/attempted in percent, used as the rigor component.
	PrecisionIndex *float64 `json:"precisionIndex,omitempty"`
	// MethodologyScore is the methodology sub-score, when the assessment has one.
	MethodologyScore *float64 `json:"methodologyScore,omitempty"`
	// CategoryScores holds per-category sub-scores keyed by display name.
	CategoryScores map[string]float64 `json:"categoryScores,omitempty"`
}

type categoryEntry struct {
	Category  string   `json:"category"`
	Precision *float64 `json:"precision"`
}

// DecodePayload decodes a stored scoring result. It understands the flat
// form written by this engine, the stage scorer output (category list) and
// the older form nesting category scores under "metrics".
// Empty input decodes to nil. Fields are decoded one by one: a field of the
// wrong type is dropped and reported in the returned error, wrapping
// ErrMalformedPayload, while every readable field is kept. When data is not
// a JSON object the payload is empty. The payload is never nil alongside an
// error, so callers can log and score with neutral defaults.
func DecodePayload(data []byte) (*ResultPayload, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return &ResultPayload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var errs []error
	precision, err := numberField(fields["precisionIndex"], "precisionIndex")
	errs = append(errs, err)
	methodology, err := numberField(fields["methodologyScore"], "methodologyScore")
	errs = append(errs, err)

	categories := map[string]float64{}
	if raw, ok := fields["metrics"]; ok && !isNull(raw) {
		var metrics struct {
			CategoryScores json.RawMessage `json:"categoryScores"`
		}
		if err := json.Unmarshal(raw, &metrics); err != nil {
			errs = append(errs, fmt.Errorf("%w: metrics: %v", ErrMalformedPayload, err))
		} else {
			errs = append(errs, decodeCategories(metrics.CategoryScores, categories))
		}
	}
	errs = append(errs, decodeCategories(fields["categoryScores"], categories))

	p := NewResultPayload(precision, categories)
	if methodology != nil {
		p.MethodologyScore = methodology
	}
	return p, errors.Join(errs...)
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// numberField decodes an optional numeric field. Absent and null are nil.
func numberField(raw json.RawMessage, name string) (*float64, error) {
	if isNull(raw) {
		return nil, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, name, err)
	}
	return &v, nil
}

// NewResultPayload builds a payload from a precision index and category
// sub-scores, resolving the methodology score from the category names.
func NewResultPayload(precisionIndex *float64, categories map[string]float64) *ResultPayload {
	p := &ResultPayload{PrecisionIndex: precisionIndex}
	if len(categories) == 0 {
		return p
	}
	p.CategoryScores = make(map[string]float64, len(categories))
	for k, v := range categories {
		p.CategoryScores[k] = v
	}
	if v, ok := lookupMethodology(p.CategoryScores); ok {
		p.MethodologyScore = &v
	}
	return p
}

// Encode returns the canonical JSON form of the payload.
func (p ResultPayload) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// decodeCategories adds the numeric entries of data to into. Non-numeric
// entries are skipped; malformed list entries are skipped and reported.
func decodeCategories(data json.RawMessage, into map[string]float64) error {
	if isNull(data) {
		return nil
	}
	data = bytes.TrimSpace(data)
	switch data[0] {
	case '{':
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("%w: categoryScores: %v", ErrMalformedPayload, err)
		}
		for k, v := range m {
			if f, ok := v.(float64); ok {
				into[k] = f
			}
		}
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("%w: categoryScores: %v", ErrMalformedPayload, err)
		}
		var errs []error
		for i, raw := range list {
			var c categoryEntry
			if err := json.Unmarshal(raw, &c); err != nil {
				errs = append(errs, fmt.Errorf("%w: categoryScores[%d]: %v", ErrMalformedPayload, i, err))
				continue
			}
			if c.Category != "" && c.Precision != nil {
				into[c.Category] = *c.Precision
			}
		}
		return errors.Join(errs...)
	default:
		return fmt.Errorf("%w: categoryScores must be an object or a list", ErrMalformedPayload)
	}
	return nil
}

// lookupMethodology scans keys in sorted order so that duplicates resolve
// the same way on every call.
func lookupMethodology(scores map[string]float64) (float64, bool) {
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(FoldKey(k), methodologyStem) {
			return scores[k], true
		}
	}
	return 0, false
}

// FoldKey lower-cases s and strips diacritics, so "Méthodologie" and
// "METHODOLOGIE" compare equal.
func FoldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}
