package feature

import (
	"encoding/json"
	"fmt"
	"sort"
)

// FallbackCode is the code substituted for categories never seen during fit.
// It collides with the first fitted category on purpose: inference stays
// available for drifted inputs at the cost of scoring them as that category.
const FallbackCode = 0

// Encoding is the outcome of encoding one category: either Known(code) or
// Unknown, which carries FallbackCode.
type Encoding struct {
	code  int
	known bool
}

// Known returns the outcome for a fitted category.
func Known(code int) Encoding { return Encoding{code: code, known: true} }

// Unknown returns the fallback outcome for an unseen category.
func Unknown() Encoding { return Encoding{code: FallbackCode} }

// Code returns the integer code, FallbackCode when unknown.
func (e Encoding) Code() int { return e.code }

// IsKnown reports whether the category was seen during fit.
func (e Encoding) IsKnown() bool { return e.known }

// Encoder maps the categories of one column to integer codes. Fitted
// encoders assign codes in ascending order of the distinct categories;
// binary target encoders put the positive class at 1.
type Encoder struct {
	classes []string
	codes   map[string]int
}

// FitEncoder builds an encoder from the observed values of a column.
func FitEncoder(values []string) *Encoder {
	seen := make(map[string]struct{}, len(values))
	classes := make([]string, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)
	return newEncoder(classes)
}

// NewBinaryEncoder builds a two-class encoder with negative at 0 and positive
// at 1, whatever their sort order.
func NewBinaryEncoder(negative, positive string) (*Encoder, error) {
	if negative == positive {
		return nil, fmt.Errorf("encoder: binary classes must differ, both are %q", positive)
	}
	return newEncoder([]string{negative, positive}), nil
}

func newEncoder(classes []string) *Encoder {
	codes := make(map[string]int, len(classes))
	for i, c := range classes {
		codes[c] = i
	}
	return &Encoder{classes: classes, codes: codes}
}

// Transform encodes a category. It never fails: unseen values yield Unknown.
func (e *Encoder) Transform(value string) Encoding {
	if code, ok := e.codes[value]; ok {
		return Known(code)
	}
	return Unknown()
}

// Categories returns the fitted categories in code order.
func (e *Encoder) Categories() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}

// Code returns the code of a fitted category.
func (e *Encoder) Code(value string) (int, bool) {
	code, ok := e.codes[value]
	return code, ok
}

// Category returns the category that owns code, if any.
func (e *Encoder) Category(code int) (string, bool) {
	if code < 0 || code >= len(e.classes) {
		return "", false
	}
	return e.classes[code], true
}

type encoderJSON struct {
	Classes []string `json:"classes"`
}

// MarshalJSON encodes the fitted classes.
func (e *Encoder) MarshalJSON() ([]byte, error) {
	return json.Marshal(encoderJSON{Classes: e.classes})
}

// UnmarshalJSON restores an encoder and rejects duplicate classes.
func (e *Encoder) UnmarshalJSON(data []byte) error {
	var raw encoderJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	restored := newEncoder(raw.Classes)
	if len(restored.codes) != len(raw.Classes) {
		return fmt.Errorf("encoder: duplicate classes in %v", raw.Classes)
	}
	*e = *restored
	return nil
}

// UnseenCategory records a field that fell back to FallbackCode.
type UnseenCategory struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// Registry holds one encoder per categorical column. It is never mutated
// after construction.
type Registry struct {
	encoders map[string]*Encoder
}

// NewRegistry wraps a set of fitted encoders.
func NewRegistry(encoders map[string]*Encoder) *Registry {
	m := make(map[string]*Encoder, len(encoders))
	for k, v := range encoders {
		m[k] = v
	}
	return &Registry{encoders: m}
}

// FitRegistry fits one encoder per column from its observed values.
func FitRegistry(columns map[string][]string) *Registry {
	m := make(map[string]*Encoder, len(columns))
	for col, values := range columns {
		m[col] = FitEncoder(values)
	}
	return &Registry{encoders: m}
}

// Encoder returns the encoder for a column.
func (r *Registry) Encoder(column string) (*Encoder, bool) {
	e, ok := r.encoders[column]
	return e, ok
}

// Columns returns the encoded column names, sorted.
func (r *Registry) Columns() []string {
	out := make([]string, 0, len(r.encoders))
	for k := range r.encoders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// EncodeRecord encodes the schema fields present in rec. Categorical fields
// go through their encoder, numeric fields are parsed. Missing fields stay
// absent and fields outside the schema are dropped. Fields that fell back
// are reported in schema order.
func (r *Registry) EncodeRecord(schema Schema, rec Record) (EncodedRecord, []UnseenCategory, error) {
	out := make(EncodedRecord, len(schema.columns))
	var unseen []UnseenCategory

	for _, col := range schema.columns {
		v, ok := rec[col.Name]
		if !ok {
			continue
		}
		switch col.Kind {
		case Categorical:
			enc, ok := r.encoders[col.Name]
			if !ok {
				return nil, nil, fmt.Errorf("no encoder for categorical column %q", col.Name)
			}
			text := v.String()
			res := enc.Transform(text)
			if !res.IsKnown() {
				unseen = append(unseen, UnseenCategory{Column: col.Name, Value: text})
			}
			out[col.Name] = float64(res.Code())
		case Numeric:
			f, ok := v.Float()
			if !ok {
				return nil, nil, &InvalidFeatureError{Column: col.Name, Value: v.String()}
			}
			out[col.Name] = f
		}
	}

	return out, unseen, nil
}

// MarshalJSON encodes the registry as column → encoder.
func (r *Registry) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.encoders)
}

// UnmarshalJSON restores a registry.
func (r *Registry) UnmarshalJSON(data []byte) error {
	var m map[string]*Encoder
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for col, enc := range m {
		if enc == nil {
			return fmt.Errorf("registry: null encoder for column %q", col)
		}
	}
	r.encoders = m
	return nil
}
