package feature

import (
	"encoding/json"
	"fmt"
)

// FeatureOrder is the canonical column sequence captured at training time.
// The scaler and the classifier see positional vectors, so every vector
// must be built through Apply.
type FeatureOrder struct {
	names []string
}

// CaptureOrder records the column order. Names must be non-empty and unique.
func CaptureOrder(columns []string) (FeatureOrder, error) {
	if len(columns) == 0 {
		return FeatureOrder{}, fmt.Errorf("feature order: no columns")
	}
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if c == "" {
			return FeatureOrder{}, fmt.Errorf("feature order: empty column name")
		}
		if _, dup := seen[c]; dup {
			return FeatureOrder{}, fmt.Errorf("feature order: duplicate column %q", c)
		}
		seen[c] = struct{}{}
	}
	names := make([]string, len(columns))
	copy(names, columns)
	return FeatureOrder{names: names}, nil
}

// Names returns the captured column names.
func (o FeatureOrder) Names() []string {
	out := make([]string, len(o.names))
	copy(out, o.names)
	return out
}

// Len returns the vector width.
func (o FeatureOrder) Len() int { return len(o.names) }

// Apply reindexes rec into a vector. A contract column absent from rec is a
// *MissingFeatureError; columns outside the contract are dropped.
func (o FeatureOrder) Apply(rec EncodedRecord) ([]float64, error) {
	vec := make([]float64, len(o.names))
	for i, name := range o.names {
		v, ok := rec[name]
		if !ok {
			return nil, &MissingFeatureError{Column: name}
		}
		vec[i] = v
	}
	return vec, nil
}

// Equal reports whether both orders have the same names in the same order.
func (o FeatureOrder) Equal(other FeatureOrder) bool {
	if len(o.names) != len(other.names) {
		return false
	}
	for i := range o.names {
		if o.names[i] != other.names[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the order as a JSON array.
func (o FeatureOrder) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.names)
}

// UnmarshalJSON restores and revalidates the order.
func (o *FeatureOrder) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	restored, err := CaptureOrder(names)
	if err != nil {
		return err
	}
	*o = restored
	return nil
}
