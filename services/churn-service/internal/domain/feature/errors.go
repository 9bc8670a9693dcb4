package feature

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingFeature is matched by every *MissingFeatureError.
	ErrMissingFeature = errors.New("missing feature")

	// ErrInvalidFeature is matched by every *InvalidFeatureError.
	ErrInvalidFeature = errors.New("invalid feature")

	// ErrDimensionMismatch is returned when a vector does not match the
	// fitted width.
	ErrDimensionMismatch = errors.New("feature dimension mismatch")
)

// MissingFeatureError reports a feature-order column absent from a record.
type MissingFeatureError struct {
	Column string
}

func (e *MissingFeatureError) Error() string {
	return fmt.Sprintf("missing feature %q", e.Column)
}

// Is lets errors.Is match ErrMissingFeature.
func (e *MissingFeatureError) Is(target error) bool {
	return target == ErrMissingFeature
}

// InvalidFeatureError reports a value that cannot be converted for its column.
type InvalidFeatureError struct {
	Column string
	Value  string
}

func (e *InvalidFeatureError) Error() string {
	return fmt.Sprintf("invalid value %q for numeric feature %q", e.Value, e.Column)
}

// Is lets errors.Is match ErrInvalidFeature.
func (e *InvalidFeatureError) Is(target error) bool {
	return target == ErrInvalidFeature
}
