package feature

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes each position of a feature vector with the population
// mean and standard deviation observed at fit time. A position whose standard
// deviation is zero always transforms to 0.
type Scaler struct {
	mean []float64
	std  []float64
}

// FitScaler computes per-column statistics over rows. Every row must have
// the same width.
func FitScaler(rows [][]float64) (*Scaler, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("scaler: no rows to fit")
	}
	width := len(rows[0])
	if width == 0 {
		return nil, fmt.Errorf("scaler: zero-width rows")
	}

	col := make([]float64, len(rows))
	mean := make([]float64, width)
	std := make([]float64, width)
	for j := 0; j < width; j++ {
		for i, r := range rows {
			if len(r) != width {
				return nil, fmt.Errorf("scaler: row %d has width %d, want %d: %w", i, len(r), width, ErrDimensionMismatch)
			}
			col[i] = r[j]
		}
		mean[j], std[j] = stat.PopMeanStdDev(col, nil)
	}
	return &Scaler{mean: mean, std: std}, nil
}

// NewScaler restores a scaler from stored statistics.
func NewScaler(mean, std []float64) (*Scaler, error) {
	if len(mean) == 0 || len(mean) != len(std) {
		return nil, fmt.Errorf("scaler: mean width %d, std width %d: %w", len(mean), len(std), ErrDimensionMismatch)
	}
	for i, s := range std {
		if s < 0 || math.IsNaN(s) || math.IsNaN(mean[i]) {
			return nil, fmt.Errorf("scaler: invalid statistics at position %d", i)
		}
	}
	m := append([]float64(nil), mean...)
	s := append([]float64(nil), std...)
	return &Scaler{mean: m, std: s}, nil
}

// Width returns the fitted vector width.
func (s *Scaler) Width() int { return len(s.mean) }

// Mean returns a copy of the fitted means.
func (s *Scaler) Mean() []float64 { return append([]float64(nil), s.mean...) }

// Std returns a copy of the fitted standard deviations.
func (s *Scaler) Std() []float64 { return append([]float64(nil), s.std...) }

// Transform standardizes one vector.
func (s *Scaler) Transform(vec []float64) ([]float64, error) {
	if len(vec) != len(s.mean) {
		return nil, fmt.Errorf("scaler: got width %d, want %d: %w", len(vec), len(s.mean), ErrDimensionMismatch)
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		if s.std[i] == 0 {
			continue
		}
		out[i] = (v - s.mean[i]) / s.std[i]
	}
	return out, nil
}

// TransformAll standardizes every row.
func (s *Scaler) TransformAll(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		t, err := s.Transform(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = t
	}
	return out, nil
}

type scalerJSON struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// MarshalJSON encodes the fitted statistics.
func (s *Scaler) MarshalJSON() ([]byte, error) {
	return json.Marshal(scalerJSON{Mean: s.mean, Std: s.std})
}

// UnmarshalJSON restores and validates the fitted statistics.
func (s *Scaler) UnmarshalJSON(data []byte) error {
	var raw scalerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	restored, err := NewScaler(raw.Mean, raw.Std)
	if err != nil {
		return err
	}
	*s = *restored
	return nil
}
