package valueobject

import "fmt"

const (
	// MediumRiskFloor is the lowest churn probability in the MEDIUM band.
	MediumRiskFloor = 0.4
	// DefaultHighRiskThreshold is the lowest churn probability in the HIGH band.
	DefaultHighRiskThreshold = 0.7
)

// RiskBand buckets a churn probability for retention workflows.
type RiskBand struct {
	value string
}

var (
	RiskBandLow    = RiskBand{value: "LOW"}
	RiskBandMedium = RiskBand{value: "MEDIUM"}
	RiskBandHigh   = RiskBand{value: "HIGH"}
)

// RiskBandFromString reconstructs a band from its string representation.
func RiskBandFromString(s string) (RiskBand, error) {
	switch s {
	case "LOW":
		return RiskBandLow, nil
	case "MEDIUM":
		return RiskBandMedium, nil
	case "HIGH":
		return RiskBandHigh, nil
	default:
		return RiskBand{}, fmt.Errorf("invalid risk band: %q", s)
	}
}

// RiskBandFromProbability maps p to LOW below MediumRiskFloor, HIGH at or
// above highThreshold and MEDIUM in between.
func RiskBandFromProbability(p, highThreshold float64) RiskBand {
	switch {
	case p >= highThreshold:
		return RiskBandHigh
	case p >= MediumRiskFloor:
		return RiskBandMedium
	default:
		return RiskBandLow
	}
}

func (r RiskBand) String() string { return r.value }

// IsZero returns true if the band has not been set.
func (r RiskBand) IsZero() bool { return r.value == "" }

// Equal checks equality with another band.
func (r RiskBand) Equal(other RiskBand) bool { return r.value == other.value }
