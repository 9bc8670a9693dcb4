package valueobject

import "fmt"

// ChurnLabel is the classifier verdict for a customer.
type ChurnLabel struct {
	value string
}

var (
	LabelChurn    = ChurnLabel{value: "Churn"}
	LabelNotChurn = ChurnLabel{value: "Not Churn"}
)

// ChurnLabelFromString reconstructs a label from its string representation.
func ChurnLabelFromString(s string) (ChurnLabel, error) {
	switch s {
	case LabelChurn.value:
		return LabelChurn, nil
	case LabelNotChurn.value:
		return LabelNotChurn, nil
	default:
		return ChurnLabel{}, fmt.Errorf("invalid churn label: %q", s)
	}
}

func (l ChurnLabel) String() string { return l.value }

// IsChurn returns true for the churn verdict.
func (l ChurnLabel) IsChurn() bool { return l == LabelChurn }

// IsZero returns true if the label has not been set.
func (l ChurnLabel) IsZero() bool { return l.value == "" }

// Equal checks equality with another label.
func (l ChurnLabel) Equal(other ChurnLabel) bool { return l.value == other.value }
