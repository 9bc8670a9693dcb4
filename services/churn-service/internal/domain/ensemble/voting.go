package ensemble

import (
	"encoding/gob"
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
)

// Outcome is the result of one classifier evaluation. Label and Proba come
// from the same pass so they can never disagree.
type Outcome struct {
	Label int
	Proba [2]float64
}

// VotingClassifier averages the class probabilities of its members with
// equal weights. The predicted label is the argmax of the averaged
// probabilities; an exact tie predicts class 0.
type VotingClassifier struct {
	Members     []*Booster
	NumFeatures int
}

// NewVotingClassifier builds an untrained classifier with one member per
// configuration.
func NewVotingClassifier(params ...Params) (*VotingClassifier, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("voting classifier needs at least one member")
	}
	members := make([]*Booster, 0, len(params))
	for _, p := range params {
		b, err := NewBooster(p)
		if err != nil {
			return nil, err
		}
		members = append(members, b)
	}
	return &VotingClassifier{Members: members}, nil
}

// NewChurnClassifier returns the two-member depth-wise plus leaf-wise
// ensemble used for churn scoring.
func NewChurnClassifier(seed uint64) *VotingClassifier {
	return &VotingClassifier{Members: []*Booster{
		{Params: DepthWiseParams(seed)},
		{Params: LeafWiseParams(seed)},
	}}
}

// Fit trains every member on the same data, one after another.
func (v *VotingClassifier) Fit(x [][]float64, y []int) error {
	if len(v.Members) == 0 {
		return fmt.Errorf("voting classifier has no members")
	}
	for _, m := range v.Members {
		if err := m.Fit(x, y); err != nil {
			return fmt.Errorf("failed to fit %s: %w", m.Params.Name, err)
		}
	}
	v.NumFeatures = len(x[0])
	return nil
}

// Evaluate scores one feature vector.
func (v *VotingClassifier) Evaluate(x []float64) (Outcome, error) {
	if len(v.Members) == 0 || v.NumFeatures == 0 {
		return Outcome{}, ErrNotFitted
	}
	p1 := make([]float64, len(v.Members))
	p0 := make([]float64, len(v.Members))
	for i, m := range v.Members {
		p, err := m.PredictProba(x)
		if err != nil {
			return Outcome{}, err
		}
		p1[i] = p
		p0[i] = 1 - p
	}
	n := float64(len(v.Members))
	out := Outcome{Proba: [2]float64{floats.Sum(p0) / n, floats.Sum(p1) / n}}
	if out.Proba[1] > out.Proba[0] {
		out.Label = 1
	}
	return out, nil
}

// PredictProba returns the averaged [P(class 0), P(class 1)].
func (v *VotingClassifier) PredictProba(x []float64) ([2]float64, error) {
	out, err := v.Evaluate(x)
	return out.Proba, err
}

// Predict returns the hard label.
func (v *VotingClassifier) Predict(x []float64) (int, error) {
	out, err := v.Evaluate(x)
	return out.Label, err
}

// Validate checks a decoded classifier before it is used for scoring.
func (v *VotingClassifier) Validate() error {
	if len(v.Members) == 0 {
		return fmt.Errorf("classifier has no members: %w", ErrNotFitted)
	}
	for _, m := range v.Members {
		if err := m.validate(); err != nil {
			return err
		}
		if m.NumFeatures != v.NumFeatures {
			return fmt.Errorf("%s expects %d features, classifier %d: %w",
				m.Params.Name, m.NumFeatures, v.NumFeatures, ErrDimensionMismatch)
		}
	}
	return nil
}

// Encode writes the classifier in gob format. Encoding the same model twice
// yields identical bytes.
func (v *VotingClassifier) Encode(w io.Writer) error {
	return gob.NewEncoder(w).Encode(v)
}

// Decode reads a classifier written by Encode and validates it.
func Decode(r io.Reader) (*VotingClassifier, error) {
	var v VotingClassifier
	if err := gob.NewDecoder(r).Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode classifier: %w", err)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return &v, nil
}
