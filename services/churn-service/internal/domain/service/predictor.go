// Package service contains the online inference service that applies the
// fitted transformation contract and classifier to a single record.
package service

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/bibbank/bib/services/churn-service/internal/domain/ensemble"
	"github.com/bibbank/bib/services/churn-service/internal/domain/feature"
)

// ErrArtifactInvalid is returned when the loaded artifacts are incomplete or
// inconsistent with each other.
var ErrArtifactInvalid = errors.New("invalid model artifacts")

// Labels reported for the two classes.
const (
	LabelChurn    = "Churn"
	LabelNotChurn = "Not Churn"
)

// Artifacts bundles everything inference needs. It is loaded once and never
// mutated afterwards.
type Artifacts struct {
	Schema     feature.Schema
	Registry   *feature.Registry
	Order      feature.FeatureOrder
	Scaler     *feature.Scaler
	Classifier *ensemble.VotingClassifier
	Version    string
}

// Validate checks that the artifacts can serve predictions together.
func (a *Artifacts) Validate() error {
	if a.Registry == nil || a.Scaler == nil || a.Classifier == nil {
		return fmt.Errorf("registry, scaler and classifier are required: %w", ErrArtifactInvalid)
	}
	if a.Order.Len() == 0 {
		return fmt.Errorf("empty feature order: %w", ErrArtifactInvalid)
	}
	schema := a.schema()
	for _, name := range a.Order.Names() {
		col, ok := schema.Column(name)
		if !ok {
			return fmt.Errorf("feature %q is not a schema column: %w", name, ErrArtifactInvalid)
		}
		if col.Kind == feature.Categorical {
			if _, ok := a.Registry.Encoder(name); !ok {
				return fmt.Errorf("no encoder for categorical feature %q: %w", name, ErrArtifactInvalid)
			}
		}
	}
	if a.Scaler.Width() != a.Order.Len() {
		return fmt.Errorf("scaler width %d, feature order %d: %w", a.Scaler.Width(), a.Order.Len(), ErrArtifactInvalid)
	}
	if err := a.Classifier.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrArtifactInvalid, err)
	}
	if a.Classifier.NumFeatures != a.Order.Len() {
		return fmt.Errorf("classifier width %d, feature order %d: %w", a.Classifier.NumFeatures, a.Order.Len(), ErrArtifactInvalid)
	}
	return nil
}

func (a *Artifacts) schema() feature.Schema {
	if len(a.Schema.Names()) == 0 {
		return feature.ChurnSchema
	}
	return a.Schema
}

// Decision is the outcome of scoring one record.
type Decision struct {
	Label       string
	Probability float64
	Unseen      []feature.UnseenCategory
}

// IsChurn reports whether the record was classified as churning.
func (d Decision) IsChurn() bool { return d.Label == LabelChurn }

// Predictor scores records against immutable artifacts. It holds no mutable
// state and is safe for concurrent use.
type Predictor struct {
	artifacts Artifacts
	schema    feature.Schema
}

// NewPredictor validates the artifacts and returns a predictor over them.
func NewPredictor(a Artifacts) (*Predictor, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &Predictor{artifacts: a, schema: a.schema()}, nil
}

// Version returns the artifact version, if known.
func (p *Predictor) Version() string { return p.artifacts.Version }

// PredictOne encodes, reorders and scales rec, evaluates the classifier once
// and derives both label and probability from that evaluation. Probability
// is the churn-class probability rounded to 2 decimals.
func (p *Predictor) PredictOne(rec feature.Record) (Decision, error) {
	encoded, unseen, err := p.artifacts.Registry.EncodeRecord(p.schema, rec)
	if err != nil {
		return Decision{}, err
	}
	vec, err := p.artifacts.Order.Apply(encoded)
	if err != nil {
		return Decision{}, err
	}
	scaled, err := p.artifacts.Scaler.Transform(vec)
	if err != nil {
		return Decision{}, err
	}
	out, err := p.artifacts.Classifier.Evaluate(scaled)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate classifier: %w", err)
	}

	d := Decision{
		Label:       LabelNotChurn,
		Probability: roundProbability(out.Proba[1]),
		Unseen:      unseen,
	}
	if out.Label == 1 {
		d.Label = LabelChurn
	}
	return d, nil
}

// roundProbability rounds the exact binary value of p to 2 decimals, ties
// to even. 0.125 gives 0.12; 0.165, stored just above the tie, gives 0.17.
func roundProbability(p float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(p, 'f', 2, 64), 64)
	if err != nil {
		return p
	}
	return r
}
