package training

import (
	"fmt"
	"math"

	"github.com/bibbank/bib/services/churn-service/internal/domain/ensemble"
	"github.com/bibbank/bib/services/churn-service/internal/domain/feature"
)

// Split shuffles ds with a seeded permutation and holds out
// ceil(n*testSize) rows for testing.
func Split(ds EncodedDataset, testSize float64, seed uint64) (EncodedDataset, EncodedDataset, error) {
	if testSize <= 0 || testSize >= 1 {
		return EncodedDataset{}, EncodedDataset{}, fmt.Errorf("test size %v must be in (0, 1)", testSize)
	}
	n := ds.Len()
	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest < 1 || nTest >= n {
		return EncodedDataset{}, EncodedDataset{}, fmt.Errorf("cannot hold out %d of %d rows", nTest, n)
	}

	perm := newRNG(seed).Perm(n)
	train := EncodedDataset{Order: ds.Order, Rows: make([]Row, 0, n-nTest)}
	test := EncodedDataset{Order: ds.Order, Rows: make([]Row, 0, nTest)}
	for i, j := range perm {
		if i < nTest {
			test.Rows = append(test.Rows, ds.Rows[j])
		} else {
			train.Rows = append(train.Rows, ds.Rows[j])
		}
	}
	return train, test, nil
}

// ScaleStage fits the scaler on train only and applies it to both sets.
func ScaleStage(train, test EncodedDataset) (EncodedDataset, EncodedDataset, *feature.Scaler, error) {
	x, _ := train.Matrix()
	scaler, err := feature.FitScaler(x)
	if err != nil {
		return EncodedDataset{}, EncodedDataset{}, nil, fmt.Errorf("failed to fit scaler: %w", err)
	}
	scaledTrain, err := scaleRows(scaler, train)
	if err != nil {
		return EncodedDataset{}, EncodedDataset{}, nil, err
	}
	scaledTest, err := scaleRows(scaler, test)
	if err != nil {
		return EncodedDataset{}, EncodedDataset{}, nil, err
	}
	return scaledTrain, scaledTest, scaler, nil
}

func scaleRows(s *feature.Scaler, ds EncodedDataset) (EncodedDataset, error) {
	out := EncodedDataset{Order: ds.Order, Rows: make([]Row, len(ds.Rows))}
	for i, r := range ds.Rows {
		v, err := s.Transform(r.X)
		if err != nil {
			return EncodedDataset{}, fmt.Errorf("row %d: %w", i, err)
		}
		out.Rows[i] = Row{X: v, Y: r.Y}
	}
	return out, nil
}

// FitConfig lists the ensemble members to train.
type FitConfig struct {
	Members []ensemble.Params
}

// DefaultFitConfig returns the depth-wise plus leaf-wise ensemble.
func DefaultFitConfig(seed uint64) FitConfig {
	return FitConfig{Members: []ensemble.Params{
		ensemble.DepthWiseParams(seed),
		ensemble.LeafWiseParams(seed),
	}}
}

// FitStage trains the soft-voting classifier on train.
func FitStage(train EncodedDataset, cfg FitConfig) (*ensemble.VotingClassifier, error) {
	clf, err := ensemble.NewVotingClassifier(cfg.Members...)
	if err != nil {
		return nil, err
	}
	x, y := train.Matrix()
	if err := clf.Fit(x, y); err != nil {
		return nil, err
	}
	return clf, nil
}
