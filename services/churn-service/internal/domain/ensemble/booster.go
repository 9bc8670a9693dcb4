// Package ensemble implements the churn classifier: two gradient-boosted
// tree learners with logistic loss combined by unweighted soft voting.
package ensemble

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNotFitted is returned when predicting with an untrained model.
	ErrNotFitted = errors.New("model is not fitted")

	// ErrDimensionMismatch is returned for vectors of the wrong width.
	ErrDimensionMismatch = errors.New("feature vector width does not match the model")

	// ErrInvalidTrainingSet is returned when Fit receives unusable data.
	ErrInvalidTrainingSet = errors.New("invalid training set")
)

// Growth selects how trees are expanded.
type Growth int

const (
	// DepthWise splits every node of a level before descending.
	DepthWise Growth = iota
	// LeafWise always splits the leaf with the largest loss reduction.
	LeafWise
)

func (g Growth) String() string {
	switch g {
	case DepthWise:
		return "depth-wise"
	case LeafWise:
		return "leaf-wise"
	default:
		return "unknown"
	}
}

// Params configures one boosted learner.
type Params struct {
	Name           string
	Growth         Growth
	Rounds         int
	LearningRate   float64
	MaxDepth       int // 0 means unlimited for leaf-wise growth
	MaxLeaves      int
	MinChildWeight float64
	MinDataInLeaf  int
	Lambda         float64
	Subsample      float64
	ColSample      float64
	MaxBins        int
	Seed           uint64
}

// DepthWiseParams returns the level-wise learner configuration.
func DepthWiseParams(seed uint64) Params {
	return Params{
		Name:           "xgb",
		Growth:         DepthWise,
		Rounds:         300,
		LearningRate:   0.05,
		MaxDepth:       6,
		MinChildWeight: 1,
		MinDataInLeaf:  1,
		Lambda:         1,
		Subsample:      0.9,
		ColSample:      0.9,
		MaxBins:        255,
		Seed:           seed,
	}
}

// LeafWiseParams returns the best-first learner configuration.
func LeafWiseParams(seed uint64) Params {
	return Params{
		Name:           "lgbm",
		Growth:         LeafWise,
		Rounds:         300,
		LearningRate:   0.05,
		MaxLeaves:      31,
		MinChildWeight: 1e-3,
		MinDataInLeaf:  20,
		Lambda:         0,
		Subsample:      0.9,
		ColSample:      0.9,
		MaxBins:        255,
		Seed:           seed,
	}
}

// Validate checks the configuration.
func (p Params) Validate() error {
	switch {
	case p.Rounds <= 0:
		return fmt.Errorf("%s: rounds must be positive", p.Name)
	case p.LearningRate <= 0:
		return fmt.Errorf("%s: learning rate must be positive", p.Name)
	case p.Growth == DepthWise && p.MaxDepth <= 0:
		return fmt.Errorf("%s: depth-wise growth needs a max depth", p.Name)
	case p.Growth == LeafWise && p.MaxLeaves < 2:
		return fmt.Errorf("%s: leaf-wise growth needs at least 2 leaves", p.Name)
	case p.Growth != DepthWise && p.Growth != LeafWise:
		return fmt.Errorf("%s: unknown growth %d", p.Name, p.Growth)
	case p.Subsample <= 0 || p.Subsample > 1:
		return fmt.Errorf("%s: subsample must be in (0, 1]", p.Name)
	case p.ColSample <= 0 || p.ColSample > 1:
		return fmt.Errorf("%s: colsample must be in (0, 1]", p.Name)
	case p.Lambda < 0:
		return fmt.Errorf("%s: lambda must not be negative", p.Name)
	case p.Lambda == 0 && p.MinChildWeight <= 0:
		return fmt.Errorf("%s: lambda 0 requires a positive min child weight", p.Name)
	case p.MinDataInLeaf < 1:
		return fmt.Errorf("%s: min data in leaf must be at least 1", p.Name)
	case p.MaxBins < 2 || p.MaxBins > maxSupportedBins:
		return fmt.Errorf("%s: max bins must be in [2, %d]", p.Name, maxSupportedBins)
	}
	return nil
}

// Booster is a trained sequence of regression trees over the logit.
type Booster struct {
	Params      Params
	BaseScore   float64
	NumFeatures int
	Trees       []Tree
}

// NewBooster returns an untrained learner.
func NewBooster(p Params) (*Booster, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Booster{Params: p}, nil
}

// Fit trains the learner. Training is sequential and fully determined by the
// data and Params.Seed.
func (b *Booster) Fit(x [][]float64, y []int) error {
	n, nf, err := checkTrainingSet(x, y)
	if err != nil {
		return err
	}
	p := b.Params

	labels := make([]float64, n)
	for i, v := range y {
		labels[i] = float64(v)
	}
	rate := stat.Mean(labels, nil)
	rate = math.Min(math.Max(rate, 1e-6), 1-1e-6)
	base := math.Log(rate / (1 - rate))

	mapper := fitBinMapper(x, nf, p.MaxBins)
	bins := mapper.binAll(x)
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed))

	margin := make([]float64, n)
	for i := range margin {
		margin[i] = base
	}
	grad := make([]float64, n)
	hess := make([]float64, n)
	trees := make([]Tree, 0, p.Rounds)

	for round := 0; round < p.Rounds; round++ {
		for i := range margin {
			prob := sigmoid(margin[i])
			grad[i] = prob - labels[i]
			hess[i] = math.Max(prob*(1-prob), 1e-16)
		}

		rows := sampleRows(rng, n, p.Subsample)
		cols := sampleColumns(rng, nf, p.ColSample)
		g := newGrower(p, mapper, bins, grad, hess, cols)

		var t Tree
		if p.Growth == LeafWise {
			t = g.growLeafWise(rows)
		} else {
			t = g.growDepthWise(rows)
		}
		for i := range margin {
			margin[i] += t.predictBinned(bins, i)
		}
		trees = append(trees, t)
	}

	b.BaseScore = base
	b.NumFeatures = nf
	b.Trees = trees
	return nil
}

// Margin returns the raw log-odds for x.
func (b *Booster) Margin(x []float64) (float64, error) {
	if len(b.Trees) == 0 {
		return 0, ErrNotFitted
	}
	if len(x) != b.NumFeatures {
		return 0, fmt.Errorf("got %d features, want %d: %w", len(x), b.NumFeatures, ErrDimensionMismatch)
	}
	m := b.BaseScore
	for _, t := range b.Trees {
		m += t.predict(x)
	}
	return m, nil
}

// PredictProba returns the positive-class probability for x.
func (b *Booster) PredictProba(x []float64) (float64, error) {
	m, err := b.Margin(x)
	if err != nil {
		return 0, err
	}
	return sigmoid(m), nil
}

func (b *Booster) validate() error {
	if len(b.Trees) == 0 || b.NumFeatures <= 0 {
		return ErrNotFitted
	}
	if math.IsNaN(b.BaseScore) || math.IsInf(b.BaseScore, 0) {
		return fmt.Errorf("%s: invalid base score", b.Params.Name)
	}
	for i, t := range b.Trees {
		if !t.valid(b.NumFeatures) {
			return fmt.Errorf("%s: tree %d is malformed", b.Params.Name, i)
		}
	}
	return nil
}

func sigmoid(m float64) float64 {
	return 1 / (1 + math.Exp(-m))
}

func checkTrainingSet(x [][]float64, y []int) (int, int, error) {
	n := len(x)
	if n == 0 {
		return 0, 0, fmt.Errorf("no rows: %w", ErrInvalidTrainingSet)
	}
	if len(y) != n {
		return 0, 0, fmt.Errorf("%d rows but %d labels: %w", n, len(y), ErrInvalidTrainingSet)
	}
	nf := len(x[0])
	if nf == 0 {
		return 0, 0, fmt.Errorf("zero-width rows: %w", ErrInvalidTrainingSet)
	}
	for i, row := range x {
		if len(row) != nf {
			return 0, 0, fmt.Errorf("row %d has width %d, want %d: %w", i, len(row), nf, ErrInvalidTrainingSet)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, 0, fmt.Errorf("row %d feature %d is not finite: %w", i, j, ErrInvalidTrainingSet)
			}
		}
		if y[i] != 0 && y[i] != 1 {
			return 0, 0, fmt.Errorf("row %d label %d is not binary: %w", i, y[i], ErrInvalidTrainingSet)
		}
	}
	return n, nf, nil
}

func sampleRows(rng *rand.Rand, n int, rate float64) []int {
	rows := make([]int, 0, n)
	if rate >= 1 {
		for i := 0; i < n; i++ {
			rows = append(rows, i)
		}
		return rows
	}
	for i := 0; i < n; i++ {
		if rng.Float64() < rate {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		rows = append(rows, rng.IntN(n))
	}
	return rows
}

func sampleColumns(rng *rand.Rand, n int, rate float64) []int {
	k := int(math.Floor(rate * float64(n)))
	if k < 1 {
		k = 1
	}
	if k >= n {
		cols := make([]int, n)
		for i := range cols {
			cols[i] = i
		}
		return cols
	}
	cols := rng.Perm(n)[:k]
	sort.Ints(cols)
	return cols
}
