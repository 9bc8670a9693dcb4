package training

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrEmptyMinority is returned when there is no minority row to resample.
var ErrEmptyMinority = errors.New("minority class is empty")

// Balance resamples minority with replacement up to the size of majority.
// The result lists every majority row followed by the sampled minority rows.
func Balance(majority, minority []Row, rng *rand.Rand) ([]Row, error) {
	if len(minority) == 0 {
		return nil, ErrEmptyMinority
	}
	out := make([]Row, 0, 2*len(majority))
	out = append(out, majority...)
	for range majority {
		out = append(out, minority[rng.IntN(len(minority))])
	}
	return out, nil
}

// BalanceClasses upsamples the smaller class of ds so both classes have the
// same count. On equal counts class 0 is treated as the majority.
func BalanceClasses(ds EncodedDataset, seed uint64) (EncodedDataset, error) {
	var byClass [2][]Row
	for _, r := range ds.Rows {
		byClass[r.Y] = append(byClass[r.Y], r)
	}
	majority, minority := byClass[0], byClass[1]
	if len(minority) > len(majority) {
		majority, minority = minority, majority
	}

	rows, err := Balance(majority, minority, newRNG(seed))
	if err != nil {
		return EncodedDataset{}, fmt.Errorf("failed to balance classes: %w", err)
	}
	return EncodedDataset{Order: ds.Order, Rows: rows}, nil
}

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}
