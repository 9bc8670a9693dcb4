package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// AssertProbability checks that p lies in [0, 1].
func AssertProbability(t *testing.T, p float64) {
	t.Helper()
	assert.GreaterOrEqual(t, p, 0.0, "probability below 0")
	assert.LessOrEqual(t, p, 1.0, "probability above 1")
}

// AssertLabel checks that label is one of the two prediction labels and
// agrees with the side of 0.5 the rounded probability falls on. At exactly
// 0.5 either label is accepted.
func AssertLabel(t *testing.T, label string, probability float64) {
	t.Helper()
	switch label {
	case "Churn":
		assert.GreaterOrEqual(t, probability, 0.5, "churn label with probability below 0.5")
	case "Not Churn":
		assert.LessOrEqual(t, probability, 0.5, "not-churn label with probability above 0.5")
	default:
		assert.Failf(t, "unexpected label", "label %q is neither Churn nor Not Churn", label)
	}
}
