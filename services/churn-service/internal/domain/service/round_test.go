package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundProbability(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: 0.125, want: 0.12},
		{in: 0.625, want: 0.62},
		{in: 0.375, want: 0.38},
		{in: 0.145, want: 0.14},
		{in: 0.165, want: 0.17},
		{in: 0.835, want: 0.83},
		{in: 0.005, want: 0.01},
		{in: 0.999, want: 1},
		{in: 0, want: 0},
		{in: 1, want: 1},
		{in: 0.4999, want: 0.5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, roundProbability(tt.in), "round(%v)", tt.in)
	}
}
