package ensemble

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// maxSupportedBins bounds the bin count so bin indexes fit in a byte.
const maxSupportedBins = 256

// binMapper holds per-feature ascending bin upper edges. The last edge of
// every feature is +Inf. A value v falls into the first bin whose edge is
// >= v, so a split after bin b sends v left exactly when v <= edges[b].
type binMapper struct {
	edges [][]float64
}

func fitBinMapper(x [][]float64, numFeatures, maxBins int) binMapper {
	edges := make([][]float64, numFeatures)
	col := make([]float64, len(x))
	for f := 0; f < numFeatures; f++ {
		for i, row := range x {
			col[i] = row[f]
		}
		edges[f] = featureEdges(col, maxBins)
	}
	return binMapper{edges: edges}
}

// featureEdges places one edge between every pair of adjacent distinct
// values when they fit in maxBins, otherwise on empirical quantiles.
func featureEdges(values []float64, maxBins int) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	uniq := sorted[:0:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			uniq = append(uniq, v)
		}
	}

	var edges []float64
	if len(uniq) <= maxBins {
		edges = make([]float64, 0, len(uniq))
		for i := 0; i+1 < len(uniq); i++ {
			lo, hi := uniq[i], uniq[i+1]
			mid := lo + (hi-lo)/2
			if mid >= hi {
				mid = lo
			}
			edges = append(edges, mid)
		}
	} else {
		for j := 1; j < maxBins; j++ {
			q := stat.Quantile(float64(j)/float64(maxBins), stat.Empirical, sorted, nil)
			if len(edges) == 0 || q > edges[len(edges)-1] {
				edges = append(edges, q)
			}
		}
	}
	return append(edges, math.Inf(1))
}

func (m binMapper) numBins(f int) int { return len(m.edges[f]) }

func (m binMapper) bin(f int, v float64) uint8 {
	return uint8(sort.SearchFloat64s(m.edges[f], v))
}

// binAll returns the binned training matrix in column-major layout.
func (m binMapper) binAll(x [][]float64) [][]uint8 {
	out := make([][]uint8, len(m.edges))
	for f := range m.edges {
		col := make([]uint8, len(x))
		for i, row := range x {
			col[i] = m.bin(f, row[f])
		}
		out[f] = col
	}
	return out
}
