package ensemble

// minSplitGain is the smallest loss reduction accepted for a split.
const minSplitGain = 1e-12

type histBin struct {
	g, h float64
	n    int
}

type splitCandidate struct {
	valid   bool
	feature int
	bin     int
	gain    float64
}

// grower builds one tree over a row and column sample using gradient
// histograms.
type grower struct {
	params   Params
	mapper   binMapper
	bins     [][]uint8
	grad     []float64
	hess     []float64
	features []int
	hist     []histBin
}

func newGrower(p Params, m binMapper, bins [][]uint8, grad, hess []float64, features []int) *grower {
	return &grower{
		params:   p,
		mapper:   m,
		bins:     bins,
		grad:     grad,
		hess:     hess,
		features: features,
		hist:     make([]histBin, maxSupportedBins),
	}
}

func (g *grower) sums(rows []int) (float64, float64) {
	var sg, sh float64
	for _, r := range rows {
		sg += g.grad[r]
		sh += g.hess[r]
	}
	return sg, sh
}

func (g *grower) leaf(rows []int) Node {
	sg, sh := g.sums(rows)
	den := sh + g.params.Lambda
	var w float64
	if den > 0 {
		w = -sg / den
	}
	return Node{Leaf: true, Value: w * g.params.LearningRate}
}

// bestSplit scans every sampled feature's histogram. Ties keep the first
// candidate in (feature, bin) order.
func (g *grower) bestSplit(rows []int) splitCandidate {
	sg, sh := g.sums(rows)
	n := len(rows)
	lambda := g.params.Lambda
	parent := score(sg, sh, lambda)

	var best splitCandidate
	for _, f := range g.features {
		nb := g.mapper.numBins(f)
		if nb < 2 {
			continue
		}
		hist := g.hist[:nb]
		clear(hist)
		col := g.bins[f]
		for _, r := range rows {
			b := &hist[col[r]]
			b.g += g.grad[r]
			b.h += g.hess[r]
			b.n++
		}

		var gl, hl float64
		var nl int
		for b := 0; b < nb-1; b++ {
			gl += hist[b].g
			hl += hist[b].h
			nl += hist[b].n
			gr, hr, nr := sg-gl, sh-hl, n-nl
			if nl < g.params.MinDataInLeaf || nr < g.params.MinDataInLeaf {
				continue
			}
			if hl < g.params.MinChildWeight || hr < g.params.MinChildWeight {
				continue
			}
			gain := 0.5 * (score(gl, hl, lambda) + score(gr, hr, lambda) - parent)
			if gain > minSplitGain && (!best.valid || gain > best.gain) {
				best = splitCandidate{valid: true, feature: f, bin: b, gain: gain}
			}
		}
	}
	return best
}

func score(g, h, lambda float64) float64 {
	den := h + lambda
	if den <= 0 {
		return 0
	}
	return g * g / den
}

func (g *grower) partition(rows []int, s splitCandidate) (left, right []int) {
	col := g.bins[s.feature]
	for _, r := range rows {
		if int(col[r]) <= s.bin {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return left, right
}

func (g *grower) splitNode(s splitCandidate, left, right int) Node {
	return Node{
		Feature:   s.feature,
		Bin:       s.bin,
		Threshold: g.mapper.edges[s.feature][s.bin],
		Left:      left,
		Right:     right,
	}
}

// growDepthWise expands every node level by level until MaxDepth.
func (g *grower) growDepthWise(rows []int) Tree {
	var t Tree
	g.buildDepthWise(&t, rows, 0)
	return t
}

func (g *grower) buildDepthWise(t *Tree, rows []int, depth int) int {
	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{})

	var s splitCandidate
	if depth < g.params.MaxDepth {
		s = g.bestSplit(rows)
	}
	if !s.valid {
		t.Nodes[idx] = g.leaf(rows)
		return idx
	}

	left, right := g.partition(rows, s)
	l := g.buildDepthWise(t, left, depth+1)
	r := g.buildDepthWise(t, right, depth+1)
	t.Nodes[idx] = g.splitNode(s, l, r)
	return idx
}

type openLeaf struct {
	node  int
	rows  []int
	depth int
	split splitCandidate
}

// growLeafWise always splits the open leaf with the largest gain until
// MaxLeaves is reached or no leaf can be split.
func (g *grower) growLeafWise(rows []int) Tree {
	t := Tree{Nodes: []Node{g.leaf(rows)}}
	open := []openLeaf{g.open(0, rows, 0)}

	for leaves := 1; leaves < g.params.MaxLeaves; leaves++ {
		best := -1
		for i, l := range open {
			if l.split.valid && (best < 0 || l.split.gain > open[best].split.gain) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		cand := open[best]
		open = append(open[:best], open[best+1:]...)

		left, right := g.partition(cand.rows, cand.split)
		li := len(t.Nodes)
		t.Nodes = append(t.Nodes, g.leaf(left))
		ri := len(t.Nodes)
		t.Nodes = append(t.Nodes, g.leaf(right))
		t.Nodes[cand.node] = g.splitNode(cand.split, li, ri)

		open = append(open, g.open(li, left, cand.depth+1), g.open(ri, right, cand.depth+1))
	}
	return t
}

func (g *grower) open(node int, rows []int, depth int) openLeaf {
	l := openLeaf{node: node, rows: rows, depth: depth}
	if g.params.MaxDepth <= 0 || depth < g.params.MaxDepth {
		l.split = g.bestSplit(rows)
	}
	return l
}
