package tree

// GrowPolicy selects the order in which leaves are expanded.
type GrowPolicy int

const (
	// DepthWise expands every splittable leaf level by level (CART, XGBoost).
	DepthWise GrowPolicy = iota
	// LeafWise always expands the leaf with the largest gain (LightGBM).
	LeafWise
)

// GrowerConfig bounds tree growth.
type GrowerConfig struct {
	Policy GrowPolicy
	// MaxDepth <= 0 means unlimited.
	MaxDepth int
	// MaxLeaves <= 0 means unlimited.
	MaxLeaves int
	// MinSamplesSplit is the minimum node size eligible for a split.
	MinSamplesSplit int
	Split           SplitParams
}

// Grower builds trees over a fixed binned training matrix.
type Grower struct {
	cfg      GrowerConfig
	splitter *splitter
}

// NewGrower prepares a grower. The returned Grower owns scratch buffers and
// must not be shared between goroutines; the mapper and binned matrix may be.
func NewGrower(cfg GrowerConfig, mapper *BinMapper, binned *BinnedMatrix) *Grower {
	return &Grower{cfg: cfg, splitter: newSplitter(cfg.Split, mapper, binned)}
}

type openLeaf struct {
	node    int
	indices []int
	split   SplitInfo
}

// Grow fits one tree to the gradients of the samples in indices. Indices may
// repeat (bootstrap samples). When leafOf is non-nil, leafOf[i] receives the
// leaf node of every sample i in indices.
func (g *Grower) Grow(indices []int, grad, hess []float64, leafOf []int) *Tree {
	lambda := g.cfg.Split.Lambda
	var sg, sh float64
	for _, idx := range indices {
		sg += grad[idx]
		sh += hess[idx]
	}

	t := &Tree{Nodes: []Node{{
		Left:  -1,
		Right: -1,
		Value: LeafValue(sg, sh, lambda),
		Count: len(indices),
	}}}

	var open []openLeaf
	var done []openLeaf
	root := openLeaf{node: 0, indices: indices}
	if g.splittable(0, len(indices)) {
		root.split = g.splitter.findBestSplit(indices, grad, hess, sg, sh)
	}
	if root.split.Valid {
		open = append(open, root)
	} else {
		done = append(done, root)
	}

	leaves := 1
	for len(open) > 0 {
		if g.cfg.MaxLeaves > 0 && leaves >= g.cfg.MaxLeaves {
			break
		}
		pick := 0
		if g.cfg.Policy == LeafWise {
			for i := 1; i < len(open); i++ {
				if open[i].split.Gain > open[pick].split.Gain {
					pick = i
				}
			}
		}
		cur := open[pick]
		open = append(open[:pick], open[pick+1:]...)

		sp := cur.split
		left, right := g.splitter.partition(cur.indices, sp)
		depth := t.Nodes[cur.node].Depth + 1

		li := len(t.Nodes)
		t.Nodes = append(t.Nodes,
			Node{Left: -1, Right: -1, Value: LeafValue(sp.LeftGrad, sp.LeftHess, lambda), Count: sp.LeftCount, Depth: depth},
			Node{Left: -1, Right: -1, Value: LeafValue(sp.RightGrad, sp.RightHess, lambda), Count: sp.RightCount, Depth: depth},
		)
		parent := &t.Nodes[cur.node]
		parent.Feature = sp.Feature
		parent.Threshold = sp.Threshold
		parent.Gain = sp.Gain
		parent.Left = li
		parent.Right = li + 1
		leaves++

		children := []struct {
			node    int
			indices []int
			g, h    float64
		}{
			{li, left, sp.LeftGrad, sp.LeftHess},
			{li + 1, right, sp.RightGrad, sp.RightHess},
		}
		for _, c := range children {
			leaf := openLeaf{node: c.node, indices: c.indices}
			if g.splittable(depth, len(c.indices)) {
				leaf.split = g.splitter.findBestSplit(c.indices, grad, hess, c.g, c.h)
			}
			if leaf.split.Valid {
				open = append(open, leaf)
			} else {
				done = append(done, leaf)
			}
		}
	}

	if leafOf != nil {
		for _, l := range append(done, open...) {
			for _, idx := range l.indices {
				leafOf[idx] = l.node
			}
		}
	}
	return t
}

func (g *Grower) splittable(depth, n int) bool {
	if g.cfg.MaxDepth > 0 && depth >= g.cfg.MaxDepth {
		return false
	}
	minSplit := g.cfg.MinSamplesSplit
	if minSplit < 2 {
		minSplit = 2
	}
	return n >= minSplit
}
