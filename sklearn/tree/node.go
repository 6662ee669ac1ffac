package tree

import (
	"gonum.org/v1/gonum/mat"
)

// Node is one node of a flat tree. Leaves have Left == Right == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Gain      float64
	Count     int
	Depth     int
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return n.Left < 0
}

// Tree is a binary regression tree. Samples with x[Feature] <= Threshold go
// left.
type Tree struct {
	Nodes []Node
}

// PredictRow returns the leaf value reached by x.
func (t *Tree) PredictRow(x []float64) float64 {
	return t.Nodes[t.Leaf(x)].Value
}

// Leaf returns the index of the leaf reached by x.
func (t *Tree) Leaf(x []float64) int {
	id := 0
	for {
		n := &t.Nodes[id]
		if n.IsLeaf() {
			return id
		}
		if x[n.Feature] <= n.Threshold {
			id = n.Left
		} else {
			id = n.Right
		}
	}
}

// Predict evaluates the tree on every row of X and returns an n×1 matrix.
func (t *Tree) Predict(X mat.Matrix) *mat.Dense {
	rows, cols := X.Dims()
	out := mat.NewDense(rows, 1, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		out.Set(i, 0, t.PredictRow(row))
	}
	return out
}

// NumLeaves counts leaves.
func (t *Tree) NumLeaves() int {
	n := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			n++
		}
	}
	return n
}

// MaxDepth returns the depth of the deepest node; a single leaf has depth 0.
func (t *Tree) MaxDepth() int {
	d := 0
	for i := range t.Nodes {
		if t.Nodes[i].Depth > d {
			d = t.Nodes[i].Depth
		}
	}
	return d
}

// Importance type names accepted by AccumulateImportance.
const (
	ImportanceSplit = "split"
	ImportanceGain  = "gain"
)

// AccumulateImportance adds this tree's split counts or gains into dst,
// indexed by feature.
func (t *Tree) AccumulateImportance(dst []float64, importanceType string) {
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			continue
		}
		if importanceType == ImportanceSplit {
			dst[n.Feature]++
		} else {
			dst[n.Feature] += n.Gain
		}
	}
}

// Normalize scales v to sum to one in place; an all-zero v is left as is.
func Normalize(v []float64) []float64 {
	var total float64
	for _, x := range v {
		total += x
	}
	if total > 0 {
		for i := range v {
			v[i] /= total
		}
	}
	return v
}

// Shrink multiplies every node value by rate. Boosted trees store their
// values already scaled by the learning rate.
func (t *Tree) Shrink(rate float64) {
	for i := range t.Nodes {
		t.Nodes[i].Value *= rate
	}
}
