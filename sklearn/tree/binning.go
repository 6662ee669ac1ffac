// Package tree implements histogram-based regression trees. The same split
// finder and growers back DecisionTreeRegressor, the random forest, and both
// gradient boosting families.
package tree

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// MaxBins is the largest bin count a feature may use; bins are stored as uint8.
const MaxBins = 256

// BinMapper discretizes each feature into at most maxBins ordered bins.
type BinMapper struct {
	// UpperBounds[f][b] is the inclusive upper edge of bin b for feature f.
	// The last edge is +Inf.
	UpperBounds [][]float64
}

// NewBinMapper computes bin edges from the columns of X. Features with no
// more than maxBins distinct values get one bin per value; others are cut at
// approximately equal-frequency points.
func NewBinMapper(X mat.Matrix, maxBins int) *BinMapper {
	if maxBins <= 1 || maxBins > MaxBins {
		maxBins = MaxBins - 1
	}
	rows, cols := X.Dims()
	bm := &BinMapper{UpperBounds: make([][]float64, cols)}
	values := make([]float64, rows)
	for f := 0; f < cols; f++ {
		mat.Col(values, f, X)
		bm.UpperBounds[f] = featureBounds(values, maxBins)
	}
	return bm
}

func featureBounds(values []float64, maxBins int) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)

	distinct := make([]float64, 0, n)
	counts := make([]int, 0, n)
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			distinct = append(distinct, v)
			counts = append(counts, 0)
		}
		counts[len(counts)-1]++
	}

	bounds := make([]float64, 0, maxBins)
	if len(distinct) <= maxBins {
		for i := 0; i+1 < len(distinct); i++ {
			bounds = append(bounds, (distinct[i]+distinct[i+1])/2)
		}
		return append(bounds, math.Inf(1))
	}

	cum := 0
	for i := 0; i+1 < len(distinct); i++ {
		cum += counts[i]
		if cum*maxBins >= (len(bounds)+1)*n {
			bounds = append(bounds, (distinct[i]+distinct[i+1])/2)
			if len(bounds) == maxBins-1 {
				break
			}
		}
	}
	return append(bounds, math.Inf(1))
}

// NumFeatures returns the number of mapped features.
func (m *BinMapper) NumFeatures() int {
	return len(m.UpperBounds)
}

// NumBins returns the number of bins of feature f.
func (m *BinMapper) NumBins(f int) int {
	return len(m.UpperBounds[f])
}

// Bin returns the bin of value v for feature f.
func (m *BinMapper) Bin(f int, v float64) uint8 {
	return uint8(sort.SearchFloat64s(m.UpperBounds[f], v))
}

// Threshold returns the raw split value equivalent to "bin <= b".
func (m *BinMapper) Threshold(f int, b uint8) float64 {
	return m.UpperBounds[f][b]
}

// BinnedMatrix is X after binning, stored column-major.
type BinnedMatrix struct {
	Rows    int
	Columns [][]uint8
}

// Transform bins every entry of X.
func (m *BinMapper) Transform(X mat.Matrix) *BinnedMatrix {
	rows, cols := X.Dims()
	out := &BinnedMatrix{Rows: rows, Columns: make([][]uint8, cols)}
	for f := 0; f < cols; f++ {
		col := make([]uint8, rows)
		for i := 0; i < rows; i++ {
			col[i] = m.Bin(f, X.At(i, f))
		}
		out.Columns[f] = col
	}
	return out
}
