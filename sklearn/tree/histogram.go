package tree

import (
	"slices"
)

// Histogram accumulates gradient statistics for one bin.
type Histogram struct {
	Count   int
	SumGrad float64
	SumHess float64
}

// SplitInfo describes the best split found for a node.
type SplitInfo struct {
	Valid     bool
	Feature   int
	Bin       uint8
	Threshold float64
	Gain      float64

	LeftCount  int
	RightCount int
	LeftGrad   float64
	RightGrad  float64
	LeftHess   float64
	RightHess  float64
}

// SplitParams constrains which splits are admissible.
type SplitParams struct {
	// Lambda is the L2 penalty on leaf values.
	Lambda float64
	// MinSamplesLeaf is the minimum sample count in each child.
	MinSamplesLeaf int
	// MinChildWeight is the minimum hessian sum in each child.
	MinChildWeight float64
	// MinGainToSplit is subtracted from every candidate's gain; only
	// positive remainders are accepted.
	MinGainToSplit float64
}

// splitter finds best splits over a binned matrix, reusing one histogram
// buffer per feature. It is not safe for concurrent use.
type splitter struct {
	params  SplitParams
	mapper  *BinMapper
	binned  *BinnedMatrix
	hist    [][]Histogram
	touched []uint8
}

func newSplitter(params SplitParams, mapper *BinMapper, binned *BinnedMatrix) *splitter {
	hist := make([][]Histogram, len(binned.Columns))
	for f := range hist {
		hist[f] = make([]Histogram, mapper.NumBins(f))
	}
	return &splitter{params: params, mapper: mapper, binned: binned, hist: hist}
}

func (s *splitter) score(g, h float64) float64 {
	return g * g / (h + s.params.Lambda)
}

// LeafValue is the Newton step for a node, −G/(H+λ).
func LeafValue(sumGrad, sumHess, lambda float64) float64 {
	if sumHess+lambda == 0 {
		return 0
	}
	return -sumGrad / (sumHess + lambda)
}

// findBestSplit scans every feature. Ties keep the earliest feature and bin.
func (s *splitter) findBestSplit(indices []int, grad, hess []float64, sumGrad, sumHess float64) SplitInfo {
	best := SplitInfo{}
	parent := s.score(sumGrad, sumHess)
	minLeaf := s.params.MinSamplesLeaf
	if minLeaf < 1 {
		minLeaf = 1
	}

	for f, col := range s.binned.Columns {
		hist := s.hist[f]
		s.touched = s.touched[:0]
		for _, idx := range indices {
			b := col[idx]
			if hist[b].Count == 0 {
				s.touched = append(s.touched, b)
			}
			hist[b].Count++
			hist[b].SumGrad += grad[idx]
			hist[b].SumHess += hess[idx]
		}

		if len(s.touched) > 1 {
			slices.Sort(s.touched)
			var lg, lh float64
			lc := 0
			for k := 0; k+1 < len(s.touched); k++ {
				b := s.touched[k]
				lc += hist[b].Count
				lg += hist[b].SumGrad
				lh += hist[b].SumHess
				rc := len(indices) - lc
				rg := sumGrad - lg
				rh := sumHess - lh
				if lc < minLeaf || rc < minLeaf {
					continue
				}
				if lh < s.params.MinChildWeight || rh < s.params.MinChildWeight {
					continue
				}
				gain := 0.5*(s.score(lg, lh)+s.score(rg, rh)-parent) - s.params.MinGainToSplit
				if gain > 1e-12 && (!best.Valid || gain > best.Gain) {
					best = SplitInfo{
						Valid:      true,
						Feature:    f,
						Bin:        b,
						Threshold:  s.mapper.Threshold(f, b),
						Gain:       gain,
						LeftCount:  lc,
						RightCount: rc,
						LeftGrad:   lg,
						RightGrad:  rg,
						LeftHess:   lh,
						RightHess:  rh,
					}
				}
			}
		}

		for _, b := range s.touched {
			hist[b] = Histogram{}
		}
	}
	return best
}

// partition splits indices by the binned value of split.Feature. The input
// order is preserved within each side.
func (s *splitter) partition(indices []int, split SplitInfo) (left, right []int) {
	col := s.binned.Columns[split.Feature]
	left = make([]int, 0, split.LeftCount)
	right = make([]int, 0, split.RightCount)
	for _, idx := range indices {
		if col[idx] <= split.Bin {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	return left, right
}
