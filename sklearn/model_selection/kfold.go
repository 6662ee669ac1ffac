// Package model_selection splits data into cross-validation folds and scores
// estimators on them.
package model_selection

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/modelsearch/pkg/errors"
)

// Fold holds the row indices of one train/test split.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// Splitter produces folds for n samples.
type Splitter interface {
	Split(n int) ([]Fold, error)
	GetNSplits() int
}

// KFold is scikit-learn's KFold: the (optionally shuffled) index sequence
// is cut into NSplits contiguous test blocks, the first n mod NSplits of
// which hold one extra sample.
type KFold struct {
	NSplits     int
	Shuffle     bool
	RandomState int64
}

// NewKFold creates a KFold splitter.
func NewKFold(nSplits int, shuffle bool, randomState int64) *KFold {
	return &KFold{NSplits: nSplits, Shuffle: shuffle, RandomState: randomState}
}

// GetNSplits returns the number of folds.
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split returns the folds. Test indices keep the shuffled order; train
// indices are ascending.
func (kf *KFold) Split(n int) ([]Fold, error) {
	if kf.NSplits < 2 {
		return nil, errors.NewValidationError("n_splits", "must be at least 2", kf.NSplits)
	}
	if n < kf.NSplits {
		return nil, errors.NewValueError("KFold.Split",
			"cannot have n_splits greater than the number of samples")
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(kf.RandomState), uint64(kf.RandomState)))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := n / kf.NSplits
	remainder := n % kf.NSplits
	inTest := make([]bool, n)

	current := 0
	for i := range folds {
		size := foldSize
		if i < remainder {
			size++
		}
		test := append([]int(nil), indices[current:current+size]...)
		for _, idx := range test {
			inTest[idx] = true
		}
		train := make([]int, 0, n-size)
		for idx := 0; idx < n; idx++ {
			if !inTest[idx] {
				train = append(train, idx)
			}
		}
		for _, idx := range test {
			inTest[idx] = false
		}
		folds[i] = Fold{TrainIndices: train, TestIndices: test}
		current += size
	}
	return folds, nil
}
