package datasets

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/sklearn/model_selection"
)

// MakeLinearRegression draws X from a standard normal, coefficients from
// [1, 5) with random signs and y = X·coef + 3 + u with u uniform in
// [-noise, noise]. The same seed gives the same problem.
func MakeLinearRegression(n, features int, noise float64, seed int64) (*mat.Dense, *mat.VecDense, []float64) {
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	coef := make([]float64, features)
	for j := range coef {
		coef[j] = 1 + 4*rng.Float64()
		if rng.IntN(2) == 0 {
			coef[j] = -coef[j]
		}
	}
	X := mat.NewDense(n, features, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v := 3.0
		for j := 0; j < features; j++ {
			x := rng.NormFloat64()
			X.Set(i, j, x)
			v += coef[j] * x
		}
		y.SetVec(i, v+noise*(2*rng.Float64()-1))
	}
	return X, y, coef
}

// MakeFriedman1 generates the Friedman #1 problem: five informative
// uniform features, the rest noise, plus Gaussian noise of the given sd.
func MakeFriedman1(n, features int, noise float64, seed int64) (*mat.Dense, *mat.VecDense) {
	if features < 5 {
		features = 5
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	X := mat.NewDense(n, features, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < features; j++ {
			X.Set(i, j, rng.Float64())
		}
		v := 10*math.Sin(math.Pi*X.At(i, 0)*X.At(i, 1)) +
			20*(X.At(i, 2)-0.5)*(X.At(i, 2)-0.5) +
			10*X.At(i, 3) + 5*X.At(i, 4)
		y.SetVec(i, v+noise*rng.NormFloat64())
	}
	return X, y
}

// Split is a train/test partition.
type Split struct {
	XTrain, XTest *mat.Dense
	YTrain, YTest *mat.VecDense
}

// TrainTestSplit shuffles rows with seed and holds out ceil(testSize·n)
// of them.
func TrainTestSplit(X *mat.Dense, y *mat.VecDense, testSize float64, seed int64) (*Split, error) {
	n, _ := X.Dims()
	if y.Len() != n {
		return nil, errors.NewDimensionError("TrainTestSplit", n, y.Len(), 0)
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < 1 || n-nTest < 1 {
		return nil, errors.NewValueError("TrainTestSplit", "too few rows for the requested split")
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	perm := rng.Perm(n)

	s := &Split{}
	s.XTest, s.YTest = model_selection.Subset(X, y, perm[:nTest])
	s.XTrain, s.YTrain = model_selection.Subset(X, y, perm[nTest:])
	return s, nil
}
