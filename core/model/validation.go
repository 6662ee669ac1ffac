package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelsearch/pkg/errors"
)

// CheckXY validates a training pair and returns y as a vector. y may be an
// n×1 matrix or a *mat.VecDense.
func CheckXY(op string, X, y mat.Matrix) (*mat.VecDense, error) {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "%s: X has shape (%d, %d)", op, rows, cols)
	}
	yRows, yCols := y.Dims()
	if yCols != 1 {
		return nil, errors.NewDimensionError(op, 1, yCols, 1)
	}
	if yRows != rows {
		return nil, errors.NewDimensionError(op, rows, yRows, 0)
	}
	if err := errors.CheckMatrix(op, X); err != nil {
		return nil, err
	}
	if err := errors.CheckMatrix(op, y); err != nil {
		return nil, err
	}
	return AsVector(y), nil
}

// AsVector returns y as a *mat.VecDense, copying only when y is not already one.
func AsVector(y mat.Matrix) *mat.VecDense {
	if v, ok := y.(*mat.VecDense); ok {
		return v
	}
	n, _ := y.Dims()
	v := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v.SetVec(i, y.At(i, 0))
	}
	return v
}

// AsDense returns X as a *mat.Dense, copying only when needed.
func AsDense(X mat.Matrix) *mat.Dense {
	if d, ok := X.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(X)
}
