package lightgbm

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/sklearn/tree"
)

// Model is a trained boosted ensemble. Tree values are stored already
// multiplied by the learning rate.
type Model struct {
	Trees        []*tree.Tree
	InitScore    float64
	LearningRate float64
	NumFeatures  int
	Objective    string
}

// NumIterations returns the number of trees.
func (m *Model) NumIterations() int {
	return len(m.Trees)
}

// PredictRow returns the raw score for one sample.
func (m *Model) PredictRow(x []float64) float64 {
	score := m.InitScore
	for _, t := range m.Trees {
		score += t.PredictRow(x)
	}
	return score
}

// Predict scores every row of X.
func (m *Model) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, cols := X.Dims()
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("lightgbm.Model.Predict", m.NumFeatures, cols, 1)
	}
	out := mat.NewDense(rows, 1, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		out.Set(i, 0, m.PredictRow(row))
	}
	return out, nil
}

// GetFeatureImportance returns unnormalized split counts ("split") or total
// gains ("gain") per feature.
func (m *Model) GetFeatureImportance(importanceType string) []float64 {
	imp := make([]float64, m.NumFeatures)
	for _, t := range m.Trees {
		t.AccumulateImportance(imp, importanceType)
	}
	return imp
}
