package automl

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelsearch/core/parallel"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
)

// DefaultBatchSize is the number of rows one PredictBatched worker handles.
const DefaultBatchSize = 1024

// PredictBatched predicts X in contiguous row chunks of batchSize with at
// most limit chunks in flight, and returns one prediction per row in order.
// batchSize <= 0 means DefaultBatchSize; limit <= 0 means GOMAXPROCS.
func (a *ModelArtifact) PredictBatched(ctx context.Context, X *mat.Dense, batchSize, limit int) (*mat.VecDense, error) {
	if a == nil || a.Model == nil {
		return nil, errors.NewNotFittedError("ModelArtifact", "PredictBatched")
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	rows, cols := X.Dims()
	if a.NFeatures > 0 && cols != a.NFeatures {
		return nil, errors.NewDimensionError("PredictBatched", a.NFeatures, cols, 1)
	}

	out := mat.NewVecDense(rows, nil)
	chunks := (rows + batchSize - 1) / batchSize
	err := parallel.ForEach(ctx, chunks, limit, func(ctx context.Context, i int) error {
		start := i * batchSize
		end := min(start+batchSize, rows)
		return errors.SafeExecute("PredictBatched", func() error {
			pred, err := a.Model.Predict(X.Slice(start, end, 0, cols))
			if err != nil {
				return err
			}
			for r := start; r < end; r++ {
				out.SetVec(r, pred.At(r-start, 0))
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
