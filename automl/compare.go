package automl

import (
	"context"
	"math"
	"sort"

	"github.com/YuminosukeSato/modelsearch/pkg/log"
)

// MetricsRow is one line of the model comparison table.
type MetricsRow struct {
	Family Family  `json:"model"`
	MAE    float64 `json:"mae"`
	RMSE   float64 `json:"rmse"`
	R2     float64 `json:"r2"`
}

// Compare re-scores the best configuration of every tracked family on the
// evaluator's folds. Rows are sorted by MAE; equal MAEs keep tracker order.
// RMSE is the square root of the mean per-fold MSE.
func Compare(ctx context.Context, e *Evaluator, bests []FamilyBest) ([]MetricsRow, error) {
	rows := make([]MetricsRow, 0, len(bests))
	for _, b := range bests {
		res, err := e.CrossValidate(ctx, b.Family, b.Params, maeScorer, mseScorer, r2Scorer)
		if err != nil {
			return nil, err
		}
		row := MetricsRow{
			Family: b.Family,
			MAE:    res.Mean(ScoreMAE),
			RMSE:   math.Sqrt(res.Mean(ScoreMSE)),
			R2:     res.Mean(ScoreR2),
		}
		e.logger.Info("family compared",
			log.FamilyKey, row.Family.String(),
			log.MAEKey, row.MAE,
			log.RMSEKey, row.RMSE,
			log.R2ScoreKey, row.R2,
		)
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].MAE < rows[j].MAE })
	return rows, nil
}
