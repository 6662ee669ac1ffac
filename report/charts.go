package report

import (
	"bytes"
	"fmt"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/modelsearch/automl"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/sklearn/inspection"
)

// ComparisonChart draws one MAE bar per family, in table order.
func ComparisonChart(rows []automl.MetricsRow) ([]byte, error) {
	if len(rows) == 0 {
		return nil, errors.NewValueError("ComparisonChart", "no metrics rows")
	}
	p := plot.New()
	p.Title.Text = "Model comparison (cross-validated MAE)"
	p.Y.Label.Text = "MAE"

	values := make(plotter.Values, len(rows))
	names := make([]string, len(rows))
	for i, r := range rows {
		values[i] = r.MAE
		names[i] = r.Family.String()
	}
	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return nil, errors.Wrap(err, "comparison chart")
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)

	return render(p, 7*vg.Inch, 4*vg.Inch)
}

// ImportanceChart draws the topN features of imp as horizontal bars, the
// most important at the top.
func ImportanceChart(family string, imp *inspection.Report, topN int) ([]byte, error) {
	top := imp.Top(topN)
	if len(top) == 0 {
		return nil, errors.NewValueError("ImportanceChart", "no feature scores")
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - Feature Importances (%s)", strings.ToUpper(family), imp.Method)
	p.X.Label.Text = "importance"

	// plotter draws the first value at the bottom.
	values := make(plotter.Values, len(top))
	names := make([]string, len(top))
	for i, s := range top {
		k := len(top) - 1 - i
		values[k] = s.Importance
		names[k] = s.Feature
	}
	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return nil, errors.Wrap(err, "importance chart")
	}
	bars.Horizontal = true
	bars.Color = plotutil.Color(2)
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalY(names...)

	return render(p, 8*vg.Inch, 5*vg.Inch)
}

func render(p *plot.Plot, w, h vg.Length) ([]byte, error) {
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return nil, errors.Wrap(err, "render chart")
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "render chart")
	}
	return buf.Bytes(), nil
}
