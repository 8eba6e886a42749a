package training

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/yerevan-pricing/backend/internal/logger"
)

// writePlots renders the model comparison chart and one true-vs-predicted
// scatter per candidate. Failures are logged and skipped.
func writePlots(dir string, actual []float64, cands []CandidateResult) []string {
	var written []string
	path := filepath.Join(dir, "model_comparison.png")
	if err := comparisonPlot(path, cands); err != nil {
		logger.Warn("Trainer: skipping comparison plot: %v", err)
	} else {
		written = append(written, path)
	}
	for _, c := range cands {
		name := strings.ToLower(strings.ReplaceAll(c.Name, " ", "_"))
		path := filepath.Join(dir, name+"_true_vs_pred.png")
		if err := scatterPlot(path, c.Name, actual, c.predictions); err != nil {
			logger.Warn("Trainer: skipping %s scatter plot: %v", c.Name, err)
			continue
		}
		written = append(written, path)
	}
	return written
}

// guarded turns a renderer panic into an error.
func guarded(render func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panic: %v", r)
		}
	}()
	return render()
}

func comparisonPlot(path string, cands []CandidateResult) error {
	return guarded(func() error { return renderComparison(path, cands) })
}

func renderComparison(path string, cands []CandidateResult) error {
	p := plot.New()
	p.Title.Text = "Model Performance Comparison"
	p.Y.Label.Text = "Error"

	rmse := make(plotter.Values, len(cands))
	mae := make(plotter.Values, len(cands))
	names := make([]string, len(cands))
	for i, c := range cands {
		rmse[i], mae[i], names[i] = c.Metrics.RMSE, c.Metrics.MAE, c.Name
	}
	width := vg.Points(18)
	rmseBars, err := plotter.NewBarChart(rmse, width)
	if err != nil {
		return err
	}
	rmseBars.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	rmseBars.Offset = -width / 2
	maeBars, err := plotter.NewBarChart(mae, width)
	if err != nil {
		return err
	}
	maeBars.Color = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	maeBars.Offset = width / 2

	p.Add(rmseBars, maeBars)
	p.Legend.Add("RMSE", rmseBars)
	p.Legend.Add("MAE", maeBars)
	p.Legend.Top = true
	p.NominalX(names...)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

func scatterPlot(path, name string, actual, pred []float64) error {
	return guarded(func() error { return renderScatter(path, name, actual, pred) })
}

func renderScatter(path, name string, actual, pred []float64) error {
	if len(actual) == 0 || len(actual) != len(pred) {
		return fmt.Errorf("no validation predictions")
	}

	pts := make(plotter.XYs, len(actual))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range actual {
		pts[i].X, pts[i].Y = actual[i], pred[i]
		lo = math.Min(lo, math.Min(actual[i], pred[i]))
		hi = math.Max(hi, math.Max(actual[i], pred[i]))
	}

	p := plot.New()
	p.Title.Text = name + ": True vs Predicted"
	p.X.Label.Text = "True price_sold"
	p.Y.Label.Text = "Predicted price_sold"

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	scatter.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 110}
	diagonal, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return err
	}
	diagonal.LineStyle.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	diagonal.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(scatter, diagonal)
	return p.Save(5*vg.Inch, 5*vg.Inch, path)
}
