/**
 * @description
 * Regressors used by the trainer: ridge-stabilised linear least squares,
 * CART trees, bagged forests and gradient boosting with native categorical
 * splits. All models are plain structs with exported fields so artifacts can
 * persist them as JSON or gob.
 *
 * @dependencies
 * - gonum.org/v1/gonum: linear algebra and summary statistics
 * - golang.org/x/sync/errgroup: parallel forest fitting
 */

package regress

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrEmptyInput is returned when Fit receives no rows.
	ErrEmptyInput = errors.New("regress: no training rows")
	// ErrShape is returned when row widths disagree.
	ErrShape = errors.New("regress: inconsistent matrix shape")
)

// Regressor is a fitted or fittable single-output model.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(row []float64) float64
}

// PredictAll applies r to every row.
func PredictAll(r Regressor, X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = r.Predict(row)
	}
	return out
}

func checkShape(X [][]float64, y []float64) (int, error) {
	if len(X) == 0 {
		return 0, ErrEmptyInput
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("%w: %d rows, %d targets", ErrShape, len(X), len(y))
	}
	width := len(X[0])
	for i, row := range X {
		if len(row) != width {
			return 0, fmt.Errorf("%w: row %d has %d columns, want %d", ErrShape, i, len(row), width)
		}
	}
	return width, nil
}

// Metrics are validation errors of one model.
type Metrics struct {
	RMSE float64  `json:"rmse"`
	MAE  float64  `json:"mae"`
	MSE  float64  `json:"mse"`
	R2   *float64 `json:"r2,omitempty"`
	N    int      `json:"n"`
}

// Evaluate computes Metrics of predictions against actual values.
func Evaluate(pred, actual []float64) Metrics {
	m := Metrics{MSE: MSE(pred, actual), MAE: MAE(pred, actual), N: len(actual)}
	m.RMSE = math.Sqrt(m.MSE)
	if r2, ok := R2(pred, actual); ok {
		m.R2 = &r2
	}
	return m
}

// MSE is the mean squared error.
func MSE(pred, actual []float64) float64 {
	if len(actual) == 0 {
		return math.NaN()
	}
	var s float64
	for i, a := range actual {
		d := pred[i] - a
		s += d * d
	}
	return s / float64(len(actual))
}

// RMSE is the root mean squared error.
func RMSE(pred, actual []float64) float64 {
	return math.Sqrt(MSE(pred, actual))
}

// MAE is the mean absolute error.
func MAE(pred, actual []float64) float64 {
	if len(actual) == 0 {
		return math.NaN()
	}
	var s float64
	for i, a := range actual {
		s += math.Abs(pred[i] - a)
	}
	return s / float64(len(actual))
}

// R2 is the coefficient of determination. It is undefined for fewer than two
// samples or a constant target.
func R2(pred, actual []float64) (float64, bool) {
	if len(actual) < 2 || stat.Variance(actual, nil) == 0 {
		return 0, false
	}
	return stat.RSquaredFrom(pred, actual, nil), true
}
