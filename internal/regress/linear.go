package regress

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Linear is least squares with a small ridge term relative to the mean
// diagonal of the standardized normal matrix. The ridge keeps full one-hot
// sets (which are collinear with the intercept) solvable.
type Linear struct {
	Ridge     float64   `json:"ridge"`
	Intercept float64   `json:"intercept"`
	Coef      []float64 `json:"coef"`
}

// NewLinear creates an unfitted linear model.
func NewLinear(ridge float64) *Linear {
	return &Linear{Ridge: ridge}
}

// Fit solves (XsᵀXs + λI)β = Xsᵀyc on centred, scaled data with a Cholesky
// factorisation. A factorisation failure is returned, never papered over.
func (l *Linear) Fit(X [][]float64, y []float64) error {
	p, err := checkShape(X, y)
	if err != nil {
		return err
	}
	n := len(X)
	if p == 0 {
		l.Coef = nil
		l.Intercept = stat.Mean(y, nil)
		return nil
	}

	means := make([]float64, p)
	scales := make([]float64, p)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		means[j], scales[j] = stat.PopMeanStdDev(col, nil)
		if scales[j] == 0 {
			scales[j] = 1
		}
	}
	ym := stat.Mean(y, nil)

	xs := mat.NewDense(n, p, nil)
	yc := mat.NewVecDense(n, nil)
	for i, row := range X {
		for j, v := range row {
			xs.Set(i, j, (v-means[j])/scales[j])
		}
		yc.SetVec(i, y[i]-ym)
	}

	var gram mat.SymDense
	gram.SymOuterK(1, xs.T())
	trace := 0.0
	for j := 0; j < p; j++ {
		trace += gram.At(j, j)
	}
	lambda := l.Ridge
	if trace > 0 {
		lambda *= trace / float64(p)
	}
	if lambda <= 0 {
		lambda = 1e-12
	}
	for j := 0; j < p; j++ {
		gram.SetSym(j, j, gram.At(j, j)+lambda)
	}

	var rhs mat.VecDense
	rhs.MulVec(xs.T(), yc)

	var chol mat.Cholesky
	if ok := chol.Factorize(&gram); !ok {
		return fmt.Errorf("regress: linear normal matrix is not positive definite (%d features)", p)
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &rhs); err != nil {
		return fmt.Errorf("regress: linear solve: %w", err)
	}

	l.Coef = make([]float64, p)
	l.Intercept = ym
	for j := 0; j < p; j++ {
		l.Coef[j] = beta.AtVec(j) / scales[j]
		l.Intercept -= l.Coef[j] * means[j]
	}
	return nil
}

// Predict returns the linear response for one row.
func (l *Linear) Predict(row []float64) float64 {
	out := l.Intercept
	for j, c := range l.Coef {
		if j < len(row) {
			out += c * row[j]
		}
	}
	return out
}
