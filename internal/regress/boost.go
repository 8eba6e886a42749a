package regress

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// BoostParams configure gradient boosting with squared loss.
type BoostParams struct {
	Iterations   int     `json:"iterations"`
	LearningRate float64 `json:"learning_rate"`
	MaxDepth     int     `json:"depth"`
	L2LeafReg    float64 `json:"l2_leaf_reg"`
	// EarlyStopping stops after this many rounds without validation
	// improvement; 0 disables it.
	EarlyStopping int   `json:"od_wait"`
	MinSamples    int   `json:"min_samples_leaf"`
	Categorical   []int `json:"cat_features,omitempty"`
	Seed          int64 `json:"random_seed"`
}

// Boosted is a gradient-boosted ensemble. Categorical features (listed by
// index) carry vocabulary codes and are split natively, without one-hot
// expansion.
type Boosted struct {
	Params        BoostParams `json:"params"`
	Base          float64     `json:"base"`
	Trees         []*Tree     `json:"trees"`
	BestIteration int         `json:"best_iteration"`
	BestScore     float64     `json:"best_validation_rmse"`
}

// NewBoosted creates an unfitted boosted model.
func NewBoosted(p BoostParams) *Boosted {
	if p.Iterations < 1 {
		p.Iterations = 1
	}
	if p.LearningRate <= 0 {
		p.LearningRate = 0.03
	}
	return &Boosted{Params: p}
}

// Fit boosts on X without a validation set.
func (b *Boosted) Fit(X [][]float64, y []float64) error {
	return b.FitEval(X, y, nil, nil)
}

// FitEval boosts on X, tracking RMSE on the evaluation rows. With an
// evaluation set the ensemble is truncated to its best iteration.
func (b *Boosted) FitEval(X [][]float64, y []float64, evalX [][]float64, evalY []float64) error {
	if _, err := checkShape(X, y); err != nil {
		return err
	}
	hasEval := len(evalX) > 0
	if hasEval {
		if _, err := checkShape(evalX, evalY); err != nil {
			return err
		}
	}

	b.Base = stat.Mean(y, nil)
	b.Trees = b.Trees[:0]
	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = b.Base
	}
	var evalPred []float64
	if hasEval {
		evalPred = make([]float64, len(evalY))
		for i := range evalPred {
			evalPred[i] = b.Base
		}
	}

	params := TreeParams{
		MaxDepth:       b.Params.MaxDepth,
		MinSamplesLeaf: b.Params.MinSamples,
		L2:             b.Params.L2LeafReg,
		Categorical:    b.Params.Categorical,
	}
	rng := rand.New(rand.NewSource(b.Params.Seed))
	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}
	residual := make([]float64, len(y))

	b.BestIteration = -1
	b.BestScore = math.Inf(1)
	lr := b.Params.LearningRate
	for it := 0; it < b.Params.Iterations; it++ {
		for i := range residual {
			residual[i] = y[i] - pred[i]
		}
		t := NewTree(params)
		t.fitIndices(X, residual, idx, rng)
		// fold the learning rate into the leaves
		for k := range t.Nodes {
			t.Nodes[k].Value *= lr
		}
		b.Trees = append(b.Trees, t)
		for i, row := range X {
			pred[i] += t.Predict(row)
		}

		if !hasEval {
			continue
		}
		for i, row := range evalX {
			evalPred[i] += t.Predict(row)
		}
		score := RMSE(evalPred, evalY)
		if score < b.BestScore {
			b.BestScore = score
			b.BestIteration = it
		} else if b.Params.EarlyStopping > 0 && it-b.BestIteration >= b.Params.EarlyStopping {
			break
		}
	}

	if hasEval && b.BestIteration >= 0 {
		b.Trees = b.Trees[:b.BestIteration+1]
	} else {
		b.BestIteration = len(b.Trees) - 1
		b.BestScore = 0
	}
	return nil
}

// Predict sums the base value and every tree.
func (b *Boosted) Predict(row []float64) float64 {
	out := b.Base
	for _, t := range b.Trees {
		out += t.Predict(row)
	}
	return out
}
