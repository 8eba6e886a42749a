package regress

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	pred := []float64{1, 2, 3, 4}
	actual := []float64{1, 2, 3, 6}
	assert.InDelta(t, 1.0, MSE(pred, actual), 1e-12)
	assert.InDelta(t, 1.0, RMSE(pred, actual), 1e-12)
	assert.InDelta(t, 0.5, MAE(pred, actual), 1e-12)

	r2, ok := R2(actual, actual)
	require.True(t, ok)
	assert.InDelta(t, 1.0, r2, 1e-12)

	_, ok = R2([]float64{1, 2}, []float64{5, 5})
	assert.False(t, ok, "constant target has no R2")

	m := Evaluate(pred, actual)
	assert.Equal(t, 4, m.N)
	require.NotNil(t, m.R2)
	assert.Nil(t, Evaluate([]float64{1}, []float64{1}).R2)
}

func TestLinearRecoversCoefficients(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var X [][]float64
	var y []float64
	for i := 0; i < 200; i++ {
		a, b := rng.Float64()*100, rng.Float64()*10
		X = append(X, []float64{a, b})
		y = append(y, 3+2*a-b)
	}
	l := NewLinear(1e-6)
	require.NoError(t, l.Fit(X, y))
	assert.InDelta(t, 2, l.Coef[0], 1e-3)
	assert.InDelta(t, -1, l.Coef[1], 1e-3)
	assert.InDelta(t, 3, l.Intercept, 1e-2)
	assert.InDelta(t, 3+2*50-5, l.Predict([]float64{50, 5}), 1e-2)
}

func TestLinearHandlesCollinearIndicators(t *testing.T) {
	// full one-hot set: the indicators always sum to one
	X := [][]float64{
		{1, 0, 0, 10}, {0, 1, 0, 11}, {0, 0, 1, 12},
		{1, 0, 0, 13}, {0, 1, 0, 14}, {0, 0, 1, 15},
	}
	y := []float64{100, 200, 300, 103, 203, 303}
	l := NewLinear(1e-6)
	require.NoError(t, l.Fit(X, y))
	pred := PredictAll(l, X)
	assert.Less(t, RMSE(pred, y), 1.0)
}

func TestLinearRejectsBadShape(t *testing.T) {
	err := NewLinear(0).Fit([][]float64{{1, 2}, {3}}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrShape)
	assert.ErrorIs(t, NewLinear(0).Fit(nil, nil), ErrEmptyInput)
}

func TestTreeFitsStepFunction(t *testing.T) {
	var X [][]float64
	var y []float64
	for i := 0; i < 40; i++ {
		X = append(X, []float64{float64(i)})
		if i < 20 {
			y = append(y, 5)
		} else {
			y = append(y, 15)
		}
	}
	tree := NewTree(TreeParams{MaxDepth: 3, MinSamplesLeaf: 1})
	require.NoError(t, tree.Fit(X, y))
	assert.Equal(t, 5.0, tree.Predict([]float64{3}))
	assert.Equal(t, 15.0, tree.Predict([]float64{33}))
	assert.Equal(t, 1, tree.Depth(), "one split separates the step")
}

func TestTreeRespectsMaxDepth(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var X [][]float64
	var y []float64
	for i := 0; i < 300; i++ {
		v := rng.Float64()
		X = append(X, []float64{v, rng.Float64()})
		y = append(y, math.Sin(10*v))
	}
	tree := NewTree(TreeParams{MaxDepth: 6})
	require.NoError(t, tree.Fit(X, y))
	assert.LessOrEqual(t, tree.Depth(), 6)
}

func TestTreeCategoricalSplit(t *testing.T) {
	X := [][]float64{{0}, {0}, {1}, {1}, {2}, {2}}
	y := []float64{10, 10, 50, 50, 10, 10}
	tree := NewTree(TreeParams{Categorical: []int{0}})
	require.NoError(t, tree.Fit(X, y))
	assert.Equal(t, 10.0, tree.Predict([]float64{0}))
	assert.Equal(t, 10.0, tree.Predict([]float64{2}))
	assert.Equal(t, 50.0, tree.Predict([]float64{1}))
	// codes never seen in training follow the right branch
	assert.Equal(t, 50.0, tree.Predict([]float64{-1}))
}

func TestForestIsReproducible(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	var X [][]float64
	var y []float64
	for i := 0; i < 120; i++ {
		a, b := rng.Float64(), rng.Float64()
		X = append(X, []float64{a, b})
		y = append(y, 10*a+b*b)
	}
	f1 := NewForest(20, TreeParams{MinSamplesLeaf: 1}, 42)
	f2 := NewForest(20, TreeParams{MinSamplesLeaf: 1}, 42)
	require.NoError(t, f1.Fit(X, y))
	require.NoError(t, f2.Fit(X, y))
	for _, row := range X[:10] {
		assert.Equal(t, f1.Predict(row), f2.Predict(row))
	}
	assert.Len(t, f1.Estimators, 20)
	assert.Less(t, RMSE(PredictAll(f1, X), y), 1.0)
}

func TestBoostedEarlyStoppingTruncates(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	gen := func(n int) ([][]float64, []float64) {
		var X [][]float64
		var y []float64
		for i := 0; i < n; i++ {
			code := float64(rng.Intn(3))
			v := rng.Float64() * 100
			X = append(X, []float64{code, v})
			y = append(y, 1000+300*code+2*v+rng.NormFloat64()*20)
		}
		return X, y
	}
	X, y := gen(300)
	vX, vy := gen(80)

	b := NewBoosted(BoostParams{
		Iterations:    400,
		LearningRate:  0.1,
		MaxDepth:      4,
		L2LeafReg:     5,
		EarlyStopping: 20,
		Categorical:   []int{0},
		Seed:          42,
	})
	require.NoError(t, b.FitEval(X, y, vX, vy))
	assert.Len(t, b.Trees, b.BestIteration+1)
	assert.LessOrEqual(t, len(b.Trees), 400)
	assert.InDelta(t, b.BestScore, RMSE(PredictAll(b, vX), vy), 1e-9)

	var meanOnly []float64
	for range vy {
		meanOnly = append(meanOnly, b.Base)
	}
	assert.Less(t, b.BestScore, RMSE(meanOnly, vy)/2)
}

func TestBoostedWithoutEvalKeepsAllTrees(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}}
	y := []float64{1, 2, 3, 4}
	b := NewBoosted(BoostParams{Iterations: 15, LearningRate: 0.3, MaxDepth: 2})
	require.NoError(t, b.Fit(X, y))
	assert.Len(t, b.Trees, 15)
	assert.Equal(t, 14, b.BestIteration)
}
