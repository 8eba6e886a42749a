package regress

import (
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Forest is a bagged ensemble of CART trees. Tree i draws its bootstrap
// sample from seed Seed+i, so fits are reproducible regardless of scheduling.
type Forest struct {
	Trees      int        `json:"n_trees"`
	Params     TreeParams `json:"params"`
	Seed       int64      `json:"seed"`
	Estimators []*Tree    `json:"estimators"`
}

// NewForest creates an unfitted forest.
func NewForest(trees int, params TreeParams, seed int64) *Forest {
	if trees < 1 {
		trees = 1
	}
	return &Forest{Trees: trees, Params: params, Seed: seed}
}

// Fit grows every tree, bounded to GOMAXPROCS goroutines.
func (f *Forest) Fit(X [][]float64, y []float64) error {
	if _, err := checkShape(X, y); err != nil {
		return err
	}
	n := len(X)
	est := make([]*Tree, f.Trees)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < f.Trees; i++ {
		i := i
		g.Go(func() error {
			rng := rand.New(rand.NewSource(f.Seed + int64(i)))
			idx := make([]int, n)
			for k := range idx {
				idx[k] = rng.Intn(n)
			}
			params := f.Params
			params.Seed = f.Seed + int64(i)
			t := NewTree(params)
			t.fitIndices(X, y, idx, rng)
			est[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	f.Estimators = est
	return nil
}

// Predict averages the trees.
func (f *Forest) Predict(row []float64) float64 {
	if len(f.Estimators) == 0 {
		return 0
	}
	var s float64
	for _, t := range f.Estimators {
		s += t.Predict(row)
	}
	return s / float64(len(f.Estimators))
}
