package regress

import (
	"math/rand"
	"sort"
)

// Node is one entry of a flattened tree. Leaves have Left == -1.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	// LeftCodes is set on categorical splits: rows whose code is listed go
	// left, everything else (including codes unseen in training) goes right.
	LeftCodes []int   `json:"left_codes,omitempty"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Samples   int     `json:"samples"`
}

// TreeParams control tree growth.
type TreeParams struct {
	MaxDepth       int `json:"max_depth"` // 0 = unlimited
	MinSamplesLeaf int `json:"min_samples_leaf"`
	// MaxFeatures is the number of features tried per split; 0 tries all.
	MaxFeatures int `json:"max_features"`
	// L2 shrinks leaf values: value = sum / (count + L2).
	L2 float64 `json:"l2"`
	// Categorical lists feature indices that hold vocabulary codes.
	Categorical []int `json:"categorical,omitempty"`
	Seed        int64 `json:"seed"`
}

// Tree is a CART regression tree.
type Tree struct {
	Params TreeParams `json:"params"`
	Nodes  []Node     `json:"nodes"`
}

// NewTree creates an unfitted tree.
func NewTree(p TreeParams) *Tree {
	return &Tree{Params: p}
}

// Fit grows the tree on all rows.
func (t *Tree) Fit(X [][]float64, y []float64) error {
	if _, err := checkShape(X, y); err != nil {
		return err
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	t.fitIndices(X, y, idx, rand.New(rand.NewSource(t.Params.Seed)))
	return nil
}

func (t *Tree) fitIndices(X [][]float64, y []float64, idx []int, rng *rand.Rand) {
	b := &treeBuilder{X: X, y: y, p: t.Params, rng: rng, categorical: make(map[int]bool)}
	for _, c := range t.Params.Categorical {
		b.categorical[c] = true
	}
	if b.p.MinSamplesLeaf < 1 {
		b.p.MinSamplesLeaf = 1
	}
	b.grow(idx, 0)
	t.Nodes = b.nodes
}

// Predict walks the tree for one row.
func (t *Tree) Predict(row []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Left < 0 {
			return n.Value
		}
		if n.goesLeft(row[n.Feature]) {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Depth returns the longest root-to-leaf path length.
func (t *Tree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.Left < 0 {
			return 0
		}
		l, r := walk(n.Left), walk(n.Right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	return walk(0)
}

func (n *Node) goesLeft(v float64) bool {
	if n.LeftCodes != nil {
		code := int(v)
		for _, c := range n.LeftCodes {
			if c == code {
				return true
			}
		}
		return false
	}
	return v <= n.Threshold
}

type treeBuilder struct {
	X           [][]float64
	y           []float64
	p           TreeParams
	rng         *rand.Rand
	categorical map[int]bool
	nodes       []Node
}

type split struct {
	feature   int
	threshold float64
	codes     []int
	gain      float64
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	var sum float64
	for _, i := range idx {
		sum += b.y[i]
	}
	pos := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		Left:    -1,
		Right:   -1,
		Value:   sum / (float64(len(idx)) + b.p.L2),
		Samples: len(idx),
	})

	if (b.p.MaxDepth > 0 && depth >= b.p.MaxDepth) || len(idx) < 2*b.p.MinSamplesLeaf {
		return pos
	}
	best, ok := b.bestSplit(idx, sum)
	if !ok {
		return pos
	}

	var left, right []int
	router := Node{Threshold: best.threshold, LeftCodes: best.codes}
	for _, i := range idx {
		if router.goesLeft(b.X[i][best.feature]) {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	n := &b.nodes[pos]
	n.Feature = best.feature
	n.Threshold = best.threshold
	n.LeftCodes = best.codes
	n.Left = l
	n.Right = r
	return pos
}

func (b *treeBuilder) candidates() []int {
	width := len(b.X[0])
	if b.p.MaxFeatures <= 0 || b.p.MaxFeatures >= width {
		out := make([]int, width)
		for i := range out {
			out[i] = i
		}
		return out
	}
	return b.rng.Perm(width)[:b.p.MaxFeatures]
}

func (b *treeBuilder) bestSplit(idx []int, total float64) (split, bool) {
	n := float64(len(idx))
	parent := total * total / (n + b.p.L2)
	best := split{gain: 1e-12}
	found := false
	for _, f := range b.candidates() {
		var s split
		var ok bool
		if b.categorical[f] {
			s, ok = b.categoricalSplit(idx, f, total, parent)
		} else {
			s, ok = b.numericSplit(idx, f, total, parent)
		}
		if ok && s.gain > best.gain {
			best = s
			found = true
		}
	}
	return best, found
}

func (b *treeBuilder) score(sumL, nL, sumR, nR float64) float64 {
	return sumL*sumL/(nL+b.p.L2) + sumR*sumR/(nR+b.p.L2)
}

func (b *treeBuilder) numericSplit(idx []int, f int, total, parent float64) (split, bool) {
	order := make([]int, len(idx))
	copy(order, idx)
	sort.SliceStable(order, func(a, c int) bool { return b.X[order[a]][f] < b.X[order[c]][f] })

	minLeaf := b.p.MinSamplesLeaf
	n := len(order)
	best := split{feature: f}
	found := false
	var sumL float64
	for k := 1; k < n; k++ {
		sumL += b.y[order[k-1]]
		if k < minLeaf || n-k < minLeaf {
			continue
		}
		lo, hi := b.X[order[k-1]][f], b.X[order[k]][f]
		if lo == hi {
			continue
		}
		gain := b.score(sumL, float64(k), total-sumL, float64(n-k)) - parent
		if gain > best.gain {
			best.gain = gain
			best.threshold = lo + (hi-lo)/2
			found = true
		}
	}
	return best, found
}

// categoricalSplit orders codes by mean target and scans prefixes of that
// order, the standard optimal partition for squared error.
func (b *treeBuilder) categoricalSplit(idx []int, f int, total, parent float64) (split, bool) {
	type group struct {
		code  int
		sum   float64
		count int
	}
	byCode := make(map[int]*group)
	for _, i := range idx {
		code := int(b.X[i][f])
		g, ok := byCode[code]
		if !ok {
			g = &group{code: code}
			byCode[code] = g
		}
		g.sum += b.y[i]
		g.count++
	}
	if len(byCode) < 2 {
		return split{}, false
	}
	groups := make([]*group, 0, len(byCode))
	for _, g := range byCode {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(a, c int) bool {
		ma := groups[a].sum / float64(groups[a].count)
		mc := groups[c].sum / float64(groups[c].count)
		if ma != mc {
			return ma < mc
		}
		return groups[a].code < groups[c].code
	})

	n := len(idx)
	minLeaf := b.p.MinSamplesLeaf
	best := split{feature: f}
	bestAt := -1
	var sumL float64
	var nL int
	for k := 0; k < len(groups)-1; k++ {
		sumL += groups[k].sum
		nL += groups[k].count
		if nL < minLeaf || n-nL < minLeaf {
			continue
		}
		gain := b.score(sumL, float64(nL), total-sumL, float64(n-nL)) - parent
		if gain > best.gain {
			best.gain = gain
			bestAt = k
		}
	}
	if bestAt < 0 {
		return split{}, false
	}
	best.codes = make([]int, 0, bestAt+1)
	for _, g := range groups[:bestAt+1] {
		best.codes = append(best.codes, g.code)
	}
	sort.Ints(best.codes)
	return best, true
}
