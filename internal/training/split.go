package training

import (
	"math"
	"math/rand"
)

// Split draws a reproducible train/validation partition of n rows. The
// validation side gets ceil(fraction*n) rows, clamped so both sides are
// non-empty when n >= 2.
func Split(n int, fraction float64, seed int64) (train, valid []int) {
	if n == 0 {
		return nil, nil
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nv := int(math.Ceil(fraction * float64(n)))
	if nv >= n {
		nv = n - 1
	}
	if nv < 1 && n > 1 {
		nv = 1
	}
	return perm[nv:], perm[:nv]
}
