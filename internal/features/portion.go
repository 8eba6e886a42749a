package features

import (
	"math"
	"regexp"
	"strconv"
)

// Bucket is the coarse portion size class.
type Bucket string

const (
	BucketSmall  Bucket = "small"
	BucketMedium Bucket = "medium"
	BucketLarge  Bucket = "large"
)

// Buckets lists the portion classes in ascending order.
var Buckets = []Bucket{BucketSmall, BucketMedium, BucketLarge}

var portionNumberPattern = regexp.MustCompile(`(\d+\.?\d*)`)

// ParseBucket maps user input to a bucket; ok is false for anything else.
func ParseBucket(s string) (Bucket, bool) {
	switch Bucket(s) {
	case BucketSmall, BucketMedium, BucketLarge:
		return Bucket(s), true
	}
	return "", false
}

// Rank orders buckets: small < medium < large.
func (b Bucket) Rank() int {
	switch b {
	case BucketSmall:
		return 0
	case BucketLarge:
		return 2
	default:
		return 1
	}
}

// ExtractPortion returns the first decimal or integer token of a raw portion
// string ("250ml" -> 250, "0.5 l" -> 0.5), or NaN when there is none.
func ExtractPortion(raw string) float64 {
	m := portionNumberPattern.FindString(raw)
	if m == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Edges are the three equal-width bins fitted over a batch of portion sizes.
type Edges struct {
	Bounds     [4]float64 `json:"bounds"`
	Degenerate bool       `json:"degenerate"`
}

// FitEdges spans the observed min..max (NaN ignored) with three equal-width
// bins padded by eps = max(span*1e-6, 1e-9). A zero span or an all-NaN batch
// is degenerate and buckets everything as medium.
func FitEdges(values []float64) Edges {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if math.IsInf(lo, 1) || !(span > 0) {
		return Edges{Degenerate: true}
	}
	eps := math.Max(span*1e-6, 1e-9)
	start, end := lo-eps, hi+eps
	step := (end - start) / 3
	return Edges{Bounds: [4]float64{start, start + step, start + 2*step, end}}
}

// Bucket assigns a value to a bin. Intervals are right-closed; values outside
// the fitted range clamp to the nearest end bin and NaN is medium.
func (e Edges) Bucket(v float64) Bucket {
	if e.Degenerate || math.IsNaN(v) {
		return BucketMedium
	}
	switch {
	case v <= e.Bounds[1]:
		return BucketSmall
	case v <= e.Bounds[2]:
		return BucketMedium
	default:
		return BucketLarge
	}
}

// BucketPortion parses raw portion strings and buckets them with edges fitted
// on the same batch. Numeric output keeps NaN for unparseable cells so the
// caller can impute it.
func BucketPortion(raw []string) ([]float64, []Bucket, Edges) {
	numeric := make([]float64, len(raw))
	for i, s := range raw {
		numeric[i] = ExtractPortion(s)
	}
	edges := FitEdges(numeric)
	buckets := make([]Bucket, len(raw))
	for i, v := range numeric {
		buckets[i] = edges.Bucket(v)
	}
	return numeric, buckets, edges
}
