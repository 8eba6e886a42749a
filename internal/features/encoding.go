package features

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const indicatorValueMaxLen = 40

// Median returns the median of the non-NaN values (mean of the two middle
// values for even counts) and false when there are none.
func Median(values []float64) (float64, bool) {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return 0, false
	}
	sort.Float64s(clean)
	mid := len(clean) / 2
	if len(clean)%2 == 1 {
		return clean[mid], true
	}
	return (clean[mid-1] + clean[mid]) / 2, true
}

// ImputeMedian replaces NaN cells in place with the median of the batch, or 0
// when the whole column is missing. It returns the fill value.
func ImputeMedian(values []float64) float64 {
	fill, ok := Median(values)
	if !ok {
		fill = 0
	}
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = fill
		}
	}
	return fill
}

// TopLevels returns up to k distinct non-empty values ordered by frequency.
// Ties keep first-appearance order so repeated calls on the same data agree.
// k <= 0 returns every level.
func TopLevels(values []string, k int) []string {
	counts := make(map[string]int)
	var order []string
	for _, v := range values {
		if v == "" {
			continue
		}
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if k > 0 && len(order) > k {
		order = order[:k]
	}
	return order
}

// IndicatorName builds the one-hot column name for a categorical value:
// column, underscore, then the value with spaces replaced and cut to 40 runes.
func IndicatorName(column, value string) string {
	v := []rune(strings.ReplaceAll(value, " ", "_"))
	if len(v) > indicatorValueMaxLen {
		v = v[:indicatorValueMaxLen]
	}
	return column + "_" + string(v)
}

// UnseenName labels a categorical value that has no indicator column.
func UnseenName(column, value string) string {
	return column + "=" + value
}

// CategoricalEncoding is the fitted state of one categorical column.
type CategoricalEncoding struct {
	Column string `json:"column"`
	// Vocabulary holds every observed level in frequency order; native
	// categorical models consume the index into it.
	Vocabulary []string `json:"vocabulary"`
	// Levels are the top-k values that receive an indicator column.
	Levels     []string `json:"levels"`
	Indicators []string `json:"indicators"`
}

// Code returns the vocabulary index of a value, or -1 when unseen.
func (c CategoricalEncoding) Code(value string) int {
	for i, v := range c.Vocabulary {
		if v == value {
			return i
		}
	}
	return -1
}

func (c CategoricalEncoding) indicatorFor(value string) (string, bool) {
	for i, v := range c.Levels {
		if v == value {
			return c.Indicators[i], true
		}
	}
	return "", false
}

// Spec is the encoding learned once at training time. It is persisted with
// the model and applied unchanged at inference.
type Spec struct {
	Target      string                `json:"target"`
	Numeric     []string              `json:"numeric"`
	Categorical []CategoricalEncoding `json:"categorical"`
	TopK        int                   `json:"top_k"`
	// Portion holds the edges fitted on the training batch. Inference buckets
	// with catalog-wide edges; these are kept to detect when the two diverge.
	Portion Edges `json:"portion_edges"`
}

// FitSpec learns vocabularies and top-k levels from the categorical columns of t.
func FitSpec(t *Table, target string, numeric, categorical []string, topK int) Spec {
	spec := Spec{Target: target, Numeric: append([]string(nil), numeric...), TopK: topK}
	for _, col := range categorical {
		values := t.Categorical[col]
		enc := CategoricalEncoding{
			Column:     col,
			Vocabulary: TopLevels(values, 0),
			Levels:     TopLevels(values, topK),
		}
		used := make(map[string]int)
		for _, lvl := range enc.Levels {
			name := IndicatorName(col, lvl)
			// distinct values can sanitize to the same name ("a b" vs "a_b")
			if n := used[name]; n > 0 {
				used[name] = n + 1
				name = fmt.Sprintf("%s~%d", name, n+1)
			} else {
				used[name] = 1
			}
			enc.Indicators = append(enc.Indicators, name)
		}
		spec.Categorical = append(spec.Categorical, enc)
	}
	return spec
}

// OneHotColumns lists the expanded model columns: numeric columns first, then
// the indicators of each categorical column in configuration order.
func (s Spec) OneHotColumns() []string {
	cols := append([]string(nil), s.Numeric...)
	for _, c := range s.Categorical {
		cols = append(cols, c.Indicators...)
	}
	return cols
}

// NativeColumns lists the columns a native-categorical model consumes:
// categorical columns first, then numeric.
func (s Spec) NativeColumns() []string {
	cols := make([]string, 0, len(s.Categorical)+len(s.Numeric))
	for _, c := range s.Categorical {
		cols = append(cols, c.Column)
	}
	return append(cols, s.Numeric...)
}

// CategoricalIndices are the positions of categorical columns in NativeColumns.
func (s Spec) CategoricalIndices() []int {
	idx := make([]int, len(s.Categorical))
	for i := range s.Categorical {
		idx[i] = i
	}
	return idx
}

// IsIndicator reports whether name is one of the indicator columns of s.
func (s Spec) IsIndicator(name string) bool {
	for _, c := range s.Categorical {
		for _, ind := range c.Indicators {
			if ind == name {
				return true
			}
		}
	}
	return false
}

// OneHot expands a table into the OneHotColumns matrix. Values outside the
// top-k levels produce all-zero indicators.
func (s Spec) OneHot(t *Table) [][]float64 {
	width := len(s.OneHotColumns())
	out := make([][]float64, t.Len)
	for r := 0; r < t.Len; r++ {
		row := make([]float64, 0, width)
		for _, col := range s.Numeric {
			row = append(row, t.Numeric[col][r])
		}
		for _, c := range s.Categorical {
			v := t.Categorical[c.Column][r]
			for _, lvl := range c.Levels {
				if v == lvl {
					row = append(row, 1)
				} else {
					row = append(row, 0)
				}
			}
		}
		out[r] = row
	}
	return out
}

// Native encodes a table for native-categorical models: categorical cells
// become vocabulary codes (-1 for unseen), numeric cells pass through.
func (s Spec) Native(t *Table) [][]float64 {
	out := make([][]float64, t.Len)
	lookup := make([]map[string]int, len(s.Categorical))
	for i, c := range s.Categorical {
		lookup[i] = make(map[string]int, len(c.Vocabulary))
		for code, v := range c.Vocabulary {
			lookup[i][v] = code
		}
	}
	for r := 0; r < t.Len; r++ {
		row := make([]float64, 0, len(s.Categorical)+len(s.Numeric))
		for i, c := range s.Categorical {
			code, ok := lookup[i][t.Categorical[c.Column][r]]
			if !ok {
				code = -1
			}
			row = append(row, float64(code))
		}
		for _, col := range s.Numeric {
			row = append(row, t.Numeric[col][r])
		}
		out[r] = row
	}
	return out
}

// RawRow is a single, not yet encoded, inference input.
type RawRow struct {
	Numeric     map[string]float64
	Categorical map[string]string
}

// OneHotRow expands one row keeping every level it carries (nothing is
// dropped, since a single row would otherwise lose its only indicator).
// Known levels use the indicator names of s. Values outside the top-k levels
// are named column=value, which no indicator can match, so they encode as
// all zeros exactly as OneHot does.
func (s Spec) OneHotRow(row RawRow) ([]string, []float64) {
	var names []string
	var values []float64
	for _, col := range s.Numeric {
		if v, ok := row.Numeric[col]; ok {
			names = append(names, col)
			values = append(values, v)
		}
	}
	for _, c := range s.Categorical {
		v, ok := row.Categorical[c.Column]
		if !ok || v == "" {
			continue
		}
		name, known := c.indicatorFor(v)
		if !known {
			name = UnseenName(c.Column, v)
		}
		names = append(names, name)
		values = append(values, 1)
	}
	return names, values
}

// NativeRow encodes one row for a native-categorical model. Unseen levels
// are returned so the caller can report them.
func (s Spec) NativeRow(row RawRow) ([]float64, []string) {
	out := make([]float64, 0, len(s.Categorical)+len(s.Numeric))
	var unseen []string
	for _, c := range s.Categorical {
		v := row.Categorical[c.Column]
		code := c.Code(v)
		if code < 0 {
			unseen = append(unseen, UnseenName(c.Column, v))
		}
		out = append(out, float64(code))
	}
	for _, col := range s.Numeric {
		v, ok := row.Numeric[col]
		if !ok || math.IsNaN(v) {
			unseen = append(unseen, col)
			v = 0
		}
		out = append(out, v)
	}
	return out, unseen
}

// Reindex aligns (names, values) to expected: the result has exactly the
// expected columns in order, zero-filled where absent. Missing lists expected
// columns the row did not carry; extra lists row columns the model never saw.
func Reindex(names []string, values []float64, expected []string) (out []float64, missing, extra []string) {
	have := make(map[string]float64, len(names))
	for i, n := range names {
		have[n] = values[i]
	}
	want := make(map[string]struct{}, len(expected))
	out = make([]float64, len(expected))
	for i, col := range expected {
		want[col] = struct{}{}
		v, ok := have[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		out[i] = v
	}
	for _, n := range names {
		if _, ok := want[n]; !ok {
			extra = append(extra, n)
		}
	}
	return out, missing, extra
}
