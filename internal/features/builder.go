/**
 * @description
 * Feature Builder: turns joined sale/product/context rows into the model
 * matrix and target vector. Pure transformation, no I/O.
 *
 * @notes
 * - Portion columns are derived from portion_size and calendar columns from
 *   date when the source does not carry them.
 * - The encoding Spec is fitted here once and must be reused at inference.
 */

package features

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Derived portion columns.
const (
	ColumnPortionSize    = "portion_size"
	ColumnPortionNumeric = "portion_numeric"
	ColumnPortionBucket  = "portion_bucket"
)

var (
	// ErrDataIntegrity means a required column is absent or the target is empty.
	ErrDataIntegrity = errors.New("data integrity")
	// ErrInsufficientData means too few rows survived cleaning to train on.
	ErrInsufficientData = errors.New("insufficient data")
)

// Options configure a Builder.
type Options struct {
	Target      string
	Required    []string
	Categorical []string
	Numeric     []string
	// Impute lists numeric columns whose missing cells get the batch median.
	// Rows still missing any other numeric value are dropped.
	Impute  []string
	TopK    int
	MinRows int
}

// Table is the typed, cleaned form of a frame.
type Table struct {
	Len         int
	Numeric     map[string][]float64
	Categorical map[string][]string
}

// Subset returns the rows at idx, in that order.
func (t *Table) Subset(idx []int) *Table {
	out := &Table{
		Len:         len(idx),
		Numeric:     make(map[string][]float64, len(t.Numeric)),
		Categorical: make(map[string][]string, len(t.Categorical)),
	}
	for name, col := range t.Numeric {
		dst := make([]float64, len(idx))
		for i, r := range idx {
			dst[i] = col[r]
		}
		out.Numeric[name] = dst
	}
	for name, col := range t.Categorical {
		dst := make([]string, len(idx))
		for i, r := range idx {
			dst[i] = col[r]
		}
		out.Categorical[name] = dst
	}
	return out
}

// Dataset is the Builder's output.
type Dataset struct {
	Spec   Spec
	Table  *Table
	Target []float64
	// Dropped counts rows removed by cleaning.
	Dropped int
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return d.Table.Len }

// OneHot returns the expanded numeric matrix in Spec.OneHotColumns order.
func (d *Dataset) OneHot() [][]float64 { return d.Spec.OneHot(d.Table) }

// Native returns the matrix in Spec.NativeColumns order with vocabulary codes.
func (d *Dataset) Native() [][]float64 { return d.Spec.Native(d.Table) }

// Builder produces datasets from raw frames.
type Builder struct {
	opts Options
}

// NewBuilder creates a new Builder
func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts}
}

// Build cleans, derives, imputes and encodes a frame. The input is not modified.
func (b *Builder) Build(in *Frame) (*Dataset, error) {
	o := b.opts
	if err := b.checkColumns(in); err != nil {
		return nil, err
	}

	target := ParseNumeric(in.Column(o.Target))
	if allNaN(target) {
		return nil, fmt.Errorf("%w: target column %q has no values", ErrDataIntegrity, o.Target)
	}

	// dropna on the required source columns
	keep := make([]bool, in.Len())
	for i := range keep {
		keep[i] = !math.IsNaN(target[i])
		for _, col := range o.Required {
			if !in.Has(col) || !keep[i] {
				continue
			}
			if in.Column(col)[i] == "" {
				keep[i] = false
			}
		}
	}
	f := in.Filter(keep)
	dropped := in.Len() - f.Len()

	if err := b.derive(f); err != nil {
		return nil, err
	}

	table := &Table{
		Len:         f.Len(),
		Numeric:     make(map[string][]float64, len(o.Numeric)),
		Categorical: make(map[string][]string, len(o.Categorical)),
	}
	for _, col := range o.Categorical {
		table.Categorical[col] = normalizeLevels(f.Column(col))
	}
	for _, col := range o.Numeric {
		table.Numeric[col] = ParseNumeric(f.Column(col))
	}
	for _, col := range o.Impute {
		if values, ok := table.Numeric[col]; ok {
			ImputeMedian(values)
		}
	}
	y := ParseNumeric(f.Column(o.Target))

	spec := FitSpec(table, o.Target, o.Numeric, o.Categorical, o.TopK)
	if f.Has(ColumnPortionSize) {
		_, _, spec.Portion = BucketPortion(f.Column(ColumnPortionSize))
	}

	// select_numeric: rows with any remaining gap are dropped whole
	rows := make([]int, 0, table.Len)
	for r := 0; r < table.Len; r++ {
		ok := !math.IsNaN(y[r])
		for _, col := range o.Numeric {
			if math.IsNaN(table.Numeric[col][r]) {
				ok = false
				break
			}
		}
		if ok {
			rows = append(rows, r)
		}
	}
	dropped += table.Len - len(rows)
	if len(rows) != table.Len {
		table = table.Subset(rows)
		ys := make([]float64, len(rows))
		for i, r := range rows {
			ys[i] = y[r]
		}
		y = ys
	}

	if table.Len < o.MinRows {
		return nil, fmt.Errorf("%w: %d rows after cleaning, need at least %d", ErrInsufficientData, table.Len, o.MinRows)
	}

	return &Dataset{Spec: spec, Table: table, Target: y, Dropped: dropped}, nil
}

func (b *Builder) checkColumns(f *Frame) error {
	o := b.opts
	if !f.Has(o.Target) {
		return fmt.Errorf("%w: target column %q missing", ErrDataIntegrity, o.Target)
	}
	need := make([]string, 0, len(o.Required)+len(o.Categorical)+len(o.Numeric))
	need = append(need, o.Required...)
	need = append(need, o.Categorical...)
	need = append(need, o.Numeric...)

	seen := make(map[string]bool)
	var missing []string
	for _, col := range need {
		if seen[col] || f.Has(col) {
			continue
		}
		seen[col] = true
		switch {
		case (col == ColumnPortionNumeric || col == ColumnPortionBucket) && f.Has(ColumnPortionSize):
		case isCalendarColumn(col) && f.Has(ColumnDate):
		default:
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: missing columns %s", ErrDataIntegrity, strings.Join(missing, ", "))
	}
	return nil
}

func (b *Builder) derive(f *Frame) error {
	if f.Has(ColumnPortionSize) && (!f.Has(ColumnPortionNumeric) || !f.Has(ColumnPortionBucket)) {
		numeric, buckets, _ := BucketPortion(f.Column(ColumnPortionSize))
		if !f.Has(ColumnPortionNumeric) {
			cells := make([]string, len(numeric))
			for i, v := range numeric {
				cells[i] = FormatNumber(v)
			}
			if err := f.Set(ColumnPortionNumeric, cells); err != nil {
				return err
			}
		}
		if !f.Has(ColumnPortionBucket) {
			cells := make([]string, len(buckets))
			for i, bk := range buckets {
				cells[i] = string(bk)
			}
			if err := f.Set(ColumnPortionBucket, cells); err != nil {
				return err
			}
		}
	}
	if f.Has(ColumnDate) {
		return deriveCalendar(f)
	}
	return nil
}

// NormalizeLevel renders integral numeric levels without a fraction so a
// category id read as 1, "1" or "1.0" encodes the same way.
func NormalizeLevel(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return v
	}
	f := parseCell(v)
	if math.IsNaN(f) || f != math.Trunc(f) || math.Abs(f) > 1e15 {
		return v
	}
	return FormatNumber(f)
}

func normalizeLevels(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = NormalizeLevel(v)
	}
	return out
}

func allNaN(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}
