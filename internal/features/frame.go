/**
 * @description
 * Raw tabular container used between data sources and the feature builder.
 * Every cell is kept as the string the source produced; the builder decides
 * which columns are numeric. An empty string is a missing value.
 *
 * @dependencies
 * - standard library only
 */

package features

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Frame is an ordered set of equally long string columns.
type Frame struct {
	names []string
	cols  map[string][]string
	rows  int
}

// NewFrame creates an empty frame with the given column order.
func NewFrame(columns ...string) *Frame {
	f := &Frame{cols: make(map[string][]string, len(columns))}
	for _, name := range columns {
		if _, ok := f.cols[name]; ok {
			continue
		}
		f.names = append(f.names, name)
		f.cols[name] = nil
	}
	return f
}

// AppendRow adds one row; values follow the frame's column order.
func (f *Frame) AppendRow(values ...string) error {
	if len(values) != len(f.names) {
		return fmt.Errorf("row has %d values, frame has %d columns", len(values), len(f.names))
	}
	for i, name := range f.names {
		f.cols[name] = append(f.cols[name], strings.TrimSpace(values[i]))
	}
	f.rows++
	return nil
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.rows }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Has reports whether the column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Column returns the raw values of a column, or nil when absent.
func (f *Frame) Column(name string) []string {
	return f.cols[name]
}

// Set adds or replaces a column.
func (f *Frame) Set(name string, values []string) error {
	if len(f.names) > 0 && len(values) != f.rows {
		return fmt.Errorf("column %s has %d values, frame has %d rows", name, len(values), f.rows)
	}
	if _, ok := f.cols[name]; !ok {
		f.names = append(f.names, name)
	}
	if len(f.names) == 1 {
		f.rows = len(values)
	}
	f.cols[name] = values
	return nil
}

// Filter returns a new frame with the rows where keep is true.
func (f *Frame) Filter(keep []bool) *Frame {
	out := NewFrame(f.names...)
	for _, name := range f.names {
		src := f.cols[name]
		dst := make([]string, 0, len(src))
		for i, v := range src {
			if keep[i] {
				dst = append(dst, v)
			}
		}
		out.cols[name] = dst
	}
	for _, k := range keep {
		if k {
			out.rows++
		}
	}
	return out
}

// ParseNumeric converts raw cells to floats. Cells that do not parse become
// NaN, the same coercion a permissive CSV reader applies.
func ParseNumeric(values []string) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = parseCell(v)
	}
	return out
}

func parseCell(v string) float64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}

// FormatNumber renders a float the way sources write numeric cells.
func FormatNumber(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
