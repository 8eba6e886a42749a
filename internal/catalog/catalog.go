/**
 * @description
 * Reference Catalog: per-product static metadata used to complete partial
 * prediction requests and to describe the menu.
 *
 * @notes
 * - Portion buckets use edges fitted once over the whole catalog.
 * - Entries are keyed by product ID. The name index resolves duplicates to the
 *   first entry after a stable sort by name, and Ambiguous exposes the rest.
 */

package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/yerevan-pricing/backend/internal/features"
)

// ErrUnknownProduct is returned when a name or ID is not in the catalog.
var ErrUnknownProduct = errors.New("unknown product")

// Product is a raw menu row as a source delivers it. Missing numbers are NaN.
type Product struct {
	ProductID   int
	Name        string
	CategoryID  string
	BasePrice   float64
	Cost        float64
	PortionSize string
}

// Entry is the resolved metadata of one product.
type Entry struct {
	ProductID      int             `json:"product_id"`
	Name           string          `json:"product_name"`
	CategoryID     string          `json:"category_id"`
	PortionSize    string          `json:"portion_size"`
	PortionNumeric float64         `json:"portion_numeric"`
	PortionBucket  features.Bucket `json:"portion_bucket"`
	BasePrice      float64         `json:"base_price"`
	Cost           float64         `json:"cost"`
}

// Catalog is immutable after Build and safe for concurrent reads.
type Catalog struct {
	entries []Entry // sorted by name, then source order
	byName  map[string]int
	byID    map[int]int
	dupes   map[string][]int
	edges   features.Edges
	medians map[string]float64
	names   []string
}

// Build resolves a batch of products. Rows without a name or portion size
// are skipped.
func Build(products []Product) *Catalog {
	rows := make([]Product, 0, len(products))
	for _, p := range products {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" || strings.TrimSpace(p.PortionSize) == "" {
			continue
		}
		rows = append(rows, p)
	}

	portion := make([]float64, len(rows))
	base := make([]float64, len(rows))
	cost := make([]float64, len(rows))
	for i, p := range rows {
		portion[i] = features.ExtractPortion(p.PortionSize)
		base[i] = p.BasePrice
		cost[i] = p.Cost
	}
	c := &Catalog{
		byName: make(map[string]int),
		byID:   make(map[int]int),
		dupes:  make(map[string][]int),
		medians: map[string]float64{
			"portion_numeric": features.ImputeMedian(portion),
			"base_price":      features.ImputeMedian(base),
			"cost":            features.ImputeMedian(cost),
		},
	}
	c.edges = features.FitEdges(portion)

	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rows[order[a]].Name < rows[order[b]].Name
	})

	for _, i := range order {
		p := rows[i]
		e := Entry{
			ProductID:      p.ProductID,
			Name:           p.Name,
			CategoryID:     features.NormalizeLevel(p.CategoryID),
			PortionSize:    p.PortionSize,
			PortionNumeric: portion[i],
			PortionBucket:  c.edges.Bucket(portion[i]),
			BasePrice:      base[i],
			Cost:           cost[i],
		}
		idx := len(c.entries)
		c.entries = append(c.entries, e)
		if _, ok := c.byID[e.ProductID]; !ok {
			c.byID[e.ProductID] = idx
		}
		if _, ok := c.byName[e.Name]; ok {
			c.dupes[e.Name] = append(c.dupes[e.Name], idx)
			continue
		}
		c.byName[e.Name] = idx
		c.names = append(c.names, e.Name)
	}
	return c
}

// Len returns the number of distinct product names.
func (c *Catalog) Len() int { return len(c.names) }

// Lookup finds a product by exact name.
func (c *Catalog) Lookup(name string) (Entry, error) {
	idx, ok := c.byName[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownProduct, name)
	}
	return c.entries[idx], nil
}

// LookupByID finds a product by its identifier.
func (c *Catalog) LookupByID(id int) (Entry, error) {
	idx, ok := c.byID[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: id %d", ErrUnknownProduct, id)
	}
	return c.entries[idx], nil
}

// Ambiguous returns the entries that share name with the one Lookup returns.
// It is empty when the name is unique.
func (c *Catalog) Ambiguous(name string) []Entry {
	idx := c.dupes[name]
	out := make([]Entry, 0, len(idx))
	for _, i := range idx {
		out = append(out, c.entries[i])
	}
	return out
}

// AmbiguousNames lists every name that maps to more than one product.
func (c *Catalog) AmbiguousNames() []string {
	out := make([]string, 0, len(c.dupes))
	for name := range c.dupes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Names returns the distinct product names in sorted order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Entries returns the name-index entries in name order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, c.entries[c.byName[n]])
	}
	return out
}

// Edges returns the catalog-wide portion bins.
func (c *Catalog) Edges() features.Edges { return c.edges }

// Median returns the fill value used for a numeric field
// (portion_numeric, base_price or cost).
func (c *Catalog) Median(field string) float64 { return c.medians[field] }

// Normalize resolves a user-typed name case-insensitively.
func (c *Catalog) Normalize(name string) (string, bool) {
	return MatchFold(c.names, name)
}

// Suggest proposes a product for an unrecognised name.
func (c *Catalog) Suggest(name string) (string, bool) {
	return SuggestFrom(c.names, name)
}

// MatchFold returns the option equal to value ignoring case and surrounding space.
func MatchFold(options []string, value string) (string, bool) {
	value = strings.TrimSpace(value)
	for _, opt := range options {
		if strings.EqualFold(opt, value) {
			return opt, true
		}
	}
	return "", false
}

// SuggestFrom returns the first option sharing value's first letter, falling
// back to the first option. ok is false only when options is empty.
func SuggestFrom(options []string, value string) (string, bool) {
	if len(options) == 0 {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value != "" {
		first := strings.ToLower(string([]rune(value)[0]))
		for _, opt := range options {
			if strings.HasPrefix(strings.ToLower(opt), first) {
				return opt, true
			}
		}
	}
	return options[0], true
}
