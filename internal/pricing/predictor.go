/**
 * @description
 * Predictor: turns a partial price request into a full feature row using the
 * Reference Catalog and the encoding stored in the model artifact, then runs
 * the model.
 *
 * @notes
 * - The artifact's encoding spec is reused verbatim; nothing is refitted here.
 * - Columns the row lacks are zero-filled. Divergence from the artifact's
 *   columns is reported as drift and logged, never raised.
 * - A Predictor is immutable once built and safe for concurrent use.
 */

package pricing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/yerevan-pricing/backend/internal/artifact"
	"github.com/yerevan-pricing/backend/internal/catalog"
	"github.com/yerevan-pricing/backend/internal/features"
	"github.com/yerevan-pricing/backend/internal/logger"
	"github.com/yerevan-pricing/backend/internal/regress"
)

// Unknown product policies.
const (
	PolicyDefaults = "defaults"
	PolicyReject   = "reject"
)

// Substitutes used for products missing from the catalog under PolicyDefaults.
const (
	DefaultCategoryID     = "1"
	DefaultBasePrice      = 2000.0
	DefaultCost           = 1000.0
	DefaultPortionNumeric = 250.0
)

// ErrInvalidRequest marks requests missing a required field or carrying an
// out-of-range enumerated value.
var ErrInvalidRequest = errors.New("invalid prediction request")

// Request is what a client supplies.
type Request struct {
	ProductName string `json:"product_name"`
	Location    string `json:"location"`
	VenueType   string `json:"venue_type"`
	PortionSize string `json:"portion_size"`
	AgeGroup    string `json:"age_group"`
	// Numeric overrides catalog values (portion_numeric, base_price, cost) or
	// supplies numeric model inputs the catalog does not know.
	Numeric map[string]float64 `json:"numeric,omitempty"`
}

// Resolved is the complete input context after catalog lookup.
type Resolved struct {
	ProductName    string             `json:"product_name"`
	ProductID      int                `json:"product_id,omitempty"`
	Location       string             `json:"location"`
	VenueType      string             `json:"venue_type"`
	PortionSize    string             `json:"portion_size"`
	AgeGroup       string             `json:"age_group"`
	CategoryID     string             `json:"category_id"`
	PortionNumeric float64            `json:"portion_numeric"`
	BasePrice      float64            `json:"base_price"`
	Cost           float64            `json:"cost"`
	RawPortion     string             `json:"raw_portion,omitempty"`
	Extra          map[string]float64 `json:"extra,omitempty"`
	Defaulted      bool               `json:"defaulted"`
}

// Row lays the resolved context out under the training column names.
func (r Resolved) Row() features.RawRow {
	row := features.RawRow{
		Numeric: map[string]float64{
			features.ColumnPortionNumeric: r.PortionNumeric,
			"base_price":                  r.BasePrice,
			"cost":                        r.Cost,
		},
		Categorical: map[string]string{
			"location":                   r.Location,
			"type":                       r.VenueType,
			"age_group":                  r.AgeGroup,
			"category_id":                r.CategoryID,
			features.ColumnPortionBucket: r.PortionSize,
			"product_name":               r.ProductName,
		},
	}
	if r.RawPortion != "" {
		row.Categorical[features.ColumnPortionSize] = r.RawPortion
	}
	if r.ProductID != 0 {
		row.Numeric["product_id"] = float64(r.ProductID)
	}
	for k, v := range r.Extra {
		row.Numeric[k] = v
	}
	return row
}

// Drift describes how a request diverged from the artifact's columns.
type Drift struct {
	// Missing numeric model inputs, zero-filled.
	Missing []string `json:"missing,omitempty"`
	// Indicator columns or categorical levels the model never saw.
	Unseen []string `json:"unseen,omitempty"`
}

func (d *Drift) empty() bool { return len(d.Missing) == 0 && len(d.Unseen) == 0 }

// Log warns about a non-empty drift report.
func (d *Drift) Log(product, modelID string) {
	if d == nil || d.empty() {
		return
	}
	logger.Warn("Predictor: encoding drift for %q (model %s): missing=%v unseen=%v",
		product, modelID, d.Missing, d.Unseen)
}

// Response is the prediction plus the context that produced it.
type Response struct {
	PredictedPrice float64 `json:"predicted_price"`
	Resolved
	Model   string `json:"model"`
	ModelID string `json:"model_id"`
	Drift   *Drift `json:"drift,omitempty"`
}

// Predictor serves one artifact.
type Predictor struct {
	art     *artifact.Artifact
	model   regress.Regressor
	catalog *catalog.Catalog
	policy  string
}

// Open loads the artifact at path eagerly. A missing or unreadable file
// fails with artifact.ErrModelUnavailable before any prediction.
func Open(path string, cat *catalog.Catalog, policy string) (*Predictor, error) {
	art, err := artifact.Load(path)
	if err != nil {
		return nil, err
	}
	return New(art, cat, policy)
}

// New wraps an already loaded artifact.
func New(art *artifact.Artifact, cat *catalog.Catalog, policy string) (*Predictor, error) {
	switch policy {
	case PolicyDefaults, PolicyReject:
	case "":
		policy = PolicyDefaults
	default:
		return nil, fmt.Errorf("unknown product policy %q", policy)
	}
	if art == nil || art.Model() == nil {
		return nil, fmt.Errorf("%w: no model", artifact.ErrModelUnavailable)
	}
	if cat == nil {
		cat = catalog.Build(nil)
	}
	p := &Predictor{art: art, model: art.Model(), catalog: cat, policy: policy}
	if p.EdgesShifted() {
		logger.Warn("Predictor: portion edges of model %s %v differ from catalog edges %v; bucket assignments may drift",
			art.ID, art.Spec.Portion.Bounds, cat.Edges().Bounds)
	}
	return p, nil
}

// EdgesShifted reports whether the catalog buckets portions with different
// edges than the training batch did. Artifacts without recorded edges and
// empty catalogs never report a shift.
func (p *Predictor) EdgesShifted() bool {
	trained := p.art.Spec.Portion
	if trained == (features.Edges{}) || p.catalog.Len() == 0 {
		return false
	}
	return trained != p.catalog.Edges()
}

// Artifact returns the served artifact.
func (p *Predictor) Artifact() *artifact.Artifact { return p.art }

// Catalog returns the reference catalog used for resolution.
func (p *Predictor) Catalog() *catalog.Catalog { return p.catalog }

// Policy returns the unknown product policy.
func (p *Predictor) Policy() string { return p.policy }

// Resolve validates the request and completes it from the catalog.
func (p *Predictor) Resolve(req Request) (Resolved, error) {
	res := Resolved{
		ProductName: strings.TrimSpace(req.ProductName),
		Location:    strings.TrimSpace(req.Location),
		VenueType:   strings.TrimSpace(req.VenueType),
		PortionSize: strings.ToLower(strings.TrimSpace(req.PortionSize)),
		AgeGroup:    strings.TrimSpace(req.AgeGroup),
	}
	switch {
	case res.ProductName == "":
		return Resolved{}, fmt.Errorf("%w: product_name is required", ErrInvalidRequest)
	case res.Location == "":
		return Resolved{}, fmt.Errorf("%w: location is required", ErrInvalidRequest)
	case res.VenueType == "":
		return Resolved{}, fmt.Errorf("%w: venue_type is required", ErrInvalidRequest)
	}
	if res.PortionSize == "" {
		res.PortionSize = string(features.BucketMedium)
	}
	if _, ok := features.ParseBucket(res.PortionSize); !ok {
		return Resolved{}, fmt.Errorf("%w: portion_size must be small, medium or large", ErrInvalidRequest)
	}
	if res.AgeGroup == "" {
		res.AgeGroup = catalog.DefaultAgeGroup
	}

	entry, err := p.lookup(res.ProductName)
	switch {
	case err == nil:
		res.ProductName = entry.Name
		res.ProductID = entry.ProductID
		res.CategoryID = entry.CategoryID
		res.PortionNumeric = entry.PortionNumeric
		res.BasePrice = entry.BasePrice
		res.Cost = entry.Cost
		res.RawPortion = entry.PortionSize
	case errors.Is(err, catalog.ErrUnknownProduct) && p.policy == PolicyDefaults:
		res.CategoryID = DefaultCategoryID
		res.PortionNumeric = DefaultPortionNumeric
		res.BasePrice = DefaultBasePrice
		res.Cost = DefaultCost
		res.Defaulted = true
	default:
		return Resolved{}, err
	}

	for k, v := range req.Numeric {
		switch k {
		case features.ColumnPortionNumeric:
			res.PortionNumeric = v
		case "base_price":
			res.BasePrice = v
		case "cost":
			res.Cost = v
		default:
			if res.Extra == nil {
				res.Extra = make(map[string]float64)
			}
			res.Extra[k] = v
		}
	}
	return res, nil
}

// lookup tries the exact name first, then a case-insensitive match.
func (p *Predictor) lookup(name string) (catalog.Entry, error) {
	entry, err := p.catalog.Lookup(name)
	if err != nil {
		canonical, ok := p.catalog.Normalize(name)
		if !ok {
			return catalog.Entry{}, err
		}
		entry, err = p.catalog.Lookup(canonical)
		if err != nil {
			return catalog.Entry{}, err
		}
	}
	if dupes := p.catalog.Ambiguous(entry.Name); len(dupes) > 0 {
		logger.Warn("Predictor: product name %q matches %d products, using product_id %d",
			entry.Name, len(dupes)+1, entry.ProductID)
	}
	return entry, nil
}

// Encode builds the model input in the artifact's exact column order.
func (p *Predictor) Encode(res Resolved) ([]float64, *Drift) {
	row := res.Row()
	spec := p.art.Spec
	drift := &Drift{}
	// some profiles treat identifier columns as numbers
	for _, col := range spec.Numeric {
		if _, ok := row.Numeric[col]; ok {
			continue
		}
		if v, err := strconv.ParseFloat(row.Categorical[col], 64); err == nil {
			row.Numeric[col] = v
		}
	}

	if p.art.Native() {
		values, unseen := spec.NativeRow(row)
		for _, u := range unseen {
			if strings.Contains(u, "=") {
				drift.Unseen = append(drift.Unseen, u)
			} else {
				drift.Missing = append(drift.Missing, u)
			}
		}
		return values, drift
	}

	names, values := spec.OneHotRow(row)
	out, missing, extra := features.Reindex(names, values, p.art.Columns)
	for _, m := range missing {
		// inactive indicators are expected to be absent
		if !spec.IsIndicator(m) {
			drift.Missing = append(drift.Missing, m)
		}
	}
	drift.Unseen = extra
	return out, drift
}

// Predict runs the full request pipeline.
func (p *Predictor) Predict(req Request) (*Response, error) {
	res, err := p.Resolve(req)
	if err != nil {
		return nil, err
	}
	x, drift := p.Encode(res)
	drift.Log(res.ProductName, p.art.ID)

	price := p.model.Predict(x)
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, fmt.Errorf("model %s returned a non-finite price", p.art.ID)
	}
	out := &Response{
		PredictedPrice: Round2(price),
		Resolved:       res,
		Model:          p.art.Candidate,
		ModelID:        p.art.ID,
	}
	if !drift.empty() {
		out.Drift = drift
	}
	return out, nil
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
