package features

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPortion(t *testing.T) {
	cases := map[string]float64{
		"250ml":   250,
		"0.5 l":   0.5,
		"400g":    400,
		"2 x 150": 2,
	}
	for raw, want := range cases {
		assert.InDelta(t, want, ExtractPortion(raw), 1e-12, raw)
	}
	assert.True(t, math.IsNaN(ExtractPortion("large")))
	assert.True(t, math.IsNaN(ExtractPortion("")))
}

func TestBucketPortionIsIdempotent(t *testing.T) {
	raw := []string{"250ml", "330ml", "500ml", "100g", "", "1000g", "200 g"}
	_, first, e1 := BucketPortion(raw)
	_, second, e2 := BucketPortion(raw)
	assert.Equal(t, first, second)
	assert.Equal(t, e1, e2)
}

func TestBucketPortionDegenerateSpan(t *testing.T) {
	_, buckets, edges := BucketPortion([]string{"250ml", "250 ml", "250"})
	assert.True(t, edges.Degenerate)
	for _, b := range buckets {
		assert.Equal(t, BucketMedium, b)
	}

	_, buckets, edges = BucketPortion([]string{"n/a", "", "large"})
	assert.True(t, edges.Degenerate)
	for _, b := range buckets {
		assert.Equal(t, BucketMedium, b)
	}
}

func TestBucketPortionOrdering(t *testing.T) {
	raw := []string{"90", "100", "150", "199", "230", "260", "300", "301", "400", "1000"}
	numeric, buckets, _ := BucketPortion(raw)
	for i := range numeric {
		for j := range numeric {
			if numeric[i] < numeric[j] {
				assert.LessOrEqual(t, buckets[i].Rank(), buckets[j].Rank(), "%v vs %v", numeric[i], numeric[j])
			}
		}
	}
	assert.Equal(t, BucketSmall, buckets[0])
	assert.Equal(t, BucketLarge, buckets[len(buckets)-1])
}

func TestEdgesBucketBoundaries(t *testing.T) {
	e := FitEdges([]float64{0, 300})
	assert.Equal(t, BucketSmall, e.Bucket(0))
	assert.Equal(t, BucketSmall, e.Bucket(90))
	assert.Equal(t, BucketMedium, e.Bucket(150))
	assert.Equal(t, BucketLarge, e.Bucket(300))
	assert.Equal(t, BucketLarge, e.Bucket(5000))
	assert.Equal(t, BucketSmall, e.Bucket(-1))
	assert.Equal(t, BucketMedium, e.Bucket(math.NaN()))
}

func TestImputeMedian(t *testing.T) {
	values := []float64{1, math.NaN(), 3, 10}
	fill := ImputeMedian(values)
	assert.InDelta(t, 3, fill, 1e-12)
	assert.Equal(t, []float64{1, 3, 3, 10}, values)

	even := []float64{4, 1, math.NaN(), 2, 3}
	assert.InDelta(t, 2.5, ImputeMedian(even), 1e-12)

	empty := []float64{math.NaN(), math.NaN()}
	assert.Equal(t, 0.0, ImputeMedian(empty))
	assert.Equal(t, []float64{0, 0}, empty)
}

func TestTopLevelsStable(t *testing.T) {
	values := []string{"b", "a", "c", "a", "b", "d", "", "e", "c"}
	first := TopLevels(values, 3)
	second := TopLevels(values, 3)
	assert.Equal(t, first, second)
	// a, b, c tie on count two; first appearance decides
	assert.Equal(t, []string{"b", "a", "c"}, first)
	assert.Len(t, TopLevels(values, 0), 5)
}

func TestIndicatorName(t *testing.T) {
	assert.Equal(t, "type_coffee_house", IndicatorName("type", "coffee house"))
	long := IndicatorName("product_name", "A very long product name that keeps going and going")
	assert.Equal(t, "product_name_A_very_long_product_name_that_keeps_goin", long)
}

func TestFitSpecIndicatorSetsStable(t *testing.T) {
	table := &Table{
		Len: 6,
		Categorical: map[string][]string{
			"location": {"Kentron", "Arabkir", "Kentron", "Nor Nork", "Arabkir", "Kentron"},
		},
		Numeric: map[string][]float64{"cost": {1, 2, 3, 4, 5, 6}},
	}
	a := FitSpec(table, "price_sold", []string{"cost"}, []string{"location"}, 2)
	b := FitSpec(table, "price_sold", []string{"cost"}, []string{"location"}, 2)
	assert.Equal(t, a.OneHotColumns(), b.OneHotColumns())
	assert.Equal(t, []string{"cost", "location_Kentron", "location_Arabkir"}, a.OneHotColumns())
	assert.Equal(t, []string{"location", "cost"}, a.NativeColumns())
	assert.Equal(t, []int{0}, a.CategoricalIndices())

	m := a.OneHot(table)
	assert.Equal(t, []float64{4, 0, 0}, m[3], "level outside top-k encodes as all zeros")
	n := a.Native(table)
	assert.Equal(t, []float64{2, 4}, n[3])
}

func TestFitSpecSanitizedCollision(t *testing.T) {
	table := &Table{
		Len:         2,
		Categorical: map[string][]string{"type": {"fast food", "fast_food"}},
		Numeric:     map[string][]float64{},
	}
	spec := FitSpec(table, "y", nil, []string{"type"}, 5)
	assert.Equal(t, []string{"type_fast_food", "type_fast_food~2"}, spec.OneHotColumns())
}

func TestReindexMatchesArtifactColumns(t *testing.T) {
	expected := []string{"portion_numeric", "base_price", "cost", "location_Kentron", "location_Arabkir", "type_pub", "type_cafe"}
	spec := Spec{
		Numeric: []string{"portion_numeric", "base_price", "cost"},
		Categorical: []CategoricalEncoding{
			{Column: "location", Levels: []string{"Kentron", "Arabkir"}, Indicators: []string{"location_Kentron", "location_Arabkir"}},
			{Column: "type", Levels: []string{"pub", "cafe"}, Indicators: []string{"type_pub", "type_cafe"}},
		},
	}
	rows := []RawRow{
		{Numeric: map[string]float64{"portion_numeric": 250, "base_price": 1500, "cost": 600}, Categorical: map[string]string{"location": "Kentron", "type": "pub"}},
		{Numeric: map[string]float64{"cost": 1}, Categorical: map[string]string{"location": "Malatia-Sebastia", "type": "bistro"}},
		{},
	}
	for i, row := range rows {
		names, values := spec.OneHotRow(row)
		out, _, _ := Reindex(names, values, expected)
		require.Len(t, out, len(expected), fmt.Sprint(i))
	}

	names, values := spec.OneHotRow(rows[0])
	out, missing, extra := Reindex(names, values, expected)
	assert.Equal(t, []float64{250, 1500, 600, 1, 0, 1, 0}, out)
	assert.Equal(t, []string{"location_Arabkir", "type_cafe"}, missing)
	assert.Empty(t, extra)

	names, values = spec.OneHotRow(rows[1])
	out, _, extra = Reindex(names, values, expected)
	assert.Equal(t, []float64{0, 0, 1, 0, 0, 0, 0}, out)
	assert.Equal(t, []string{"location=Malatia-Sebastia", "type=bistro"}, extra)
}

func TestOneHotRowMatchesBatchForTruncatedNames(t *testing.T) {
	large := "Seasonal Pumpkin Spice Latte With Oat Milk Large"
	small := "Seasonal Pumpkin Spice Latte With Oat Milk Small"
	require.Equal(t, IndicatorName("product_name", large), IndicatorName("product_name", small))

	table := &Table{
		Len:         3,
		Categorical: map[string][]string{"product_name": {large, large, small}},
		Numeric:     map[string][]float64{},
	}
	spec := FitSpec(table, "y", nil, []string{"product_name"}, 1)
	cols := spec.OneHotColumns()
	batch := spec.OneHot(table)

	for r, v := range table.Categorical["product_name"] {
		names, values := spec.OneHotRow(RawRow{Categorical: map[string]string{"product_name": v}})
		out, _, _ := Reindex(names, values, cols)
		assert.Equal(t, batch[r], out, v)
	}

	names, values := spec.OneHotRow(RawRow{Categorical: map[string]string{"product_name": small}})
	_, _, extra := Reindex(names, values, cols)
	assert.Equal(t, []string{"product_name=" + small}, extra)
}

func TestOneHotRowUnseenSanitizedCollision(t *testing.T) {
	table := &Table{
		Len:         2,
		Categorical: map[string][]string{"type": {"fast food", "fast food"}},
		Numeric:     map[string][]float64{},
	}
	spec := FitSpec(table, "y", nil, []string{"type"}, 5)
	names, values := spec.OneHotRow(RawRow{Categorical: map[string]string{"type": "fast_food"}})
	out, _, extra := Reindex(names, values, spec.OneHotColumns())
	assert.Equal(t, []float64{0}, out)
	assert.Equal(t, []string{"type=fast_food"}, extra)
}

func TestNativeRowReportsUnseen(t *testing.T) {
	spec := Spec{
		Numeric:     []string{"cost"},
		Categorical: []CategoricalEncoding{{Column: "location", Vocabulary: []string{"Kentron", "Arabkir"}}},
	}
	row, unseen := spec.NativeRow(RawRow{Numeric: map[string]float64{"cost": 5}, Categorical: map[string]string{"location": "Arabkir"}})
	assert.Equal(t, []float64{1, 5}, row)
	assert.Empty(t, unseen)

	row, unseen = spec.NativeRow(RawRow{Categorical: map[string]string{"location": "Gyumri"}})
	assert.Equal(t, []float64{-1, 0}, row)
	assert.Equal(t, []string{"location=Gyumri", "cost"}, unseen)
}

func TestCalendarDerivation(t *testing.T) {
	d, ok := ParseDate("2024-03-04")
	require.True(t, ok)
	assert.Equal(t, 0, DayOfWeek(d), "Monday is day zero")
	assert.Equal(t, "Spring", Season(d.Month()))
	assert.Equal(t, "Winter", Season(time.December))
	assert.Equal(t, "Autumn", Season(time.October))
}

func pricingOptions() Options {
	return Options{
		Target:      "price_sold",
		Required:    []string{"price_sold", "product_name", "location", "type", "portion_size", "age_group"},
		Categorical: []string{"location", "type", "age_group", "category_id", "portion_bucket"},
		Numeric:     []string{"portion_numeric", "base_price", "cost"},
		Impute:      []string{"portion_numeric", "base_price", "cost"},
		TopK:        20,
		MinRows:     10,
	}
}

func pricingFrame(t *testing.T, n int) *Frame {
	t.Helper()
	f := NewFrame("price_sold", "product_name", "location", "type", "portion_size", "base_price", "cost", "category_id", "age_group")
	locations := []string{"Kentron", "Arabkir", "Nor Nork"}
	portions := []string{"250ml", "330ml", "500ml", "unknown"}
	for i := 0; i < n; i++ {
		cost := fmt.Sprint(400 + i*10)
		if i == 2 {
			cost = ""
		}
		require.NoError(t, f.AppendRow(
			fmt.Sprint(1000+i*25), fmt.Sprintf("Item %d", i%4), locations[i%3], "cafe",
			portions[i%4], fmt.Sprint(900+i*20), cost, "1.0", "25-34",
		))
	}
	return f
}

func TestBuildPricingDataset(t *testing.T) {
	ds, err := NewBuilder(pricingOptions()).Build(pricingFrame(t, 12))
	require.NoError(t, err)

	assert.Equal(t, 12, ds.Len())
	assert.Len(t, ds.Target, 12)
	assert.Equal(t, "1", ds.Table.Categorical["category_id"][0])
	assert.Equal(t, "medium", ds.Table.Categorical["portion_bucket"][3], "unparseable portion buckets as medium")
	assert.Equal(t, "small", ds.Table.Categorical["portion_bucket"][0])
	assert.Equal(t, "large", ds.Table.Categorical["portion_bucket"][2])
	assert.InDelta(t, 330, ds.Table.Numeric["portion_numeric"][3], 1e-9, "median of 250,330,500")
	assert.False(t, math.IsNaN(ds.Table.Numeric["cost"][2]))
	assert.Equal(t, ds.Spec.OneHotColumns()[:3], []string{"portion_numeric", "base_price", "cost"})
	assert.Len(t, ds.OneHot()[0], len(ds.Spec.OneHotColumns()))
	assert.Len(t, ds.Native()[0], len(ds.Spec.NativeColumns()))
	assert.False(t, ds.Spec.Portion.Degenerate)
}

func TestBuildDropsRowsMissingRequired(t *testing.T) {
	f := pricingFrame(t, 12)
	loc := f.Column("location")
	loc[0] = ""
	prices := f.Column("price_sold")
	prices[1] = "n/a"

	ds, err := NewBuilder(pricingOptions()).Build(f)
	require.NoError(t, err)
	assert.Equal(t, 10, ds.Len())
	assert.Equal(t, 2, ds.Dropped)
}

func TestBuildInsufficientData(t *testing.T) {
	_, err := NewBuilder(pricingOptions()).Build(pricingFrame(t, 5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))
	assert.Contains(t, err.Error(), "5 rows")
}

func TestBuildMissingColumn(t *testing.T) {
	f := NewFrame("price_sold", "product_name", "location", "portion_size", "age_group")
	require.NoError(t, f.AppendRow("100", "Tea", "Kentron", "250ml", "25-34"))

	_, err := NewBuilder(pricingOptions()).Build(f)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDataIntegrity))
	assert.Contains(t, err.Error(), "type")
	assert.NotContains(t, err.Error(), "portion_bucket")
}

func TestBuildEmptyTarget(t *testing.T) {
	f := pricingFrame(t, 12)
	prices := f.Column("price_sold")
	for i := range prices {
		prices[i] = ""
	}
	_, err := NewBuilder(pricingOptions()).Build(f)
	assert.True(t, errors.Is(err, ErrDataIntegrity))
}

func TestBuildBaselineDerivesCalendar(t *testing.T) {
	opts := Options{
		Target:      "price_sold",
		Required:    []string{"price_sold"},
		Categorical: []string{"product_name"},
		Numeric:     []string{"units_sold", "year", "month", "day_of_week"},
		TopK:        5,
		MinRows:     2,
	}
	f := NewFrame("price_sold", "product_name", "units_sold", "date")
	require.NoError(t, f.AppendRow("100", "Tea", "2", "2024-01-01"))
	require.NoError(t, f.AppendRow("120", "Latte", "1", "2024-06-15"))
	require.NoError(t, f.AppendRow("130", "Latte", "", "2024-06-16"))

	ds, err := NewBuilder(opts).Build(f)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len(), "row with missing units_sold is dropped")
	assert.Equal(t, []float64{2024, 2024}, ds.Table.Numeric["year"])
	assert.Equal(t, []float64{0, 5}, ds.Table.Numeric["day_of_week"])
}
