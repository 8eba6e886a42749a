package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yerevan-pricing/backend/internal/api/middleware"
	"github.com/yerevan-pricing/backend/internal/artifact"
	"github.com/yerevan-pricing/backend/internal/config"
	"github.com/yerevan-pricing/backend/internal/datasource"
	"github.com/yerevan-pricing/backend/internal/db"
	"github.com/yerevan-pricing/backend/internal/features"
	"github.com/yerevan-pricing/backend/internal/models"
	"github.com/yerevan-pricing/backend/internal/pricing"
	"github.com/yerevan-pricing/backend/internal/regress"
	"github.com/yerevan-pricing/backend/internal/services"
	"github.com/yerevan-pricing/backend/internal/training"
)

var testConfig = &config.Config{Server: config.ServerConfig{Env: "test"}}

type testEnv struct {
	app          *fiber.App
	db           *gorm.DB
	pricing      *services.PricingService
	artifactPath string
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Connect(&config.Config{
		Server: config.ServerConfig{Env: "test"},
		DB:     config.DBConfig{Driver: config.DBDriverSQLite, URL: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func seed(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	price := func(v float64) decimal.NullDecimal {
		return decimal.NullDecimal{Decimal: decimal.NewFromFloat(v), Valid: true}
	}
	require.NoError(t, gdb.Create(&[]models.Category{
		{CategoryID: 1, CategoryName: "Coffee"},
		{CategoryID: 2, CategoryName: "Grill"},
	}).Error)
	require.NoError(t, gdb.Create(&[]models.Restaurant{
		{RestaurantID: 1, Name: "Cafe Central", Location: "Kentron", VenueType: "cafe", Rating: decimal.NewFromFloat(4.5)},
		{RestaurantID: 2, Name: "Smoke House", Location: "Arabkir", VenueType: "restaurant", Rating: decimal.NewFromFloat(3.9)},
	}).Error)
	require.NoError(t, gdb.Create(&[]models.Customer{
		{CustomerID: 1, Gender: "Female", AgeGroup: "25-34", AvgSpending: decimal.NewFromInt(8000), VisitFrequency: 4},
		{CustomerID: 2, Gender: "Male", AgeGroup: "35-44", AvgSpending: decimal.NewFromInt(3000), VisitFrequency: 1},
	}).Error)
	require.NoError(t, gdb.Create(&[]models.MenuItem{
		{ProductID: 1, RestaurantID: 1, ProductName: "Cappuccino", CategoryID: 1, BasePrice: price(1500), Cost: price(600), PortionSize: "250ml", Available: true},
		{ProductID: 2, RestaurantID: 2, ProductName: "Khorovats", CategoryID: 2, BasePrice: price(4500), Cost: price(2000), PortionSize: "400g", Available: true},
	}).Error)

	day := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)
	var sales []models.Sale
	for i, p := range []float64{1400, 1500, 1600} {
		sales = append(sales, models.Sale{
			SaleID: int64(i + 1), ProductID: 1, RestaurantID: 1, CustomerID: 1 + i%2,
			Date: day.AddDate(0, 0, i), UnitsSold: 1, PriceSold: decimal.NewFromFloat(p), Revenue: decimal.NewFromFloat(p),
		})
	}
	require.NoError(t, gdb.Create(&sales).Error)
}

func writeArtifact(t *testing.T, path string) *artifact.Artifact {
	t.Helper()
	f := features.NewFrame("price_sold", "product_name", "location", "type", "portion_size", "base_price", "cost", "category_id", "age_group")
	rows := []struct {
		name, portion, category string
		base, cost              float64
	}{
		{"Cappuccino", "250ml", "1", 1500, 600},
		{"Khorovats", "400g", "2", 4500, 2000},
	}
	for i := 0; i < 20; i++ {
		r := rows[i%2]
		require.NoError(t, f.AppendRow(fmt.Sprint(r.base*1.1+float64(i%3)), r.name, "Kentron", "cafe",
			r.portion, fmt.Sprint(r.base), fmt.Sprint(r.cost), r.category, "25-34"))
	}
	ds, err := features.NewBuilder(training.BuilderOptions(config.DefaultTrainingConfig())).Build(f)
	require.NoError(t, err)
	m := regress.NewLinear(1e-6)
	require.NoError(t, m.Fit(ds.OneHot(), ds.Target))
	a, err := artifact.New(artifact.KindLinear, "linear", config.ProfilePricing, m, ds.Spec, false)
	require.NoError(t, err)
	require.NoError(t, a.Save(path))
	return a
}

func newTestEnv(t *testing.T, withDB bool, policy string) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	env := &testEnv{artifactPath: filepath.Join(t.TempDir(), "price_model.gob")}
	var products services.ProductSource
	if withDB {
		env.db = openTestDB(t)
		seed(t, env.db)
		products = datasource.NewGormSource(env.db)
	}
	env.pricing = services.NewPricingService(products, rdb, config.ModelConfig{
		ArtifactPath:         env.artifactPath,
		UnknownProductPolicy: policy,
		CacheTTL:             time.Minute,
	})
	env.app = NewApp(testConfig)
	SetupRoutes(env.app, env.db, env.pricing)
	return env
}

func (e *testEnv) do(t *testing.T, method, target, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, data
}

func decode(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, true, pricing.PolicyDefaults)
	resp, data := env.do(t, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))

	body := decode(t, data)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "1.0.0", body["version"])
	assert.Equal(t, "connected", body["database"])
	assert.Equal(t, false, body["model_loaded"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t, false, pricing.PolicyDefaults)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "req-123", resp.Header.Get(middleware.RequestIDHeader))

	_, data := env.do(t, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, "not configured", decode(t, data)["database"])
}

func TestPredictPriceWithoutModel(t *testing.T) {
	env := newTestEnv(t, true, pricing.PolicyDefaults)
	resp, data := env.do(t, http.MethodGet, "/api/v1/predict-price?product_name=Cappuccino&location=Kentron&venue_type=cafe", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, decode(t, data)["error"], "Model not available")
}

func TestPredictPrice(t *testing.T) {
	env := newTestEnv(t, true, pricing.PolicyDefaults)
	a := writeArtifact(t, env.artifactPath)

	resp, data := env.do(t, http.MethodGet, "/api/v1/predict-price?product_name=cappuccino&location=kentron&venue_type=CAFE", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	body := decode(t, data)
	assert.Equal(t, "Cappuccino", body["product_name"])
	assert.Equal(t, "Kentron", body["location"])
	assert.Equal(t, "cafe", body["venue_type"])
	assert.Equal(t, "medium", body["portion_size"])
	assert.Equal(t, "25-34", body["age_group"])
	assert.Equal(t, a.ID, body["model_id"])
	assert.NotEmpty(t, body["confidence_note"])
	assert.Greater(t, body["predicted_price"].(float64), 0.0)

	_, data = env.do(t, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, true, decode(t, data)["model_loaded"])
}

func TestPredictPriceJSONOverrides(t *testing.T) {
	env := newTestEnv(t, true, pricing.PolicyDefaults)
	writeArtifact(t, env.artifactPath)

	resp, data := env.do(t, http.MethodPost, "/api/v1/predict-price",
		`{"product_name":"Cappuccino","location":"Kentron","venue_type":"cafe","numeric":{"base_price":1800}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, 1800.0, decode(t, data)["base_price"])

	resp, _ = env.do(t, http.MethodPost, "/api/v1/predict-price", `{"product_name":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPredictPriceValidation(t *testing.T) {
	env := newTestEnv(t, true, pricing.PolicyDefaults)
	writeArtifact(t, env.artifactPath)

	for _, q := range []string{
		"product_name=Cappuccino&venue_type=cafe",
		"product_name=Cappuccino&location=Kentron",
		"location=Kentron&venue_type=cafe",
		"product_name=Cappuccino&location=Kentron&venue_type=cafe&portion_size=jumbo",
	} {
		resp, _ := env.do(t, http.MethodGet, "/api/v1/predict-price?"+q, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestPredictPriceUnknownProduct(t *testing.T) {
	env := newTestEnv(t, true, pricing.PolicyReject)
	writeArtifact(t, env.artifactPath)

	resp, data := env.do(t, http.MethodGet, "/api/v1/predict-price?product_name=Capucino&location=Kentron&venue_type=cafe", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Cappuccino", decode(t, data)["suggestion"])

	lenient := newTestEnv(t, true, pricing.PolicyDefaults)
	writeArtifact(t, lenient.artifactPath)
	resp, data = lenient.do(t, http.MethodGet, "/api/v1/predict-price?product_name=Capucino&location=Kentron&venue_type=cafe", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, data)
	assert.Equal(t, true, body["defaulted"])
	assert.Equal(t, pricing.DefaultBasePrice, body["base_price"])
}

func TestReloadModel(t *testing.T) {
	env := newTestEnv(t, true, pricing.PolicyDefaults)

	resp, _ := env.do(t, http.MethodPost, "/api/v1/admin/reload", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	a := writeArtifact(t, env.artifactPath)
	resp, data := env.do(t, http.MethodPost, "/api/v1/admin/reload", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, data)
	assert.Equal(t, true, body["loaded"])
	assert.Equal(t, a.ID, body["model_id"])
	assert.EqualValues(t, 2, body["catalog_size"])

	_, data = env.do(t, http.MethodGet, "/api/v1/model", "")
	assert.Equal(t, a.ID, decode(t, data)["model_id"])
}

func TestRestaurantCRUD(t *testing.T) {
	env := newTestEnv(t, true, pricing.PolicyDefaults)

	resp, data := env.do(t, http.MethodPost, "/api/v1/restaurants",
		`{"name":"Ararat Hall","location":"Nor Nork","venue_type":"restaurant","rating":4.2}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	created := decode(t, data)
	assert.EqualValues(t, 3, created["restaurant_id"])
	assert.Equal(t, 4.2, created["rating"])

	resp, _ = env.do(t, http.MethodPost, "/api/v1/restaurants", `{"restaurant_id":1,"name":"Dup"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPost, "/api/v1/restaurants", `{"location":"Kentron"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data = env.do(t, http.MethodPut, "/api/v1/restaurants/3",
		`{"name":"Ararat Hall","location":"Nor Nork","venue_type":"fine_dining","rating":4.6}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, "fine_dining", decode(t, data)["venue_type"])

	resp, data = env.do(t, http.MethodGet, "/api/v1/restaurants?location=nor%20nork", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Ararat Hall", list[0]["name"])

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/restaurants/3", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, "/api/v1/restaurants/3", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = env.do(t, http.MethodDelete, "/api/v1/restaurants/3", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, "/api/v1/restaurants/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMenuItems(t *testing.T) {
	env := newTestEnv(t, true, pricing.PolicyDefaults)

	resp, data := env.do(t, http.MethodGet, "/api/v1/menu-items?category_id=2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var items []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Khorovats", items[0]["product_name"])
	assert.Equal(t, 4500.0, items[0]["base_price"])

	resp, _ = env.do(t, http.MethodGet, "/api/v1/menu-items?min_price=cheap", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data = env.do(t, http.MethodPost, "/api/v1/menu-items",
		`{"restaurant_id":1,"product_name":"Espresso","category_id":1,"base_price":900,"cost":300,"portion_size":"60ml","available":true}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	assert.EqualValues(t, 3, decode(t, data)["product_id"])

	_, data = env.do(t, http.MethodGet, "/api/v1/reference/menu-item-names", "")
	var names []string
	require.NoError(t, json.Unmarshal(data, &names))
	assert.Equal(t, []string{"Cappuccino", "Espresso", "Khorovats"}, names)

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/menu-items/3", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestCustomersAndCategories(t *testing.T) {
	env := newTestEnv(t, true, pricing.PolicyDefaults)

	resp, data := env.do(t, http.MethodGet, "/api/v1/customers?age_group=35-44", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var customers []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &customers))
	require.Len(t, customers, 1)
	assert.EqualValues(t, 2, customers[0]["customer_id"])

	resp, _ = env.do(t, http.MethodGet, "/api/v1/customers/9", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, data = env.do(t, http.MethodGet, "/api/v1/categories", "")
	var cats []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &cats))
	assert.Len(t, cats, 2)
}

func TestAnalytics(t *testing.T) {
	env := newTestEnv(t, true, pricing.PolicyDefaults)

	resp, data := env.do(t, http.MethodGet, "/api/v1/analytics/historical?menu_item=Cappuccino&location=Kentron", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode(t, data)
	assert.Equal(t, services.SnapshotFromSales, snap["source"])
	assert.Equal(t, 1400.0, snap["min_price"])
	assert.Equal(t, 1600.0, snap["max_price"])

	resp, data = env.do(t, http.MethodGet, "/api/v1/analytics/forecast", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fc := decode(t, data)
	assert.EqualValues(t, services.DefaultForecastHorizon, fc["horizon_days"])
	assert.Equal(t, "Cappuccino", fc["menu_item"])

	resp, _ = env.do(t, http.MethodGet, "/api/v1/analytics/forecast?horizon_days=0", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReferenceEnumerations(t *testing.T) {
	env := newTestEnv(t, true, pricing.PolicyDefaults)

	cases := map[string]int{
		"/api/v1/reference/locations":     5,
		"/api/v1/reference/venue-types":   18,
		"/api/v1/reference/age-groups":    6,
		"/api/v1/reference/portion-sizes": 3,
	}
	for path, n := range cases {
		resp, data := env.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		var values []string
		require.NoError(t, json.Unmarshal(data, &values))
		assert.Len(t, values, n, path)
	}
}

func TestRoutesWithoutDatabase(t *testing.T) {
	env := newTestEnv(t, false, pricing.PolicyDefaults)

	resp, _ := env.do(t, http.MethodGet, "/api/v1/restaurants", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/reference/menu-item-names", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	writeArtifact(t, env.artifactPath)
	_, err := env.pricing.EnsureLoaded(context.Background())
	require.NoError(t, err)
	resp, data := env.do(t, http.MethodGet, "/api/v1/reference/menu-item-names", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", strings.TrimSpace(string(data)))
}
