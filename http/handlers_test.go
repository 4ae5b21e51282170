package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/yourorg/flipdash/harvest"
	"github.com/yourorg/flipdash/internal/dashboard"
	"github.com/yourorg/flipdash/internal/dataset"
	"github.com/yourorg/flipdash/internal/mapview"
)

const providerPayload = `{"properties": [
	{"property_id": "p1", "street": "100 Lake Ave", "city": "Orlando", "state": "FL", "zip_code": "32801",
	 "list_price": 450000, "sqft": 2600, "beds": 4, "full_baths": 3, "days_on_mls": 12,
	 "status": "FOR_SALE", "latitude": 28.51, "longitude": -81.41,
	 "primary_photo": "https://p.example/a-w480_h360.jpg"},
	{"property_id": "p2", "street": "200 Pine St", "city": "Orlando", "state": "FL", "zip_code": "32801",
	 "list_price": "300,000", "sqft": 2000, "beds": 3, "baths": 2, "days_on_market": 70,
	 "status": "FOR_SALE", "lat": 28.52, "lng": -81.42},
	{"property_id": "p3", "street": "300 Oak Dr", "city": "Orlando", "state": "FL", "zip_code": "32801",
	 "list_price": 300000, "sqft": 1200, "beds": 2, "baths": 1,
	 "status": "FOR_SALE", "latitude": 28.53, "longitude": -81.43}
]}`

func newTestDeps(t *testing.T) (Deps, *httptest.Server) {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(providerPayload))
	}))
	t.Cleanup(upstream.Close)

	client, err := harvest.NewClient("test-key")
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	client.WithBaseURL(upstream.URL)

	d := Deps{
		Client: client,
		Data:   dataset.New(),
	}
	d.Sessions = dashboard.NewManager(dashboard.Config{
		MapKey: "map-key",
		Loader: mapview.NewLoader(nil),
		Search: func(ctx context.Context, zip string, maxPrice float64, limit int) ([]harvest.Property, error) {
			raw, err := client.SearchForSale(ctx, zip, maxPrice, limit)
			if err != nil {
				return nil, err
			}
			props, err := harvest.NormalizePayload(raw)
			if err != nil {
				return nil, err
			}
			d.Data.Replace(zip, props)
			return props, nil
		},
		PanelFetches: PanelFetches(d),
	})
	return d, upstream
}

func newTestRouter(t *testing.T) (chi.Router, Deps) {
	t.Helper()
	d, _ := newTestDeps(t)
	r := chi.NewRouter()
	RegisterProperties(r, d)
	RegisterPredict(r, d)
	RegisterAnalysis(r, d)
	RegisterSessions(r, d)
	return r, d
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var out map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &out)
	return rr, out
}

func TestGetPropertiesEmptyShape(t *testing.T) {
	r, _ := newTestRouter(t)
	rr, out := doJSON(t, r, http.MethodGet, "/api/properties", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if out["count"].(float64) != 0 {
		t.Fatalf("count = %v, want 0", out["count"])
	}
	if out["properties"] == nil {
		t.Fatal("properties key missing from empty response")
	}
}

func TestScrapeNormalizesAndLoads(t *testing.T) {
	r, d := newTestRouter(t)
	rr, out := doJSON(t, r, http.MethodPost, "/api/scrape", map[string]any{
		"zip_code": "32801", "max_price": "1,000,000",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	if out["properties_count"].(float64) != 3 {
		t.Fatalf("properties_count = %v, want 3", out["properties_count"])
	}
	// Aliased fields resolved during normalization.
	p, ok := d.Data.Find("p2")
	if !ok {
		t.Fatal("p2 not loaded")
	}
	if p.Baths != 2 || p.DaysOnMarket != 70 || p.Latitude != 28.52 {
		t.Fatalf("aliases not resolved: %+v", p)
	}
	if p.ListPrice != 300000 {
		t.Fatalf("formatted price not parsed: %v", p.ListPrice)
	}
}

func TestScrapeValidation(t *testing.T) {
	r, _ := newTestRouter(t)
	cases := []map[string]any{
		{"zip_code": "3280", "max_price": "500000"},
		{"zip_code": "32801", "max_price": "0"},
		{"zip_code": "32801", "max_price": "abc"},
		{"zip_code": "32801"},
	}
	for _, body := range cases {
		rr, out := doJSON(t, r, http.MethodPost, "/api/scrape", body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body %v: status = %d", body, rr.Code)
		}
		if out["error"] == "" {
			t.Fatalf("body %v: error envelope missing", body)
		}
	}
}

func TestErrorStatusCodes(t *testing.T) {
	r, _ := newTestRouter(t)
	cases := []struct {
		method, path string
		body         any
		wantCode     int
		wantErr      string
	}{
		{http.MethodPost, "/api/predict", nil, http.StatusBadRequest, "invalid_json"},
		{http.MethodGet, "/api/market-analysis/nope", nil, http.StatusNotFound, "not_found"},
		{http.MethodGet, "/api/market-trends/99999", nil, http.StatusNotFound, "not_found"},
		{http.MethodGet, "/api/session/missing/view", nil, http.StatusNotFound, "session_not_found"},
	}
	for _, tc := range cases {
		rr, out := doJSON(t, r, tc.method, tc.path, tc.body)
		if rr.Code != tc.wantCode {
			t.Fatalf("%s %s: status = %d, want %d", tc.method, tc.path, rr.Code, tc.wantCode)
		}
		if out["error"] != tc.wantErr {
			t.Fatalf("%s %s: error = %v, want %s", tc.method, tc.path, out["error"], tc.wantErr)
		}
	}
}

func TestPredictGoodFlip(t *testing.T) {
	r, _ := newTestRouter(t)
	rr, out := doJSON(t, r, http.MethodPost, "/api/predict", map[string]any{
		"list_price": 300000, "sqft": 2000, "beds": 3, "baths": 2, "days_on_market": 70,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if out["is_good_flip"] != true {
		t.Fatalf("is_good_flip = %v", out["is_good_flip"])
	}
	if out["confidence_score"].(float64) != 100 {
		t.Fatalf("confidence_score = %v, want 100", out["confidence_score"])
	}
}

func TestPredictZeroBaths(t *testing.T) {
	r, _ := newTestRouter(t)
	rr, out := doJSON(t, r, http.MethodPost, "/api/predict", map[string]any{
		"list_price": 300000, "sqft": 2000, "beds": 3, "baths": 0,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if out["is_good_flip"] != false {
		t.Fatalf("is_good_flip = %v, want false", out["is_good_flip"])
	}
	reasons := out["reasons"].([]any)
	if len(reasons) != 1 || reasons[0] != "Invalid property data" {
		t.Fatalf("reasons = %v", reasons)
	}
}

func TestMarketAnalysisUnknownProperty(t *testing.T) {
	r, _ := newTestRouter(t)
	rr, out := doJSON(t, r, http.MethodGet, "/api/market-analysis/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	if out["error"] != "not_found" {
		t.Fatalf("error = %v", out["error"])
	}
}

func TestMarketAnalysisAfterScrape(t *testing.T) {
	r, _ := newTestRouter(t)
	if rr, _ := doJSON(t, r, http.MethodPost, "/api/scrape", map[string]any{"zip_code": "32801", "max_price": "1,000,000"}); rr.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rr.Code)
	}
	rr, out := doJSON(t, r, http.MethodGet, "/api/market-analysis/p1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	for _, key := range []string{"property", "market_metrics", "comparable_properties", "analysis"} {
		if _, ok := out[key]; !ok {
			t.Fatalf("response missing %q", key)
		}
	}
}

func TestPricePredictionAndTrends(t *testing.T) {
	r, _ := newTestRouter(t)
	if rr, _ := doJSON(t, r, http.MethodPost, "/api/scrape", map[string]any{"zip_code": "32801", "max_price": "1,000,000"}); rr.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rr.Code)
	}
	rr, out := doJSON(t, r, http.MethodGet, "/api/price-prediction/p1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if _, ok := out["prediction"]; !ok {
		t.Fatal("prediction missing")
	}
	rr, _ = doJSON(t, r, http.MethodGet, "/api/market-trends/32801", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("trends status = %d", rr.Code)
	}
	rr, _ = doJSON(t, r, http.MethodGet, "/api/market-trends/99999", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown zip status = %d", rr.Code)
	}
}

func TestSessionFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	rr, out := doJSON(t, r, http.MethodPost, "/api/session", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rr.Code)
	}
	sid := out["session_id"].(string)
	base := "/api/session/" + sid

	rr, out = doJSON(t, r, http.MethodPost, base+"/search", map[string]any{"zip_code": "32801", "max_price": "1,000,000"})
	if rr.Code != http.StatusOK {
		t.Fatalf("search status = %d body=%s", rr.Code, rr.Body.String())
	}
	if out["loaded"].(float64) != 3 {
		t.Fatalf("loaded = %v, want 3", out["loaded"])
	}

	rr, out = doJSON(t, r, http.MethodGet, base+"/map/commands", nil)
	if rr.Code != http.StatusOK || out["count"].(float64) == 0 {
		t.Fatalf("no map commands recorded: %v", out)
	}

	rr, _ = doJSON(t, r, http.MethodPost, base+"/select", map[string]any{"property_id": "p2"})
	if rr.Code != http.StatusOK {
		t.Fatalf("select status = %d", rr.Code)
	}
	rr, _ = doJSON(t, r, http.MethodPost, base+"/select", map[string]any{"property_id": "ghost"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown select status = %d", rr.Code)
	}

	rr, out = doJSON(t, r, http.MethodGet, base+"/view", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("view status = %d", rr.Code)
	}
	if out["selected_id"] != "p2" {
		t.Fatalf("selected_id = %v, want p2", out["selected_id"])
	}

	rr, _ = doJSON(t, r, http.MethodPut, base+"/filters", map[string]any{"max_price": "300,000"})
	if rr.Code != http.StatusOK {
		t.Fatalf("filters status = %d", rr.Code)
	}
	rr, _ = doJSON(t, r, http.MethodPut, base+"/filters", map[string]any{"max_price": "oops"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad filters status = %d", rr.Code)
	}

	rr, _ = doJSON(t, r, http.MethodDelete, base, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rr.Code)
	}
	rr, _ = doJSON(t, r, http.MethodGet, base+"/view", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("closed session status = %d", rr.Code)
	}
}
