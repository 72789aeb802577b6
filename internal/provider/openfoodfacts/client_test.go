package openfoodfacts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchFoodsParsesProducts(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("search_terms"); got != "kimchi" {
			t.Errorf("unexpected search terms %q", got)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("missing user agent")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "products": [
    {"product_name": "", "nutriments": {"energy-kcal_100g": 10}},
    {
      "product_name": "Kimchi",
      "brands": "Jongga",
      "serving_size": "50 g",
      "nutriments": {
        "energy-kcal_serving": 15,
        "carbohydrates_serving": "2.5",
        "proteins_100g": 1.1,
        "fat_serving": 0.2,
        "sugars_serving": 1
      }
    }
  ]
}`))
	}))
	defer ts.Close()

	c := &Client{BaseURL: ts.URL, HTTPClient: ts.Client()}
	items, err := c.SearchFoods(context.Background(), " kimchi ", 5)
	if err != nil {
		t.Fatalf("search foods: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 named product, got %d", len(items))
	}
	got := items[0]
	if got.Name != "Kimchi" || got.EnergyKcal != 15 || got.CarbohydrateG != 2.5 || got.ProteinG != 1.1 {
		t.Fatalf("unexpected parsed product: %+v", got)
	}
	if got.ServingAmount != 50 || got.ServingUnit != "g" {
		t.Fatalf("unexpected serving: %v %s", got.ServingAmount, got.ServingUnit)
	}
}

func TestBestMatchPrefersProductWithEnergy(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"products": [
  {"product_name": "Rice cake", "nutriments": {}},
  {"product_name": "Rice", "serving_quantity": 210, "nutriments": {"energy-kcal_serving": 300}}
]}`))
	}))
	defer ts.Close()

	c := &Client{BaseURL: ts.URL, HTTPClient: ts.Client()}
	p, err := c.BestMatch(context.Background(), "rice")
	if err != nil {
		t.Fatalf("best match: %v", err)
	}
	if p.Name != "Rice" || p.EnergyKcal != 300 || p.ServingAmount != 210 {
		t.Fatalf("unexpected best match: %+v", p)
	}
}

func TestSearchFoodsNoResults(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"products": []}`))
	}))
	defer ts.Close()

	c := &Client{BaseURL: ts.URL, HTTPClient: ts.Client()}
	if _, err := c.SearchFoods(context.Background(), "nothing", 5); err == nil {
		t.Fatalf("expected error for empty result")
	}
}

func TestSearchFoodsStatusError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := &Client{BaseURL: ts.URL, HTTPClient: ts.Client()}
	if _, err := c.SearchFoods(context.Background(), "rice", 5); err == nil {
		t.Fatalf("expected status error")
	}
}
