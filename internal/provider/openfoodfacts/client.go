// Package openfoodfacts searches the Open Food Facts catalogue by food name.
// It is the optional fallback for foods the backend cannot resolve.
package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://world.openfoodfacts.org"
	userAgent      = "dangdoc/1.0 (+https://github.com/dang-doctor/doctor-fe)"
)

// Product is one search hit with nutrients per serving when the product
// declares a serving, per 100 g otherwise.
type Product struct {
	Name          string
	Brand         string
	ServingAmount float64
	ServingUnit   string
	EnergyKcal    float64
	CarbohydrateG float64
	ProteinG      float64
	FatG          float64
	SugarsG       float64
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func (c *Client) base() string {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return defaultBaseURL
	}
	return base
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 12 * time.Second}
}

// SearchFoods returns up to limit named products matching query.
func (c *Client) SearchFoods(ctx context.Context, query string, limit int) ([]Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("openfoodfacts search query is empty")
	}
	if limit <= 0 {
		limit = 10
	}
	u := fmt.Sprintf("%s/cgi/search.pl?search_terms=%s&search_simple=1&action=process&json=1&page_size=%d",
		c.base(),
		url.QueryEscape(query),
		limit,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create openfoodfacts search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute openfoodfacts search request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read openfoodfacts search response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openfoodfacts search request failed with status %d", resp.StatusCode)
	}
	var parsed offSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode openfoodfacts search response: %w", err)
	}
	out := make([]Product, 0, len(parsed.Products))
	for _, p := range parsed.Products {
		name := strings.TrimSpace(p.ProductName)
		if name == "" {
			continue
		}
		amount, unit := parseServing(p)
		out = append(out, Product{
			Name:          name,
			Brand:         strings.TrimSpace(p.Brands),
			ServingAmount: amount,
			ServingUnit:   unit,
			EnergyKcal:    nutrientValue(p.Nutriments, "energy-kcal"),
			CarbohydrateG: nutrientValue(p.Nutriments, "carbohydrates"),
			ProteinG:      nutrientValue(p.Nutriments, "proteins"),
			FatG:          nutrientValue(p.Nutriments, "fat"),
			SugarsG:       nutrientValue(p.Nutriments, "sugars"),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no openfoodfacts product found for query %q", query)
	}
	return out, nil
}

// BestMatch returns the first hit that declares an energy value.
func (c *Client) BestMatch(ctx context.Context, query string) (Product, error) {
	products, err := c.SearchFoods(ctx, query, 5)
	if err != nil {
		return Product{}, err
	}
	for _, p := range products {
		if p.EnergyKcal > 0 {
			return p, nil
		}
	}
	return products[0], nil
}

func nutrientValue(n map[string]any, base string) float64 {
	for _, key := range []string{base + "_serving", base + "_100g"} {
		if v, ok := parseFloatAny(n[key]); ok && v >= 0 {
			return v
		}
	}
	return 0
}

func parseFloatAny(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func parseServing(p offProduct) (float64, string) {
	if p.ServingQuantity > 0 {
		unit := strings.TrimSpace(p.ServingQuantityUnit)
		if unit == "" {
			unit = "g"
		}
		return p.ServingQuantity, unit
	}
	if s := strings.TrimSpace(p.ServingSize); s != "" {
		parts := strings.Fields(s)
		if len(parts) >= 2 {
			if val, err := strconv.ParseFloat(strings.ReplaceAll(parts[0], ",", ""), 64); err == nil && val > 0 {
				return val, parts[1]
			}
		}
	}
	return 100, "g"
}

type offProduct struct {
	ProductName         string         `json:"product_name"`
	Brands              string         `json:"brands"`
	ServingSize         string         `json:"serving_size"`
	ServingQuantity     float64        `json:"serving_quantity"`
	ServingQuantityUnit string         `json:"serving_quantity_unit"`
	Nutriments          map[string]any `json:"nutriments"`
}

type offSearchResponse struct {
	Products []offProduct `json:"products"`
}
