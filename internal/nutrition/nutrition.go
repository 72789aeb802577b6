// Package nutrition looks up nutrition facts for a list of foods and sums
// them. A food whose lookup fails counts as zero instead of failing the list.
package nutrition

import (
	"context"
	"strings"
)

// Source says where an item's numbers came from.
type Source string

const (
	SourceBackend       Source = "backend"
	SourceCache         Source = "cache"
	SourceOpenFoodFacts Source = "openfoodfacts"
	SourceNone          Source = "none"
)

// Facts are the nutrient amounts of one food, or a sum of several.
type Facts struct {
	EnergyKcal    float64 `json:"energy_kcal"`
	CarbohydrateG float64 `json:"carbohydrate_g"`
	ProteinG      float64 `json:"protein_g"`
	FatG          float64 `json:"fat_g"`
	SugarsG       float64 `json:"sugars_g"`
	Amount        float64 `json:"amount"`
}

// Add returns the element-wise sum of f and o.
func (f Facts) Add(o Facts) Facts {
	return Facts{
		EnergyKcal:    f.EnergyKcal + o.EnergyKcal,
		CarbohydrateG: f.CarbohydrateG + o.CarbohydrateG,
		ProteinG:      f.ProteinG + o.ProteinG,
		FatG:          f.FatG + o.FatG,
		SugarsG:       f.SugarsG + o.SugarsG,
		Amount:        f.Amount + o.Amount,
	}
}

func (f Facts) nonNegative() Facts {
	clamp := func(v float64) float64 {
		if v < 0 || v != v {
			return 0
		}
		return v
	}
	return Facts{
		EnergyKcal:    clamp(f.EnergyKcal),
		CarbohydrateG: clamp(f.CarbohydrateG),
		ProteinG:      clamp(f.ProteinG),
		FatG:          clamp(f.FatG),
		SugarsG:       clamp(f.SugarsG),
		Amount:        clamp(f.Amount),
	}
}

// Item is one looked-up food. Err is set when the lookup failed and the facts
// are zero; Error carries its message for JSON output.
type Item struct {
	Name string `json:"name"`
	Facts
	Source Source `json:"source"`
	Err    error  `json:"-"`
	Error  string `json:"error,omitempty"`
}

// Aggregate is the result of FetchAggregate. Items are in input order.
type Aggregate struct {
	Items  []Item `json:"items"`
	Totals Facts  `json:"totals"`
}

// Failed counts items whose lookup degraded to zero.
func (a Aggregate) Failed() int {
	n := 0
	for _, it := range a.Items {
		if it.Err != nil {
			n++
		}
	}
	return n
}

// Lookuper finds nutrition facts for one food name.
type Lookuper interface {
	Lookup(ctx context.Context, name string) (Item, error)
}

// LookupFunc adapts a function to Lookuper.
type LookupFunc func(ctx context.Context, name string) (Item, error)

func (f LookupFunc) Lookup(ctx context.Context, name string) (Item, error) { return f(ctx, name) }

// NormalizeName is the cache key for a food name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
