package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// NutritionShape names the response layout a nutrition payload matched.
type NutritionShape string

const (
	NutritionFlat   NutritionShape = "flat"
	NutritionNested NutritionShape = "nested"
	NutritionShort  NutritionShape = "short"
)

// NutritionFacts is the decoded /ml/nutrition answer. Missing or negative
// numbers are zero.
type NutritionFacts struct {
	Shape         NutritionShape
	FoodName      string
	EnergyKcal    float64
	CarbohydrateG float64
	ProteinG      float64
	FatG          float64
	SugarsG       float64
	Amount        float64
}

// ErrUnknownNutritionShape is returned when a payload carries none of the known
// nutrient fields.
var ErrUnknownNutritionShape = errors.New("nutrition payload matches no known shape")

// Nutrition looks up nutrition facts for a food name.
func (c *Client) Nutrition(ctx context.Context, food string) (NutritionFacts, error) {
	food = strings.TrimSpace(food)
	if food == "" {
		return NutritionFacts{}, fmt.Errorf("food name is required")
	}
	body, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/ml/nutrition?food=" + url.QueryEscape(food),
		auth:   true,
	})
	if err != nil {
		return NutritionFacts{}, err
	}
	facts, err := DecodeNutrition(body)
	if err != nil {
		return NutritionFacts{}, err
	}
	if facts.FoodName == "" {
		facts.FoodName = food
	}
	return facts, nil
}

var (
	flatKeys = nutrientKeys{
		name: "food_name", energy: "energy_kcal", carbs: "carbohydrate_g",
		protein: "protein_g", fat: "fat_g", sugars: "sugars_g", amount: "amount",
	}
	shortKeys = nutrientKeys{
		name: "name", energy: "calories", carbs: "carbs",
		protein: "protein", fat: "fat", sugars: "sugar", amount: "amount",
	}
)

type nutrientKeys struct {
	name, energy, carbs, protein, fat, sugars, amount string
}

func (k nutrientKeys) matches(fields map[string]json.RawMessage) bool {
	for _, key := range []string{k.energy, k.carbs, k.protein, k.fat, k.sugars} {
		if _, ok := fields[key]; ok {
			return true
		}
	}
	return false
}

func (k nutrientKeys) decode(shape NutritionShape, fields map[string]json.RawMessage) NutritionFacts {
	var name string
	if raw, ok := fields[k.name]; ok {
		_ = json.Unmarshal(raw, &name)
	}
	if name == "" {
		if raw, ok := fields["food_name"]; ok {
			_ = json.Unmarshal(raw, &name)
		}
	}
	return NutritionFacts{
		Shape:         shape,
		FoodName:      strings.TrimSpace(name),
		EnergyKcal:    number(fields, k.energy),
		CarbohydrateG: number(fields, k.carbs),
		ProteinG:      number(fields, k.protein),
		FatG:          number(fields, k.fat),
		SugarsG:       number(fields, k.sugars),
		Amount:        number(fields, k.amount),
	}
}

// DecodeNutrition decodes the known payload shapes: flat field names, the same
// fields nested under "nutrition" or "data", and short names (calories, carbs,
// protein, fat, sugar).
func DecodeNutrition(body []byte) (NutritionFacts, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return NutritionFacts{}, fmt.Errorf("decode nutrition payload: %w", err)
	}
	for _, key := range []string{"nutrition", "data"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(raw, &nested); err != nil || !flatKeys.matches(nested) {
			continue
		}
		facts := flatKeys.decode(NutritionNested, nested)
		if facts.FoodName == "" {
			facts.FoodName = flatKeys.decode(NutritionNested, fields).FoodName
		}
		return facts, nil
	}
	if flatKeys.matches(fields) {
		return flatKeys.decode(NutritionFlat, fields), nil
	}
	if shortKeys.matches(fields) {
		return shortKeys.decode(NutritionShort, fields), nil
	}
	return NutritionFacts{}, ErrUnknownNutritionShape
}

// number reads a JSON number or numeric string; anything else, and negative
// values, read as zero.
func number(fields map[string]json.RawMessage, key string) float64 {
	raw, ok := fields[key]
	if !ok {
		return 0
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
		v = f
	}
	if v < 0 {
		return 0
	}
	return v
}
