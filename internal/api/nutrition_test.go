package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNutritionShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want NutritionFacts
	}{
		{
			name: "flat",
			body: `{"food_name":"사과","energy_kcal":52,"carbohydrate_g":14,"protein_g":0.3,"sugars_g":10,"fat_g":0.2,"amount":100}`,
			want: NutritionFacts{Shape: NutritionFlat, FoodName: "사과", EnergyKcal: 52, CarbohydrateG: 14, ProteinG: 0.3, SugarsG: 10, FatG: 0.2, Amount: 100},
		},
		{
			name: "nested under nutrition",
			body: `{"food_name":"밥","nutrition":{"energy_kcal":"300","carbohydrate_g":65}}`,
			want: NutritionFacts{Shape: NutritionNested, FoodName: "밥", EnergyKcal: 300, CarbohydrateG: 65},
		},
		{
			name: "nested under data",
			body: `{"data":{"food_name":"김","protein_g":1.2}}`,
			want: NutritionFacts{Shape: NutritionNested, FoodName: "김", ProteinG: 1.2},
		},
		{
			name: "short names",
			body: `{"name":"연어","calories":208,"carbs":0,"protein":20,"fat":13,"sugar":0,"amount":340}`,
			want: NutritionFacts{Shape: NutritionShort, FoodName: "연어", EnergyKcal: 208, ProteinG: 20, FatG: 13, Amount: 340},
		},
		{
			name: "bad values read as zero",
			body: `{"energy_kcal":-5,"fat_g":"n/a","protein_g":null}`,
			want: NutritionFacts{Shape: NutritionFlat},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeNutrition([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeNutritionUnknownShape(t *testing.T) {
	_, err := DecodeNutrition([]byte(`{"message":"not found"}`))
	assert.ErrorIs(t, err, ErrUnknownNutritionShape)
}

func TestNutritionFillsFoodName(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ml/nutrition", r.URL.Path)
		assert.Equal(t, "토마토", r.URL.Query().Get("food"))
		_, _ = w.Write([]byte(`{"energy_kcal":18}`))
	})
	facts, err := c.Nutrition(t.Context(), "토마토")
	require.NoError(t, err)
	assert.Equal(t, "토마토", facts.FoodName)
	assert.Equal(t, 18.0, facts.EnergyKcal)
}
