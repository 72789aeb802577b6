package nutrition

import (
	"context"

	"github.com/dang-doctor/doctor-fe/internal/api"
)

// NutritionClient is the part of the API client used for lookups.
type NutritionClient interface {
	Nutrition(ctx context.Context, food string) (api.NutritionFacts, error)
}

// Backend looks foods up through GET /ml/nutrition.
func Backend(client NutritionClient) Lookuper {
	return LookupFunc(func(ctx context.Context, name string) (Item, error) {
		facts, err := client.Nutrition(ctx, name)
		if err != nil {
			return Item{}, err
		}
		return Item{
			Name: name,
			Facts: Facts{
				EnergyKcal:    facts.EnergyKcal,
				CarbohydrateG: facts.CarbohydrateG,
				ProteinG:      facts.ProteinG,
				FatG:          facts.FatG,
				SugarsG:       facts.SugarsG,
				Amount:        facts.Amount,
			},
			Source: SourceBackend,
		}, nil
	})
}
