package nutrition

import (
	"context"

	"github.com/dang-doctor/doctor-fe/internal/provider/openfoodfacts"
)

// OpenFoodFacts looks foods up in the Open Food Facts catalogue. Amount is the
// serving size the nutrients refer to.
func OpenFoodFacts(client *openfoodfacts.Client) Lookuper {
	return LookupFunc(func(ctx context.Context, name string) (Item, error) {
		p, err := client.BestMatch(ctx, name)
		if err != nil {
			return Item{}, err
		}
		return Item{
			Name: name,
			Facts: Facts{
				EnergyKcal:    p.EnergyKcal,
				CarbohydrateG: p.CarbohydrateG,
				ProteinG:      p.ProteinG,
				FatG:          p.FatG,
				SugarsG:       p.SugarsG,
				Amount:        p.ServingAmount,
			},
			Source: SourceOpenFoodFacts,
		}, nil
	})
}
