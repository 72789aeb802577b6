package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dang-doctor/doctor-fe/internal/apperr"
)

const (
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// NutritionStats is the aggregate stats document. Its layout is owned by the
// backend, so it is kept as raw JSON.
type NutritionStats struct {
	Period string
	Data   json.RawMessage
}

func (c *Client) NutritionStats(ctx context.Context, period string) (NutritionStats, error) {
	if period != PeriodWeekly && period != PeriodMonthly {
		return NutritionStats{}, apperr.Validationf("period", "must be %s or %s, got %q", PeriodWeekly, PeriodMonthly, period)
	}
	body, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/stats/nutrition?period=" + url.QueryEscape(period),
		auth:   true,
	})
	if err != nil {
		return NutritionStats{}, err
	}
	if !json.Valid(body) {
		return NutritionStats{}, fmt.Errorf("decode nutrition stats: invalid JSON")
	}
	return NutritionStats{Period: period, Data: json.RawMessage(body)}, nil
}
