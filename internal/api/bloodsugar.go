package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// BloodSugarRecord is one measurement row as the backend stores it.
// MealType holds the server label (기상직후, 아침, 점심, 저녁).
type BloodSugarRecord struct {
	ID         int64   `json:"id"`
	BloodSugar float64 `json:"blood_sugar"`
	MealType   string  `json:"meal_type"`
	Date       string  `json:"date"`
	Time       string  `json:"time"`
}

// BloodSugarInput is the create/update body. ID is only sent on update.
type BloodSugarInput struct {
	ID         *int64  `json:"id,omitempty"`
	BloodSugar float64 `json:"blood_sugar"`
	MealType   string  `json:"meal_type"`
	Date       string  `json:"date"`
	Time       string  `json:"time"`
}

// DailyBloodSugar lists the records for date (YYYY-MM-DD).
func (c *Client) DailyBloodSugar(ctx context.Context, date string) ([]BloodSugarRecord, error) {
	body, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/blood-sugar/daily/" + url.PathEscape(date),
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	return decodeRecordList(body)
}

// GetBloodSugar fetches one record by id.
func (c *Client) GetBloodSugar(ctx context.Context, id int64) (BloodSugarRecord, error) {
	body, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/blood-sugar/" + strconv.FormatInt(id, 10),
		auth:   true,
	})
	if err != nil {
		return BloodSugarRecord{}, err
	}
	var rec BloodSugarRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return BloodSugarRecord{}, fmt.Errorf("decode blood sugar record: %w", err)
	}
	return rec, nil
}

// CreateBloodSugar posts a new record and returns it with its server id.
func (c *Client) CreateBloodSugar(ctx context.Context, in BloodSugarInput) (BloodSugarRecord, error) {
	in.ID = nil
	payload, err := jsonBody(in)
	if err != nil {
		return BloodSugarRecord{}, fmt.Errorf("marshal blood sugar record: %w", err)
	}
	body, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/blood-sugar/",
		body:        payload,
		contentType: "application/json",
		auth:        true,
	})
	if err != nil {
		return BloodSugarRecord{}, err
	}
	var rec BloodSugarRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return BloodSugarRecord{}, fmt.Errorf("decode created blood sugar record: %w", err)
	}
	if rec.ID == 0 {
		return BloodSugarRecord{}, fmt.Errorf("create blood sugar response has no id")
	}
	return rec, nil
}

// UpdateBloodSugar replaces record id.
func (c *Client) UpdateBloodSugar(ctx context.Context, id int64, in BloodSugarInput) (BloodSugarRecord, error) {
	in.ID = &id
	payload, err := jsonBody(in)
	if err != nil {
		return BloodSugarRecord{}, fmt.Errorf("marshal blood sugar record: %w", err)
	}
	body, err := c.do(ctx, request{
		method:      http.MethodPut,
		path:        "/blood-sugar/" + strconv.FormatInt(id, 10),
		body:        payload,
		contentType: "application/json",
		auth:        true,
	})
	if err != nil {
		return BloodSugarRecord{}, err
	}
	rec := BloodSugarRecord{ID: id, BloodSugar: in.BloodSugar, MealType: in.MealType, Date: in.Date, Time: in.Time}
	if len(body) > 0 {
		var parsed BloodSugarRecord
		if err := json.Unmarshal(body, &parsed); err == nil && parsed.ID != 0 {
			rec = parsed
		}
	}
	return rec, nil
}

// decodeRecordList accepts a bare array or an object wrapping it under
// "records" or "data".
func decodeRecordList(body []byte) ([]BloodSugarRecord, error) {
	var rows []BloodSugarRecord
	if err := json.Unmarshal(body, &rows); err == nil {
		return rows, nil
	}
	var wrapped struct {
		Records []BloodSugarRecord `json:"records"`
		Data    []BloodSugarRecord `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode blood sugar records: %w", err)
	}
	if wrapped.Records != nil {
		return wrapped.Records, nil
	}
	return wrapped.Data, nil
}
