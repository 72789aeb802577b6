package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
)

// PredictionShape names the layout of a food prediction response.
type PredictionShape string

const (
	PredictionTop5   PredictionShape = "top_5_predictions"
	PredictionSingle PredictionShape = "predicted_food"
)

type Candidate struct {
	FoodName   string  `json:"food_name"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Prediction is the image classifier's answer. Candidates are ordered best
// first.
type Prediction struct {
	Shape      PredictionShape
	Candidates []Candidate
}

// Foods returns the candidate names.
func (p Prediction) Foods() []string {
	out := make([]string, 0, len(p.Candidates))
	for _, c := range p.Candidates {
		out = append(out, c.FoodName)
	}
	return out
}

// PredictFood uploads an image for classification. The backend declares this
// route as GET with a multipart body, so that is what is sent.
func (c *Client) PredictFood(ctx context.Context, filename string, image io.Reader) (Prediction, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filepath.Base(filename)))
	h.Set("Content-Type", imageMIME(filename))
	part, err := w.CreatePart(h)
	if err != nil {
		return Prediction{}, fmt.Errorf("create image part: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return Prediction{}, fmt.Errorf("copy image: %w", err)
	}
	if err := w.Close(); err != nil {
		return Prediction{}, fmt.Errorf("close multipart body: %w", err)
	}

	body, err := c.do(ctx, request{
		method:      http.MethodGet,
		path:        "/ml/food",
		body:        &buf,
		contentType: w.FormDataContentType(),
		auth:        true,
	})
	if err != nil {
		return Prediction{}, err
	}
	return DecodePrediction(body)
}

// DecodePrediction accepts {"top_5_predictions":[{"food_name":...}]} or
// {"predicted_food":"..."}.
func DecodePrediction(body []byte) (Prediction, error) {
	var parsed struct {
		Top5          []Candidate `json:"top_5_predictions"`
		PredictedFood string      `json:"predicted_food"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Prediction{}, fmt.Errorf("decode food prediction: %w", err)
	}
	if len(parsed.Top5) > 0 {
		out := Prediction{Shape: PredictionTop5}
		for _, c := range parsed.Top5 {
			c.FoodName = strings.TrimSpace(c.FoodName)
			if c.FoodName != "" {
				out.Candidates = append(out.Candidates, c)
			}
		}
		if len(out.Candidates) > 0 {
			return out, nil
		}
	}
	if name := strings.TrimSpace(parsed.PredictedFood); name != "" {
		return Prediction{Shape: PredictionSingle, Candidates: []Candidate{{FoodName: name}}}, nil
	}
	return Prediction{}, fmt.Errorf("food prediction response has no predictions")
}

func imageMIME(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
