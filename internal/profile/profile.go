// Package profile turns the body profile kept in session preferences into a
// daily calorie target.
package profile

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dang-doctor/doctor-fe/internal/apperr"
)

type Gender string

const (
	GenderMale   Gender = "남"
	GenderFemale Gender = "여"
)

// ParseGender accepts the stored labels and common English spellings.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "남", "male", "m":
		return GenderMale, nil
	case "여", "female", "f":
		return GenderFemale, nil
	default:
		return "", apperr.Validationf("gender", "unknown gender %q (use 남/male or 여/female)", s)
	}
}

// standardWeightFactor is the BMI used for the standard body weight.
func (g Gender) standardWeightFactor() float64 {
	if g == GenderMale {
		return 22
	}
	return 21
}

type Activity string

const (
	ActivityLight    Activity = "가벼운 활동"
	ActivityModerate Activity = "보통 활동"
	ActivityHeavy    Activity = "힘든 활동"
)

func ParseActivity(s string) (Activity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ActivityLight), "light":
		return ActivityLight, nil
	case string(ActivityModerate), "moderate":
		return ActivityModerate, nil
	case string(ActivityHeavy), "heavy":
		return ActivityHeavy, nil
	default:
		return "", apperr.Validationf("activity", "unknown activity level %q (use light, moderate or heavy)", s)
	}
}

// Range returns the kcal-per-kg factor range for the activity level.
func (a Activity) Range() (lo, hi float64) {
	switch a {
	case ActivityLight:
		return 25, 30
	case ActivityModerate:
		return 30, 35
	case ActivityHeavy:
		return 35, 40
	default:
		return 0, 0
	}
}

// Macros is the carb/protein/fat split in percent.
type Macros struct {
	Carb    int `json:"carb"`
	Protein int `json:"protein"`
	Fat     int `json:"fat"`
}

// DefaultMacros is used when no split was saved.
var DefaultMacros = Macros{Carb: 55, Protein: 15, Fat: 20}

type Profile struct {
	Gender   Gender
	HeightCm float64
	WeightKg float64
	Activity Activity
	Macros   Macros
}

func (p Profile) Validate() error {
	if p.Gender != GenderMale && p.Gender != GenderFemale {
		return apperr.NewValidationError("gender", "is required")
	}
	if p.HeightCm <= 0 || math.IsNaN(p.HeightCm) {
		return apperr.NewValidationError("height", "must be a positive number of centimetres")
	}
	if p.WeightKg <= 0 || math.IsNaN(p.WeightKg) {
		return apperr.NewValidationError("weight", "must be a positive number of kilograms")
	}
	if lo, _ := p.Activity.Range(); lo == 0 {
		return apperr.NewValidationError("activity", "is required")
	}
	return nil
}

// Prefs is the preferences patch stored in the session.
func (p Profile) Prefs() map[string]any {
	return map[string]any{
		"gender":   string(p.Gender),
		"height":   p.HeightCm,
		"weight":   p.WeightKg,
		"activity": string(p.Activity),
		"macros": map[string]any{
			"carb":    p.Macros.Carb,
			"protein": p.Macros.Protein,
			"fat":     p.Macros.Fat,
		},
	}
}

// FromPrefs reads a profile back from session preferences. Missing macros
// fall back to DefaultMacros.
func FromPrefs(prefs map[string]any) (Profile, error) {
	var p Profile
	var err error
	if p.Gender, err = ParseGender(stringValue(prefs["gender"])); err != nil {
		return Profile{}, err
	}
	if p.Activity, err = ParseActivity(stringValue(prefs["activity"])); err != nil {
		return Profile{}, err
	}
	p.HeightCm, _ = floatValue(prefs["height"])
	p.WeightKg, _ = floatValue(prefs["weight"])
	p.Macros = DefaultMacros
	if m, ok := prefs["macros"].(map[string]any); ok {
		if v, ok := floatValue(m["carb"]); ok {
			p.Macros.Carb = int(v)
		}
		if v, ok := floatValue(m["protein"]); ok {
			p.Macros.Protein = int(v)
		}
		if v, ok := floatValue(m["fat"]); ok {
			p.Macros.Fat = int(v)
		}
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Target is a daily energy range derived from standard body weight.
type Target struct {
	StdWeightKg float64 `json:"std_weight"`
	MinKcal     int     `json:"min_kcal"`
	MaxKcal     int     `json:"max_kcal"`
	MidKcal     int     `json:"mid_kcal"`
}

// CalorieTarget computes standard weight as height(m)² × 22 for men or × 21
// for women, and multiplies it by the activity factor range.
func CalorieTarget(p Profile) (Target, error) {
	if err := p.Validate(); err != nil {
		return Target{}, err
	}
	h := p.HeightCm / 100
	std := h * h * p.Gender.standardWeightFactor()
	lo, hi := p.Activity.Range()
	minKcal := int(math.Round(std * lo))
	maxKcal := int(math.Round(std * hi))
	return Target{
		StdWeightKg: math.Round(std*10) / 10,
		MinKcal:     minKcal,
		MaxKcal:     maxKcal,
		MidKcal:     int(math.Round(float64(minKcal+maxKcal) / 2)),
	}, nil
}

// Grams splits kcal into grams using 4/4/9 kcal per gram.
func (m Macros) Grams(kcal int) (carbG, proteinG, fatG int) {
	k := float64(kcal)
	carbG = int(math.Round(k * float64(m.Carb) / 100 / 4))
	proteinG = int(math.Round(k * float64(m.Protein) / 100 / 4))
	fatG = int(math.Round(k * float64(m.Fat) / 100 / 9))
	return carbG, proteinG, fatG
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func floatValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
