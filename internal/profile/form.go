package profile

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/example/nutriscan/internal/models"
)

// Validation errors for the profile form.
var (
	ErrInvalidCalories = errors.New("Daily calorie target must be a whole number")
	ErrInvalidChoice   = errors.New("invalid selection")
)

// Form field names.
const (
	FieldUserID              = "user_id"
	FieldName                = "name"
	FieldWeightGoal          = "weight_goal"
	FieldDietaryRestrictions = "dietary_restrictions"
	FieldAllergies           = "allergies"
	FieldHealthConditions    = "health_conditions"
	FieldDailyCalorieTarget  = "daily_calorie_target"
	FieldActivityLevel       = "activity_level"
)

// Form holds the profile exactly as the user entered it, so a failed save
// can re-render the same values.
type Form struct {
	UserID              string
	Name                string
	WeightGoal          string
	DietaryRestrictions []string
	Allergies           []string
	HealthConditions    []string
	DailyCalorieTarget  string
	ActivityLevel       string
}

// ParseForm reads a submitted profile form.
func ParseForm(values url.Values) Form {
	return Form{
		UserID:              strings.TrimSpace(values.Get(FieldUserID)),
		Name:                strings.TrimSpace(values.Get(FieldName)),
		WeightGoal:          values.Get(FieldWeightGoal),
		DietaryRestrictions: values[FieldDietaryRestrictions],
		Allergies:           values[FieldAllergies],
		HealthConditions:    values[FieldHealthConditions],
		DailyCalorieTarget:  strings.TrimSpace(values.Get(FieldDailyCalorieTarget)),
		ActivityLevel:       values.Get(FieldActivityLevel),
	}
}

// FormFromProfile pre-fills the form from a stored profile. A nil profile
// gives the empty default form.
func FormFromProfile(p *models.UserProfile) Form {
	if p == nil {
		return Form{}
	}
	f := Form{
		UserID:              p.UserID,
		Name:                p.Name,
		WeightGoal:          string(p.WeightGoal),
		DietaryRestrictions: p.DietaryRestrictions,
		Allergies:           p.Allergies,
		HealthConditions:    p.HealthConditions,
		ActivityLevel:       string(p.ActivityLevel),
	}
	if p.DailyCalorieTarget != nil {
		f.DailyCalorieTarget = strconv.Itoa(*p.DailyCalorieTarget)
	}
	return f
}

// Profile converts the form into a profile ready to send. A blank calorie
// target becomes nil; anything that is not a non-negative integer is
// rejected before it reaches the network.
func (f Form) Profile() (models.UserProfile, error) {
	p := models.UserProfile{
		UserID: f.UserID,
		Name:   f.Name,
	}

	if f.WeightGoal != "" {
		if !models.Contains(models.WeightGoals, f.WeightGoal) {
			return models.UserProfile{}, fmt.Errorf("%w: weight goal %q", ErrInvalidChoice, f.WeightGoal)
		}
		p.WeightGoal = models.WeightGoal(f.WeightGoal)
	}
	if f.ActivityLevel != "" {
		if !models.Contains(models.ActivityLevels, f.ActivityLevel) {
			return models.UserProfile{}, fmt.Errorf("%w: activity level %q", ErrInvalidChoice, f.ActivityLevel)
		}
		p.ActivityLevel = models.ActivityLevel(f.ActivityLevel)
	}

	var err error
	if p.DietaryRestrictions, err = selectSet("dietary restriction", models.DietaryRestrictions, f.DietaryRestrictions); err != nil {
		return models.UserProfile{}, err
	}
	if p.Allergies, err = selectSet("allergy", models.Allergies, f.Allergies); err != nil {
		return models.UserProfile{}, err
	}
	if p.HealthConditions, err = selectSet("health condition", models.HealthConditions, f.HealthConditions); err != nil {
		return models.UserProfile{}, err
	}

	if f.DailyCalorieTarget != "" {
		n, err := strconv.Atoi(f.DailyCalorieTarget)
		if err != nil || n < 0 {
			return models.UserProfile{}, ErrInvalidCalories
		}
		p.DailyCalorieTarget = &n
	}

	return p.Normalized(), nil
}

// Includes reports whether value is selected in values. Templates use it to
// tick checkboxes.
func (f Form) Includes(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// selectSet de-duplicates values, keeps first-seen order and rejects
// anything outside the vocabulary.
func selectSet(kind string, vocabulary []models.Option, values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		if !models.Contains(vocabulary, v) {
			return nil, fmt.Errorf("%w: %s %q", ErrInvalidChoice, kind, v)
		}
		seen[v] = true
		out = append(out, v)
	}
	return out, nil
}
