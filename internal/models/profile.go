package models

// WeightGoal is the single-choice weight objective.
type WeightGoal string

const (
	WeightGoalLose     WeightGoal = "lose"
	WeightGoalMaintain WeightGoal = "maintain"
	WeightGoalGain     WeightGoal = "gain"
)

// ActivityLevel is the single-choice activity level.
type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very-active"
)

// Option is one selectable vocabulary entry.
type Option struct {
	Value string
	Label string
}

// Fixed vocabularies offered by the profile form. The order is the display order.
var (
	WeightGoals = []Option{
		{string(WeightGoalLose), "Lose Weight"},
		{string(WeightGoalMaintain), "Maintain Weight"},
		{string(WeightGoalGain), "Gain Weight"},
	}
	DietaryRestrictions = []Option{
		{"vegetarian", "Vegetarian"},
		{"vegan", "Vegan"},
		{"gluten-free", "Gluten-Free"},
		{"dairy-free", "Dairy-Free"},
		{"halal", "Halal"},
		{"kosher", "Kosher"},
	}
	Allergies = []Option{
		{"peanuts", "Peanuts"},
		{"tree-nuts", "Tree Nuts"},
		{"shellfish", "Shellfish"},
		{"eggs", "Eggs"},
		{"milk", "Milk"},
		{"soy", "Soy"},
		{"wheat", "Wheat"},
	}
	HealthConditions = []Option{
		{"diabetes", "Diabetes"},
		{"hypertension", "Hypertension"},
		{"high-cholesterol", "High Cholesterol"},
		{"heart-disease", "Heart Disease"},
		{"celiac", "Celiac Disease"},
	}
	ActivityLevels = []Option{
		{string(ActivitySedentary), "Sedentary"},
		{string(ActivityModerate), "Moderate"},
		{string(ActivityActive), "Active"},
		{string(ActivityVeryActive), "Very Active"},
	}
)

// Contains reports whether value is part of the vocabulary.
func Contains(options []Option, value string) bool {
	for _, o := range options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// UserProfile is the dietary profile stored by the remote service.
type UserProfile struct {
	UserID              string        `json:"user_id,omitempty"`
	Name                string        `json:"name"`
	WeightGoal          WeightGoal    `json:"weight_goal,omitempty"`
	DietaryRestrictions []string      `json:"dietary_restrictions"`
	Allergies           []string      `json:"allergies"`
	HealthConditions    []string      `json:"health_conditions"`
	DailyCalorieTarget  *int          `json:"daily_calorie_target"`
	ActivityLevel       ActivityLevel `json:"activity_level,omitempty"`
}

// Normalized returns a copy whose list fields are never nil, so they are
// transmitted as arrays.
func (p UserProfile) Normalized() UserProfile {
	if p.DietaryRestrictions == nil {
		p.DietaryRestrictions = []string{}
	}
	if p.Allergies == nil {
		p.Allergies = []string{}
	}
	if p.HealthConditions == nil {
		p.HealthConditions = []string{}
	}
	return p
}

// ProfileEnvelope is the response of both profile endpoints.
type ProfileEnvelope struct {
	Success bool         `json:"success"`
	Profile *UserProfile `json:"profile,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// HealthStatus is the implementation-defined health payload. Status and
// Version are the fields the service is known to send; everything is kept
// in Details.
type HealthStatus struct {
	Status  string         `json:"status"`
	Version string         `json:"version,omitempty"`
	Details map[string]any `json:"-"`
}
