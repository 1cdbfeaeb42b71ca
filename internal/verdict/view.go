package verdict

import (
	"strings"

	"github.com/example/nutriscan/internal/models"
)

// FallbackError is shown when a failed result carries no message.
const FallbackError = "No analysis available"

// FitCategory is the visual category of the "fit for you" indicator.
type FitCategory string

const (
	FitAffirmative FitCategory = "affirmative"
	FitNegative    FitCategory = "negative"
	FitNeutral     FitCategory = "neutral"
)

// Fact is one nutrition fact ready for display.
type Fact struct {
	Key   string
	Label string
	Value string
}

// View is everything a renderer needs, in display order.
type View struct {
	Failed       bool
	ErrorMessage string

	ProductName string
	Icon        models.Icon
	Title       string
	Color       string
	HealthScore string
	Explanation string
	Facts       []Fact
	Positives   []string
	Concerns    []string
	// Alternatives and Tips are nil when the service sent nothing.
	Alternatives []string
	Tips         []string
	Fit          FitCategory
	FitLabel     string
}

// HasIcon reports whether one of the known glyphs should be drawn.
func (v View) HasIcon() bool {
	return v.Icon != ""
}

// Present maps an analysis result to a view. It never panics on missing
// fields: a nil, failed or verdict-less result yields the error-only view.
func Present(result *models.AnalysisResult) View {
	if result == nil || !result.Success || result.VisualVerdict == nil {
		msg := FallbackError
		if result != nil && strings.TrimSpace(result.Error) != "" {
			msg = result.Error
		}
		return View{Failed: true, ErrorMessage: msg}
	}

	vv := result.VisualVerdict
	view := View{
		ProductName: result.ProductName,
		Title:       vv.Title,
		Color:       vv.Color,
		Explanation: vv.Explanation,
		Positives:   vv.PositiveAspects,
		Concerns:    vv.Concerns,
		Fit:         Fit(vv.FitForUser),
		FitLabel:    FitLabel(vv.FitForUser),
	}
	if vv.Icon.Known() {
		view.Icon = vv.Icon
	}
	if vv.HealthScore.Valid {
		view.HealthScore = "Health Score: " + vv.HealthScore.String() + "/10"
	}
	if len(vv.Alternatives) > 0 {
		view.Alternatives = vv.Alternatives
	}
	if len(vv.Tips) > 0 {
		view.Tips = vv.Tips
	}
	view.Facts = Facts(result.NutritionData)
	return view
}

// Facts returns the present, non-zero nutrition facts in fixed order.
func Facts(data *models.NutritionData) []Fact {
	if data == nil {
		return nil
	}
	candidates := []struct {
		key, label, unit string
		q                models.Quantity
	}{
		{"calories", "Calories", "", data.Calories},
		{"fat", "Fat", "g", data.Fat},
		{"carbohydrates", "Carbs", "g", data.Carbohydrates},
		{"protein", "Protein", "g", data.Protein},
	}

	var facts []Fact
	for _, c := range candidates {
		if !c.q.Present() {
			continue
		}
		facts = append(facts, Fact{Key: c.key, Label: c.label, Value: c.q.String() + c.unit})
	}
	return facts
}

// Fit classifies the fit_for_user string. Only the exact strings "Yes" and
// "No" are affirmative and negative.
func Fit(value string) FitCategory {
	switch value {
	case "Yes":
		return FitAffirmative
	case "No":
		return FitNegative
	}
	return FitNeutral
}

// FitLabel renders the indicator text; an absent value reads "Unknown".
func FitLabel(value string) string {
	if strings.TrimSpace(value) == "" {
		value = "Unknown"
	}
	return "Fit for you: " + value
}
