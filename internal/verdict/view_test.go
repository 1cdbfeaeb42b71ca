package verdict

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/example/nutriscan/internal/models"
)

func decode(t *testing.T, body string) *models.AnalysisResult {
	t.Helper()
	var r models.AnalysisResult
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return &r
}

func TestPresentFailedShowsOnlyError(t *testing.T) {
	cases := []struct {
		name   string
		result *models.AnalysisResult
		want   string
	}{
		{"nil", nil, FallbackError},
		{"failed with message", &models.AnalysisResult{Error: "Could not read label", VisualVerdict: &models.VisualVerdict{Title: "ignored"}}, "Could not read label"},
		{"failed without message", &models.AnalysisResult{}, FallbackError},
		{"success without verdict", &models.AnalysisResult{Success: true}, FallbackError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Present(tc.result)
			if !v.Failed || v.ErrorMessage != tc.want {
				t.Fatalf("unexpected view %+v", v)
			}
			if v.Title != "" || v.Facts != nil || v.HasIcon() || v.FitLabel != "" {
				t.Fatalf("failed view must carry only the error, got %+v", v)
			}
		})
	}
}

func TestPresentHidesZeroNullAndAbsentFacts(t *testing.T) {
	r := decode(t, `{
		"success": true,
		"nutrition_data": {"calories": 0, "fat": null, "protein": 12.5},
		"visual_verdict": {"title": "Decent", "icon": "thumbs_up_down", "health_score": 6, "fit_for_user": "Yes"}
	}`)

	v := Present(r)
	if len(v.Facts) != 1 {
		t.Fatalf("expected only protein, got %+v", v.Facts)
	}
	if v.Facts[0].Label != "Protein" || v.Facts[0].Value != "12.5g" {
		t.Fatalf("unexpected fact %+v", v.Facts[0])
	}
	if v.HealthScore != "Health Score: 6/10" {
		t.Fatalf("unexpected score %q", v.HealthScore)
	}
	if v.Icon != models.IconThumbsUpDown {
		t.Fatalf("unexpected icon %q", v.Icon)
	}
}

func TestFactsUnits(t *testing.T) {
	facts := Facts(&models.NutritionData{
		Calories:      models.Q(240),
		Fat:           models.Q(9),
		Carbohydrates: models.Q(31),
		Protein:       models.Q(4),
	})
	want := []string{"240", "9g", "31g", "4g"}
	if len(facts) != len(want) {
		t.Fatalf("expected %d facts, got %d", len(want), len(facts))
	}
	for i, f := range facts {
		if f.Value != want[i] {
			t.Fatalf("fact %d: expected %q, got %q", i, want[i], f.Value)
		}
	}
	if Facts(nil) != nil {
		t.Fatal("expected no facts for missing nutrition data")
	}
}

func TestFitCategory(t *testing.T) {
	cases := map[string]FitCategory{
		"Yes":    FitAffirmative,
		"No":     FitNegative,
		"Maybe":  FitNeutral,
		"Unsure": FitNeutral,
		"yes":    FitNeutral,
		"":       FitNeutral,
	}
	for in, want := range cases {
		if got := Fit(in); got != want {
			t.Fatalf("Fit(%q) = %s, want %s", in, got, want)
		}
	}
	if FitLabel("") != "Fit for you: Unknown" {
		t.Fatalf("unexpected label %q", FitLabel(""))
	}
	if FitLabel("Maybe") != "Fit for you: Maybe" {
		t.Fatalf("unexpected label %q", FitLabel("Maybe"))
	}
}

func TestPresentToleratesMissingFields(t *testing.T) {
	v := Present(decode(t, `{"success": true, "visual_verdict": {"icon": "sparkles"}}`))
	if v.Failed {
		t.Fatal("expected a verdict view")
	}
	if v.HasIcon() {
		t.Fatalf("unknown icon must render nothing, got %q", v.Icon)
	}
	if v.HealthScore != "" || v.Facts != nil || v.Alternatives != nil || v.Tips != nil {
		t.Fatalf("unexpected content %+v", v)
	}
	if v.Fit != FitNeutral {
		t.Fatalf("expected neutral fit, got %s", v.Fit)
	}
}

func TestPresentOptionalListsOnlyWhenNonEmpty(t *testing.T) {
	v := Present(decode(t, `{"success": true, "visual_verdict": {"alternatives": [], "tips": ["Drink water"]}}`))
	if v.Alternatives != nil {
		t.Fatalf("expected no alternatives, got %v", v.Alternatives)
	}
	if len(v.Tips) != 1 {
		t.Fatalf("expected tips, got %v", v.Tips)
	}
}

func TestWriteText(t *testing.T) {
	r := decode(t, `{
		"success": true,
		"nutrition_data": {"calories": "240", "fat": 9},
		"visual_verdict": {
			"title": "Moderate Choice", "icon": "thumb_up", "health_score": 7,
			"positive_aspects": ["High fibre"], "concerns": ["Added sugar"],
			"fit_for_user": "No", "explanation": "Fine occasionally."
		}
	}`)

	buf := &bytes.Buffer{}
	if err := WriteText(buf, Present(r)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"[+] Moderate Choice", "Health Score: 7/10", "240\n", "9g", "High fibre", "Added sugar", "[NO] Fit for you: No"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Tips") || strings.Contains(out, "Alternatives") {
		t.Fatalf("empty optional lists must not render:\n%s", out)
	}

	buf.Reset()
	if err := WriteText(buf, Present(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "Error: No analysis available\n" {
		t.Fatalf("unexpected failure output %q", buf.String())
	}
}
