package models

import "encoding/json"

// Icon names the verdict glyph chosen by the analysis service.
type Icon string

const (
	IconThumbUp      Icon = "thumb_up"
	IconThumbDown    Icon = "thumb_down"
	IconThumbsUpDown Icon = "thumbs_up_down"
)

// Known reports whether the icon is one of the three the client can draw.
func (i Icon) Known() bool {
	switch i {
	case IconThumbUp, IconThumbDown, IconThumbsUpDown:
		return true
	}
	return false
}

// AnalysisResult is the response contract of POST /api/scan. It is owned by
// the analysis service; the client only mirrors it.
type AnalysisResult struct {
	Success       bool            `json:"success"`
	Error         string          `json:"error,omitempty"`
	ProductName   string          `json:"product_name,omitempty"`
	NutritionData *NutritionData  `json:"nutrition_data,omitempty"`
	Analysis      json.RawMessage `json:"analysis,omitempty"`
	VisualVerdict *VisualVerdict  `json:"visual_verdict,omitempty"`

	// Raw holds the exact upstream body so relays can echo it unchanged.
	Raw json.RawMessage `json:"-"`
}

// VisualVerdict is the display-ready part of an analysis.
type VisualVerdict struct {
	Title           string   `json:"title"`
	Color           string   `json:"color"`
	Icon            Icon     `json:"icon"`
	HealthScore     Quantity `json:"health_score"`
	PositiveAspects []string `json:"positive_aspects"`
	Concerns        []string `json:"concerns"`
	Alternatives    []string `json:"alternatives,omitempty"`
	Tips            []string `json:"tips,omitempty"`
	FitForUser      string   `json:"fit_for_user"`
	Explanation     string   `json:"explanation"`
}

// NutritionData carries the facts read from the label. Absent values mean
// "do not display", not zero.
type NutritionData struct {
	Calories      Quantity `json:"calories"`
	Fat           Quantity `json:"fat"`
	Carbohydrates Quantity `json:"carbohydrates"`
	Protein       Quantity `json:"protein"`
	Ingredients   []string `json:"ingredients,omitempty"`
	RawText       string   `json:"raw_text,omitempty"`
}

// FailedResult builds the uniform failure shape used whenever a scan could
// not produce a verdict.
func FailedResult(message string) AnalysisResult {
	return AnalysisResult{Success: false, Error: message}
}
