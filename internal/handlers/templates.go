package handlers

import (
	"embed"
	"html/template"

	"github.com/gin-gonic/gin"

	"github.com/example/nutriscan/internal/camera"
	"github.com/example/nutriscan/internal/healthcheck"
	"github.com/example/nutriscan/internal/models"
	"github.com/example/nutriscan/internal/profile"
	"github.com/example/nutriscan/internal/session"
	"github.com/example/nutriscan/internal/usecase"
	"github.com/example/nutriscan/internal/verdict"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var iconGlyphs = map[models.Icon]string{
	models.IconThumbUp:      "\U0001F44D",
	models.IconThumbDown:    "\U0001F44E",
	models.IconThumbsUpDown: "\U0001F914",
}

func loadTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"iconGlyph": func(i models.Icon) string { return iconGlyphs[i] },
		"number": func(v float64) string {
			return models.Q(v).String()
		},
	}).ParseFS(templateFS, "templates/*.tmpl")
}

type vocabulary struct {
	WeightGoals         []models.Option
	DietaryRestrictions []models.Option
	Allergies           []models.Option
	HealthConditions    []models.Option
	ActivityLevels      []models.Option
}

var profileVocabulary = vocabulary{
	WeightGoals:         models.WeightGoals,
	DietaryRestrictions: models.DietaryRestrictions,
	Allergies:           models.Allergies,
	HealthConditions:    models.HealthConditions,
	ActivityLevels:      models.ActivityLevels,
}

// page is the data handed to every template.
type page struct {
	Title string
	State session.State

	// scan view
	Mode          session.InputMode
	CameraEnabled bool
	Camera        camera.Status
	Preview       template.URL
	ProductName   string
	InputError    string
	Verdict       *verdict.View

	// profile view
	Form         profile.Form
	ProfileError string
	Vocabulary   vocabulary

	// history view
	History      *usecase.History
	HistoryError string

	Health *healthcheck.Snapshot
}

func (s *server) render(c *gin.Context, status int, name string, p page) {
	if s.Health != nil {
		snap := s.Health.Last()
		if !snap.CheckedAt.IsZero() {
			p.Health = &snap
		}
	}
	c.HTML(status, name, p)
}
