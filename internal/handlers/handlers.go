package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/nutriscan/internal/acquisition"
	"github.com/example/nutriscan/internal/auth"
	"github.com/example/nutriscan/internal/camera"
	"github.com/example/nutriscan/internal/healthcheck"
	"github.com/example/nutriscan/internal/models"
	"github.com/example/nutriscan/internal/session"
	"github.com/example/nutriscan/internal/usecase"
)

// DefaultMaxUploadSize caps a single image when no limit is configured.
const DefaultMaxUploadSize = 10 << 20

// multipartOverhead leaves room for form boundaries and small fields.
const multipartOverhead = 1 << 20

// Scanner runs scans and reads history.
type Scanner interface {
	Scan(ctx context.Context, sessionID string, img acquisition.Image, productName string) models.AnalysisResult
	GetHistory(ctx context.Context, sessionID string) (*usecase.History, error)
	HistoryEnabled() bool
}

// ProfileStore loads and saves the remote profile.
type ProfileStore interface {
	Load(ctx context.Context) (*models.UserProfile, bool)
	Save(ctx context.Context, p models.UserProfile) (*models.UserProfile, error)
}

// HealthReporter exposes the last upstream health check.
type HealthReporter interface {
	Last() healthcheck.Snapshot
}

// Dependencies bundles everything the routes need.
type Dependencies struct {
	Sessions    session.Store
	Scanner     Scanner
	Profiles    ProfileStore
	Uploader    *acquisition.Uploader
	Cameras     *camera.Registry
	Health      HealthReporter
	Auth        *auth.Sessions
	CORSOrigins []string
	Logger      *zap.Logger
}

type server struct {
	Dependencies
	logger *zap.Logger
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, deps Dependencies) error {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Uploader == nil {
		deps.Uploader = acquisition.NewUploader(DefaultMaxUploadSize)
	}
	if deps.Cameras == nil {
		deps.Cameras = camera.NewRegistry(nil, deps.Logger)
	}
	s := &server{Dependencies: deps, logger: deps.Logger.Named("handlers")}

	tmpl, err := loadTemplates()
	if err != nil {
		return err
	}
	router.SetHTMLTemplate(tmpl)
	router.MaxMultipartMemory = s.Uploader.MaxBytes + multipartOverhead

	router.GET("/health", s.health)

	app := router.Group("/")
	app.Use(deps.Auth.Middleware())
	{
		app.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusFound, "/scan")
		})
		app.GET("/scan", s.scanPage)
		app.POST("/scan/upload", s.upload)
		app.POST("/scan/camera/start", s.cameraStart)
		app.POST("/scan/camera/switch", s.cameraSwitch)
		app.POST("/scan/camera/capture", s.cameraCapture)
		app.GET("/profile", s.profilePage)
		app.POST("/profile", s.saveProfile)
		app.GET("/history", s.historyPage)
	}

	api := router.Group("/")
	if len(deps.CORSOrigins) > 0 {
		api.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	api.Use(deps.Auth.Middleware())
	{
		api.POST("/api/scan", s.apiScan)
		api.GET("/ws", s.scanChannel)
	}

	return nil
}

func (s *server) health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if s.Health != nil {
		body["upstream"] = s.Health.Last()
	}
	c.JSON(http.StatusOK, body)
}

// state loads the session, applying transitions when given. Store failures
// are logged and the defaults used so the view stays usable.
func (s *server) state(c *gin.Context, transitions ...session.Transition) session.State {
	id := auth.SessionFromGin(c)
	var (
		st  session.State
		err error
	)
	if len(transitions) == 0 {
		st, err = s.Sessions.Get(c.Request.Context(), id)
	} else {
		st, err = s.Sessions.Update(c.Request.Context(), id, transitions...)
	}
	if err != nil {
		s.logger.Warn("session store unavailable", zap.String("session_id", id), zap.Error(err))
		st = session.New(id)
		for _, t := range transitions {
			t(&st)
		}
	}
	return st
}
