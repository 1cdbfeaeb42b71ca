package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/nutriscan/internal/acquisition"
	"github.com/example/nutriscan/internal/apiclient"
	"github.com/example/nutriscan/internal/logging"
	"github.com/example/nutriscan/internal/models"
	"github.com/example/nutriscan/internal/repository"
	"github.com/example/nutriscan/internal/session"
)

// FallbackScanError is used when a failed scan carries no server message.
const FallbackScanError = "Failed to analyze image. Please try again."

// Submitter sends one image to the analysis service.
type Submitter interface {
	SubmitScan(ctx context.Context, img acquisition.Image, productName, userID string) (*models.AnalysisResult, error)
}

// ScanLogRepository defines the persistence operations needed by the use case.
type ScanLogRepository interface {
	SaveLog(ctx context.Context, log *repository.ScanLog) error
	Recent(ctx context.Context, sessionID string, limit int) ([]*repository.ScanLog, error)
	SuccessfulSince(ctx context.Context, sessionID string, since time.Time) ([]*repository.ScanLog, error)
}

// ScanUseCase drives one scan from acquired image to stored result.
type ScanUseCase struct {
	submitter Submitter
	sessions  session.Store
	repo      ScanLogRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewScanUseCase constructs a new use case instance. repo may be nil when
// history is disabled.
func NewScanUseCase(submitter Submitter, sessions session.Store, repo ScanLogRepository, logger *zap.Logger) *ScanUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanUseCase{
		submitter: submitter,
		sessions:  sessions,
		repo:      repo,
		logger:    logger.Named("scan_usecase"),
		now:       time.Now,
	}
}

// HistoryEnabled reports whether scan outcomes are recorded.
func (uc *ScanUseCase) HistoryEnabled() bool {
	return uc.repo != nil
}

// Scan submits img for the session and returns the result. It never fails:
// transport and server errors come back as {success:false, error}. The
// session is marked loading for the duration and holds the result after.
func (uc *ScanUseCase) Scan(ctx context.Context, sessionID string, img acquisition.Image, productName string) models.AnalysisResult {
	requestID := uuid.NewString()
	opLogger := logging.WithRequest(uc.logger, "usecase.scan", sessionID, requestID)

	// Completion must land even if the caller goes away mid-request.
	detached := context.WithoutCancel(ctx)

	state, err := uc.sessions.Update(ctx, sessionID, session.BeginScan())
	if err != nil {
		opLogger.Warn("failed to mark scan in flight", zap.Error(err))
	}
	userID := state.UserID()

	start := uc.now()
	result := uc.submit(ctx, sessionID, requestID, img, productName, userID, opLogger)
	opLogger.Info("scan finished",
		zap.Bool("success", result.Success),
		zap.Duration("latency", uc.now().Sub(start)),
		zap.Bool("with_user", userID != ""),
	)

	if _, err := uc.sessions.Update(detached, sessionID, session.CompleteScan(result)); err != nil {
		opLogger.Error("failed to store scan result", zap.Error(err))
	}

	uc.record(detached, requestID, sessionID, userID, productName, img, result, opLogger)
	return result
}

func (uc *ScanUseCase) submit(ctx context.Context, sessionID, requestID string, img acquisition.Image, productName, userID string, opLogger *zap.Logger) models.AnalysisResult {
	result, err := uc.submitter.SubmitScan(ctx, img, productName, userID)
	if err != nil {
		wrapped := logging.NewRequestError("usecase.submit_scan", sessionID, requestID, err)
		opLogger.Error("scan submission failed", zap.Error(wrapped))
		if msg, ok := apiclient.ErrorMessage(err); ok {
			return models.FailedResult(msg)
		}
		return models.FailedResult(FallbackScanError)
	}
	if result == nil {
		return models.FailedResult(FallbackScanError)
	}
	return *result
}

func (uc *ScanUseCase) record(ctx context.Context, requestID, sessionID, userID, productName string, img acquisition.Image, result models.AnalysisResult, opLogger *zap.Logger) {
	if uc.repo == nil {
		return
	}

	hash := sha1.Sum(img.Data)
	log := &repository.ScanLog{
		RequestID:   requestID,
		SessionID:   sessionID,
		UserID:      userID,
		ProductName: productName,
		Success:     result.Success,
		Error:       result.Error,
		SHA1Hash:    hex.EncodeToString(hash[:]),
		CreatedAt:   uc.now().UTC(),
	}
	if result.ProductName != "" {
		log.ProductName = result.ProductName
	}
	if vv := result.VisualVerdict; vv != nil {
		log.Title = vv.Title
		log.HealthScore = vv.HealthScore.Value
		log.FitForUser = vv.FitForUser
	}
	if nd := result.NutritionData; nd != nil {
		log.Calories = nd.Calories.Value
		log.Fat = nd.Fat.Value
		log.Carbohydrates = nd.Carbohydrates.Value
		log.Protein = nd.Protein.Value
	}

	if err := uc.repo.SaveLog(ctx, log); err != nil {
		opLogger.Warn("failed to persist scan log", zap.Error(err))
	}
}
