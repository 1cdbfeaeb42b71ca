package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/nutriscan/internal/logging"
)

// ScanLog is the outcome summary of one scan submission. Image bytes are
// never stored, only their SHA-1.
type ScanLog struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	RequestID     string    `gorm:"column:request_id;uniqueIndex;size:64" json:"request_id"`
	SessionID     string    `gorm:"column:session_id;index;size:64" json:"session_id"`
	UserID        string    `gorm:"column:user_id;size:64" json:"user_id,omitempty"`
	ProductName   string    `gorm:"column:product_name;size:255" json:"product_name,omitempty"`
	Success       bool      `gorm:"column:success" json:"success"`
	Error         string    `gorm:"column:error;type:text" json:"error,omitempty"`
	Title         string    `gorm:"column:title;size:255" json:"title,omitempty"`
	HealthScore   float64   `gorm:"column:health_score" json:"health_score"`
	FitForUser    string    `gorm:"column:fit_for_user;size:32" json:"fit_for_user,omitempty"`
	Calories      float64   `gorm:"column:calories" json:"calories"`
	Fat           float64   `gorm:"column:fat" json:"fat"`
	Carbohydrates float64   `gorm:"column:carbohydrates" json:"carbohydrates"`
	Protein       float64   `gorm:"column:protein" json:"protein"`
	SHA1Hash      string    `gorm:"column:sha1_hash;size:40;index" json:"sha1_hash"`
	CreatedAt     time.Time `gorm:"column:created_at;index" json:"created_at"`
}

// TableName overrides the default table name.
func (ScanLog) TableName() string {
	return "scan_logs"
}

// ScanLogRepository provides persistence APIs for scan logs.
type ScanLogRepository struct {
	db             *gorm.DB
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewScanLogRepository creates a new repository instance.
func NewScanLogRepository(db *gorm.DB, logger *zap.Logger) *ScanLogRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanLogRepository{
		db:             db,
		logger:         logger.Named("scan_log_repository"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// Open connects to the history database. DSNs starting with postgres:// or
// host= use Postgres; anything else is a SQLite file path.
func Open(ctx context.Context, dsn string, debug bool) (*gorm.DB, error) {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(level)}

	var dialector gorm.Dialector
	if isPostgresDSN(dsn) {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if db.Dialector.Name() == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.HasPrefix(dsn, "host=")
}

// AutoMigrate ensures the schema is available.
func (r *ScanLogRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&ScanLog{})
}

// SaveLog persists a scan log entry.
func (r *ScanLogRepository) SaveLog(ctx context.Context, log *ScanLog) error {
	return r.executeWithRetry(ctx, "repository.save_log", log.SessionID, log.RequestID, func() error {
		return r.db.WithContext(ctx).Create(log).Error
	})
}

// Recent returns the newest logs of a session, newest first.
func (r *ScanLogRepository) Recent(ctx context.Context, sessionID string, limit int) ([]*ScanLog, error) {
	var logs []*ScanLog
	err := r.executeWithRetry(ctx, "repository.recent", sessionID, "", func() error {
		logs = nil
		return r.db.WithContext(ctx).
			Where("session_id = ?", sessionID).
			Order("created_at DESC").
			Limit(limit).
			Find(&logs).Error
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// SuccessfulSince returns every successful log of a session created at or
// after since, oldest first.
func (r *ScanLogRepository) SuccessfulSince(ctx context.Context, sessionID string, since time.Time) ([]*ScanLog, error) {
	var logs []*ScanLog
	err := r.executeWithRetry(ctx, "repository.successful_since", sessionID, "", func() error {
		logs = nil
		return r.db.WithContext(ctx).
			Where("session_id = ? AND success = ? AND created_at >= ?", sessionID, true, since).
			Order("created_at ASC").
			Find(&logs).Error
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *ScanLogRepository) executeWithRetry(ctx context.Context, operation, sessionID, requestID string, fn func() error) error {
	backoff := r.initialBackoff
	opLogger := logging.WithRequest(r.logger, operation, sessionID, requestID)
	var err error
	for attempt := 0; attempt < r.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewRequestError(operation, sessionID, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= r.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("database operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !isTransientError(err) || attempt == r.retryAttempts-1 {
			opLogger.Error("database operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewRequestError(operation, sessionID, requestID, err)
		}

		opLogger.Warn("transient database error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewRequestError(operation, sessionID, requestID, err)
}

func isTransientError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var temporary interface{ Temporary() bool }
	return errors.As(err, &temporary) && temporary.Temporary()
}
