package logging

import (
	"go.uber.org/zap"
)

// NewLogger builds the structured logger shared by the web client and CLI.
// Debug mode switches to the human readable development encoder.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopmentConfig().Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	return cfg.Build()
}

// WithOperation enriches the logger with the operation name and, when known,
// the browser session it runs for.
func WithOperation(logger *zap.Logger, operation, sessionID string) *zap.Logger {
	fields := []zap.Field{zap.String("operation", operation)}
	if sessionID != "" {
		fields = append(fields, zap.String("session_id", sessionID))
	}
	return logger.With(fields...)
}

// WithRequest is WithOperation plus the scan request id.
func WithRequest(logger *zap.Logger, operation, sessionID, requestID string) *zap.Logger {
	opLogger := WithOperation(logger, operation, sessionID)
	if requestID != "" {
		opLogger = opLogger.With(zap.String("request_id", requestID))
	}
	return opLogger
}
