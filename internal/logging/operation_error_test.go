package logging

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewOperationErrorNilPassthrough(t *testing.T) {
	if err := NewOperationError("scan.submit", "sess", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestOperationErrorMessageAndUnwrap(t *testing.T) {
	base := errors.New("connection refused")
	err := NewOperationError("scan.submit", "sess-1", base)

	if got, want := err.Error(), "scan.submit (session_id=sess-1): connection refused"; got != want {
		t.Fatalf("unexpected message: %q", got)
	}
	if !errors.Is(err, base) {
		t.Fatal("expected errors.Is to match the wrapped error")
	}

	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %T", err)
	}
	if opErr.Operation != "scan.submit" {
		t.Fatalf("unexpected operation: %s", opErr.Operation)
	}
}

func TestOperationErrorWithoutSession(t *testing.T) {
	err := NewOperationError("health.check", "", errors.New("timeout"))
	if got, want := err.Error(), "health.check: timeout"; got != want {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestRequestErrorCarriesRequestID(t *testing.T) {
	base := errors.New("timeout")
	err := NewRequestError("usecase.submit_scan", "sess-1", "req-9", base)

	if got, want := err.Error(), "usecase.submit_scan (session_id=sess-1 request_id=req-9): timeout"; got != want {
		t.Fatalf("unexpected message: %q", got)
	}
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.RequestID != "req-9" || opErr.SessionID != "sess-1" {
		t.Fatalf("unexpected error: %#v", err)
	}
	if !errors.Is(err, base) {
		t.Fatal("expected errors.Is to match the wrapped error")
	}

	if got, want := NewRequestError("repository.save_log", "", "req-9", base).Error(), "repository.save_log (request_id=req-9): timeout"; got != want {
		t.Fatalf("unexpected message: %q", got)
	}
	if NewRequestError("op", "s", "r", nil) != nil {
		t.Fatal("expected nil for a nil error")
	}
}

func TestWithRequestAddsFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	WithRequest(zap.New(core), "usecase.scan", "sess-1", "req-9").Info("done")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["operation"] != "usecase.scan" || fields["session_id"] != "sess-1" || fields["request_id"] != "req-9" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}
