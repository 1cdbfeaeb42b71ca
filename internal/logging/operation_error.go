package logging

import "fmt"

// OperationError annotates an error with the client operation that produced
// it, the session it belonged to and, for scans, the request id.
type OperationError struct {
	Operation string
	SessionID string
	RequestID string
	Err       error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	switch {
	case e.SessionID != "" && e.RequestID != "":
		return fmt.Sprintf("%s (session_id=%s request_id=%s): %v", e.Operation, e.SessionID, e.RequestID, e.Err)
	case e.SessionID != "":
		return fmt.Sprintf("%s (session_id=%s): %v", e.Operation, e.SessionID, e.Err)
	case e.RequestID != "":
		return fmt.Sprintf("%s (request_id=%s): %v", e.Operation, e.RequestID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewOperationError wraps err with the operation and session. A nil err stays nil.
func NewOperationError(operation, sessionID string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Operation: operation, SessionID: sessionID, Err: err}
}

// NewRequestError is NewOperationError for work tied to one scan request.
func NewRequestError(operation, sessionID, requestID string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Operation: operation, SessionID: sessionID, RequestID: requestID, Err: err}
}
