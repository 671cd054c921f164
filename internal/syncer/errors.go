package syncer

import "fmt"

// AuthError indicates that obtaining or refreshing an access token failed.
// It is fatal to the run: no partial sync happens without authentication.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransientError wraps a failure worth retrying: timeouts, 5xx responses
// and rate limiting. Everything else surfaces immediately.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// DataError indicates malformed input data, such as a duplicate correlation
// key in the source calendar or an unexpected provider schema.
type DataError struct {
	Detail string
}

func (e *DataError) Error() string { return e.Detail }

// ConflictError indicates that a target event changed concurrently while
// the run was applying its plan. It is surfaced, never silently overwritten.
type ConflictError struct {
	EventID string
	Err     error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("target event %s modified concurrently: %v", e.EventID, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }
