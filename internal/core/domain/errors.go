package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSyncInProgress indicates a sync is already running
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrNoCursor indicates no differential cursor has been stored yet
	ErrNoCursor = errors.New("no sync cursor")

	// ErrDifferenceTooLong signals the gap since the stored cursor is too
	// large for incremental reconciliation. It requests a full sync and is
	// not a failure by itself.
	ErrDifferenceTooLong = errors.New("channel difference too long")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrInvalidCredentials indicates a wrong admin password
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMediaUnavailable indicates no media could be produced for a message
	ErrMediaUnavailable = errors.New("media unavailable")
)

// TransportError is a remote source failure: unreachable, protocol fault
// or a malformed response. It aborts the current engine.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StorageError is a local persistence failure. It is fatal to a run.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// MediaFetchError is a failed attachment transfer. Callers degrade the
// bookmark to have no media.
type MediaFetchError struct {
	MessageID int64
	Kind      MediaKind
	Err       error
}

func (e *MediaFetchError) Error() string {
	return fmt.Sprintf("media: message %d (%s): %v", e.MessageID, e.Kind, e.Err)
}

func (e *MediaFetchError) Unwrap() error { return e.Err }

// NewTransportError wraps err, returning nil for a nil err.
func NewTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}

// NewStorageError wraps err, returning nil for a nil err.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err carries a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsTransportError reports whether err carries a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
