package filechain

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrFileNotFound indicates no record matches a file id. A miss is a
	// normal negative result, not a server failure.
	ErrFileNotFound = errors.New("file record not found")

	// ErrDuplicateFileID indicates an insert collided with an existing file id.
	ErrDuplicateFileID = errors.New("file id already exists")

	// ErrInvalidCID indicates a content identifier failed format validation.
	ErrInvalidCID = errors.New("invalid content identifier")

	// ErrFileTooLarge indicates a payload exceeds MaxPinSize.
	ErrFileTooLarge = errors.New("file exceeds maximum pin size")

	// ErrUnsupportedMediaType indicates a payload type outside the allow-list.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrNoSigner indicates no ledger signer is configured.
	ErrNoSigner = errors.New("no signer configured")

	// ErrUploadInFlight indicates the orchestrator is already running a workflow.
	ErrUploadInFlight = errors.New("an upload is already in flight")
)

// ValidationError reports malformed client input. It is never retried and
// maps to a client error at the API boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RecordError represents an error from a record store operation.
type RecordError struct {
	FileID string
	Op     string
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record operation %s failed for file %q: %v", e.Op, e.FileID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// PinError represents an error from the pinning service.
type PinError struct {
	FileName string
	Op       string
	Err      error
}

func (e *PinError) Error() string {
	return fmt.Sprintf("pin operation %s failed for %q: %v", e.Op, e.FileName, e.Err)
}

func (e *PinError) Unwrap() error {
	return e.Err
}

// AnchorError represents an error from the ledger anchor client.
type AnchorError struct {
	FileID string
	Op     string
	Err    error
}

func (e *AnchorError) Error() string {
	return fmt.Sprintf("anchor operation %s failed for file %q: %v", e.Op, e.FileID, e.Err)
}

func (e *AnchorError) Unwrap() error {
	return e.Err
}
