package filechain

import "context"

// Service is the validating metadata facade over the Repository. It
// re-validates input independently of the store's own checks, since the
// store is a separate trust boundary.
type Service interface {
	// AddFile validates and persists a file metadata record, returning
	// the stored record. Validation failures are *ValidationError;
	// duplicate file ids surface ErrDuplicateFileID.
	AddFile(ctx context.Context, req AddFileRequest) (*FileRecord, error)

	// ListFiles returns all records, newest first.
	ListFiles(ctx context.Context) ([]*FileRecord, error)

	// GetFile returns the record for a file id, or ErrFileNotFound.
	GetFile(ctx context.Context, fileID string) (*FileRecord, error)
}
