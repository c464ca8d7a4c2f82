package filechain

import "context"

// Repository defines the interface for file record persistence. The store
// is append-only: records are never updated or deleted. Implementations
// enforce the uniqueness of FileID at insert time; that constraint is the
// only concurrency-sensitive invariant in the system.
type Repository interface {
	// CreateFileRecord inserts a record. It rejects records with empty
	// file id, cid, or uploader, or an unrecognized permissions value,
	// and returns ErrDuplicateFileID when the file id is already taken.
	CreateFileRecord(ctx context.Context, record *FileRecord) error

	// GetFileRecordByFileID returns ErrFileNotFound when no record matches.
	GetFileRecordByFileID(ctx context.Context, fileID string) (*FileRecord, error)

	// ListFileRecords returns all records, newest first.
	ListFileRecords(ctx context.Context) ([]*FileRecord, error)
}

// Pinner defines the interface for the content upload client.
type Pinner interface {
	// Pin streams a payload to the pinning service and returns the
	// remote-assigned content identifier. It does not retry.
	Pin(ctx context.Context, req PinRequest) (*PinResult, error)

	// Unpin removes a previously pinned payload. Used as a best-effort
	// compensating action when a downstream workflow step fails.
	Unpin(ctx context.Context, cid string) error
}

// Anchorer defines the interface for the ledger anchor client. Anchor
// submits exactly one transaction per call; rejections and network faults
// are surfaced verbatim, and retry policy belongs to the caller.
type Anchorer interface {
	Anchor(ctx context.Context, fileID, cid string, permissions Permissions) (*AnchorReceipt, error)
}

// MetadataStore is the subset of the metadata service the orchestrator
// depends on. Service satisfies it, as does an HTTP client for the
// metadata API.
type MetadataStore interface {
	AddFile(ctx context.Context, req AddFileRequest) (*FileRecord, error)
}
