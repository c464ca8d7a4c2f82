package memory

import (
	"context"
	"sync"

	"github.com/filechain/filechain/pkg/filechain"
)

// Repository implements filechain.Repository using in-memory storage
type Repository struct {
	mu      sync.RWMutex
	records map[string]*filechain.FileRecord
	order   []string // file ids in insertion order
}

// New creates a new in-memory repository
func New() filechain.Repository {
	return &Repository{
		records: make(map[string]*filechain.FileRecord),
	}
}

func (r *Repository) CreateFileRecord(ctx context.Context, record *filechain.FileRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[record.FileID]; exists {
		return filechain.ErrDuplicateFileID
	}

	// Store a copy to avoid external modifications
	recordCopy := *record
	r.records[record.FileID] = &recordCopy
	r.order = append(r.order, record.FileID)

	return nil
}

func (r *Repository) GetFileRecordByFileID(ctx context.Context, fileID string) (*filechain.FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.records[fileID]
	if !exists {
		return nil, filechain.ErrFileNotFound
	}

	recordCopy := *record
	return &recordCopy, nil
}

func (r *Repository) ListFileRecords(ctx context.Context) ([]*filechain.FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Insertion order doubles as creation order; walk it backwards for
	// newest-first results.
	result := make([]*filechain.FileRecord, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		recordCopy := *r.records[r.order[i]]
		result = append(result, &recordCopy)
	}

	return result, nil
}

func validateRecord(record *filechain.FileRecord) error {
	if record.FileID == "" {
		return &filechain.ValidationError{Field: "file_id", Reason: "must not be empty"}
	}
	if record.CID == "" {
		return &filechain.ValidationError{Field: "cid", Reason: "must not be empty"}
	}
	if record.Uploader == "" {
		return &filechain.ValidationError{Field: "uploader", Reason: "must not be empty"}
	}
	if !record.Permissions.Valid() {
		return &filechain.ValidationError{Field: "permissions", Reason: "must be 'public' or 'private'"}
	}
	return nil
}
