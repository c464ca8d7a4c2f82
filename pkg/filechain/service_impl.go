package filechain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	repository Repository
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// New creates a new metadata service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}

	return s, nil
}

func (s *service) AddFile(ctx context.Context, req AddFileRequest) (*FileRecord, error) {
	if strings.TrimSpace(req.FileID) == "" {
		return nil, &ValidationError{Field: "file_id", Reason: "must not be empty"}
	}
	if err := ValidateCID(req.CID); err != nil {
		return nil, &ValidationError{Field: "cid", Reason: err.Error()}
	}
	if strings.TrimSpace(req.Uploader) == "" {
		return nil, &ValidationError{Field: "uploader", Reason: "must not be empty"}
	}
	permissions, err := ParsePermissions(req.Permissions)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &FileRecord{
		ID:          uuid.New(),
		FileID:      req.FileID,
		CID:         req.CID,
		Permissions: permissions,
		Uploader:    req.Uploader,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repository.CreateFileRecord(ctx, record); err != nil {
		return nil, &RecordError{
			FileID: req.FileID,
			Op:     "create",
			Err:    err,
		}
	}

	return record, nil
}

func (s *service) ListFiles(ctx context.Context) ([]*FileRecord, error) {
	return s.repository.ListFileRecords(ctx)
}

func (s *service) GetFile(ctx context.Context, fileID string) (*FileRecord, error) {
	if strings.TrimSpace(fileID) == "" {
		return nil, &ValidationError{Field: "file_id", Reason: "must not be empty"}
	}
	return s.repository.GetFileRecordByFileID(ctx, fileID)
}
