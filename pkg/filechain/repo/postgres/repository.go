package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/filechain/filechain/pkg/filechain"
)

// Expected schema (applied out of band):
//
//	CREATE TABLE file_record (
//	    id          uuid PRIMARY KEY,
//	    file_id     text NOT NULL UNIQUE,
//	    cid         text NOT NULL,
//	    permissions text NOT NULL,
//	    uploader    text NOT NULL,
//	    created_at  timestamptz NOT NULL,
//	    updated_at  timestamptz NOT NULL
//	);

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements filechain.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) filechain.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) filechain.Repository {
	return &Repository{db: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "file_id") {
				return filechain.ErrDuplicateFileID
			}
			return fmt.Errorf("duplicate entry")
		case "23502": // not_null_violation
			return &filechain.ValidationError{Field: pgErr.ColumnName, Reason: "must not be empty"}
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

func (r *Repository) CreateFileRecord(ctx context.Context, record *filechain.FileRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	query := `
		INSERT INTO file_record (
			id, file_id, cid, permissions, uploader, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		record.ID, record.FileID, record.CID, record.Permissions,
		record.Uploader, record.CreatedAt, record.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("create file record", err)
	}

	return nil
}

func (r *Repository) GetFileRecordByFileID(ctx context.Context, fileID string) (*filechain.FileRecord, error) {
	query := `
        SELECT id, file_id, cid, permissions, uploader, created_at, updated_at
        FROM file_record WHERE file_id = $1`

	var record filechain.FileRecord
	err := r.db.QueryRow(ctx, query, fileID).Scan(
		&record.ID, &record.FileID, &record.CID, &record.Permissions,
		&record.Uploader, &record.CreatedAt, &record.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, filechain.ErrFileNotFound
		}
		return nil, r.handlePostgresError("get file record", err)
	}

	return &record, nil
}

func (r *Repository) ListFileRecords(ctx context.Context) ([]*filechain.FileRecord, error) {
	query := `
        SELECT id, file_id, cid, permissions, uploader, created_at, updated_at
        FROM file_record
        ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, r.handlePostgresError("list file records", err)
	}
	defer rows.Close()

	var records []*filechain.FileRecord
	for rows.Next() {
		var record filechain.FileRecord
		if err := rows.Scan(
			&record.ID, &record.FileID, &record.CID, &record.Permissions,
			&record.Uploader, &record.CreatedAt, &record.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, &record)
	}

	return records, rows.Err()
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
