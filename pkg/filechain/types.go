package filechain

import (
	"time"

	"github.com/google/uuid"
)

// Permissions is the domain type for record visibility.
type Permissions string

// Permissions constants (typed).
const (
	PermissionsPublic  Permissions = "public"
	PermissionsPrivate Permissions = "private"
)

// Valid reports whether p is a recognized permissions value.
func (p Permissions) Valid() bool {
	return p == PermissionsPublic || p == PermissionsPrivate
}

// ParsePermissions normalizes a raw permissions string. An empty value
// defaults to public.
func ParsePermissions(s string) (Permissions, error) {
	if s == "" {
		return PermissionsPublic, nil
	}
	p := Permissions(s)
	if !p.Valid() {
		return "", &ValidationError{Field: "permissions", Reason: "must be 'public' or 'private'"}
	}
	return p, nil
}

// MaxPinSize is the largest payload accepted for pinning, in bytes.
const MaxPinSize = 100 << 20 // 100 MiB

// WorkflowState is the domain type for upload workflow states.
type WorkflowState string

// Workflow state constants (typed).
const (
	StateIdle       WorkflowState = "idle"
	StateValidating WorkflowState = "validating"
	StateUploading  WorkflowState = "uploading"
	StateAnchoring  WorkflowState = "anchoring"
	StatePersisting WorkflowState = "persisting"
	StateDone       WorkflowState = "done"
	StateErrored    WorkflowState = "errored"
)

// FileRecord is a persisted file metadata record. FileID is the
// caller-chosen natural key shared by the pinning, ledger, and metadata
// subsystems; ID is the store's surrogate key. Records are append-only:
// no update or delete path exists.
type FileRecord struct {
	ID          uuid.UUID   `json:"id"`
	FileID      string      `json:"file_id"`
	CID         string      `json:"cid"`
	Permissions Permissions `json:"permissions"`
	Uploader    string      `json:"uploader"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// PinResult is the outcome of pinning a payload.
type PinResult struct {
	CID      string
	PinSize  int64
	PinnedAt time.Time
}

// AnchorReceipt is the confirmation returned after a ledger anchor call.
type AnchorReceipt struct {
	TxID           string
	ConfirmedRound uint64
}

// UploadResult is the outcome of a completed upload workflow.
type UploadResult struct {
	Record  *FileRecord
	CID     string
	Receipt *AnchorReceipt
}
