package filechain

import "io"

// Request DTOs

// AddFileRequest contains parameters for persisting a file metadata record.
// Permissions is the raw string from the caller; an empty value defaults to
// public.
type AddFileRequest struct {
	FileID      string
	CID         string
	Permissions string
	Uploader    string
}

// PinRequest contains parameters for pinning a payload. Size must be the
// exact payload length; it is checked against MaxPinSize before any network
// I/O and drives progress reporting. Progress, when set, receives a
// monotonically increasing percentage in [0,100].
type PinRequest struct {
	Reader      io.Reader
	Size        int64
	FileName    string
	ContentType string
	Progress    func(percent float64)
}

// UploadRequest contains parameters for a full upload workflow run.
type UploadRequest struct {
	FileID      string
	FileName    string
	ContentType string
	Permissions string
	Uploader    string
	Reader      io.Reader
	Size        int64
}
