package filechain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
)

// Orchestrator drives the upload workflow: validate the request, pin the
// payload, anchor the content identifier on the ledger, then persist the
// metadata record. Each run is a single attempt with no automatic retry
// and no checkpointing; re-invocation by the caller is the only recovery
// path. Metadata is persisted only after anchor confirmation, so ledger
// and metadata state stay consistent. If persistence fails after the
// remote effects have landed, the fresh pin is removed best-effort and the
// on-chain record remains.
type Orchestrator struct {
	pinner     Pinner
	anchorer   Anchorer
	metadata   MetadataStore
	onState    func(WorkflowState)
	onProgress func(percent float64)
	inFlight   atomic.Bool
}

// OrchestratorOption represents a functional option for configuring the
// orchestrator
type OrchestratorOption func(*Orchestrator)

// WithStateFunc registers a callback invoked on every workflow state
// transition.
func WithStateFunc(fn func(WorkflowState)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.onState = fn
	}
}

// WithProgressFunc registers a callback fed the upload progress
// percentage.
func WithProgressFunc(fn func(percent float64)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.onProgress = fn
	}
}

// NewOrchestrator creates an upload orchestrator. All three collaborators
// are required.
func NewOrchestrator(pinner Pinner, anchorer Anchorer, metadata MetadataStore, options ...OrchestratorOption) (*Orchestrator, error) {
	if pinner == nil {
		return nil, fmt.Errorf("pinner is required")
	}
	if anchorer == nil {
		return nil, fmt.Errorf("anchorer is required")
	}
	if metadata == nil {
		return nil, fmt.Errorf("metadata store is required")
	}

	o := &Orchestrator{
		pinner:   pinner,
		anchorer: anchorer,
		metadata: metadata,
	}
	for _, option := range options {
		option(o)
	}
	return o, nil
}

// Run executes one upload workflow. A second call while a run is in
// flight returns ErrUploadInFlight; independent orchestrators may run
// concurrently.
func (o *Orchestrator) Run(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return nil, ErrUploadInFlight
	}
	defer o.inFlight.Store(false)

	o.setState(StateValidating)
	permissions, err := o.validate(req)
	if err != nil {
		o.setState(StateErrored)
		return nil, err
	}

	o.setState(StateUploading)
	pin, err := o.pinner.Pin(ctx, PinRequest{
		Reader:      req.Reader,
		Size:        req.Size,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Progress:    o.onProgress,
	})
	if err != nil {
		o.setState(StateErrored)
		return nil, err
	}

	o.setState(StateAnchoring)
	receipt, err := o.anchorer.Anchor(ctx, req.FileID, pin.CID, permissions)
	if err != nil {
		o.compensate(ctx, req.FileID, pin.CID)
		o.setState(StateErrored)
		return nil, err
	}

	o.setState(StatePersisting)
	record, err := o.metadata.AddFile(ctx, AddFileRequest{
		FileID:      req.FileID,
		CID:         pin.CID,
		Permissions: string(permissions),
		Uploader:    req.Uploader,
	})
	if err != nil {
		// The anchor transaction is already confirmed; only the pin can
		// be compensated.
		o.compensate(ctx, req.FileID, pin.CID)
		o.setState(StateErrored)
		return nil, err
	}

	o.setState(StateDone)
	return &UploadResult{
		Record:  record,
		CID:     pin.CID,
		Receipt: receipt,
	}, nil
}

func (o *Orchestrator) validate(req UploadRequest) (Permissions, error) {
	if strings.TrimSpace(req.FileID) == "" {
		return "", &ValidationError{Field: "file_id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(req.Uploader) == "" {
		return "", &ValidationError{Field: "uploader", Reason: "must not be empty"}
	}
	if req.Reader == nil {
		return "", &ValidationError{Field: "file", Reason: "payload is required"}
	}
	if req.Size <= 0 {
		return "", &ValidationError{Field: "file", Reason: "payload size must be known and positive"}
	}
	if req.Size > MaxPinSize {
		return "", fmt.Errorf("%w: %d bytes", ErrFileTooLarge, req.Size)
	}
	return ParsePermissions(req.Permissions)
}

// compensate removes a fresh pin after a downstream step failed.
// Best-effort: a failure here is logged and otherwise ignored.
func (o *Orchestrator) compensate(ctx context.Context, fileID, cid string) {
	if err := o.pinner.Unpin(ctx, cid); err != nil {
		slog.Warn("failed to unpin after workflow error", "file_id", fileID, "cid", cid, "error", err)
	}
}

func (o *Orchestrator) setState(state WorkflowState) {
	if o.onState != nil {
		o.onState(state)
	}
}
