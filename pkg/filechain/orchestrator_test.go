package filechain_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filechain/filechain/pkg/filechain"
	"github.com/filechain/filechain/pkg/filechain/repo/memory"
)

type fakePinner struct {
	mu       sync.Mutex
	pinned   []string
	unpinned []string
	cid      string
	pinErr   error
	unpinErr error
	block    chan struct{}
}

func (p *fakePinner) Pin(ctx context.Context, req filechain.PinRequest) (*filechain.PinResult, error) {
	p.mu.Lock()
	p.pinned = append(p.pinned, req.FileName)
	p.mu.Unlock()
	if p.block != nil {
		<-p.block
	}
	if p.pinErr != nil {
		return nil, p.pinErr
	}
	if req.Progress != nil {
		req.Progress(100)
	}
	return &filechain.PinResult{CID: p.cid, PinSize: req.Size, PinnedAt: time.Now()}, nil
}

func (p *fakePinner) Unpin(ctx context.Context, cid string) error {
	p.mu.Lock()
	p.unpinned = append(p.unpinned, cid)
	p.mu.Unlock()
	return p.unpinErr
}

type fakeAnchorer struct {
	anchored  []string
	anchorErr error
}

func (a *fakeAnchorer) Anchor(ctx context.Context, fileID, cid string, permissions filechain.Permissions) (*filechain.AnchorReceipt, error) {
	a.anchored = append(a.anchored, fileID)
	if a.anchorErr != nil {
		return nil, a.anchorErr
	}
	return &filechain.AnchorReceipt{TxID: "TX" + fileID, ConfirmedRound: 42}, nil
}

type failingMetadata struct {
	err error
}

func (m *failingMetadata) AddFile(ctx context.Context, req filechain.AddFileRequest) (*filechain.FileRecord, error) {
	return nil, m.err
}

func setupOrchestratorTest(t *testing.T, pinner filechain.Pinner, anchorer filechain.Anchorer) (*filechain.Orchestrator, filechain.Service, *[]filechain.WorkflowState) {
	svc, err := filechain.New(filechain.WithRepository(memory.New()))
	require.NoError(t, err)

	var states []filechain.WorkflowState
	orchestrator, err := filechain.NewOrchestrator(pinner, anchorer, svc,
		filechain.WithStateFunc(func(state filechain.WorkflowState) {
			states = append(states, state)
		}))
	require.NoError(t, err)

	return orchestrator, svc, &states
}

func uploadRequest() filechain.UploadRequest {
	return filechain.UploadRequest{
		FileID:      "doc-1",
		FileName:    "report.pdf",
		Permissions: "public",
		Uploader:    "addrABC",
		Reader:      strings.NewReader("payload"),
		Size:        7,
	}
}

func TestOrchestratorCreation(t *testing.T) {
	pinner := &fakePinner{cid: validCIDv0}
	anchorer := &fakeAnchorer{}
	svc, err := filechain.New(filechain.WithRepository(memory.New()))
	require.NoError(t, err)

	_, err = filechain.NewOrchestrator(nil, anchorer, svc)
	assert.Error(t, err)
	_, err = filechain.NewOrchestrator(pinner, nil, svc)
	assert.Error(t, err)
	_, err = filechain.NewOrchestrator(pinner, anchorer, nil)
	assert.Error(t, err)

	orchestrator, err := filechain.NewOrchestrator(pinner, anchorer, svc)
	assert.NoError(t, err)
	assert.NotNil(t, orchestrator)
}

func TestOrchestrator_RunSuccess(t *testing.T) {
	pinner := &fakePinner{cid: validCIDv0}
	anchorer := &fakeAnchorer{}
	orchestrator, svc, states := setupOrchestratorTest(t, pinner, anchorer)

	result, err := orchestrator.Run(context.Background(), uploadRequest())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, validCIDv0, result.CID)
	assert.Equal(t, "TXdoc-1", result.Receipt.TxID)
	assert.Equal(t, uint64(42), result.Receipt.ConfirmedRound)
	assert.Equal(t, "doc-1", result.Record.FileID)
	assert.Equal(t, filechain.PermissionsPublic, result.Record.Permissions)
	assert.Equal(t, "addrABC", result.Record.Uploader)

	// Metadata was persisted
	record, err := svc.GetFile(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, validCIDv0, record.CID)

	assert.Equal(t, []filechain.WorkflowState{
		filechain.StateValidating,
		filechain.StateUploading,
		filechain.StateAnchoring,
		filechain.StatePersisting,
		filechain.StateDone,
	}, *states)
	assert.Empty(t, pinner.unpinned)
}

func TestOrchestrator_ValidationFailureMakesNoCalls(t *testing.T) {
	pinner := &fakePinner{cid: validCIDv0}
	anchorer := &fakeAnchorer{}
	orchestrator, _, _ := setupOrchestratorTest(t, pinner, anchorer)

	tests := []struct {
		name   string
		mutate func(*filechain.UploadRequest)
	}{
		{"empty file id", func(r *filechain.UploadRequest) { r.FileID = "" }},
		{"empty uploader", func(r *filechain.UploadRequest) { r.Uploader = "" }},
		{"nil reader", func(r *filechain.UploadRequest) { r.Reader = nil }},
		{"zero size", func(r *filechain.UploadRequest) { r.Size = 0 }},
		{"bad permissions", func(r *filechain.UploadRequest) { r.Permissions = "restricted" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := uploadRequest()
			tt.mutate(&req)

			result, err := orchestrator.Run(context.Background(), req)
			assert.Error(t, err)
			assert.Nil(t, result)
			assert.Empty(t, pinner.pinned)
			assert.Empty(t, anchorer.anchored)
		})
	}
}

func TestOrchestrator_OversizePayloadRejected(t *testing.T) {
	pinner := &fakePinner{cid: validCIDv0}
	anchorer := &fakeAnchorer{}
	orchestrator, _, _ := setupOrchestratorTest(t, pinner, anchorer)

	req := uploadRequest()
	req.Size = filechain.MaxPinSize + 1

	_, err := orchestrator.Run(context.Background(), req)
	assert.ErrorIs(t, err, filechain.ErrFileTooLarge)
	assert.Empty(t, pinner.pinned)
}

func TestOrchestrator_UploadFailureStopsWorkflow(t *testing.T) {
	pinErr := &filechain.PinError{FileName: "report.pdf", Op: "pin", Err: errors.New("connection reset")}
	pinner := &fakePinner{pinErr: pinErr}
	anchorer := &fakeAnchorer{}
	orchestrator, svc, states := setupOrchestratorTest(t, pinner, anchorer)

	result, err := orchestrator.Run(context.Background(), uploadRequest())
	assert.Nil(t, result)
	var pe *filechain.PinError
	require.ErrorAs(t, err, &pe)

	// No anchor call, no metadata record, nothing to unpin
	assert.Empty(t, anchorer.anchored)
	assert.Empty(t, pinner.unpinned)
	_, err = svc.GetFile(context.Background(), "doc-1")
	assert.ErrorIs(t, err, filechain.ErrFileNotFound)

	assert.Equal(t, filechain.StateErrored, (*states)[len(*states)-1])
}

func TestOrchestrator_AnchorFailureUnpinsAndSkipsPersist(t *testing.T) {
	pinner := &fakePinner{cid: validCIDv0}
	anchorer := &fakeAnchorer{anchorErr: &filechain.AnchorError{FileID: "doc-1", Op: "submit", Err: errors.New("rejected")}}
	orchestrator, svc, states := setupOrchestratorTest(t, pinner, anchorer)

	result, err := orchestrator.Run(context.Background(), uploadRequest())
	assert.Nil(t, result)
	var ae *filechain.AnchorError
	require.ErrorAs(t, err, &ae)

	// Compensating unpin ran; no metadata was persisted
	assert.Equal(t, []string{validCIDv0}, pinner.unpinned)
	_, err = svc.GetFile(context.Background(), "doc-1")
	assert.ErrorIs(t, err, filechain.ErrFileNotFound)

	assert.Equal(t, filechain.StateErrored, (*states)[len(*states)-1])
}

func TestOrchestrator_PersistFailureUnpins(t *testing.T) {
	pinner := &fakePinner{cid: validCIDv0}
	anchorer := &fakeAnchorer{}
	metadata := &failingMetadata{err: &filechain.RecordError{FileID: "doc-1", Op: "create", Err: errors.New("store down")}}

	orchestrator, err := filechain.NewOrchestrator(pinner, anchorer, metadata)
	require.NoError(t, err)

	result, err := orchestrator.Run(context.Background(), uploadRequest())
	assert.Nil(t, result)
	var re *filechain.RecordError
	require.ErrorAs(t, err, &re)

	assert.Equal(t, []string{"doc-1"}, anchorer.anchored)
	assert.Equal(t, []string{validCIDv0}, pinner.unpinned)
}

func TestOrchestrator_RejectsConcurrentRuns(t *testing.T) {
	block := make(chan struct{})
	pinner := &fakePinner{cid: validCIDv0, block: block}
	anchorer := &fakeAnchorer{}
	orchestrator, _, _ := setupOrchestratorTest(t, pinner, anchorer)

	done := make(chan error, 1)
	go func() {
		_, err := orchestrator.Run(context.Background(), uploadRequest())
		done <- err
	}()

	// Wait for the first run to reach the pinning step
	require.Eventually(t, func() bool {
		pinner.mu.Lock()
		defer pinner.mu.Unlock()
		return len(pinner.pinned) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := orchestrator.Run(context.Background(), uploadRequest())
	assert.ErrorIs(t, err, filechain.ErrUploadInFlight)

	close(block)
	require.NoError(t, <-done)
}
