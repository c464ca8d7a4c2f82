package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/filechain/filechain/pkg/filechain"
	"github.com/filechain/filechain/pkg/filechain/api"
)

// ServiceClient talks to the metadata API over HTTP. It satisfies
// filechain.MetadataStore so the orchestrator can persist records through
// a remote server.
type ServiceClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewServiceClient creates a client for the metadata API at baseURL.
func NewServiceClient(baseURL string, httpClient *http.Client) *ServiceClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ServiceClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// AddFile persists a file record via POST /api/files.
func (c *ServiceClient) AddFile(ctx context.Context, req filechain.AddFileRequest) (*filechain.FileRecord, error) {
	body, err := json.Marshal(api.AddFileRequest{
		FileID:      req.FileID,
		CID:         req.CID,
		Permissions: req.Permissions,
		Uploader:    req.Uploader,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/files", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var resp api.FileResponse
	if err := c.do(httpReq, http.StatusCreated, &resp); err != nil {
		return nil, err
	}
	return resp.File, nil
}

// ListFiles returns all records via GET /api/files.
func (c *ServiceClient) ListFiles(ctx context.Context) ([]*filechain.FileRecord, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/files", nil)
	if err != nil {
		return nil, err
	}

	var resp api.FilesResponse
	if err := c.do(httpReq, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// GetFile returns the record for a file id via GET /api/files/{fileID}.
func (c *ServiceClient) GetFile(ctx context.Context, fileID string) (*filechain.FileRecord, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/files/"+fileID, nil)
	if err != nil {
		return nil, err
	}

	var resp api.FileResponse
	if err := c.do(httpReq, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return resp.File, nil
}

func (c *ServiceClient) do(req *http.Request, wantStatus int, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("metadata api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return filechain.ErrFileNotFound
	}
	if resp.StatusCode != wantStatus {
		return fmt.Errorf("metadata api returned %s: %s", resp.Status, readMessage(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode metadata api response: %w", err)
	}
	return nil
}

func readMessage(r io.Reader) string {
	var errResp api.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(r, 4096)).Decode(&errResp); err == nil && errResp.Message != "" {
		return errResp.Message
	}
	return "no error message"
}
