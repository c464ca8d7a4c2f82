package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filechain/filechain/pkg/filechain"
	"github.com/filechain/filechain/pkg/filechain/repo/memory"
)

const testCID = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

// setupFilesHandlerTest creates a router over an in-memory record store
func setupFilesHandlerTest(t *testing.T) http.Handler {
	svc, err := filechain.New(filechain.WithRepository(memory.New()))
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Mount("/api/files", NewFilesHandler(svc).Routes())
	return router
}

func postFile(t *testing.T, router http.Handler, req AddFileRequest) *httptest.ResponseRecorder {
	body, err := json.Marshal(req)
	require.NoError(t, err)

	httpReq := httptest.NewRequest(http.MethodPost, "/api/files", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httpReq)
	return w
}

func TestFilesHandler_AddFile_Success(t *testing.T) {
	router := setupFilesHandlerTest(t)

	w := postFile(t, router, AddFileRequest{
		FileID:      "doc-1",
		CID:         testCID,
		Permissions: "public",
		Uploader:    "addrABC",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp FileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.File)
	assert.Equal(t, "doc-1", resp.File.FileID)
	assert.Equal(t, testCID, resp.File.CID)
	assert.Equal(t, filechain.PermissionsPublic, resp.File.Permissions)
	assert.Equal(t, "addrABC", resp.File.Uploader)
	assert.False(t, resp.File.CreatedAt.IsZero())
}

func TestFilesHandler_AddFile_ValidationFailure(t *testing.T) {
	router := setupFilesHandlerTest(t)

	tests := []struct {
		name string
		req  AddFileRequest
	}{
		{"missing file id", AddFileRequest{CID: testCID, Uploader: "addrABC"}},
		{"malformed cid", AddFileRequest{FileID: "doc-1", CID: "bafy123", Uploader: "addrABC"}},
		{"missing uploader", AddFileRequest{FileID: "doc-1", CID: testCID}},
		{"bad permissions", AddFileRequest{FileID: "doc-1", CID: testCID, Permissions: "restricted", Uploader: "addrABC"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postFile(t, router, tt.req)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestFilesHandler_AddFile_InvalidBody(t *testing.T) {
	router := setupFilesHandlerTest(t)

	httpReq := httptest.NewRequest(http.MethodPost, "/api/files", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httpReq)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFilesHandler_AddFile_Duplicate(t *testing.T) {
	router := setupFilesHandlerTest(t)

	req := AddFileRequest{FileID: "doc-1", CID: testCID, Uploader: "addrABC"}
	w := postFile(t, router, req)
	require.Equal(t, http.StatusCreated, w.Code)

	w = postFile(t, router, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFilesHandler_ListFiles(t *testing.T) {
	router := setupFilesHandlerTest(t)

	for _, fileID := range []string{"doc-1", "doc-2", "doc-3"} {
		w := postFile(t, router, AddFileRequest{FileID: fileID, CID: testCID, Uploader: "addrABC"})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	httpReq := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httpReq)
	require.Equal(t, http.StatusOK, w.Code)

	var resp FilesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Files, 3)
	assert.Equal(t, "doc-3", resp.Files[0].FileID)
	assert.Equal(t, "doc-1", resp.Files[2].FileID)
}

func TestFilesHandler_ListFiles_Empty(t *testing.T) {
	router := setupFilesHandlerTest(t)

	httpReq := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httpReq)
	require.Equal(t, http.StatusOK, w.Code)

	// Empty list renders as [], not null
	assert.Contains(t, w.Body.String(), `"files":[]`)
}

func TestFilesHandler_GetFile(t *testing.T) {
	router := setupFilesHandlerTest(t)

	w := postFile(t, router, AddFileRequest{FileID: "doc-1", CID: testCID, Permissions: "private", Uploader: "addrABC"})
	require.Equal(t, http.StatusCreated, w.Code)

	httpReq := httptest.NewRequest(http.MethodGet, "/api/files/doc-1", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httpReq)
	require.Equal(t, http.StatusOK, w.Code)

	var resp FileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "doc-1", resp.File.FileID)
	assert.Equal(t, filechain.PermissionsPrivate, resp.File.Permissions)
}

func TestFilesHandler_GetFile_NotFound(t *testing.T) {
	router := setupFilesHandlerTest(t)

	httpReq := httptest.NewRequest(http.MethodGet, "/api/files/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httpReq)

	require.Equal(t, http.StatusNotFound, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "File not found", resp.Message)
}
