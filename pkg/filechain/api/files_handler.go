// Package api exposes the metadata service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/filechain/filechain/pkg/filechain"
)

// FilesHandler handles the file metadata API endpoints
type FilesHandler struct {
	service filechain.Service
}

func NewFilesHandler(service filechain.Service) *FilesHandler {
	return &FilesHandler{service: service}
}

// Routes returns the router for the files endpoints
func (h *FilesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.AddFile)
	r.Get("/", h.ListFiles)
	r.Get("/{fileID}", h.GetFile)
	return r
}

// AddFileRequest represents the request to persist a file record
type AddFileRequest struct {
	FileID      string `json:"file_id"`
	CID         string `json:"cid"`
	Permissions string `json:"permissions,omitempty"`
	Uploader    string `json:"uploader"`
}

// FileResponse represents a single-record response
type FileResponse struct {
	Success bool                  `json:"success"`
	File    *filechain.FileRecord `json:"file"`
}

// FilesResponse represents a record-list response
type FilesResponse struct {
	Success bool                    `json:"success"`
	Files   []*filechain.FileRecord `json:"files"`
}

// ErrorResponse represents a failed request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AddFile persists a new file metadata record
func (h *FilesHandler) AddFile(w http.ResponseWriter, r *http.Request) {
	var req AddFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request", "error", err)
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.service.AddFile(r.Context(), filechain.AddFileRequest{
		FileID:      req.FileID,
		CID:         req.CID,
		Permissions: req.Permissions,
		Uploader:    req.Uploader,
	})
	if err != nil {
		var validationErr *filechain.ValidationError
		switch {
		case errors.As(err, &validationErr):
			slog.Error("Invalid add file request", "field", validationErr.Field, "error", err)
			renderError(w, r, http.StatusBadRequest, validationErr.Error())
		case errors.Is(err, filechain.ErrDuplicateFileID):
			slog.Error("Duplicate file id", "file_id", req.FileID)
			renderError(w, r, http.StatusConflict, filechain.ErrDuplicateFileID.Error())
		default:
			slog.Error("Failed to add file", "file_id", req.FileID, "error", err)
			renderError(w, r, http.StatusInternalServerError, "failed to store file record")
		}
		return
	}

	slog.Info("File record created", "file_id", record.FileID, "cid", record.CID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, FileResponse{Success: true, File: record})
}

// ListFiles returns all file records, newest first
func (h *FilesHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListFiles(r.Context())
	if err != nil {
		slog.Error("Failed to list files", "error", err)
		renderError(w, r, http.StatusInternalServerError, "failed to list file records")
		return
	}

	if records == nil {
		records = []*filechain.FileRecord{}
	}
	render.JSON(w, r, FilesResponse{Success: true, Files: records})
}

// GetFile returns the record for a file id
func (h *FilesHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	record, err := h.service.GetFile(r.Context(), fileID)
	if err != nil {
		var validationErr *filechain.ValidationError
		switch {
		case errors.Is(err, filechain.ErrFileNotFound):
			renderError(w, r, http.StatusNotFound, "File not found")
		case errors.As(err, &validationErr):
			renderError(w, r, http.StatusBadRequest, validationErr.Error())
		default:
			slog.Error("Failed to get file", "file_id", fileID, "error", err)
			renderError(w, r, http.StatusInternalServerError, "failed to get file record")
		}
		return
	}

	render.JSON(w, r, FileResponse{Success: true, File: record})
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Success: false, Message: message})
}
