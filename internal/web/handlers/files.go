package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fasinfasi/Face-Lock-System/internal/userdata"
	"github.com/fasinfasi/Face-Lock-System/internal/web/middleware"
)

// maxUploadSize caps a single file upload at 50 MB.
const maxUploadSize = 50 << 20

// FilesHandler exposes the per-user folder and file storage. Every route is
// behind RequireAuth and scoped to the session identity; a user can never
// name another user's subtree.
type FilesHandler struct {
	store *userdata.Store
}

// NewFilesHandler creates a new files handler.
func NewFilesHandler(store *userdata.Store) *FilesHandler {
	return &FilesHandler{store: store}
}

// callerIdentity pulls the identity from the authenticated session.
func callerIdentity(r *http.Request) (string, bool) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		return "", false
	}
	return session.Identity, true
}

// respondUserdataError maps storage errors onto HTTP statuses.
func respondUserdataError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, userdata.ErrInvalidName):
		respondError(w, http.StatusBadRequest, "invalid name")
	case errors.Is(err, userdata.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	default:
		log.Printf("userdata error: %v", err)
		respondError(w, http.StatusInternalServerError, "storage error")
	}
}

// ListFolders returns the caller's folders.
func (h *FilesHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	folders, err := h.store.ListFolders(identity)
	if err != nil {
		respondUserdataError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

// createFolderRequest names the folder to create.
type createFolderRequest struct {
	Name string `json:"name"`
}

// CreateFolder creates a folder for the caller.
func (h *FilesHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if err := h.store.CreateFolder(identity, req.Name); err != nil {
		respondUserdataError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"success": true, "name": req.Name})
}

// DeleteFolder removes one of the caller's folders and its contents.
func (h *FilesHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.store.DeleteFolder(identity, chi.URLParam(r, "folder")); err != nil {
		respondUserdataError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ListFiles returns the files in one of the caller's folders.
func (h *FilesHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	files, err := h.store.ListFiles(identity, chi.URLParam(r, "folder"))
	if err != nil {
		respondUserdataError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"files": files})
}

// UploadFile stores a multipart file upload into a folder. The form field is
// named "file"; the stored name comes from the uploaded filename.
func (h *FilesHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form or file too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	info, err := h.store.SaveFile(identity, chi.URLParam(r, "folder"), header.Filename, file)
	if err != nil {
		respondUserdataError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"success": true, "file": info})
}

// DownloadFile streams a stored file back to the caller.
func (h *FilesHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	f, info, err := h.store.OpenFile(identity, chi.URLParam(r, "folder"), chi.URLParam(r, "file"))
	if err != nil {
		respondUserdataError(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size))
	w.WriteHeader(http.StatusOK)
	io.Copy(w, f)
}

// DeleteFile removes one stored file.
func (h *FilesHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.store.DeleteFile(identity, chi.URLParam(r, "folder"), chi.URLParam(r, "file")); err != nil {
		respondUserdataError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
