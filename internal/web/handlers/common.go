package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fasinfasi/Face-Lock-System/internal/faceauth"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// authErrorResponse is the structured failure body for enrollment and
// verification endpoints.
type authErrorResponse struct {
	Success             bool   `json:"success"`
	Error               string `json:"error"`
	ErrorKind           string `json:"error_kind"`
	Retryable           bool   `json:"retryable"`
	ConflictingIdentity string `json:"conflicting_identity,omitempty"`
}

// respondAuthError maps a faceauth error onto an HTTP status and a
// structured JSON body. Unknown errors come out as a 500 with a generic
// message; internal detail never reaches the client.
func respondAuthError(w http.ResponseWriter, err error) {
	kind := faceauth.KindOf(err)
	if kind == "" {
		respondJSON(w, http.StatusInternalServerError, authErrorResponse{
			Error:     "internal error",
			ErrorKind: string(faceauth.KindStore),
		})
		return
	}

	resp := authErrorResponse{
		Error:     err.Error(),
		ErrorKind: string(kind),
		Retryable: faceauth.Retryable(kind),
	}
	var fe *faceauth.Error
	if errors.As(err, &fe) {
		resp.ConflictingIdentity = fe.ConflictingIdentity
		resp.Error = fe.Message
	}
	respondJSON(w, statusForKind(kind), resp)
}

// statusForKind maps error kinds onto HTTP status codes.
func statusForKind(kind faceauth.Kind) int {
	switch kind {
	case faceauth.KindValidation, faceauth.KindNoFace,
		faceauth.KindMultipleFaces, faceauth.KindLowQualityFace:
		return http.StatusBadRequest
	case faceauth.KindDuplicateIdentity, faceauth.KindFaceAlreadyRegistered:
		return http.StatusConflict
	case faceauth.KindNoRegisteredUsers:
		return http.StatusNotFound
	case faceauth.KindExtractor:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
