package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fasinfasi/Face-Lock-System/internal/database"
	"github.com/fasinfasi/Face-Lock-System/internal/faceauth"
	"github.com/fasinfasi/Face-Lock-System/internal/imaging"
	"github.com/fasinfasi/Face-Lock-System/internal/userdata"
	"github.com/fasinfasi/Face-Lock-System/internal/web/middleware"
)

// rejectedLoginMessage is deliberately generic: a failed verification leaks
// neither the closest identity nor how close the face came.
const rejectedLoginMessage = "Face not recognized. Access denied."

// AuthHandler handles enrollment, login and account endpoints.
type AuthHandler struct {
	service        *faceauth.Service
	store          database.UserStore
	sessionManager *middleware.SessionManager
	userData       *userdata.Store
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(
	service *faceauth.Service,
	store database.UserStore,
	sm *middleware.SessionManager,
	ud *userdata.Store,
) *AuthHandler {
	return &AuthHandler{
		service:        service,
		store:          store,
		sessionManager: sm,
		userData:       ud,
	}
}

// decodeImage turns a base64 request field into normalized image bytes.
func decodeImage(data string) ([]byte, error) {
	raw, err := imaging.DecodeBase64(data)
	if err != nil {
		return nil, err
	}
	return imaging.Normalize(raw)
}

// registerRequest carries the enrollment payload.
type registerRequest struct {
	Username string `json:"username"`
	Image    string `json:"image"` // base64, optionally with data-URL prefix
}

// RegisterResponse reports a successful enrollment.
type RegisterResponse struct {
	Success      bool   `json:"success"`
	Identity     string `json:"identity"`
	RegisteredAt string `json:"registered_at"`
}

// Register enrolls a new user from a single-face image.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Username == "" || req.Image == "" {
		respondError(w, http.StatusBadRequest, "username and image are required")
		return
	}

	image, err := decodeImage(req.Image)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid image data")
		return
	}

	result, err := h.service.Enroll(r.Context(), req.Username, image)
	if err != nil {
		log.Printf("enrollment rejected for %q: %v", sanitizeForLog(req.Username), err)
		respondAuthError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, RegisterResponse{
		Success:      true,
		Identity:     result.Identity,
		RegisteredAt: result.RegisteredAt.Format(time.RFC3339),
	})
}

// loginRequest carries the verification payload. No identity claim: the
// scan decides who the face belongs to.
type loginRequest struct {
	Image string `json:"image"`
}

// LoginResponse reports a successful verification.
type LoginResponse struct {
	Success    bool    `json:"success"`
	Identity   string  `json:"identity"`
	Confidence float64 `json:"confidence"`
	Updated    bool    `json:"updated"`
	SessionID  string  `json:"session_id"`
	ExpiresAt  string  `json:"expires_at"`
}

// Login verifies a face against every enrolled user and opens a session on
// acceptance.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Image == "" {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}

	image, err := decodeImage(req.Image)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid image data")
		return
	}

	result, err := h.service.Verify(r.Context(), image)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	if !result.Success {
		respondJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false,
			"error":   rejectedLoginMessage,
		})
		return
	}

	session, err := h.sessionManager.CreateSession(result.Identity)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	h.sessionManager.SetSessionCookie(w, session)

	respondJSON(w, http.StatusOK, LoginResponse{
		Success:    true,
		Identity:   result.Identity,
		Confidence: result.Confidence,
		Updated:    result.Updated,
		SessionID:  session.ID,
		ExpiresAt:  session.ExpiresAt.Format(time.RFC3339),
	})
}

// detectFaceRequest carries a preview frame.
type detectFaceRequest struct {
	Image string `json:"image"`
	// Mode selects the feedback detail: "login" returns bounding boxes only,
	// "register" adds the enrollment quality verdict per face.
	Mode string `json:"mode"`
}

type detectedFace struct {
	BBox          []float64 `json:"bbox"`
	DetScore      float64   `json:"det_score"`
	QualityOK     *bool     `json:"quality_ok,omitempty"`
	QualityReason string    `json:"quality_reason,omitempty"`
}

// DetectFaceResponse is the preview feedback payload.
type DetectFaceResponse struct {
	Success    bool           `json:"success"`
	FacesCount int            `json:"faces_count"`
	Faces      []detectedFace `json:"faces"`
}

// DetectFace gives the camera UI framing feedback without touching the user
// store or making any authentication decision.
func (h *AuthHandler) DetectFace(w http.ResponseWriter, r *http.Request) {
	var req detectFaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Image == "" {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}
	mode := req.Mode
	if mode == "" {
		mode = "login"
	}
	if mode != "login" && mode != "register" {
		respondError(w, http.StatusBadRequest, "mode must be login or register")
		return
	}

	image, err := decodeImage(req.Image)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid image data")
		return
	}

	faces, err := h.service.DetectFaces(r.Context(), image)
	if err != nil {
		respondAuthError(w, err)
		return
	}

	resp := DetectFaceResponse{
		Success:    true,
		FacesCount: len(faces),
		Faces:      make([]detectedFace, 0, len(faces)),
	}
	for i := range faces {
		df := detectedFace{
			BBox:     faces[i].BBox,
			DetScore: faces[i].DetScore,
		}
		if mode == "register" {
			ok, reason := faceauth.CheckFaceQuality(faces[i])
			df.QualityOK = &ok
			df.QualityReason = reason
		}
		resp.Faces = append(resp.Faces, df)
	}
	respondJSON(w, http.StatusOK, resp)
}

// Logout handles user logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := h.sessionManager.GetSessionFromRequest(r)
	if session != nil {
		h.sessionManager.DeleteSession(session.ID)
	}

	h.sessionManager.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// StatusResponse represents the auth status response.
type StatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Identity      string `json:"identity,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

// Status checks if the user is authenticated by validating the session.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := h.sessionManager.GetSessionFromRequest(r)
	if session == nil {
		respondJSON(w, http.StatusOK, StatusResponse{Authenticated: false})
		return
	}
	respondJSON(w, http.StatusOK, StatusResponse{
		Authenticated: true,
		Identity:      session.Identity,
		ExpiresAt:     session.ExpiresAt.Format(time.RFC3339),
	})
}

// DeleteUser removes the caller's own account: the user record with its
// embeddings, any stored files and every open session for the identity.
func (h *AuthHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	identity := faceauth.NormalizeIdentity(chi.URLParam(r, "identity"))
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if session.Identity != identity {
		respondError(w, http.StatusForbidden, "cannot delete another user's account")
		return
	}

	deleted, err := h.store.DeleteUser(r.Context(), identity)
	if err != nil {
		log.Printf("failed to delete user %q: %v", sanitizeForLog(identity), err)
		respondError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	if h.userData != nil {
		if err := h.userData.DeleteAll(identity); err != nil {
			// The account is gone; leftover files are logged, not fatal.
			log.Printf("failed to delete user data for %q: %v", sanitizeForLog(identity), err)
		}
	}
	h.sessionManager.DeleteSessionsForIdentity(identity)
	h.sessionManager.ClearSessionCookie(w)

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
