package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fasinfasi/Face-Lock-System/internal/database"
	"github.com/fasinfasi/Face-Lock-System/internal/extractor"
	"github.com/fasinfasi/Face-Lock-System/internal/faceauth"
	"github.com/fasinfasi/Face-Lock-System/internal/web/middleware"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.faces = []extractor.Face{faceWith([]float32{1, 0})}

	req := jsonRequest(t, http.MethodPost, "/api/v1/register", map[string]string{
		"username": "  Alice  ",
		"image":    testImageBase64(t),
	})
	recorder := httptest.NewRecorder()
	env.auth.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)
	var resp RegisterResponse
	parseJSONResponse(t, recorder, &resp)
	if !resp.Success {
		t.Error("expected success")
	}
	if resp.Identity != "alice" {
		t.Errorf("expected normalized identity 'alice', got %q", resp.Identity)
	}
	if _, err := time.Parse(time.RFC3339, resp.RegisteredAt); err != nil {
		t.Errorf("registered_at not RFC3339: %q", resp.RegisteredAt)
	}

	user, err := env.store.GetUser(req.Context(), "alice")
	if err != nil || user == nil {
		t.Fatalf("expected enrolled user in store, got %v, %v", user, err)
	}
}

func TestRegisterInvalidBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/register", strings.NewReader("{not json"))
	recorder := httptest.NewRecorder()
	env.auth.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestRegisterMissingFields(t *testing.T) {
	env := newTestEnv(t)

	req := jsonRequest(t, http.MethodPost, "/api/v1/register", map[string]string{"username": "alice"})
	recorder := httptest.NewRecorder()
	env.auth.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestRegisterUndecodableImage(t *testing.T) {
	env := newTestEnv(t)

	req := jsonRequest(t, http.MethodPost, "/api/v1/register", map[string]string{
		"username": "alice",
		"image":    "bm90IGFuIGltYWdl", // valid base64, not an image
	})
	recorder := httptest.NewRecorder()
	env.auth.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestRegisterDuplicateIdentity(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddUser(database.UserRecord{
		Identity:   "alice",
		Embeddings: [][]float32{{1, 0}},
	})
	env.extractor.faces = []extractor.Face{faceWith([]float32{0, 1})}

	req := jsonRequest(t, http.MethodPost, "/api/v1/register", map[string]string{
		"username": "alice",
		"image":    testImageBase64(t),
	})
	recorder := httptest.NewRecorder()
	env.auth.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusConflict)
	assertErrorKind(t, recorder, faceauth.KindDuplicateIdentity)
}

func TestRegisterNoFace(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.faces = nil

	req := jsonRequest(t, http.MethodPost, "/api/v1/register", map[string]string{
		"username": "alice",
		"image":    testImageBase64(t),
	})
	recorder := httptest.NewRecorder()
	env.auth.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertErrorKind(t, recorder, faceauth.KindNoFace)
}

func TestRegisterFaceAlreadyEnrolled(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddUser(database.UserRecord{
		Identity:   "bob",
		Embeddings: [][]float32{{1, 0}},
	})
	env.extractor.faces = []extractor.Face{faceWith([]float32{0.999, 0.04})}

	req := jsonRequest(t, http.MethodPost, "/api/v1/register", map[string]string{
		"username": "alice",
		"image":    testImageBase64(t),
	})
	recorder := httptest.NewRecorder()
	env.auth.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusConflict)
	var resp authErrorResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.ErrorKind != string(faceauth.KindFaceAlreadyRegistered) {
		t.Errorf("expected face_already_registered, got %q", resp.ErrorKind)
	}
	if resp.ConflictingIdentity != "bob" {
		t.Errorf("expected conflicting identity 'bob', got %q", resp.ConflictingIdentity)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddUser(database.UserRecord{
		Identity:   "alice",
		Embeddings: [][]float32{{1, 0}},
	})
	env.extractor.faces = []extractor.Face{faceWith([]float32{1, 0})}

	req := jsonRequest(t, http.MethodPost, "/api/v1/login", map[string]string{
		"image": testImageBase64(t),
	})
	recorder := httptest.NewRecorder()
	env.auth.Login(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var resp LoginResponse
	parseJSONResponse(t, recorder, &resp)
	if !resp.Success || resp.Identity != "alice" {
		t.Fatalf("unexpected login response: %+v", resp)
	}
	if resp.Confidence < 0.99 {
		t.Errorf("expected confidence near 1.0, got %f", resp.Confidence)
	}
	if resp.SessionID == "" {
		t.Fatal("expected a session ID")
	}

	if env.sessions.GetSession(resp.SessionID) == nil {
		t.Error("session must be registered with the manager")
	}

	cookies := recorder.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}
}

func TestLoginRejectionIsGeneric(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddUser(database.UserRecord{
		Identity:   "alice",
		Embeddings: [][]float32{{1, 0}},
	})
	env.extractor.faces = []extractor.Face{faceWith([]float32{0, 1})}

	req := jsonRequest(t, http.MethodPost, "/api/v1/login", map[string]string{
		"image": testImageBase64(t),
	})
	recorder := httptest.NewRecorder()
	env.auth.Login(recorder, req)

	assertStatusCode(t, recorder, http.StatusUnauthorized)
	var resp map[string]any
	parseJSONResponse(t, recorder, &resp)
	if resp["success"] != false {
		t.Error("expected success false")
	}
	if resp["error"] != rejectedLoginMessage {
		t.Errorf("rejection must use the generic message, got %v", resp["error"])
	}
	if _, leaked := resp["identity"]; leaked {
		t.Error("rejection must not name the closest identity")
	}
}

func TestLoginEmptyStore(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.faces = []extractor.Face{faceWith([]float32{1, 0})}

	req := jsonRequest(t, http.MethodPost, "/api/v1/login", map[string]string{
		"image": testImageBase64(t),
	})
	recorder := httptest.NewRecorder()
	env.auth.Login(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertErrorKind(t, recorder, faceauth.KindNoRegisteredUsers)
}

func TestDetectFaceLoginMode(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.faces = []extractor.Face{faceWith([]float32{1, 0})}

	req := jsonRequest(t, http.MethodPost, "/api/v1/detect-face", map[string]string{
		"image": testImageBase64(t),
	})
	recorder := httptest.NewRecorder()
	env.auth.DetectFace(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var resp DetectFaceResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.FacesCount != 1 || len(resp.Faces) != 1 {
		t.Fatalf("expected one face, got %+v", resp)
	}
	if resp.Faces[0].QualityOK != nil {
		t.Error("login mode must not include the quality verdict")
	}
}

func TestDetectFaceRegisterMode(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.faces = []extractor.Face{faceWith([]float32{1, 0})}

	req := jsonRequest(t, http.MethodPost, "/api/v1/detect-face", map[string]string{
		"image": testImageBase64(t),
		"mode":  "register",
	})
	recorder := httptest.NewRecorder()
	env.auth.DetectFace(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var resp DetectFaceResponse
	parseJSONResponse(t, recorder, &resp)
	if len(resp.Faces) != 1 {
		t.Fatalf("expected one face, got %+v", resp)
	}
	if resp.Faces[0].QualityOK == nil {
		t.Fatal("register mode must include the quality verdict")
	}
	if !*resp.Faces[0].QualityOK {
		t.Errorf("face without landmarks must pass the gate: %s", resp.Faces[0].QualityReason)
	}
}

func TestDetectFaceInvalidMode(t *testing.T) {
	env := newTestEnv(t)

	req := jsonRequest(t, http.MethodPost, "/api/v1/detect-face", map[string]string{
		"image": testImageBase64(t),
		"mode":  "admin",
	})
	recorder := httptest.NewRecorder()
	env.auth.DetectFace(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)

	t.Run("anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/status", nil)
		recorder := httptest.NewRecorder()
		env.auth.Status(recorder, req)

		assertStatusCode(t, recorder, http.StatusOK)
		var resp StatusResponse
		parseJSONResponse(t, recorder, &resp)
		if resp.Authenticated {
			t.Error("expected unauthenticated status")
		}
	})

	t.Run("authenticated", func(t *testing.T) {
		session, _ := env.sessions.CreateSession("alice")
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/status", nil)
		req.Header.Set("Authorization", "Bearer "+session.ID)
		recorder := httptest.NewRecorder()
		env.auth.Status(recorder, req)

		assertStatusCode(t, recorder, http.StatusOK)
		var resp StatusResponse
		parseJSONResponse(t, recorder, &resp)
		if !resp.Authenticated || resp.Identity != "alice" {
			t.Errorf("unexpected status: %+v", resp)
		}
	})
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	session, _ := env.sessions.CreateSession("alice")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)
	recorder := httptest.NewRecorder()
	env.auth.Logout(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	if env.sessions.GetSession(session.ID) != nil {
		t.Error("session must be deleted on logout")
	}
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddUser(database.UserRecord{
		Identity:   "alice",
		Embeddings: [][]float32{{1, 0}},
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/alice", nil)
	req = requestWithChiParams(req, map[string]string{"identity": "alice"})
	req = requestWithSession(t, req, env.sessions, "alice")
	recorder := httptest.NewRecorder()
	env.auth.DeleteUser(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	user, _ := env.store.GetUser(req.Context(), "alice")
	if user != nil {
		t.Error("user must be removed from the store")
	}
}

func TestDeleteUserForbiddenForOthers(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddUser(database.UserRecord{
		Identity:   "bob",
		Embeddings: [][]float32{{1, 0}},
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/bob", nil)
	req = requestWithChiParams(req, map[string]string{"identity": "bob"})
	req = requestWithSession(t, req, env.sessions, "alice")
	recorder := httptest.NewRecorder()
	env.auth.DeleteUser(recorder, req)

	assertStatusCode(t, recorder, http.StatusForbidden)
	user, _ := env.store.GetUser(req.Context(), "bob")
	if user == nil {
		t.Error("bob's account must survive")
	}
}

func TestDeleteUserNotFound(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/ghost", nil)
	req = requestWithChiParams(req, map[string]string{"identity": "ghost"})
	req = requestWithSession(t, req, env.sessions, "ghost")
	recorder := httptest.NewRecorder()
	env.auth.DeleteUser(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestEnrollLoginDeleteFlow(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.faces = []extractor.Face{faceWith([]float32{0.6, 0.8})}
	image := testImageBase64(t)

	register := jsonRequest(t, http.MethodPost, "/api/v1/register", map[string]string{
		"username": "alice",
		"image":    image,
	})
	recorder := httptest.NewRecorder()
	env.auth.Register(recorder, register)
	assertStatusCode(t, recorder, http.StatusCreated)

	login := jsonRequest(t, http.MethodPost, "/api/v1/login", map[string]string{
		"image": image,
	})
	recorder = httptest.NewRecorder()
	env.auth.Login(recorder, login)
	assertStatusCode(t, recorder, http.StatusOK)

	var loginResp LoginResponse
	parseJSONResponse(t, recorder, &loginResp)
	if loginResp.Identity != "alice" {
		t.Fatalf("expected to log in as alice, got %q", loginResp.Identity)
	}

	del := httptest.NewRequest(http.MethodDelete, "/api/v1/users/alice", nil)
	del = requestWithChiParams(del, map[string]string{"identity": "alice"})
	del = del.WithContext(middleware.SetSessionInContext(del.Context(),
		env.sessions.GetSession(loginResp.SessionID)))
	recorder = httptest.NewRecorder()
	env.auth.DeleteUser(recorder, del)
	assertStatusCode(t, recorder, http.StatusOK)

	// The identity is gone on both axes: the store and the session manager.
	if user, _ := env.store.GetUser(del.Context(), "alice"); user != nil {
		t.Error("user must be removed from the store")
	}
	if env.sessions.GetSession(loginResp.SessionID) != nil {
		t.Error("the login session must be revoked")
	}
}
