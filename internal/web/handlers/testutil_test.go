package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/fasinfasi/Face-Lock-System/internal/database/mock"
	"github.com/fasinfasi/Face-Lock-System/internal/extractor"
	"github.com/fasinfasi/Face-Lock-System/internal/faceauth"
	"github.com/fasinfasi/Face-Lock-System/internal/userdata"
	"github.com/fasinfasi/Face-Lock-System/internal/web/middleware"
)

// stubExtractor returns canned faces without an HTTP round trip.
type stubExtractor struct {
	faces []extractor.Face
	err   error
}

func (s *stubExtractor) ExtractFaces(ctx context.Context, image []byte) ([]extractor.Face, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.faces, nil
}

// faceWith builds a detected face carrying the given embedding. No landmarks
// means the quality gate passes.
func faceWith(embedding []float32) extractor.Face {
	return extractor.Face{
		Dim:       len(embedding),
		Embedding: embedding,
		BBox:      []float64{10, 10, 110, 110},
		DetScore:  0.99,
	}
}

// testEnv bundles the handlers under test with their collaborators.
type testEnv struct {
	auth      *AuthHandler
	files     *FilesHandler
	store     *mock.MockUserStore
	extractor *stubExtractor
	sessions  *middleware.SessionManager
	userData  *userdata.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := mock.NewMockUserStore()
	ex := &stubExtractor{}
	sm := middleware.NewSessionManager("test-secret")
	t.Cleanup(sm.Stop)

	ud, err := userdata.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create userdata store: %v", err)
	}

	service := faceauth.NewService(store, ex, faceauth.DefaultPolicy(), nil, true)
	return &testEnv{
		auth:      NewAuthHandler(service, store, sm, ud),
		files:     NewFilesHandler(ud),
		store:     store,
		extractor: ex,
		sessions:  sm,
		userData:  ud,
	}
}

// testImageBase64 encodes a small real JPEG so decodeImage succeeds.
func testImageBase64(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// jsonRequest builds a request with a JSON-encoded body.
func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("failed to encode request body: %v", err)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams attaches chi URL parameters to a request.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// requestWithSession puts an authenticated session into the request context,
// the way RequireAuth would.
func requestWithSession(t *testing.T, r *http.Request, sm *middleware.SessionManager, identity string) *http.Request {
	t.Helper()
	session, err := sm.CreateSession(identity)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return r.WithContext(middleware.SetSessionInContext(r.Context(), session))
}

func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, want int) {
	t.Helper()
	if recorder.Code != want {
		t.Fatalf("expected status %d, got %d (body: %s)", want, recorder.Code, recorder.Body.String())
	}
}

// parseJSONResponse decodes the recorded body into out.
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, out any) {
	t.Helper()
	if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json content type, got %q", ct)
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to parse response body %q: %v", recorder.Body.String(), err)
	}
}

// assertErrorKind checks the structured failure body.
func assertErrorKind(t *testing.T, recorder *httptest.ResponseRecorder, kind faceauth.Kind) {
	t.Helper()
	var resp authErrorResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Success {
		t.Error("failure response must not claim success")
	}
	if resp.ErrorKind != string(kind) {
		t.Errorf("expected error kind %q, got %q", kind, resp.ErrorKind)
	}
}
