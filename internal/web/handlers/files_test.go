package handlers

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fasinfasi/Face-Lock-System/internal/userdata"
)

// uploadRequest builds a multipart upload with one "file" part.
func uploadRequest(t *testing.T, target, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestFoldersUnauthorizedWithoutSession(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/folders", nil)
	recorder := httptest.NewRecorder()
	env.files.ListFolders(recorder, req)

	assertStatusCode(t, recorder, http.StatusUnauthorized)
}

func TestFolderLifecycle(t *testing.T) {
	env := newTestEnv(t)

	create := jsonRequest(t, http.MethodPost, "/api/v1/folders", map[string]string{"name": "photos"})
	create = requestWithSession(t, create, env.sessions, "alice")
	recorder := httptest.NewRecorder()
	env.files.CreateFolder(recorder, create)
	assertStatusCode(t, recorder, http.StatusCreated)

	list := httptest.NewRequest(http.MethodGet, "/api/v1/folders", nil)
	list = requestWithSession(t, list, env.sessions, "alice")
	recorder = httptest.NewRecorder()
	env.files.ListFolders(recorder, list)
	assertStatusCode(t, recorder, http.StatusOK)

	var listResp struct {
		Folders []userdata.FolderInfo `json:"folders"`
	}
	parseJSONResponse(t, recorder, &listResp)
	if len(listResp.Folders) != 1 || listResp.Folders[0].Name != "photos" {
		t.Fatalf("unexpected folder list: %+v", listResp.Folders)
	}

	del := httptest.NewRequest(http.MethodDelete, "/api/v1/folders/photos", nil)
	del = requestWithChiParams(del, map[string]string{"folder": "photos"})
	del = requestWithSession(t, del, env.sessions, "alice")
	recorder = httptest.NewRecorder()
	env.files.DeleteFolder(recorder, del)
	assertStatusCode(t, recorder, http.StatusOK)
}

func TestCreateFolderInvalidName(t *testing.T) {
	env := newTestEnv(t)

	req := jsonRequest(t, http.MethodPost, "/api/v1/folders", map[string]string{"name": "../escape"})
	req = requestWithSession(t, req, env.sessions, "alice")
	recorder := httptest.NewRecorder()
	env.files.CreateFolder(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestDeleteMissingFolder(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/folders/ghost", nil)
	req = requestWithChiParams(req, map[string]string{"folder": "ghost"})
	req = requestWithSession(t, req, env.sessions, "alice")
	recorder := httptest.NewRecorder()
	env.files.DeleteFolder(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestFileUploadDownloadDelete(t *testing.T) {
	env := newTestEnv(t)
	if err := env.userData.CreateFolder("alice", "docs"); err != nil {
		t.Fatalf("failed to seed folder: %v", err)
	}
	content := []byte("hello from the vault")

	upload := uploadRequest(t, "/api/v1/folders/docs/files", "note.txt", content)
	upload = requestWithChiParams(upload, map[string]string{"folder": "docs"})
	upload = requestWithSession(t, upload, env.sessions, "alice")
	recorder := httptest.NewRecorder()
	env.files.UploadFile(recorder, upload)
	assertStatusCode(t, recorder, http.StatusCreated)

	download := httptest.NewRequest(http.MethodGet, "/api/v1/folders/docs/files/note.txt", nil)
	download = requestWithChiParams(download, map[string]string{"folder": "docs", "file": "note.txt"})
	download = requestWithSession(t, download, env.sessions, "alice")
	recorder = httptest.NewRecorder()
	env.files.DownloadFile(recorder, download)
	assertStatusCode(t, recorder, http.StatusOK)

	body, _ := io.ReadAll(recorder.Body)
	if !bytes.Equal(body, content) {
		t.Errorf("downloaded content differs: %q", body)
	}
	if cd := recorder.Header().Get("Content-Disposition"); cd == "" {
		t.Error("expected a Content-Disposition header")
	}

	del := httptest.NewRequest(http.MethodDelete, "/api/v1/folders/docs/files/note.txt", nil)
	del = requestWithChiParams(del, map[string]string{"folder": "docs", "file": "note.txt"})
	del = requestWithSession(t, del, env.sessions, "alice")
	recorder = httptest.NewRecorder()
	env.files.DeleteFile(recorder, del)
	assertStatusCode(t, recorder, http.StatusOK)

	recorder = httptest.NewRecorder()
	download2 := httptest.NewRequest(http.MethodGet, "/api/v1/folders/docs/files/note.txt", nil)
	download2 = requestWithChiParams(download2, map[string]string{"folder": "docs", "file": "note.txt"})
	download2 = requestWithSession(t, download2, env.sessions, "alice")
	env.files.DownloadFile(recorder, download2)
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestUploadIntoMissingFolder(t *testing.T) {
	env := newTestEnv(t)

	upload := uploadRequest(t, "/api/v1/folders/ghost/files", "note.txt", []byte("x"))
	upload = requestWithChiParams(upload, map[string]string{"folder": "ghost"})
	upload = requestWithSession(t, upload, env.sessions, "alice")
	recorder := httptest.NewRecorder()
	env.files.UploadFile(recorder, upload)

	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestFilesAreScopedToSessionIdentity(t *testing.T) {
	env := newTestEnv(t)
	if err := env.userData.CreateFolder("alice", "docs"); err != nil {
		t.Fatalf("failed to seed folder: %v", err)
	}

	// Bob lists the same folder name and sees his own empty subtree.
	list := httptest.NewRequest(http.MethodGet, "/api/v1/folders/docs/files", nil)
	list = requestWithChiParams(list, map[string]string{"folder": "docs"})
	list = requestWithSession(t, list, env.sessions, "bob")
	recorder := httptest.NewRecorder()
	env.files.ListFiles(recorder, list)

	assertStatusCode(t, recorder, http.StatusNotFound)
}
