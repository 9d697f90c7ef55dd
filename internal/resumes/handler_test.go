package resumes

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"interview-backend/internal/shared/storage/object/local"
)

func newTestRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	svc := &Service{Store: local.New(dir), Repo: NewMemoryRepo()}
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api"))
	return r, dir
}

func multipartBody(t *testing.T, field, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if field != "" {
		fw, err := writer.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestUploadAndGetResume(t *testing.T) {
	router, dir := newTestRouter(t)

	body, ct := multipartBody(t, "file", "jane resume.txt", []byte("Jane Doe\nGo, PostgreSQL, Kubernetes"))
	req := httptest.NewRequest(http.MethodPost, "/api/resumes", body)
	req.Header.Set("Content-Type", ct)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created ResumeResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ResumeID == "" || created.MimeType != "text/plain" || created.Checksum == "" {
		t.Fatalf("unexpected response: %+v", created)
	}
	if _, err := os.Stat(filepath.Join(dir, created.ResumeID, "jane_resume.txt")); err != nil {
		t.Fatalf("expected stored file: %v", err)
	}

	reqGet := httptest.NewRequest(http.MethodGet, "/api/resumes/"+created.ResumeID, nil)
	respGet := httptest.NewRecorder()
	router.ServeHTTP(respGet, reqGet)
	if respGet.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", respGet.Code)
	}
	var got ResumeResponse
	if err := json.NewDecoder(respGet.Body).Decode(&got); err != nil {
		t.Fatalf("decode get response: %v", err)
	}
	if got.Preview != "Jane Doe\nGo, PostgreSQL, Kubernetes" {
		t.Fatalf("unexpected preview %q", got.Preview)
	}
}

func TestUploadRequiresFile(t *testing.T) {
	router, _ := newTestRouter(t)
	body, ct := multipartBody(t, "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/resumes", body)
	req.Header.Set("Content-Type", ct)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	router, _ := newTestRouter(t)
	body, ct := multipartBody(t, "file", "photo.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	req := httptest.NewRequest(http.MethodPost, "/api/resumes", body)
	req.Header.Set("Content-Type", ct)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestGetUnknownResume(t *testing.T) {
	router, _ := newTestRouter(t)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/resumes/nope", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
