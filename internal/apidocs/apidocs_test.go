package apidocs

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestDocsAndOpenAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/api"))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/docs", nil))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "InterView AI API") {
		t.Fatalf("docs: %d", resp.Code)
	}

	apiResp := httptest.NewRecorder()
	r.ServeHTTP(apiResp, httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil))
	var doc struct {
		OpenAPI string                    `json:"openapi"`
		Paths   map[string]map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(apiResp.Body.Bytes(), &doc); err != nil {
		t.Fatalf("openapi.json is not valid json: %v", err)
	}
	if _, ok := doc.Paths["/api/sessions/{id}/answer"]["post"]; !ok {
		t.Fatalf("expected answer endpoint described")
	}
}
