package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"go-sentinel/db"
	"go-sentinel/detection"
	"go-sentinel/embedding"
	"go-sentinel/graph"
	"go-sentinel/routes"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("GRAPH_SYNC_URL", "")

	store, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	evaluator := detection.NewEvaluator(store, embedding.NewHashProvider())
	return routes.SetupRouter(store, nil, evaluator, graph.NewMirrorFromEnv())
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIngestAndFetchPost(t *testing.T) {
	r := setupTestRouter(t)

	payload := `{
		"id": "post-1",
		"platform": "bluesky",
		"author_id": "did:a",
		"text": "boycott the rollout",
		"hashtags": ["rollout"],
		"created_at": "2026-03-01T12:00:00Z"
	}`
	if w := doJSON(t, r, http.MethodPost, "/api/posts", payload); w.Code != http.StatusOK {
		t.Fatalf("POST /api/posts = %d, body %s", w.Code, w.Body.String())
	}

	w := doJSON(t, r, http.MethodGet, "/api/posts/post-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET post = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"stance":"anti"`) {
		t.Errorf("stored post not annotated: %s", w.Body.String())
	}

	if w := doJSON(t, r, http.MethodGet, "/api/posts/unknown", ""); w.Code != http.StatusNotFound {
		t.Errorf("GET unknown post = %d, want 404", w.Code)
	}
}

func TestIngestPostValidation(t *testing.T) {
	r := setupTestRouter(t)
	if w := doJSON(t, r, http.MethodPost, "/api/posts", `{"id": "x"}`); w.Code != http.StatusBadRequest {
		t.Errorf("POST without required fields = %d, want 400", w.Code)
	}
}

func TestKeywordLifecycle(t *testing.T) {
	r := setupTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/keywords", `{"term": "dam failure", "category": "infrastructure"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/keywords = %d, body %s", w.Code, w.Body.String())
	}
	id := extractField(t, w.Body.String(), "id")

	if w := doJSON(t, r, http.MethodPost, "/api/keywords", `{"term": "dam failure"}`); w.Code != http.StatusConflict {
		t.Errorf("duplicate term = %d, want 409", w.Code)
	}

	if w := doJSON(t, r, http.MethodGet, "/api/keywords?q=dam", ""); !strings.Contains(w.Body.String(), "dam failure") {
		t.Errorf("filtered list missing term: %s", w.Body.String())
	}

	if w := doJSON(t, r, http.MethodDelete, "/api/keywords/"+id, ""); w.Code != http.StatusOK {
		t.Errorf("DELETE keyword = %d, want 200", w.Code)
	}
	if w := doJSON(t, r, http.MethodDelete, "/api/keywords/"+id, ""); w.Code != http.StatusNotFound {
		t.Errorf("DELETE deleted keyword = %d, want 404", w.Code)
	}
}

func TestCampaignUnknownAlert(t *testing.T) {
	r := setupTestRouter(t)
	if w := doJSON(t, r, http.MethodGet, "/api/alerts/campaign/no-such-id", ""); w.Code != http.StatusNotFound {
		t.Errorf("GET unknown campaign = %d, want 404", w.Code)
	}
}

func TestListAlertsEmpty(t *testing.T) {
	r := setupTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/alerts", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/alerts = %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("empty alert list = %s, want []", w.Body.String())
	}
}

// extractField pulls a top-level string field out of a JSON body.
func extractField(t *testing.T, body, field string) string {
	t.Helper()
	marker := `"` + field + `":"`
	idx := strings.Index(body, marker)
	if idx < 0 {
		t.Fatalf("field %q not in body %s", field, body)
	}
	rest := body[idx+len(marker):]
	return rest[:strings.Index(rest, `"`)]
}
