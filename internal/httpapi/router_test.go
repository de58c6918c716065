package httpapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Shurtu-gal/studio/internal/httpapi"
	"github.com/Shurtu-gal/studio/internal/importer"
	"github.com/Shurtu-gal/studio/internal/manager"
	"github.com/Shurtu-gal/studio/internal/registry"
	"github.com/Shurtu-gal/studio/internal/settings"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockWorkspace struct {
	mu       sync.Mutex
	contents map[string]string
	saved    []string
	imports  []manager.ImportRequest
	settings settings.Settings
}

func NewMockWorkspace() *MockWorkspace {
	return &MockWorkspace{
		contents: map[string]string{"a.yaml": "asyncapi: 3.0.0\n"},
		settings: settings.Default(),
	}
}

func (m *MockWorkspace) Settings() settings.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

func (m *MockWorkspace) ApplySettings(next settings.Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = next
}

func (m *MockWorkspace) Resources(ctx context.Context) ([]registry.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []registry.Resource
	for id, content := range m.contents {
		result = append(result, registry.Resource{ID: id, URI: id, Language: "yaml", Content: content})
	}
	return result, nil
}

func (m *MockWorkspace) Content(ctx context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.contents[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", registry.ErrNotFound, id)
	}
	return content, nil
}

func (m *MockWorkspace) Import(ctx context.Context, req manager.ImportRequest) (importer.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.URL == "" && req.Path == "" && req.Base64 == "" {
		return importer.Result{}, manager.ErrNoSource
	}
	m.imports = append(m.imports, req)
	return importer.Result{ID: req.ID, Language: "yaml", Size: 3}, nil
}

func (m *MockWorkspace) Diff(ctx context.Context, id string) (string, error) {
	if _, err := m.Content(ctx, id); err != nil {
		return "", err
	}
	return "--- saved/" + id + "\n", nil
}

func (m *MockWorkspace) Save(ctx context.Context, id string) error {
	if _, err := m.Content(ctx, id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, id)
	return nil
}

func serve(t *testing.T, r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestResources(t *testing.T) {
	r := httpapi.NewRouter(NewMockWorkspace(), nil)
	w := serve(t, r, http.MethodGet, "/api/resources", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Resources []struct {
			ID string `json:"id"`
		} `json:"resources"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body.Resources) != 1 || body.Resources[0].ID != "a.yaml" {
		t.Fatalf("unexpected resources %+v", body.Resources)
	}
	if strings.Contains(w.Body.String(), "content") {
		t.Error("summaries must not carry content")
	}
}

func TestContent(t *testing.T) {
	r := httpapi.NewRouter(NewMockWorkspace(), nil)

	w := serve(t, r, http.MethodGet, "/api/resources/content?id=a.yaml", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "asyncapi") {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
	}
	if w := serve(t, r, http.MethodGet, "/api/resources/content?id=missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if w := serve(t, r, http.MethodGet, "/api/resources/content", ""); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestImport(t *testing.T) {
	ws := NewMockWorkspace()
	r := httpapi.NewRouter(ws, nil)

	w := serve(t, r, http.MethodPost, "/api/import", `{"id":"b.yaml","base64":"YTogMQo="}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", w.Code, w.Body.String())
	}
	ws.mu.Lock()
	imports := len(ws.imports)
	ws.mu.Unlock()
	if imports != 1 {
		t.Fatalf("expected one import, got %d", imports)
	}

	if w := serve(t, r, http.MethodPost, "/api/import", `{"id":"c.yaml"}`); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without a source, got %d", w.Code)
	}
	if w := serve(t, r, http.MethodPost, "/api/import", `{`); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed json, got %d", w.Code)
	}
}

func TestDiffAndSave(t *testing.T) {
	ws := NewMockWorkspace()
	r := httpapi.NewRouter(ws, nil)

	w := serve(t, r, http.MethodGet, "/api/diff?id=a.yaml", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"changed":true`) {
		t.Fatalf("unexpected diff response %d %s", w.Code, w.Body.String())
	}

	if w := serve(t, r, http.MethodPost, "/api/save?id=a.yaml", ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w := serve(t, r, http.MethodPost, "/api/save?id=missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if len(ws.saved) != 1 || ws.saved[0] != "a.yaml" {
		t.Fatalf("unexpected saves %v", ws.saved)
	}
}

func TestHealthz(t *testing.T) {
	r := httpapi.NewRouter(NewMockWorkspace(), nil)
	if w := serve(t, r, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestProblemsRoute(t *testing.T) {
	called := false
	problems := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	})
	r := httpapi.NewRouter(NewMockWorkspace(), problems)
	if w := serve(t, r, http.MethodGet, "/api/problems", ""); w.Code != http.StatusTeapot || !called {
		t.Fatalf("expected the problems handler to serve, got %d", w.Code)
	}
}

func TestSettings(t *testing.T) {
	ws := NewMockWorkspace()
	r := httpapi.NewRouter(ws, nil)

	w := serve(t, r, http.MethodPut, "/api/settings", `{"editor":{"savingDelay":40}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if s := ws.Settings(); s.Editor.SavingDelay != 40 || !s.Governance.Show.Hints {
		t.Fatalf("settings not overlaid: %+v", s)
	}

	w = serve(t, r, http.MethodGet, "/api/settings", "")
	var got settings.Settings
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if got.Editor.SavingDelay != 40 {
		t.Fatalf("unexpected settings %+v", got)
	}

	w = serve(t, r, http.MethodPut, "/api/settings", `{"editor":{"savingDelay":-5}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if ws.Settings().Editor.SavingDelay != 40 {
		t.Fatalf("rejected settings were applied")
	}
}
