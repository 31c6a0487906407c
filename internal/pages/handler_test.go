package pages

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"student-dashboard/internal/resource"
	"student-dashboard/internal/shared/server/middleware"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := NewRegistry(NewMockAPI(0), 0)
	t.Cleanup(func() { reg.Forget("guest:test-guest") })
	router := gin.New()
	router.Use(middleware.Auth(nil))
	NewHandler(reg).RegisterRoutes(router.Group("/api/v1"))
	return router, reg
}

func doRequest(t *testing.T, router http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-Guest-Id", "test-guest")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeSnapshot(t *testing.T, resp *httptest.ResponseRecorder) Snapshot {
	t.Helper()
	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snap
}

func TestHandlerGetWaitReturnsReadyPage(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := doRequest(t, router, http.MethodGet, "/api/v1/pages/profile?wait=1")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	snap := decodeSnapshot(t, resp)
	if snap.Status != resource.StatusReady || snap.Page != PageProfile || snap.Data == nil {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestHandlerReloadBumpsSequence(t *testing.T) {
	router, _ := newTestRouter(t)

	first := decodeSnapshot(t, doRequest(t, router, http.MethodGet, "/api/v1/pages/journey?wait=true"))
	resp := doRequest(t, router, http.MethodPost, "/api/v1/pages/journey/reload?wait=1")
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	second := decodeSnapshot(t, resp)
	if second.Seq <= first.Seq || second.Status != resource.StatusReady {
		t.Fatalf("expected a newer ready snapshot, got %+v after %+v", second, first)
	}
}

func TestHandlerUnknownPageIsNotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	resp := doRequest(t, router, http.MethodGet, "/api/v1/pages/settings")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestHandlerUnmount(t *testing.T) {
	router, _ := newTestRouter(t)

	if resp := doRequest(t, router, http.MethodDelete, "/api/v1/pages/matching"); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unmounted page, got %d", resp.Code)
	}
	doRequest(t, router, http.MethodGet, "/api/v1/pages/matching?wait=1")
	if resp := doRequest(t, router, http.MethodDelete, "/api/v1/pages/matching"); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}

	resp := doRequest(t, router, http.MethodGet, "/api/v1/pages")
	var body struct {
		Mounted []Page `json:"mounted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Mounted) != 0 {
		t.Fatalf("expected no mounted pages, got %v", body.Mounted)
	}
}
