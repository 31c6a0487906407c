package notifications

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"student-dashboard/internal/shared/server/middleware"
)

func newTestRouter(t *testing.T) (*gin.Engine, *MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := NewMemoryRepo(0)
	router := gin.New()
	router.Use(middleware.Auth(nil))
	NewHandler(NewService(repo)).RegisterRoutes(router.Group("/api/v1"))
	return router, repo
}

func doRequest(t *testing.T, router http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-Guest-Id", "test-guest")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeView(t *testing.T, resp *httptest.ResponseRecorder) View {
	t.Helper()
	var view View
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	return view
}

func TestHandlerUnreadFilterKeepsGlobalCount(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := doRequest(t, router, http.MethodGet, "/api/v1/notifications?filter=read")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	view := decodeView(t, resp)
	if len(view.Items) != 4 {
		t.Fatalf("expected 4 read items, got %d", len(view.Items))
	}
	if view.UnreadCount != 3 {
		t.Fatalf("expected unread count 3 under read filter, got %d", view.UnreadCount)
	}
}

func TestHandlerMarkAllReadReturnsFreshView(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := doRequest(t, router, http.MethodPost, "/api/v1/notifications/read-all?filter=unread")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	view := decodeView(t, resp)
	if len(view.Items) != 0 || view.UnreadCount != 0 {
		t.Fatalf("expected empty unread view, got %+v", view)
	}

	resp = doRequest(t, router, http.MethodGet, "/api/v1/notifications/unread-count")
	var body struct {
		UnreadCount int `json:"unreadCount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.UnreadCount != 0 {
		t.Fatalf("expected 0, got %d", body.UnreadCount)
	}
}

func TestHandlerClickSurfacesTargetLink(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := doRequest(t, router, http.MethodPost, "/api/v1/notifications/guest:test-guest-n3/click")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var res ClickResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.TargetLink != "/cv" || !res.MarkedRead {
		t.Fatalf("unexpected click result %+v", res)
	}
}

func TestHandlerDoubleClearIsBenign(t *testing.T) {
	router, _ := newTestRouter(t)

	for i := 0; i < 2; i++ {
		resp := doRequest(t, router, http.MethodDelete, "/api/v1/notifications/guest:test-guest-n1")
		if resp.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i, resp.Code)
		}
		if view := decodeView(t, resp); len(view.Items) != 6 {
			t.Fatalf("attempt %d: expected 6 items, got %d", i, len(view.Items))
		}
	}
}

func TestHandlerRejectsUnknownFilter(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := doRequest(t, router, http.MethodGet, "/api/v1/notifications?filter=starred")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestHandlerSurfacesBackendFailure(t *testing.T) {
	router, repo := newTestRouter(t)
	repo.Fail = failOn("list")

	resp := doRequest(t, router, http.MethodGet, "/api/v1/notifications")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}
