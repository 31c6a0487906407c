package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"student-dashboard/internal/shared/failure"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"validation", failure.Validation("name is required"), http.StatusBadRequest, "validation_error", "name is required"},
		{"wrapped not found", fmt.Errorf("load cv: %w", failure.NotFound("no cv")), http.StatusNotFound, "not_found", "load cv: no cv"},
		{"timeout keeps message", failure.Timeout(errors.New("slow")), http.StatusGatewayTimeout, "timeout", "request timed out"},
		{"client transport", failure.Transport(http.StatusConflict, "already read", nil), http.StatusConflict, "upstream_error", "already read"},
		{"server transport hides detail", failure.Transport(http.StatusBadGateway, "dial tcp 10.0.0.3", nil), http.StatusBadGateway, "upstream_error", "fallback"},
		{"unclassified", errors.New("nil pointer somewhere"), http.StatusInternalServerError, "internal_error", "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := Classify(tt.err, "fallback")
			if status != tt.wantStatus || body.Code != tt.wantCode || body.Message != tt.wantMsg {
				t.Fatalf("Classify = %d %+v, want %d %s %q", status, body, tt.wantStatus, tt.wantCode, tt.wantMsg)
			}
		})
	}
}

func TestClassifyCarriesTransportBody(t *testing.T) {
	err := failure.Transport(http.StatusUnprocessableEntity, "rejected", json.RawMessage(`{"field":"email"}`))

	_, body := Classify(err, "fallback")
	raw, ok := body.Details.(json.RawMessage)
	if !ok || string(raw) != `{"field":"email"}` {
		t.Fatalf("expected raw body as details, got %#v", body.Details)
	}
}

func TestFailureWritesEnvelopeAndRecordsServerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	resp := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(resp)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/cv", nil)

	Failure(c, errors.New("disk on fire"), "could not load cv")

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if !c.IsAborted() || len(c.Errors) != 1 {
		t.Fatalf("expected aborted context with one recorded error, got aborted=%v errors=%d", c.IsAborted(), len(c.Errors))
	}
	var payload ErrorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error.Code != "internal_error" || payload.Error.Message != "could not load cv" {
		t.Fatalf("unexpected body: %+v", payload)
	}
}

func TestFailureLeavesClientErrorsUnrecorded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	resp := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(resp)
	c.Request = httptest.NewRequest(http.MethodDelete, "/api/v1/notifications/n1", nil)

	Failure(c, failure.NotFound("notification not found"), "fallback")

	if resp.Code != http.StatusNotFound || len(c.Errors) != 0 {
		t.Fatalf("expected 404 without recorded errors, got %d with %d", resp.Code, len(c.Errors))
	}
}
