package respond

import (
	"errors"

	"github.com/gin-gonic/gin"

	"student-dashboard/internal/shared/failure"
	"student-dashboard/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if isGuest, ok := c.Get("isGuest"); ok {
		fields["is_guest"] = isGuest
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// Classify maps err to an HTTP status and error body. Server-side failures
// carry fallback instead of internal detail; timeouts keep their message.
func Classify(err error, fallback string) (int, ErrorBody) {
	code := "internal_error"
	switch failure.KindOf(err) {
	case failure.KindValidation:
		code = "validation_error"
	case failure.KindNotFound:
		code = "not_found"
	case failure.KindTimeout:
		code = "timeout"
	case failure.KindTransport:
		code = "upstream_error"
	}
	status := failure.StatusCode(err)
	msg := fallback
	if status < 500 || failure.KindOf(err) == failure.KindTimeout {
		msg = failure.Message(err, fallback)
	}
	body := ErrorBody{Code: code, Message: msg}
	var fe *failure.Error
	if errors.As(err, &fe) && len(fe.Body) > 0 {
		body.Details = fe.Body
	}
	return status, body
}

// Failure maps a classified failure to a standardized error response.
func Failure(c *gin.Context, err error, fallback string) {
	status, body := Classify(err, fallback)
	if status >= 500 {
		_ = c.Error(err)
	}
	Error(c, status, body.Code, body.Message, body.Details)
}
