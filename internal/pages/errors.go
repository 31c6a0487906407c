package pages

import (
	"net/http"

	"student-dashboard/internal/shared/failure"
)

var (
	ErrUnknownPage = failure.NotFound("unknown page")
	ErrNotMounted  = failure.NotFound("page is not mounted")

	// ErrNotImplemented is what the real page API answers until a backend exists.
	ErrNotImplemented = failure.Transport(http.StatusNotImplemented, "page API is not available", nil)
)
