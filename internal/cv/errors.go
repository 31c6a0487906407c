package cv

import (
	"net/http"

	"student-dashboard/internal/shared/failure"
)

var (
	ErrNotFound = failure.NotFound("no CV on record")

	ErrFileName    = failure.Validation("a valid file name is required")
	ErrEmptyFile   = failure.Validation("file is empty")
	ErrUnsupported = &failure.Error{
		Kind:    failure.KindValidation,
		Status:  http.StatusUnsupportedMediaType,
		Message: "only PDF, DOC and DOCX files are accepted",
	}
	ErrTooLarge = &failure.Error{
		Kind:    failure.KindValidation,
		Status:  http.StatusRequestEntityTooLarge,
		Message: "file must be 5 MB or smaller",
	}
	ErrCancelled = &failure.Error{
		Kind:    failure.KindTimeout,
		Status:  http.StatusRequestTimeout,
		Message: "upload cancelled",
	}
)
