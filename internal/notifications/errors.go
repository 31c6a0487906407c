package notifications

import (
	"errors"

	"student-dashboard/internal/shared/failure"
)

var (
	ErrNotFound     = failure.NotFound("notification not found")
	ErrInvalidInput = failure.Validation("invalid notification input")
	ErrDuplicateID  = errors.New("notification id already exists")
	ErrMalformed    = failure.Validation("malformed notification payload")
)
