package cv

import (
	"strings"

	"student-dashboard/internal/extract"
	"student-dashboard/internal/shared/util"
)

// MaxFileSize is the largest accepted CV, inclusive.
const MaxFileSize = 5 << 20

var allowedMimeTypes = map[string]struct{}{
	extract.MimePDF:  {},
	extract.MimeDOC:  {},
	extract.MimeDOCX: {},
}

// Validate gates an upload before any progress is reported.
func Validate(info FileInfo) error {
	if _, err := util.SanitizeFileName(info.Name); err != nil {
		return ErrFileName
	}
	if _, ok := allowedMimeTypes[normalizeMime(info.MimeType)]; !ok {
		return ErrUnsupported
	}
	if info.Size <= 0 {
		return ErrEmptyFile
	}
	if info.Size > MaxFileSize {
		return ErrTooLarge
	}
	return nil
}

func normalizeMime(raw string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(raw, ";")[0]))
}
