package cv

import "time"

// File is the single CV a user has on record.
type File struct {
	ID         string
	UserID     string
	FileName   string
	FileSize   int64
	MimeType   string
	UploadedAt time.Time
	// FileURL is the transient blob handle serving the content.
	FileURL    string
	StorageKey string
}

// FileInfo describes a file offered for upload, before any bytes are stored.
type FileInfo struct {
	Name     string
	Size     int64
	MimeType string
}
