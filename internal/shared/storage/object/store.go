package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Open for keys that do not exist.
var ErrNotFound = errors.New("object not found")

// Object describes a stored object.
type Object struct {
	Key      string
	Size     int64
	MimeType string
}

// ObjectStore defines the contract for saving, retrieving and deleting binary objects.
type ObjectStore interface {
	// Save stores r under a fresh key in the user's namespace. MimeType is sniffed from the content.
	Save(ctx context.Context, userID, fileName string, r io.Reader) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
