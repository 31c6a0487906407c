package object

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// Sniff reads up to 512 bytes to detect the content type and returns a reader
// that replays them ahead of the rest of r.
func Sniff(r io.Reader) (string, io.Reader, error) {
	var head [512]byte
	n, err := io.ReadFull(r, head[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("read sniff: %w", err)
	}
	buf := head[:n]
	return http.DetectContentType(buf), io.MultiReader(bytes.NewReader(buf), r), nil
}
