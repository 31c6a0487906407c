// Package extract turns stored CV documents into plain preview text.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"student-dashboard/internal/shared/failure"
	"student-dashboard/internal/shared/storage/object"
)

const (
	MimePDF  = "application/pdf"
	MimeDOC  = "application/msword"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	// DefaultLimit caps preview length in characters.
	DefaultLimit = 4000
)

// ErrUnsupported is returned for documents that have no text preview.
var ErrUnsupported = &failure.Error{
	Kind:    failure.KindValidation,
	Status:  http.StatusUnsupportedMediaType,
	Message: "preview is not available for this file type",
}

// Preview is the leading text of a document.
type Preview struct {
	Text      string `json:"text"`
	Truncated bool   `json:"truncated"`
}

// FromStore reads the object at key and returns at most limit characters of its text.
func FromStore(ctx context.Context, store object.ObjectStore, key, mimeType, fileName string, limit int) (Preview, error) {
	body, err := store.Open(ctx, key)
	if err != nil {
		return Preview{}, fmt.Errorf("preview key=%s: %w", key, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return Preview{}, fmt.Errorf("preview key=%s: read: %w", key, err)
	}
	text, err := Text(ctx, raw, mimeType, fileName)
	if err != nil {
		return Preview{}, err
	}
	return truncate(text, limit), nil
}

// Text extracts the full text of an in-memory document.
func Text(ctx context.Context, data []byte, mimeType, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch normalizeMimeType(mimeType, fileName, data) {
	case MimePDF:
		return extractPDF(data)
	case MimeDOCX:
		return extractDOCX(data)
	default:
		return "", ErrUnsupported
	}
}

func truncate(text string, limit int) Preview {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if utf8.RuneCountInString(text) <= limit {
		return Preview{Text: text}
	}
	runes := []rune(text)
	return Preview{Text: string(runes[:limit]), Truncated: true}
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		if b.Len() > 0 && text != "" {
			b.WriteString("\n")
		}
		b.WriteString(text)
	}
	return strings.TrimSpace(b.String()), nil
}

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}
	defer doc.Close()
	return stripDocxXML(doc.Editable().GetContent()), nil
}

// stripDocxXML keeps character data and turns paragraph and line breaks into newlines.
func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return strings.TrimSpace(buf.String())
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.EndElement:
			if (t.Name.Local == "p" || t.Name.Local == "br") && buf.Len() > 0 {
				buf.WriteString("\n")
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// normalizeMimeType resolves browsers reporting DOCX uploads as zip.
func normalizeMimeType(mimeType, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if clean != "application/zip" && clean != "application/octet-stream" {
		return clean
	}
	if isWordZip(data) {
		return MimeDOCX
	}
	if clean == "application/octet-stream" && strings.EqualFold(filepath.Ext(fileName), ".pdf") && bytes.HasPrefix(data, []byte("%PDF-")) {
		return MimePDF
	}
	return clean
}

func isWordZip(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return true
		}
	}
	return false
}
