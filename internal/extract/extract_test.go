package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"student-dashboard/internal/shared/failure"
	"student-dashboard/internal/shared/storage/object/local"
)

func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&body, `<w:p><w:r><w:t>%s</w:t></w:r></w:p>`, p)
	}
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="xml" ContentType="application/xml"/></Types>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body.String() + `</w:body></w:document>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// buildPDF writes a one-page PDF showing text in Helvetica.
func buildPDF(text string) []byte {
	stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestTextDocx(t *testing.T) {
	data := buildDocx(t, "Ada Lovelace", "Analytical Engine programmer")
	text, err := Text(context.Background(), data, MimeDOCX, "cv.docx")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if text != "Ada Lovelace\nAnalytical Engine programmer" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestTextDocxReportedAsZip(t *testing.T) {
	data := buildDocx(t, "Hello")
	text, err := Text(context.Background(), data, "application/zip", "cv.docx")
	if err != nil {
		t.Fatalf("expected docx to extract from zip mime, got error: %v", err)
	}
	if text != "Hello" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestTextPDF(t *testing.T) {
	text, err := Text(context.Background(), buildPDF("Hello CV"), MimePDF, "cv.pdf")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if !strings.Contains(text, "Hello") {
		t.Fatalf("expected extracted text to contain Hello, got %q", text)
	}
}

func TestTextRejectsPlainZipAndLegacyDoc(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("notes.txt")
	_, _ = w.Write([]byte("hello"))
	_ = zw.Close()

	for _, tc := range []struct {
		data []byte
		mime string
	}{
		{buf.Bytes(), "application/zip"},
		{[]byte{0xD0, 0xCF, 0x11, 0xE0}, MimeDOC},
	} {
		_, err := Text(context.Background(), tc.data, tc.mime, "x")
		if !errors.Is(err, ErrUnsupported) {
			t.Fatalf("mime %s: expected ErrUnsupported, got %v", tc.mime, err)
		}
		if failure.StatusCode(err) != 415 {
			t.Fatalf("expected 415, got %d", failure.StatusCode(err))
		}
	}
}

func TestFromStoreTruncates(t *testing.T) {
	ctx := context.Background()
	store := local.New(t.TempDir())
	obj, err := store.Save(ctx, "user:1", "cv.docx", bytes.NewReader(buildDocx(t, strings.Repeat("x", 50))))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	p, err := FromStore(ctx, store, obj.Key, MimeDOCX, "cv.docx", 10)
	if err != nil {
		t.Fatalf("FromStore: %v", err)
	}
	if !p.Truncated || p.Text != strings.Repeat("x", 10) {
		t.Fatalf("unexpected preview %+v", p)
	}
}
