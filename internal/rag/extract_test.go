// ABOUTME: Tests for plain-text extraction from uploads
// ABOUTME: Covers type gating, txt passthrough, markdown flattening, and PDF

package rag

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestFileType(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"notes.txt", "txt"},
		{"README.MD", "md"},
		{"archive.tar.gz", "gz"},
		{"no-extension", ""},
		{"trailing-dot.", ""},
	}

	for _, tt := range tests {
		if got := FileType(tt.filename); got != tt.want {
			t.Errorf("FileType(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestExtractor_RejectsUnsupportedType(t *testing.T) {
	e := NewExtractor([]string{"txt", "md"})

	_, err := e.Extract("malware.exe", []byte("content"))
	if !errors.Is(err, ErrUnsupportedFileType) {
		t.Errorf("Extract(.exe) error = %v, want ErrUnsupportedFileType", err)
	}

	_, err = e.Extract("document.pdf", []byte("content"))
	if !errors.Is(err, ErrUnsupportedFileType) {
		t.Errorf("Extract(.pdf) error = %v, want ErrUnsupportedFileType", err)
	}
}

func TestExtractor_TxtPassthrough(t *testing.T) {
	e := NewExtractor([]string{"txt"})

	got, err := e.Extract("notes.txt", []byte("plain text\nwith lines"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "plain text\nwith lines" {
		t.Errorf("Extract(txt) = %q", got)
	}
}

func TestExtractor_CaseInsensitiveExtension(t *testing.T) {
	e := NewExtractor([]string{"txt"})

	if _, err := e.Extract("NOTES.TXT", []byte("x")); err != nil {
		t.Errorf("Extract(uppercase ext) error = %v", err)
	}
}

func TestExtractor_MarkdownFlattening(t *testing.T) {
	e := NewExtractor([]string{"md"})

	src := `# Project Notes

This is **bold** and this is *italic* text.

- first item
- second item

` + "```go\nfmt.Println(\"hello\")\n```" + `

Final [link text](https://example.com) paragraph.
`

	got, err := e.Extract("notes.md", []byte(src))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	// Text content survives
	for _, want := range []string{"Project Notes", "bold", "italic", "first item", "second item", "hello", "link text", "Final"} {
		if !strings.Contains(got, want) {
			t.Errorf("flattened markdown missing %q:\n%s", want, got)
		}
	}

	// Formatting syntax is gone
	for _, unwanted := range []string{"**", "# ", "```", "](https"} {
		if strings.Contains(got, unwanted) {
			t.Errorf("flattened markdown still contains %q:\n%s", unwanted, got)
		}
	}
}

func TestExtractor_MarkdownKeepsBlockBoundaries(t *testing.T) {
	e := NewExtractor([]string{"md"})

	src := "First paragraph.\n\nSecond paragraph."
	got, err := e.Extract("notes.md", []byte(src))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if !strings.Contains(got, "\n\n") {
		t.Errorf("paragraph boundary lost in %q", got)
	}
}

// buildPDF assembles a one-page PDF showing the given text. Object offsets
// in the xref table are computed while writing so the file is well formed.
func buildPDF(t *testing.T, content string) []byte {
	t.Helper()

	stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", content)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects)+1)
	for i, obj := range objects {
		offsets[i+1] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(objects); i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtractor_PDF(t *testing.T) {
	e := NewExtractor([]string{"pdf"})

	src := buildPDF(t, "incident response runbook")
	got, err := e.Extract("runbook.pdf", src)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !strings.Contains(got, "incident response runbook") {
		t.Errorf("extracted pdf text = %q, want page text", got)
	}
}

func TestExtractor_MalformedPDF(t *testing.T) {
	e := NewExtractor([]string{"pdf"})

	_, err := e.Extract("broken.pdf", []byte("this is not a pdf file at all"))
	if err == nil {
		t.Fatal("Extract() should fail on a malformed pdf")
	}
	if errors.Is(err, ErrUnsupportedFileType) {
		t.Errorf("Extract() error = %v, pdf is a supported type", err)
	}
}

func TestExtractor_EmptyMarkdown(t *testing.T) {
	e := NewExtractor([]string{"md"})

	got, err := e.Extract("empty.md", []byte(""))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "" {
		t.Errorf("Extract(empty) = %q, want empty", got)
	}
}
