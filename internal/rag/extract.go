// ABOUTME: Plain-text extraction from uploaded documents
// ABOUTME: Handles txt passthrough, markdown via goldmark, and PDF pages

package rag

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ErrUnsupportedFileType is returned for uploads whose extension is not in
// the allowed set.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// Extractor converts uploaded files into plain text for chunking.
type Extractor struct {
	allowed map[string]bool
}

// NewExtractor creates an extractor accepting the given file extensions
// (without dots, e.g. "txt", "md").
func NewExtractor(allowedTypes []string) *Extractor {
	allowed := make(map[string]bool, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[strings.ToLower(strings.TrimPrefix(t, "."))] = true
	}
	return &Extractor{allowed: allowed}
}

// FileType returns the normalized extension for a filename.
func FileType(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// Extract returns the plain text content of the file. Markdown is parsed
// and flattened so formatting syntax doesn't pollute the embeddings.
func (e *Extractor) Extract(filename string, content []byte) (string, error) {
	ft := FileType(filename)
	if !e.allowed[ft] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFileType, ft)
	}

	switch ft {
	case "md", "markdown":
		return markdownToText(content), nil
	case "pdf":
		return pdfToText(content)
	default:
		return string(content), nil
	}
}

// pdfToText extracts the text content of every page, separated by blank
// lines so chunking can find page boundaries.
func pdfToText(src []byte) (text string, err error) {
	// The pdf parser panics on some malformed files instead of returning
	// an error; uploads are untrusted, so contain it here
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parsing pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		return "", fmt.Errorf("parsing pdf: %w", err)
	}

	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extracting pdf page %d: %w", i, err)
		}
		buf.WriteString(content)
		buf.WriteString("\n\n")
	}
	return strings.TrimSpace(buf.String()), nil
}

// markdownToText flattens a markdown document to its text content,
// preserving block boundaries as blank lines.
func markdownToText(src []byte) string {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var buf strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			// Separate block-level nodes so chunking can find boundaries
			if _, isBlock := n.(*ast.Paragraph); isBlock {
				buf.WriteString("\n\n")
			} else if _, isHeading := n.(*ast.Heading); isHeading {
				buf.WriteString("\n\n")
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteString("\n")
			}
		case *ast.FencedCodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(src))
			}
			buf.WriteString("\n\n")
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(src))
			}
			buf.WriteString("\n\n")
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			buf.Write(node.URL(src))
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(buf.String())
}
