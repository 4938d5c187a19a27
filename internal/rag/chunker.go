// ABOUTME: Splits extracted text into overlapping chunks for embedding
// ABOUTME: Prefers paragraph and whitespace boundaries over hard cuts

package rag

import "strings"

// Chunker splits text into fixed-size chunks with overlap between
// consecutive chunks so context isn't lost at the seams.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker. Overlap must be smaller than size; invalid
// values fall back to 1000/100.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 || overlap < 0 || overlap >= size {
		size, overlap = 1000, 100
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split divides text into chunks of at most the configured size. Each chunk
// after the first begins with the last overlap characters of its
// predecessor. Cut points prefer a paragraph break, then any whitespace,
// within the final quarter of the window.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= c.size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			chunk := strings.TrimSpace(text[start:])
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		cut := c.findCut(text, start, end)
		chunk := strings.TrimSpace(text[start:cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - c.overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}

// findCut picks a cut point at or before end, preferring a paragraph break,
// then whitespace, searching back no further than a quarter of the window.
func (c *Chunker) findCut(text string, start, end int) int {
	floor := end - c.size/4
	if floor < start+1 {
		floor = start + 1
	}

	if i := strings.LastIndex(text[floor:end], "\n\n"); i >= 0 {
		return floor + i
	}
	if i := strings.LastIndexAny(text[floor:end], " \t\n"); i >= 0 {
		return floor + i
	}
	return end
}
