// ABOUTME: Tests for the deterministic hash embedder
// ABOUTME: Verifies determinism, normalization, and token-overlap similarity

package rag

import (
	"context"
	"math"
	"testing"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	ctx := context.Background()
	e := NewHashEmbedder(64)

	first, err := e.Embed(ctx, []string{"the quick brown fox"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	second, err := e.Embed(ctx, []string{"the quick brown fox"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	for i := range first[0] {
		if first[0][i] != second[0][i] {
			t.Fatalf("vectors differ at dimension %d: %v vs %v", i, first[0][i], second[0][i])
		}
	}
}

func TestHashEmbedder_Dimensions(t *testing.T) {
	ctx := context.Background()

	e := NewHashEmbedder(128)
	vecs, err := e.Embed(ctx, []string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("Embed() returned %d vectors, want 3", len(vecs))
	}
	for i, v := range vecs {
		if len(v) != 128 {
			t.Errorf("vector %d has %d dimensions, want 128", i, len(v))
		}
	}

	// Invalid dims fall back to the default
	fallback := NewHashEmbedder(0)
	vecs, _ = fallback.Embed(ctx, []string{"x"})
	if len(vecs[0]) != 256 {
		t.Errorf("fallback dims = %d, want 256", len(vecs[0]))
	}
}

func TestHashEmbedder_Normalized(t *testing.T) {
	ctx := context.Background()
	e := NewHashEmbedder(64)

	vecs, err := e.Embed(ctx, []string{"some words to embed here"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	var sum float64
	for _, v := range vecs[0] {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Errorf("vector norm squared = %v, want 1", sum)
	}
}

func TestHashEmbedder_SimilarTextScoresHigher(t *testing.T) {
	ctx := context.Background()
	e := NewHashEmbedder(256)

	vecs, err := e.Embed(ctx, []string{
		"the cat sat on the mat",
		"the cat sat on a mat",
		"quantum chromodynamics lattice simulation",
	})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	similar := cosine(vecs[0], vecs[1])
	unrelated := cosine(vecs[0], vecs[2])
	if similar <= unrelated {
		t.Errorf("similar pair scored %v, unrelated pair %v", similar, unrelated)
	}
}

func TestHashEmbedder_CaseInsensitive(t *testing.T) {
	ctx := context.Background()
	e := NewHashEmbedder(64)

	vecs, err := e.Embed(ctx, []string{"Hello World", "hello world"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if got := cosine(vecs[0], vecs[1]); got < 0.999 {
		t.Errorf("case variants score %v, want ~1", got)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "simple", input: "a b c", want: []string{"a", "b", "c"}},
		{name: "mixed whitespace", input: "a\tb\nc\r\nd", want: []string{"a", "b", "c", "d"}},
		{name: "lowercased", input: "Hello WORLD", want: []string{"hello", "world"}},
		{name: "empty", input: "", want: nil},
		{name: "only whitespace", input: "  \n\t ", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenize(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
