package ingest

import (
	"strings"
	"testing"
)

func TestChunkShortTextIsSingleChunk(t *testing.T) {
	c := NewChunker(100, 20)
	chunks := c.Chunk("short document")
	if len(chunks) != 1 || chunks[0] != "short document" {
		t.Errorf("expected the text unchanged, got %q", chunks)
	}
}

func TestChunkEmptyText(t *testing.T) {
	c := NewChunker(100, 20)
	if chunks := c.Chunk(""); chunks != nil {
		t.Errorf("expected no chunks for empty text, got %q", chunks)
	}
}

func TestChunkOverlap(t *testing.T) {
	c := NewChunker(10, 4)
	text := "abcdefghijklmnopqrstuvwxyz"

	chunks := c.Chunk(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// step is size-overlap = 6, so each chunk starts 6 runes after the last
	// and repeats the previous chunk's final 4 runes.
	if chunks[0] != "abcdefghij" {
		t.Errorf("first chunk = %q", chunks[0])
	}
	if chunks[1] != "ghijklmnop" {
		t.Errorf("second chunk = %q", chunks[1])
	}
	if !strings.HasSuffix(chunks[0], chunks[1][:4]) {
		t.Errorf("chunks do not overlap: %q then %q", chunks[0], chunks[1])
	}
	last := chunks[len(chunks)-1]
	if !strings.HasSuffix(text, last) {
		t.Errorf("final chunk %q must end the text", last)
	}
}

func TestChunkCoversAllText(t *testing.T) {
	c := NewChunker(7, 2)
	text := "the quick brown fox jumps over the lazy dog"

	chunks := c.Chunk(text)
	// With overlap, rebuilding the text means dropping each chunk's first
	// two runes after the first chunk.
	var b strings.Builder
	for i, chunk := range chunks {
		if i == 0 {
			b.WriteString(chunk)
			continue
		}
		b.WriteString(chunk[2:])
	}
	if b.String() != text {
		t.Errorf("chunks lose text:\n got %q\nwant %q", b.String(), text)
	}
}

func TestChunkMultibyteRunes(t *testing.T) {
	c := NewChunker(4, 1)
	text := "héllö wörld çafé"

	for i, chunk := range c.Chunk(text) {
		if !strings.Contains(text, chunk) {
			t.Errorf("chunk %d split a rune: %q", i, chunk)
		}
		if n := len([]rune(chunk)); n > 4 {
			t.Errorf("chunk %d has %d runes, limit is 4", i, n)
		}
	}
}

func TestNewChunkerClampsBadArguments(t *testing.T) {
	c := NewChunker(0, -5)
	if c.size != 1000 || c.overlap != 0 {
		t.Errorf("defaults not applied: size=%d overlap=%d", c.size, c.overlap)
	}

	c = NewChunker(100, 200)
	if c.overlap != 25 {
		t.Errorf("overlap >= size should clamp to size/4, got %d", c.overlap)
	}
}
