package ingest

// Chunker splits document text into fixed-size passages with overlap so each
// one fits the embedding model's context window. Sizes are in runes; exact
// sizing is a tunable, not a correctness requirement.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker. A non-positive size falls back to 1000 runes;
// overlap is clamped below size.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk splits text into overlapping windows. Empty or whitespace-only text
// yields no chunks.
func (c *Chunker) Chunk(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= c.size {
		return []string{text}
	}

	step := c.size - c.overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
