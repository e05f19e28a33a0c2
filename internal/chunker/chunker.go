// Package chunker splits extracted document text into overlapping windows
// suitable for embedding and retrieval.
package chunker

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// MaxChunks bounds the number of chunks produced for a single document.
// Chunking stops at the cap instead of failing, so a pathological input
// degrades to a truncated index rather than unbounded memory use.
const MaxChunks = 50000

// Default window parameters, matching the ingestion defaults.
const (
	DefaultSize    = 2000
	DefaultOverlap = 200
)

// Splitter is a deterministic sliding-window text splitter. Output is a
// pure function of (text, size, overlap); the same input always produces
// the same chunks.
type Splitter struct {
	size    int
	overlap int
	logger  *zap.Logger
}

// New creates a Splitter. size must be positive; overlap is clamped to
// [0, size/2] to guarantee forward progress. logger may be nil.
func New(size, overlap int, logger *zap.Logger) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap > size/2 {
		overlap = size / 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Splitter{size: size, overlap: overlap, logger: logger}, nil
}

// Size returns the window size in characters.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the effective (clamped) overlap in characters.
func (s *Splitter) Overlap() int { return s.overlap }

// Split cuts text into consecutive overlapping windows. Windows whose
// trimmed content is empty are skipped. Empty or whitespace-only input
// yields nil; input shorter than the window size yields a single chunk.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	var chunks []string

	start := 0
	for start < len(runes) {
		if len(chunks) >= MaxChunks {
			s.logger.Warn("chunk cap reached, truncating document",
				zap.Int("max_chunks", MaxChunks),
				zap.Int("text_len", len(runes)),
			)
			break
		}

		end := start + s.size
		if end > len(runes) {
			end = len(runes)
		}

		window := string(runes[start:end])
		if strings.TrimSpace(window) != "" {
			chunks = append(chunks, window)
		}

		if end == len(runes) {
			break
		}

		next := end - s.overlap
		if next <= start {
			// Cannot happen with overlap <= size/2, kept as a termination guard.
			break
		}
		start = next
	}

	return chunks
}
