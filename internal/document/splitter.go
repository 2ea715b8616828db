package document

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"
)

// Chunk boundaries prefer paragraph breaks, then line breaks, then word
// breaks, before falling back to a hard cut.
var chunkSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter cuts loaded documents into overlapping chunks sized for
// embedding.
type Splitter struct {
	inner textsplitter.RecursiveCharacter
}

// NewSplitter returns a recursive character splitter with the given chunk
// size and overlap (both measured in characters).
func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	return &Splitter{
		inner: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(chunkSeparators),
		),
	}
}

// Split returns the chunks of content in order. Empty content yields no
// chunks.
func (s *Splitter) Split(content string) ([]string, error) {
	chunks, err := s.inner.SplitText(content)
	if err != nil {
		return nil, fmt.Errorf("splitting text: %w", err)
	}

	out := chunks[:0]
	for _, chunk := range chunks {
		if chunk != "" {
			out = append(out, chunk)
		}
	}
	return out, nil
}
