// Package chunker splits document text into fixed-size overlapping windows.
//
// The unit of measure is runes, not bytes or tokens: a chunk holds at most
// Size runes and consecutive chunks share Overlap runes. This policy is fixed
// for a deployment so that stored chunks and query-time behavior agree.
package chunker

import (
	"fmt"

	"github.com/ragout/ragout/internal/domain"
)

// Chunker produces consecutive windows of at most Size runes, advancing by
// Size-Overlap runes each step.
type Chunker struct {
	size    int
	overlap int
}

// New validates the window parameters and returns a Chunker.
// Requires size > 0 and 0 <= overlap < size.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidArgument, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap must satisfy 0 <= overlap < size, got %d", domain.ErrInvalidArgument, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the maximum chunk length in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of runes shared between consecutive chunks.
func (c *Chunker) Overlap() int { return c.overlap }

// Split chunks text in original order. Empty text yields no chunks and no
// error. Concatenating the output with the overlaps removed reconstructs the
// input exactly.
func (c *Chunker) Split(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
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

// Split is a convenience wrapper that validates the parameters and chunks
// text in one call.
func Split(text string, size, overlap int) ([]string, error) {
	c, err := New(size, overlap)
	if err != nil {
		return nil, err
	}
	return c.Split(text), nil
}
