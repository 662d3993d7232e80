package chunking

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
)

// boundaryLookback is how far back from a window end the splitter looks for
// a sentence terminator or newline.
const boundaryLookback = 100

// Splitter cuts text into overlapping windows of at most ChunkSize runes,
// preferring to end each window on a sentence terminator or newline.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, domain.WrapError(domain.ErrConfiguration, "new splitter", fmt.Errorf("chunk size must be positive, got %d", chunkSize))
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, domain.WrapError(domain.ErrConfiguration, "new splitter", fmt.Errorf("overlap must be in [0, %d), got %d", chunkSize, overlap))
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}, nil
}

func (s *Splitter) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= s.ChunkSize {
		return []string{trimmed}
	}

	out := make([]string, 0, len(runes)/(s.ChunkSize-s.Overlap)+1)
	start := 0
	for start < len(runes) {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = snapToBoundary(runes, start, end, s.ChunkSize)
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}

		next := wordStart(runes, end-s.Overlap, end)
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// snapToBoundary moves end back to just after the nearest terminator found in
// (start+size-lookback, end]. It returns end unchanged when there is none.
func snapToBoundary(runes []rune, start, end, size int) int {
	lower := start + size - boundaryLookback
	if lower < start {
		lower = start
	}
	for i := end; i > lower; i-- {
		switch runes[i] {
		case '.', '!', '?', '\n':
			return i + 1
		}
	}
	return end
}

// wordStart advances pos to the start of the next word when it falls inside
// one, never moving past limit.
func wordStart(runes []rune, pos, limit int) int {
	if pos <= 0 {
		return pos
	}
	for pos < limit && !unicode.IsSpace(runes[pos-1]) && !unicode.IsSpace(runes[pos]) {
		pos++
	}
	return pos
}
