package summarize

import (
	"fmt"
	"strings"
	"unicode"
)

// Chunk is an overlapping segment of a document sized for one completion call.
// Start and End are rune offsets into the source text, End exclusive.
type Chunk struct {
	Text  string
	Index int
	Total int
	Start int
	End   int
}

// Split cuts text into chunks of at most chunkSize runes. Each chunk ends on the
// last whitespace before the limit and the next chunk starts overlap runes
// before that end. The final chunk always ends at the end of the text.
func Split(text string, chunkSize, overlap int) ([]Chunk, error) {
	if overlap <= 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in (0, %d)", ErrInvalidChunking, overlap, chunkSize)
	}

	runes := []rune(text)
	n := len(runes)
	if n <= chunkSize {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil, nil
		}
		return []Chunk{{Text: trimmed, Index: 0, Total: 1, Start: 0, End: n}}, nil
	}

	var chunks []Chunk
	start := 0
	for start < n {
		end := start + chunkSize
		if end < n {
			if ws := lastSpace(runes, start, end); ws > start {
				end = ws
			}
		} else {
			end = n
		}

		if content := strings.TrimSpace(string(runes[start:end])); content != "" {
			chunks = append(chunks, Chunk{Text: content, Index: len(chunks), Start: start, End: end})
		}
		if end == n {
			break
		}

		next := end - overlap
		if next <= start {
			// A snap far to the left would stall the walk
			next = end
		}
		start = next
	}

	for i := range chunks {
		chunks[i].Total = len(chunks)
	}
	return chunks, nil
}

// lastSpace returns the index of the last whitespace rune in (start, end), or -1.
func lastSpace(runes []rune, start, end int) int {
	for i := end - 1; i > start; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}

// EstimateChunkCount predicts how many chunks Split produces for a text of
// textLength runes. It can differ from the actual count by one because of
// whitespace snapping.
func EstimateChunkCount(textLength, chunkSize, overlap int) int {
	if textLength <= chunkSize {
		return 1
	}
	step := chunkSize - overlap
	if step <= 0 {
		return 1
	}
	return max(1, (textLength-overlap+step-1)/step)
}
