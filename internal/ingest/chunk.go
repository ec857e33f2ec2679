// Package ingest - chunk.go splits long text into overlapping windows.
package ingest

import "fmt"

// Chunk is one window of a document.
type Chunk struct {
	Ref  string
	Text string
}

// MakeChunks splits text into windows of size runes, each starting
// size-overlap runes after the previous one. The last window ends at the end
// of text. Refs are "part-1", "part-2", ...
func MakeChunks(text string, size, overlap int) []Chunk {
	runes := []rune(text)
	if len(runes) == 0 || size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []Chunk
	step := size - overlap
	for start := 0; ; start += step {
		end := min(start+size, len(runes))
		chunks = append(chunks, Chunk{
			Ref:  fmt.Sprintf("part-%d", len(chunks)+1),
			Text: string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}
