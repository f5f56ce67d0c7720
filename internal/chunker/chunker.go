// Package chunker splits canonical document bodies into overlapping
// fixed-size text windows, the unit of embedding and retrieval.
package chunker

import (
	"fmt"
	"strconv"
	"time"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
)

// Chunker produces deterministic rune windows over document bodies.
// Window i always starts at offset i*(size-overlap); the final window is
// the first one whose end reaches the text end and may be shorter than
// size. The same body and parameters always yield the same sequence.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. Invalid parameters are a configuration problem
// and are never silently clamped; every violation is reported at once.
func New(size, overlap int) (*Chunker, error) {
	var problems []string
	if size <= 0 {
		problems = append(problems, fmt.Sprintf("chunking: size must be positive, got %d", size))
	}
	if overlap < 0 {
		problems = append(problems, fmt.Sprintf("chunking: overlap must not be negative, got %d", overlap))
	}
	if size > 0 && overlap >= size {
		problems = append(problems, fmt.Sprintf("chunking: overlap %d must be smaller than size %d", overlap, size))
	}
	if len(problems) > 0 {
		return nil, domain.NewConfigurationError(problems...)
	}

	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the window length in runes.
func (c *Chunker) Size() int {
	return c.size
}

// Overlap returns the number of runes shared between consecutive windows.
func (c *Chunker) Overlap() int {
	return c.overlap
}

// Split chunks a document body into windows and derives each chunk's
// identity, fingerprint, and inherited metadata.
func (c *Chunker) Split(doc *domain.CanonicalDocument) []domain.Chunk {
	windows := c.Windows(doc.Body)
	if len(windows) == 0 {
		return nil
	}

	docID := doc.DocID()
	chunks := make([]domain.Chunk, 0, len(windows))
	for i, text := range windows {
		md := make(map[string]string, len(doc.Metadata)+5)
		for k, v := range doc.Metadata {
			md[k] = v
		}
		md["source"] = string(doc.Source)
		md["title"] = doc.Title
		md["doc_id"] = docID
		md["chunk_index"] = strconv.Itoa(i)
		if doc.UpdatedAt != nil {
			md["updated_at"] = doc.UpdatedAt.UTC().Format(time.RFC3339)
		}

		chunks = append(chunks, domain.Chunk{
			ID:          domain.ChunkID(docID, i),
			DocumentID:  docID,
			Index:       i,
			Text:        text,
			ContentHash: domain.Fingerprint(text),
			Metadata:    md,
		})
	}
	return chunks
}

// Windows returns the raw text windows for a body. Empty input produces
// no windows, never a single empty one. Offsets are rune-based so
// multi-byte text never splits inside a character.
func (c *Chunker) Windows(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	n := len(runes)
	stride := c.size - c.overlap

	windows := make([]string, 0, n/stride+1)
	for start := 0; ; start += stride {
		end := start + c.size
		if end >= n {
			windows = append(windows, string(runes[start:n]))
			break
		}
		windows = append(windows, string(runes[start:end]))
	}
	return windows
}
