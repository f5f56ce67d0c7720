package domain

// RetrievedChunk pairs a chunk with its relevance score from the index.
type RetrievedChunk struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the similarity score, descending order in results.
	Score float64

	// Text is the chunk content used for context assembly.
	Text string

	// Metadata carries attribution: source, title, url, comments, replies.
	Metadata map[string]string
}

// AnswerContext is the retrieval output for one question: the scored
// chunks, the assembled context block, and the final prompt.
type AnswerContext struct {
	// Question is the user's query as asked.
	Question string

	// Chunks are the retrieved chunks in descending score order, ties
	// broken by ascending chunk ID. Chunks dropped for budget reasons are
	// not included.
	Chunks []RetrievedChunk

	// Context is the assembled, attribution-annotated context block.
	Context string

	// Prompt is the user prompt handed to the language model; a fixed
	// system instruction rides alongside it.
	Prompt string
}
