package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
	"github.com/quarry-labs/quarry-cli/internal/core/ports/driven"
	"github.com/quarry-labs/quarry-cli/internal/core/ports/driving"
	"github.com/quarry-labs/quarry-cli/internal/logger"
	"github.com/quarry-labs/quarry-cli/internal/normalisers/adf"
)

// noContextMarker replaces the context block when the index returns no
// hits. The prompt is still assembled so the model can say so.
const noContextMarker = "No relevant context found in the knowledge base."

// answerSystemPrompt is the grounding instruction every answer runs under.
const answerSystemPrompt = "You are an AI assistant for a company. " +
	"Your task is to answer questions based on the provided company knowledge base. " +
	"Use only the information from the documents provided below to answer the question. " +
	"If the answer cannot be found in the documents, state that you don't have enough information. " +
	"Do not make up any information."

// blockRule closes each context block.
const blockRule = "----------------------------------------------------------"

// Ensure AskService implements the interface.
var _ driving.AskService = (*AskService)(nil)

// AskService retrieves indexed context for free-text questions and,
// when a language model is wired in, generates grounded answers.
type AskService struct {
	embedder    driven.EmbeddingService
	index       driven.VectorStore
	llm         driven.LLMService // optional, nil disables answers
	topK        int
	budget      int
	maxTokens   int
	temperature float64
}

// NewAskService creates an ask service. llm may be nil, in which case Ask
// degrades to retrieval only. topK is the default result count when the
// caller does not pass one; budget caps the assembled context in runes,
// non-positive disables the cap.
func NewAskService(
	embedder driven.EmbeddingService,
	index driven.VectorStore,
	llm driven.LLMService,
	topK, contextBudget, maxTokens int,
	temperature float64,
) *AskService {
	if topK <= 0 {
		topK = 1
	}
	return &AskService{
		embedder:    embedder,
		index:       index,
		llm:         llm,
		topK:        topK,
		budget:      contextBudget,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

// Retrieve embeds the question, queries the index, and assembles the
// attribution-annotated context block and the final prompt. No language
// model is involved.
func (s *AskService) Retrieve(ctx context.Context, question string, topK int) (*domain.AnswerContext, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.index == nil {
		return nil, domain.ErrIndexUnavailable
	}

	k := topK
	if k <= 0 {
		k = s.topK
	}

	// 1. Embed the question with a single provider call.
	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	// 2. Query the index for the k nearest chunks.
	hits, err := s.index.Query(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	logger.Debug("Retrieved %d chunk(s) for question", len(hits))

	// 3. Order deterministically: descending score, ties by ascending
	// chunk ID. The ordering contract lives here, not in the stores.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	answerCtx := &domain.AnswerContext{Question: question}
	if len(hits) == 0 {
		answerCtx.Context = noContextMarker
		answerCtx.Prompt = buildPrompt(noContextMarker, question)
		return answerCtx, nil
	}

	// 4. Assemble numbered blocks up to the budget. A block either fits
	// whole or ends assembly; chunks are never truncated mid-text. The
	// first block always ships so a non-empty result set never renders
	// an empty context.
	var blocks []string
	used := 0
	for i, hit := range hits {
		block := contextBlock(i+1, hit)
		cost := utf8.RuneCountInString(block)
		if len(blocks) > 0 {
			cost += 2 // joining newlines
		}
		if s.budget > 0 && len(blocks) > 0 && used+cost > s.budget {
			break
		}
		blocks = append(blocks, block)
		used += cost
		answerCtx.Chunks = append(answerCtx.Chunks, domain.RetrievedChunk{
			ChunkID:  hit.ChunkID,
			Score:    hit.Score,
			Text:     hit.Text,
			Metadata: hit.Metadata,
		})
	}

	answerCtx.Context = strings.Join(blocks, "\n\n")
	answerCtx.Prompt = buildPrompt(answerCtx.Context, question)
	return answerCtx, nil
}

// Ask retrieves context for the question and, when a language model is
// configured, generates a grounded answer. Without one the caller still
// gets the assembled context and prompt.
func (s *AskService) Ask(ctx context.Context, question string, topK int) (*driving.Answer, error) {
	answerCtx, err := s.Retrieve(ctx, question, topK)
	if err != nil {
		return nil, err
	}

	answer := &driving.Answer{Context: answerCtx}
	if s.llm == nil {
		return answer, nil
	}

	text, err := s.llm.Complete(ctx, answerSystemPrompt, answerCtx.Prompt, driven.CompleteOptions{
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	answer.Text = text
	answer.Model = s.llm.ModelName()
	return answer, nil
}

// buildPrompt renders the user prompt in the knowledge-base layout the
// system instruction refers to.
func buildPrompt(context, question string) string {
	return "Company Knowledge Base:\n" + context +
		"\n\nUser Query: " + question + "\n\nAnswer:"
}

// contextBlock renders one retrieved chunk: a numbered attribution header,
// the chunk text, any reconstructed comment or reply thread, and a closing
// rule.
func contextBlock(n int, hit domain.QueryHit) string {
	source := metaOr(hit.Metadata, "source", "unknown")
	title := metaOr(hit.Metadata, "title", "Untitled")
	url := metaOr(hit.Metadata, "url", "No URL")

	var b strings.Builder
	fmt.Fprintf(&b, "--- Document %d (Source: %s, Title: %s, URL: %s) ---\n", n, source, title, url)
	b.WriteString(hit.Text)
	if thread := renderThread(hit.Metadata); thread != "" {
		b.WriteString("\n")
		b.WriteString(thread)
	}
	b.WriteString("\n")
	b.WriteString(blockRule)
	return b.String()
}

// metaOr reads a metadata key with a fallback for missing or empty values.
func metaOr(md map[string]string, key, fallback string) string {
	if v := md[key]; v != "" {
		return v
	}
	return fallback
}

// threadEntry is one comment or reply as the connectors record them.
// Content stays raw because trackers deliver rich-text JSON there.
type threadEntry struct {
	Author    string          `json:"author"`
	CreatedAt string          `json:"created_at"`
	Content   json.RawMessage `json:"content"`
}

// renderThread reconstructs the comment or reply section from the JSON
// thread the normalisers preserved in chunk metadata.
func renderThread(md map[string]string) string {
	if raw, ok := md["comments"]; ok {
		return renderEntries("Comment", raw)
	}
	if raw, ok := md["replies"]; ok {
		return renderEntries("Reply", raw)
	}
	return ""
}

// renderEntries renders a thread one line per entry:
// "<label> by <author> on <created_at>: <text>".
func renderEntries(label, raw string) string {
	var entries []threadEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return ""
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		author := e.Author
		if author == "" {
			author = "Unknown"
		}
		lines = append(lines, fmt.Sprintf("%s by %s on %s: %s",
			label, author, e.CreatedAt, threadContent(e.Content)))
	}
	return strings.Join(lines, "\n")
}

// threadContent flattens a thread entry body. Issue trackers store comment
// bodies as rich-text JSON; those reduce to their text nodes, anything
// else passes through as written.
func threadContent(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return adf.ExtractText(s)
	}
	return adf.ExtractText(string(raw))
}
