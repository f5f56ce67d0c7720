package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
)

var (
	askTopK        int
	askContextOnly bool
	askJSON        bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against the indexed knowledge base",
	Long: `Embeds the question, retrieves the closest chunks from the index,
and assembles an attributed context block. When an answer model is
configured, the model generates a grounded answer; otherwise the
context and prompt are printed as-is.

Without a question argument, and when stdin is a terminal, an
interactive prompt is started. Type 'exit' or 'quit' to leave it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0,
		"number of chunks to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askContextOnly, "context-only", false,
		"print the retrieved context without calling the answer model")
	askCmd.Flags().BoolVar(&askJSON, "json", false,
		"output the result as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askService == nil {
		return errors.New("ask service not configured")
	}

	if len(args) > 0 {
		return askOnce(cmd, args[0])
	}

	// No question given: interactive on a terminal, otherwise the
	// question is whatever stdin holds.
	if stdinIsTerminal(cmd) {
		return askInteractive(cmd)
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("reading question from stdin: %w", err)
	}
	return askOnce(cmd, string(data))
}

// askOnce answers a single question in the selected output format.
func askOnce(cmd *cobra.Command, question string) error {
	ctx := cmd.Context()

	if askContextOnly {
		answerCtx, err := askService.Retrieve(ctx, question, askTopK)
		if err != nil {
			return fmt.Errorf("retrieve failed: %w", err)
		}
		if askJSON {
			return outputAskJSON(cmd, answerCtx, "", "")
		}
		cmd.Println(answerCtx.Context)
		return nil
	}

	answer, err := askService.Ask(ctx, question, askTopK)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return outputAskJSON(cmd, answer.Context, answer.Text, answer.Model)
	}
	return outputAskText(cmd, answer.Context, answer.Text)
}

// outputAskText prints the answer (or the assembled prompt when no model
// is configured) followed by the sources it was grounded on.
func outputAskText(cmd *cobra.Command, answerCtx *domain.AnswerContext, text string) error {
	if text == "" {
		// No answer model: show the context so the caller can take the
		// prompt to a model of their choosing.
		cmd.Println(answerCtx.Context)
	} else {
		cmd.Println(text)
	}

	if len(answerCtx.Chunks) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, chunk := range answerCtx.Chunks {
			line := fmt.Sprintf("  [%d] %s (%.2f)", i+1, chunkTitle(chunk), chunk.Score)
			if url := chunk.Metadata["url"]; url != "" {
				line += " " + url
			}
			cmd.Println(line)
		}
	}
	return nil
}

// chunkTitle returns a display name for a retrieved chunk.
func chunkTitle(chunk domain.RetrievedChunk) string {
	if title := chunk.Metadata["title"]; title != "" {
		return title
	}
	return chunk.ChunkID
}

type askChunkOutput struct {
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
	Source  string  `json:"source,omitempty"`
	Title   string  `json:"title,omitempty"`
	URL     string  `json:"url,omitempty"`
}

type askOutput struct {
	Question string           `json:"question"`
	Answer   string           `json:"answer,omitempty"`
	Model    string           `json:"model,omitempty"`
	Context  string           `json:"context"`
	Chunks   []askChunkOutput `json:"chunks"`
}

func outputAskJSON(cmd *cobra.Command, answerCtx *domain.AnswerContext, text, model string) error {
	out := askOutput{
		Question: answerCtx.Question,
		Answer:   text,
		Model:    model,
		Context:  answerCtx.Context,
		Chunks:   make([]askChunkOutput, len(answerCtx.Chunks)),
	}
	for i, chunk := range answerCtx.Chunks {
		out.Chunks[i] = askChunkOutput{
			ChunkID: chunk.ChunkID,
			Score:   chunk.Score,
			Source:  chunk.Metadata["source"],
			Title:   chunk.Metadata["title"],
			URL:     chunk.Metadata["url"],
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// askInteractive runs a read-ask loop until EOF or an exit command.
// Failed questions are reported without ending the session.
func askInteractive(cmd *cobra.Command) error {
	reader := bufio.NewReader(cmd.InOrStdin())
	cmd.Println("Ask questions against the knowledge base. Type 'exit' to leave.")

	for {
		cmd.Print("quarry> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				cmd.Println()
				return nil
			}
			return err
		}

		question := strings.TrimSpace(line)
		switch question {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if err := askOnce(cmd, question); err != nil {
			cmd.PrintErrf("Error: %v\n", err)
		}
		cmd.Println()
	}
}

// stdinIsTerminal reports whether the command reads from a real terminal.
func stdinIsTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
