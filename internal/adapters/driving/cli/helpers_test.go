package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
	"github.com/quarry-labs/quarry-cli/internal/core/ports/driving"
)

// mockIngestOrchestrator implements driving.IngestOrchestrator for testing.
type mockIngestOrchestrator struct {
	summary *domain.RunSummary
	status  *driving.IngestStatus
	records []string
	err     error

	ingested   []domain.SourceType
	resetCalls int
	loaded     []string
}

func (m *mockIngestOrchestrator) IngestAll(_ context.Context) (*domain.RunSummary, error) {
	return m.summary, m.err
}

func (m *mockIngestOrchestrator) IngestSource(_ context.Context, source domain.SourceType) (*domain.RunSummary, error) {
	m.ingested = append(m.ingested, source)
	return m.summary, m.err
}

func (m *mockIngestOrchestrator) Extract(_ context.Context, _ []domain.SourceType, w io.Writer) (int, error) {
	for _, line := range m.records {
		fmt.Fprintln(w, line)
	}
	return len(m.records), m.err
}

func (m *mockIngestOrchestrator) Load(_ context.Context, r io.Reader) (*domain.RunSummary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.loaded = append(m.loaded, string(data))
	return m.summary, m.err
}

func (m *mockIngestOrchestrator) Reset(_ context.Context, _ []domain.SourceType) error {
	m.resetCalls++
	return m.err
}

func (m *mockIngestOrchestrator) Status(_ context.Context) (*driving.IngestStatus, error) {
	return m.status, m.err
}

// mockAskService implements driving.AskService for testing.
type mockAskService struct {
	answerCtx *domain.AnswerContext
	answer    *driving.Answer
	err       error

	questions []string
	askCalls  int
}

func (m *mockAskService) Retrieve(_ context.Context, question string, _ int) (*domain.AnswerContext, error) {
	m.questions = append(m.questions, question)
	return m.answerCtx, m.err
}

func (m *mockAskService) Ask(_ context.Context, question string, _ int) (*driving.Answer, error) {
	m.questions = append(m.questions, question)
	m.askCalls++
	return m.answer, m.err
}

func setupIngestTest(mock *mockIngestOrchestrator) func() {
	oldIngest := ingestService
	ingestService = mock
	return func() {
		ingestService = oldIngest
	}
}

func setupAskTest(mock *mockAskService) func() {
	oldAsk := askService
	askService = mock
	return func() {
		askService = oldAsk
	}
}
