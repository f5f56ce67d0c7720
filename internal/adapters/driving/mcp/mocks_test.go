package mcp

import (
	"context"
	"io"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
	"github.com/quarry-labs/quarry-cli/internal/core/ports/driving"
)

// mockAskService is a mock implementation of driving.AskService.
type mockAskService struct {
	answerCtx *domain.AnswerContext
	answer    *driving.Answer
	err       error
}

func (m *mockAskService) Retrieve(_ context.Context, _ string, _ int) (*domain.AnswerContext, error) {
	return m.answerCtx, m.err
}

func (m *mockAskService) Ask(_ context.Context, _ string, _ int) (*driving.Answer, error) {
	return m.answer, m.err
}

// mockIngestService is a mock implementation of driving.IngestOrchestrator.
type mockIngestService struct {
	summary *domain.RunSummary
	status  *driving.IngestStatus
	count   int
	err     error
}

func (m *mockIngestService) IngestAll(_ context.Context) (*domain.RunSummary, error) {
	return m.summary, m.err
}

func (m *mockIngestService) IngestSource(_ context.Context, _ domain.SourceType) (*domain.RunSummary, error) {
	return m.summary, m.err
}

func (m *mockIngestService) Extract(_ context.Context, _ []domain.SourceType, _ io.Writer) (int, error) {
	return m.count, m.err
}

func (m *mockIngestService) Load(_ context.Context, _ io.Reader) (*domain.RunSummary, error) {
	return m.summary, m.err
}

func (m *mockIngestService) Reset(_ context.Context, _ []domain.SourceType) error {
	return m.err
}

func (m *mockIngestService) Status(_ context.Context) (*driving.IngestStatus, error) {
	return m.status, m.err
}
