package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clauseguard/docengine/internal/core/domain"
	"github.com/clauseguard/docengine/internal/core/ports"
)

// QASessionUseCase manages the append-only question/answer log per completed
// document. Concurrent asks for the same document are independent; answers
// are recorded in completion order, so history position is not submission
// order and clients key entries by qa_id.
type QASessionUseCase struct {
	documents ports.DocumentRepository
	workflows ports.WorkflowRepository
	analyses  ports.AnalysisRepository
	entries   ports.QARepository
	analyzer  ports.Analyzer
}

func NewQASessionUseCase(
	documents ports.DocumentRepository,
	workflows ports.WorkflowRepository,
	analyses ports.AnalysisRepository,
	entries ports.QARepository,
	analyzer ports.Analyzer,
) *QASessionUseCase {
	return &QASessionUseCase{
		documents: documents,
		workflows: workflows,
		analyses:  analyses,
		entries:   entries,
		analyzer:  analyzer,
	}
}

// Ask records the question, generates the answer against the analysis and the
// redacted text (never the raw content), and returns the completed entry.
// Guards are checked before anything is written.
func (uc *QASessionUseCase) Ask(ctx context.Context, documentID, question string) (*domain.QAEntry, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrEmptyQuestion, "ask", errors.New("blank question"))
	}

	wf, err := uc.workflows.GetByDocumentID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch workflow: %w", err)
	}
	if wf.State != domain.StateCompleted {
		return nil, domain.WrapError(domain.ErrNotReady, "ask",
			errors.New("workflow state is "+string(wf.State)))
	}

	doc, err := uc.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	analysis, err := uc.analyses.GetByDocumentID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch analysis: %w", err)
	}
	history, err := uc.entries.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch qa history: %w", err)
	}

	entry := &domain.QAEntry{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Question:   question,
		Status:     domain.QAPending,
		AskedAt:    time.Now().UTC(),
	}
	if err := uc.entries.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("record question: %w", err)
	}

	answer, err := uc.analyzer.AnswerQuestion(ctx, doc.RedactedContent, analysis, history, question)
	if err != nil {
		if failErr := uc.entries.Fail(ctx, entry.ID, err.Error()); failErr != nil {
			return nil, fmt.Errorf("%w; mark qa entry failed: %v", err, failErr)
		}
		entry.Status = domain.QAError
		entry.ErrorMessage = err.Error()
		return entry, fmt.Errorf("generate answer: %w", err)
	}

	if err := uc.entries.Complete(ctx, entry.ID, answer); err != nil {
		return nil, fmt.Errorf("record answer: %w", err)
	}
	now := time.Now().UTC()
	entry.Status = domain.QAAnswered
	entry.Answer = answer
	entry.AnsweredAt = &now
	return entry, nil
}

// Answer is a pure read of one entry by id.
func (uc *QASessionUseCase) Answer(ctx context.Context, qaID string) (*domain.QAEntry, error) {
	entry, err := uc.entries.GetByID(ctx, qaID)
	if err != nil {
		return nil, fmt.Errorf("fetch qa entry: %w", err)
	}
	return entry, nil
}

// History returns the session log oldest-first.
func (uc *QASessionUseCase) History(ctx context.Context, documentID string) ([]domain.QAEntry, error) {
	if _, err := uc.documents.GetByID(ctx, documentID); err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	entries, err := uc.entries.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list qa entries: %w", err)
	}
	return entries, nil
}
