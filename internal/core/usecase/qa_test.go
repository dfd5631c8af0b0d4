package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/clauseguard/docengine/internal/core/domain"
)

type qaFixture struct {
	documents *memDocuments
	workflows *memWorkflows
	analyses  *memAnalyses
	entries   *memQAEntries
	analyzer  *analyzerFake
	uc        *QASessionUseCase
}

func newQAFixture(t *testing.T, state domain.WorkflowState) *qaFixture {
	t.Helper()
	f := &qaFixture{
		documents: newMemDocuments(),
		workflows: newMemWorkflows(),
		analyses:  newMemAnalyses(),
		entries:   newMemQAEntries(),
		analyzer:  &analyzerFake{},
	}
	f.uc = NewQASessionUseCase(f.documents, f.workflows, f.analyses, f.entries, f.analyzer)

	doc := &domain.Document{
		ID:               "doc-1",
		Filename:         "lease.txt",
		StoragePath:      "doc-1_lease.txt",
		RedactedContent:  "redacted body with [EMAIL-REDACTED]",
		RedactionApplied: true,
	}
	if err := f.documents.Create(context.Background(), doc); err != nil {
		t.Fatalf("seed document: %v", err)
	}
	wf := &domain.Workflow{ID: "wf-1", DocumentID: "doc-1", State: state, Progress: domain.ProgressCompleted}
	if err := f.workflows.Create(context.Background(), wf); err != nil {
		t.Fatalf("seed workflow: %v", err)
	}
	if state == domain.StateCompleted {
		result := &domain.AnalysisResult{DocumentID: "doc-1", Summary: "summary"}
		if err := f.analyses.Create(context.Background(), result); err != nil {
			t.Fatalf("seed analysis: %v", err)
		}
	}
	return f
}

func TestAskRejectsBlankQuestion(t *testing.T) {
	f := newQAFixture(t, domain.StateCompleted)

	_, err := f.uc.Ask(context.Background(), "doc-1", "   ")
	if !domain.IsKind(err, domain.ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}
	if len(f.entries.order) != 0 {
		t.Fatalf("no entry should be recorded for a blank question")
	}
}

func TestAskRequiresCompletedWorkflow(t *testing.T) {
	f := newQAFixture(t, domain.StateAnalyzing)

	_, err := f.uc.Ask(context.Background(), "doc-1", "Is there an exit clause?")
	if !domain.IsKind(err, domain.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if len(f.analyzer.answeredTexts) != 0 {
		t.Fatalf("analyzer must not be called before completion")
	}
}

func TestAskAnswersAgainstRedactedTextOnly(t *testing.T) {
	f := newQAFixture(t, domain.StateCompleted)
	f.analyzer.answer = "Yes, clause 4.2."

	entry, err := f.uc.Ask(context.Background(), "doc-1", "Is there an exit clause?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if entry.Status != domain.QAAnswered || entry.Answer != "Yes, clause 4.2." {
		t.Errorf("entry = %+v, want answered", entry)
	}
	if entry.AnsweredAt == nil {
		t.Errorf("answered entry should carry an answered_at timestamp")
	}
	if len(f.analyzer.answeredTexts) != 1 {
		t.Fatalf("analyzer calls = %d, want 1", len(f.analyzer.answeredTexts))
	}
	if got := f.analyzer.answeredTexts[0]; got != "redacted body with [EMAIL-REDACTED]" {
		t.Errorf("analyzer received %q, want the redacted content", got)
	}

	stored, err := f.entries.GetByID(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("stored entry: %v", err)
	}
	if stored.Status != domain.QAAnswered || stored.Answer != "Yes, clause 4.2." {
		t.Errorf("stored entry = %+v, want answered", stored)
	}
}

func TestAskPersistsErrorEntryWhenAnswerFails(t *testing.T) {
	f := newQAFixture(t, domain.StateCompleted)
	f.analyzer.answerErr = errors.New("model unavailable")

	entry, err := f.uc.Ask(context.Background(), "doc-1", "Is there an exit clause?")
	if err == nil {
		t.Fatalf("expected an error when answering fails")
	}
	if entry == nil || entry.Status != domain.QAError {
		t.Fatalf("entry = %+v, want error status", entry)
	}

	stored, getErr := f.entries.GetByID(context.Background(), entry.ID)
	if getErr != nil {
		t.Fatalf("stored entry: %v", getErr)
	}
	if stored.Status != domain.QAError || stored.ErrorMessage == "" {
		t.Errorf("stored entry = %+v, want persisted failure", stored)
	}
}

func TestAskHandsEarlierExchangesToAnalyzer(t *testing.T) {
	f := newQAFixture(t, domain.StateCompleted)

	if _, err := f.uc.Ask(context.Background(), "doc-1", "First question?"); err != nil {
		t.Fatalf("first Ask() error = %v", err)
	}
	if _, err := f.uc.Ask(context.Background(), "doc-1", "Second question?"); err != nil {
		t.Fatalf("second Ask() error = %v", err)
	}

	history, err := f.uc.History(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Question != "First question?" || history[1].Question != "Second question?" {
		t.Errorf("history out of order: %q then %q", history[0].Question, history[1].Question)
	}
}

func TestHistoryRequiresExistingDocument(t *testing.T) {
	f := newQAFixture(t, domain.StateCompleted)

	_, err := f.uc.History(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAnswerReturnsEntryByID(t *testing.T) {
	f := newQAFixture(t, domain.StateCompleted)

	created, err := f.uc.Ask(context.Background(), "doc-1", "Where is the venue clause?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	entry, err := f.uc.Answer(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if entry.ID != created.ID || entry.Status != domain.QAAnswered {
		t.Errorf("entry = %+v, want the answered entry %s", entry, created.ID)
	}
}
