package usecase

import (
	"context"
	"testing"

	"github.com/clauseguard/docengine/internal/core/domain"
)

func newStatusFixture(t *testing.T, state domain.WorkflowState) *WorkflowStatusUseCase {
	t.Helper()
	workflows := newMemWorkflows()
	analyses := newMemAnalyses()

	wf := &domain.Workflow{ID: "wf-1", DocumentID: "doc-1", State: state, Progress: domain.ProgressRedactionDone}
	if err := workflows.Create(context.Background(), wf); err != nil {
		t.Fatalf("seed workflow: %v", err)
	}
	if state == domain.StateCompleted {
		result := &domain.AnalysisResult{DocumentID: "doc-1", Summary: "done"}
		if err := analyses.Create(context.Background(), result); err != nil {
			t.Fatalf("seed analysis: %v", err)
		}
	}
	return NewWorkflowStatusUseCase(workflows, analyses)
}

func TestStatusReturnsWorkflow(t *testing.T) {
	uc := newStatusFixture(t, domain.StateAnalyzing)

	wf, err := uc.Status(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if wf.State != domain.StateAnalyzing || wf.Progress != domain.ProgressRedactionDone {
		t.Errorf("workflow = %+v", wf)
	}
}

func TestStatusMissingWorkflow(t *testing.T) {
	uc := newStatusFixture(t, domain.StatePending)

	_, err := uc.Status(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResultBeforeCompletionIsNotReady(t *testing.T) {
	uc := newStatusFixture(t, domain.StateRedacting)

	_, err := uc.Result(context.Background(), "wf-1")
	if !domain.IsKind(err, domain.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestResultReturnsAnalysisWhenCompleted(t *testing.T) {
	uc := newStatusFixture(t, domain.StateCompleted)

	result, err := uc.Result(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if result.Summary != "done" {
		t.Errorf("result = %+v", result)
	}
}
