package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/clauseguard/docengine/internal/core/domain"
	"github.com/clauseguard/docengine/internal/core/ports"
)

// WorkflowStatusUseCase serves the polling surface. Both methods are pure
// reads and safe to call arbitrarily often.
type WorkflowStatusUseCase struct {
	workflows ports.WorkflowRepository
	analyses  ports.AnalysisRepository
}

func NewWorkflowStatusUseCase(
	workflows ports.WorkflowRepository,
	analyses ports.AnalysisRepository,
) *WorkflowStatusUseCase {
	return &WorkflowStatusUseCase{
		workflows: workflows,
		analyses:  analyses,
	}
}

func (uc *WorkflowStatusUseCase) Status(ctx context.Context, workflowID string) (*domain.Workflow, error) {
	wf, err := uc.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("fetch workflow: %w", err)
	}
	return wf, nil
}

func (uc *WorkflowStatusUseCase) Result(ctx context.Context, workflowID string) (*domain.AnalysisResult, error) {
	wf, err := uc.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("fetch workflow: %w", err)
	}
	if wf.State != domain.StateCompleted {
		return nil, domain.WrapError(domain.ErrNotReady, "fetch result",
			errors.New("workflow state is "+string(wf.State)))
	}
	result, err := uc.analyses.GetByDocumentID(ctx, wf.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("fetch analysis: %w", err)
	}
	return result, nil
}
