package usecase

import (
	"context"
	"fmt"

	"github.com/clauseguard/docengine/internal/core/domain"
	"github.com/clauseguard/docengine/internal/core/ports"
)

// DocumentDirectoryUseCase reads and deletes stored documents.
type DocumentDirectoryUseCase struct {
	documents ports.DocumentRepository
	workflows ports.WorkflowRepository
	analyses  ports.AnalysisRepository
	storage   ports.ObjectStorage
}

func NewDocumentDirectoryUseCase(
	documents ports.DocumentRepository,
	workflows ports.WorkflowRepository,
	analyses ports.AnalysisRepository,
	storage ports.ObjectStorage,
) *DocumentDirectoryUseCase {
	return &DocumentDirectoryUseCase{
		documents: documents,
		workflows: workflows,
		analyses:  analyses,
		storage:   storage,
	}
}

// Get returns the document together with its workflow and, when the workflow
// has completed, its analysis. The analysis is nil otherwise.
func (uc *DocumentDirectoryUseCase) Get(ctx context.Context, documentID string) (*domain.Document, *domain.Workflow, *domain.AnalysisResult, error) {
	doc, err := uc.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch document: %w", err)
	}
	wf, err := uc.workflows.GetByDocumentID(ctx, documentID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch workflow: %w", err)
	}

	var result *domain.AnalysisResult
	if wf.State == domain.StateCompleted {
		result, err = uc.analyses.GetByDocumentID(ctx, documentID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("fetch analysis: %w", err)
		}
	}
	return doc, wf, result, nil
}

func (uc *DocumentDirectoryUseCase) List(ctx context.Context, offset, limit int) ([]domain.Document, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	docs, total, err := uc.documents.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	return docs, total, nil
}

// Delete removes the document, its stored bytes and, via cascade, its
// workflow, analysis and Q&A rows. Deleting a missing id is a no-op success
// so client retries stay simple.
func (uc *DocumentDirectoryUseCase) Delete(ctx context.Context, documentID string) error {
	doc, err := uc.documents.GetByID(ctx, documentID)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("fetch document: %w", err)
	}
	if err := uc.storage.Delete(ctx, doc.StoragePath); err != nil {
		return fmt.Errorf("delete stored object: %w", err)
	}
	if err := uc.documents.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("delete document row: %w", err)
	}
	return nil
}
