package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clauseguard/docengine/internal/core/domain"
	"github.com/clauseguard/docengine/internal/core/ports"
)

var allowedExtensions = map[string]struct{}{
	".pdf":  {},
	".docx": {},
	".doc":  {},
	".txt":  {},
}

type UploadDocumentUseCase struct {
	documents ports.DocumentRepository
	workflows ports.WorkflowRepository
	storage   ports.ObjectStorage
	queue     ports.WorkflowQueue
	maxBytes  int64
}

func NewUploadDocumentUseCase(
	documents ports.DocumentRepository,
	workflows ports.WorkflowRepository,
	storage ports.ObjectStorage,
	queue ports.WorkflowQueue,
	maxBytes int64,
) *UploadDocumentUseCase {
	return &UploadDocumentUseCase{
		documents: documents,
		workflows: workflows,
		storage:   storage,
		queue:     queue,
		maxBytes:  maxBytes,
	}
}

// Upload validates the file, stores the raw bytes, creates the document and
// its pending workflow, and enqueues the workflow for processing. Validation
// failures happen before any row or object is created.
func (uc *UploadDocumentUseCase) Upload(
	ctx context.Context,
	filename, contentType string,
	body io.Reader,
) (*domain.Document, *domain.Workflow, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return nil, nil, domain.WrapError(domain.ErrUnsupportedType, "upload",
			fmt.Errorf("extension %q not in {pdf, docx, doc, txt}", ext))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	// Stream at most maxBytes+1 so an oversized upload fails without
	// buffering the whole payload.
	written, err := uc.storage.Save(ctx, storageKey, io.LimitReader(body, uc.maxBytes+1))
	if err != nil {
		return nil, nil, fmt.Errorf("save to object storage: %w", err)
	}
	if written > uc.maxBytes {
		_ = uc.storage.Delete(ctx, storageKey)
		return nil, nil, domain.WrapError(domain.ErrPayloadTooLarge, "upload",
			fmt.Errorf("exceeds limit of %d bytes", uc.maxBytes))
	}
	if written == 0 {
		_ = uc.storage.Delete(ctx, storageKey)
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("file is empty"))
	}

	doc := &domain.Document{
		ID:          id,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   written,
		StoragePath: storageKey,
		CreatedAt:   now,
	}
	if err := uc.documents.Create(ctx, doc); err != nil {
		_ = uc.storage.Delete(ctx, storageKey)
		return nil, nil, fmt.Errorf("create document metadata: %w", err)
	}

	wf := &domain.Workflow{
		ID:          uuid.NewString(),
		DocumentID:  id,
		State:       domain.StatePending,
		Progress:    domain.ProgressPending,
		CurrentStep: "Queued",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.workflows.Create(ctx, wf); err != nil {
		return nil, nil, fmt.Errorf("create workflow: %w", err)
	}

	if err := uc.queue.PublishWorkflowStarted(ctx, wf.ID); err != nil {
		return nil, nil, fmt.Errorf("publish workflow start event: %w", err)
	}

	return doc, wf, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
