package ports

import (
	"context"
	"io"

	"github.com/clauseguard/docengine/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload: it validates,
// persists, creates the pending workflow and enqueues it for processing.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, contentType string, body io.Reader) (*domain.Document, *domain.Workflow, error)
}

// DocumentDirectory is the inbound read/delete model for stored documents.
type DocumentDirectory interface {
	Get(ctx context.Context, documentID string) (*domain.Document, *domain.Workflow, *domain.AnalysisResult, error)
	List(ctx context.Context, offset, limit int) ([]domain.Document, int, error)
	Delete(ctx context.Context, documentID string) error
}

// WorkflowProcessor drives one workflow to a terminal state. Invoked by the
// worker for each queued workflow id.
type WorkflowProcessor interface {
	ProcessByID(ctx context.Context, workflowID string) error
}

// WorkflowStatusReader is the polling surface: pure reads, no side effects.
type WorkflowStatusReader interface {
	Status(ctx context.Context, workflowID string) (*domain.Workflow, error)
	Result(ctx context.Context, workflowID string) (*domain.AnalysisResult, error)
}

// QAService manages the per-document question/answer session log.
type QAService interface {
	Ask(ctx context.Context, documentID, question string) (*domain.QAEntry, error)
	Answer(ctx context.Context, qaID string) (*domain.QAEntry, error)
	History(ctx context.Context, documentID string) ([]domain.QAEntry, error)
}

// AnalysisExporter renders a completed analysis for download.
type AnalysisExporter interface {
	Export(ctx context.Context, documentID, format string, sections []string) ([]byte, string, error)
}

// AnalyticsService aggregates read-only views over documents and workflows.
type AnalyticsService interface {
	Dashboard(ctx context.Context) (*domain.DashboardStats, error)
	Detailed(ctx context.Context) (*domain.DetailedStats, error)
}
