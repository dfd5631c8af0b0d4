package ports

import (
	"context"
	"io"
	"time"

	"github.com/clauseguard/docengine/internal/core/domain"
)

// DocumentRepository persists document metadata and the write-once redacted
// text. Delete is idempotent and cascades to workflow, analysis and Q&A rows.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, offset, limit int) ([]domain.Document, int, error)
	SetRedacted(ctx context.Context, id, text string) error
	Delete(ctx context.Context, id string) error
	ExtensionCounts(ctx context.Context) (map[string]int, error)
}

// WorkflowRepository persists workflow state. Transition is a compare-and-swap
// on the current state so per-document stage mutual exclusion holds across
// processes; a CAS miss surfaces domain.ErrAlreadyStarted.
type WorkflowRepository interface {
	Create(ctx context.Context, wf *domain.Workflow) error
	GetByID(ctx context.Context, id string) (*domain.Workflow, error)
	GetByDocumentID(ctx context.Context, documentID string) (*domain.Workflow, error)
	Transition(ctx context.Context, id string, from, to domain.WorkflowState, progress int, step string) error
	UpdateProgress(ctx context.Context, id string, progress int, step string) error
	MarkFailed(ctx context.Context, id string, kind domain.FailureKind, message string, attempts int) error
	RecordAttempts(ctx context.Context, id string, attempts int) error
	CountByState(ctx context.Context) (map[domain.WorkflowState]int, error)
	AverageCompletionSeconds(ctx context.Context) (float64, error)
}

// AnalysisRepository persists the one-shot analysis result per document.
type AnalysisRepository interface {
	Create(ctx context.Context, result *domain.AnalysisResult) error
	GetByDocumentID(ctx context.Context, documentID string) (*domain.AnalysisResult, error)
	RiskLevelCounts(ctx context.Context) (map[domain.RiskLevel]int, error)
}

// QARepository persists the append-only question/answer log.
type QARepository interface {
	Create(ctx context.Context, entry *domain.QAEntry) error
	Complete(ctx context.Context, id, answer string) error
	Fail(ctx context.Context, id, message string) error
	GetByID(ctx context.Context, id string) (*domain.QAEntry, error)
	ListByDocument(ctx context.Context, documentID string) ([]domain.QAEntry, error)
}

// ObjectStorage stores raw uploaded bytes.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// WorkflowQueue carries workflow-start events from the api to the worker.
type WorkflowQueue interface {
	PublishWorkflowStarted(ctx context.Context, workflowID string) error
	SubscribeWorkflowStarted(ctx context.Context, handler func(context.Context, string) error) error
}

// StageMonitor receives timing and retry signals from the workflow stages.
// Implementations must be safe for concurrent use.
type StageMonitor interface {
	ObserveStage(stage string, duration time.Duration)
	RecordStageRetry(stage string)
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Redactor removes or masks personally identifiable information. It runs
// before the analyzer ever sees the text.
type Redactor interface {
	Redact(ctx context.Context, text string) (domain.RedactionOutcome, error)
}

// Analyzer is the pluggable analysis engine. It must only ever receive
// redacted text.
type Analyzer interface {
	Analyze(ctx context.Context, cleanText string) (*domain.AnalysisResult, error)
	AnswerQuestion(ctx context.Context, cleanText string, analysis *domain.AnalysisResult, history []domain.QAEntry, question string) (string, error)
}
