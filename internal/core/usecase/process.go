package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clauseguard/docengine/internal/core/domain"
	"github.com/clauseguard/docengine/internal/core/ports"
	"github.com/clauseguard/docengine/internal/infrastructure/resilience"
)

// ProcessWorkflowUseCase drives one workflow through the forward-only state
// machine:
//
//	pending -> redacting -> analyzing -> completed
//	                 \            \
//	                  +------------+--> failed
//
// Transitions are compare-and-swap repository updates, so only one attempt
// sequence per document can be in flight even with multiple workers.
type ProcessWorkflowUseCase struct {
	documents ports.DocumentRepository
	workflows ports.WorkflowRepository
	analyses  ports.AnalysisRepository
	extractor ports.TextExtractor
	redactor  ports.Redactor
	analyzer  ports.Analyzer
	executor  *resilience.Executor
	monitor   ports.StageMonitor
}

const (
	stageRedact  = "redact"
	stageAnalyze = "analyze"
)

func NewProcessWorkflowUseCase(
	documents ports.DocumentRepository,
	workflows ports.WorkflowRepository,
	analyses ports.AnalysisRepository,
	extractor ports.TextExtractor,
	redactor ports.Redactor,
	analyzer ports.Analyzer,
	executor *resilience.Executor,
) *ProcessWorkflowUseCase {
	return &ProcessWorkflowUseCase{
		documents: documents,
		workflows: workflows,
		analyses:  analyses,
		extractor: extractor,
		redactor:  redactor,
		analyzer:  analyzer,
		executor:  executor,
	}
}

// WithStageMonitor returns a copy that reports per-stage durations and retry
// attempts through monitor. Breaker state stays shared with the parent.
func (uc *ProcessWorkflowUseCase) WithStageMonitor(monitor ports.StageMonitor) *ProcessWorkflowUseCase {
	clone := *uc
	clone.monitor = monitor
	clone.executor = uc.executor.WithRetryHook(func(operation string, _ int, _ error) {
		monitor.RecordStageRetry(strings.TrimPrefix(operation, "stage."))
	})
	return &clone
}

func (uc *ProcessWorkflowUseCase) observeStage(stage string, start time.Time) {
	if uc.monitor != nil {
		uc.monitor.ObserveStage(stage, time.Since(start))
	}
}

// ProcessByID runs the redaction and analysis stages for one workflow. It is
// safe to call on a redelivered event: a workflow that already left pending
// reports ErrAlreadyStarted and nothing is re-run.
func (uc *ProcessWorkflowUseCase) ProcessByID(ctx context.Context, workflowID string) error {
	wf, err := uc.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("fetch workflow: %w", err)
	}
	if wf.State.Terminal() {
		slog.Info("workflow_already_terminal", "workflow_id", workflowID, "state", wf.State)
		return nil
	}

	if err := uc.workflows.Transition(ctx, wf.ID, domain.StatePending, domain.StateRedacting,
		domain.ProgressRedacting, "Redacting PII"); err != nil {
		return fmt.Errorf("enter redacting stage: %w", err)
	}

	doc, err := uc.documents.GetByID(ctx, wf.DocumentID)
	if err != nil {
		return uc.fail(ctx, wf.ID, domain.FailureRedaction, 0, fmt.Errorf("fetch document: %w", err))
	}

	redactStart := time.Now()
	cleanText, attempts, err := uc.redactStage(ctx, doc)
	uc.observeStage(stageRedact, redactStart)
	if err != nil {
		return uc.fail(ctx, wf.ID, domain.FailureRedaction, attempts, err)
	}
	if err := uc.workflows.UpdateProgress(ctx, wf.ID, domain.ProgressRedactionDone, "Redaction complete"); err != nil {
		return uc.fail(ctx, wf.ID, domain.FailureRedaction, attempts, fmt.Errorf("record redaction progress: %w", err))
	}

	if err := uc.workflows.Transition(ctx, wf.ID, domain.StateRedacting, domain.StateAnalyzing,
		domain.ProgressAnalyzing, "AI analysis"); err != nil {
		return fmt.Errorf("enter analyzing stage: %w", err)
	}

	analyzeStart := time.Now()
	result, attempts, err := uc.analyzeStage(ctx, doc.ID, cleanText)
	uc.observeStage(stageAnalyze, analyzeStart)
	if err != nil {
		return uc.fail(ctx, wf.ID, domain.FailureAnalysis, attempts, err)
	}

	if err := uc.analyses.Create(ctx, result); err != nil {
		return uc.fail(ctx, wf.ID, domain.FailureAnalysis, attempts, fmt.Errorf("persist analysis: %w", err))
	}
	if err := uc.workflows.Transition(ctx, wf.ID, domain.StateAnalyzing, domain.StateCompleted,
		domain.ProgressCompleted, "Completed"); err != nil {
		return fmt.Errorf("enter completed state: %w", err)
	}
	if attempts > 1 {
		_ = uc.workflows.RecordAttempts(ctx, wf.ID, attempts)
	}

	slog.Info("workflow_completed", "workflow_id", wf.ID, "document_id", wf.DocumentID)
	return nil
}

// redactStage extracts the raw text and runs it through the redaction
// collaborator with retries. On success the clean text is recorded on the
// document exactly once; a concurrent or redelivered write is tolerated.
func (uc *ProcessWorkflowUseCase) redactStage(ctx context.Context, doc *domain.Document) (string, int, error) {
	rawText, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return "", 0, fmt.Errorf("extract text: %w", err)
	}
	if rawText == "" {
		return "", 0, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}

	var outcome domain.RedactionOutcome
	attempts := 0
	err = uc.executor.Execute(ctx, "stage."+stageRedact, func(callCtx context.Context) error {
		attempts++
		var callErr error
		outcome, callErr = uc.redactor.Redact(callCtx, rawText)
		return callErr
	}, classifyStageError)
	if err != nil {
		return "", attempts, fmt.Errorf("redact text: %w", err)
	}

	if err := uc.documents.SetRedacted(ctx, doc.ID, outcome.CleanText); err != nil {
		if !domain.IsKind(err, domain.ErrAlreadySet) {
			return "", attempts, fmt.Errorf("record redacted text: %w", err)
		}
	}
	return outcome.CleanText, attempts, nil
}

// analyzeStage invokes the analyzer on clean text only. The raw document
// content never reaches this method.
func (uc *ProcessWorkflowUseCase) analyzeStage(ctx context.Context, documentID, cleanText string) (*domain.AnalysisResult, int, error) {
	var result *domain.AnalysisResult
	attempts := 0
	err := uc.executor.Execute(ctx, "stage."+stageAnalyze, func(callCtx context.Context) error {
		attempts++
		var callErr error
		result, callErr = uc.analyzer.Analyze(callCtx, cleanText)
		return callErr
	}, classifyStageError)
	if err != nil {
		return nil, attempts, fmt.Errorf("analyze text: %w", err)
	}

	result.DocumentID = documentID
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	return result, attempts, nil
}

func (uc *ProcessWorkflowUseCase) fail(ctx context.Context, workflowID string, kind domain.FailureKind, attempts int, stageErr error) error {
	if errors.Is(stageErr, context.DeadlineExceeded) {
		kind = domain.FailureTimeout
	}
	if markErr := uc.workflows.MarkFailed(ctx, workflowID, kind, stageErr.Error(), attempts); markErr != nil {
		return fmt.Errorf("%w; mark failed state: %v", stageErr, markErr)
	}
	slog.Error("workflow_failed", "workflow_id", workflowID, "kind", kind, "error", stageErr)
	return stageErr
}

// classifyStageError retries only transient collaborator failures; client
// input problems surface immediately.
func classifyStageError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if domain.IsKind(err, domain.ErrTemporary) || resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
