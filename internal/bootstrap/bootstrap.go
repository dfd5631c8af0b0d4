package bootstrap

import (
	"context"
	"fmt"

	"github.com/clauseguard/docengine/internal/config"
	"github.com/clauseguard/docengine/internal/core/ports"
	"github.com/clauseguard/docengine/internal/core/usecase"
	"github.com/clauseguard/docengine/internal/infrastructure/analyzer/ollama"
	"github.com/clauseguard/docengine/internal/infrastructure/extractor"
	"github.com/clauseguard/docengine/internal/infrastructure/queue/nats"
	"github.com/clauseguard/docengine/internal/infrastructure/redactor/regexredact"
	"github.com/clauseguard/docengine/internal/infrastructure/repository/postgres"
	"github.com/clauseguard/docengine/internal/infrastructure/resilience"
	"github.com/clauseguard/docengine/internal/infrastructure/storage/localfs"
)

// App wires the full dependency graph. Both binaries build the same graph and
// pick the pieces they serve.
type App struct {
	Config config.Config

	Queue *nats.Queue

	UploadUC    ports.DocumentIngestor
	DirectoryUC ports.DocumentDirectory
	// ProcessUC stays concrete so the worker can attach its stage monitor.
	ProcessUC *usecase.ProcessWorkflowUseCase
	StatusUC  ports.WorkflowStatusReader
	QAUC        ports.QAService
	ExportUC    ports.AnalysisExporter
	AnalyticsUC ports.AnalyticsService

	Workflows ports.WorkflowRepository

	Executor *resilience.Executor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	documents := postgres.NewDocumentRepository(db)
	workflows := postgres.NewWorkflowRepository(db)
	analyses := postgres.NewAnalysisRepository(db)
	qaEntries := postgres.NewQARepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilienceConfig(cfg))

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	redactionLevel, err := regexredact.ParseLevel(cfg.RedactionLevel)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("parse redaction level: %w", err)
	}
	redactor := regexredact.New(redactionLevel)

	analyzer := ollama.NewAnalyzer(ollama.New(cfg.OllamaURL, cfg.OllamaModel))
	textExtractor := extractor.New(storage)

	uploadUC := usecase.NewUploadDocumentUseCase(documents, workflows, storage, queue, cfg.UploadMaxBytes)
	directoryUC := usecase.NewDocumentDirectoryUseCase(documents, workflows, analyses, storage)
	processUC := usecase.NewProcessWorkflowUseCase(documents, workflows, analyses, textExtractor, redactor, analyzer, executor)
	statusUC := usecase.NewWorkflowStatusUseCase(workflows, analyses)
	qaUC := usecase.NewQASessionUseCase(documents, workflows, analyses, qaEntries, analyzer)
	exportUC := usecase.NewExportAnalysisUseCase(documents, workflows, analyses)
	analyticsUC := usecase.NewAnalyticsUseCase(documents, workflows, analyses)

	return &App{
		Config: cfg,
		Queue:  queue,

		UploadUC:    uploadUC,
		DirectoryUC: directoryUC,
		ProcessUC:   processUC,
		StatusUC:    statusUC,
		QAUC:        qaUC,
		ExportUC:    exportUC,
		AnalyticsUC: analyticsUC,

		Workflows: workflows,

		Executor: executor,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = cfg.StageRetryMaxAttempts
	out.RetryInitialBackoff = cfg.StageRetryBaseBackoff
	out.RetryMaxBackoff = cfg.StageRetryMaxBackoff
	return out
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
