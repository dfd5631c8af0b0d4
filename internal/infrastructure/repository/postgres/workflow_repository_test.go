package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/clauseguard/docengine/internal/core/domain"
)

func newWorkflowRepoWithMock(t *testing.T) (*WorkflowRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &WorkflowRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestTransitionReturnsAlreadyStartedOnStateMismatch(t *testing.T) {
	repo, mock, done := newWorkflowRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE workflows").
		WithArgs("wf-1", string(domain.StatePending), string(domain.StateRedacting), domain.ProgressRedacting, "Redacting PII", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("wf-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.Transition(context.Background(), "wf-1", domain.StatePending, domain.StateRedacting, domain.ProgressRedacting, "Redacting PII")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTransitionReturnsNotFoundForMissingWorkflow(t *testing.T) {
	repo, mock, done := newWorkflowRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE workflows").
		WithArgs("missing", string(domain.StatePending), string(domain.StateRedacting), domain.ProgressRedacting, "Redacting PII", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := repo.Transition(context.Background(), "missing", domain.StatePending, domain.StateRedacting, domain.ProgressRedacting, "Redacting PII")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCountByStateAggregatesRows(t *testing.T) {
	repo, mock, done := newWorkflowRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT state, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"state", "count"}).
			AddRow("completed", 7).
			AddRow("failed", 2).
			AddRow("analyzing", 1))

	counts, err := repo.CountByState(context.Background())
	if err != nil {
		t.Fatalf("CountByState() error = %v", err)
	}
	if counts[domain.StateCompleted] != 7 || counts[domain.StateFailed] != 2 || counts[domain.StateAnalyzing] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
