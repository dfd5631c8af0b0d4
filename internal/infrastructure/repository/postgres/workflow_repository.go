package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clauseguard/docengine/internal/core/domain"
)

type WorkflowRepository struct {
	db *sql.DB
}

func NewWorkflowRepository(db *sql.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

func (r *WorkflowRepository) Create(ctx context.Context, wf *domain.Workflow) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO workflows (id, document_id, state, progress, current_step, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		wf.ID, wf.DocumentID, string(wf.State), wf.Progress, wf.CurrentStep, wf.CreatedAt, wf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*domain.Workflow, error) {
	return r.getOne(ctx, `
SELECT id, document_id, state, progress, current_step, error_kind, error_message, attempts, created_at, updated_at
FROM workflows
WHERE id = $1
`, id)
}

func (r *WorkflowRepository) GetByDocumentID(ctx context.Context, documentID string) (*domain.Workflow, error) {
	return r.getOne(ctx, `
SELECT id, document_id, state, progress, current_step, error_kind, error_message, attempts, created_at, updated_at
FROM workflows
WHERE document_id = $1
`, documentID)
}

func (r *WorkflowRepository) getOne(ctx context.Context, query, key string) (*domain.Workflow, error) {
	row := r.db.QueryRowContext(ctx, query, key)

	var wf domain.Workflow
	var state, kind string
	err := row.Scan(
		&wf.ID, &wf.DocumentID, &state, &wf.Progress, &wf.CurrentStep,
		&kind, &wf.ErrorMessage, &wf.Attempts, &wf.CreatedAt, &wf.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get workflow", fmt.Errorf("key %s", key))
		}
		return nil, fmt.Errorf("scan workflow: %w", err)
	}
	wf.State = domain.WorkflowState(state)
	wf.ErrorKind = domain.FailureKind(kind)
	return &wf, nil
}

// Transition advances the state machine with a compare-and-swap on the
// current state. GREATEST keeps progress monotone. A CAS miss on an existing
// row means another attempt sequence holds the workflow.
func (r *WorkflowRepository) Transition(ctx context.Context, id string, from, to domain.WorkflowState, progress int, step string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE workflows
SET state = $3, progress = GREATEST(progress, $4), current_step = $5, updated_at = $6
WHERE id = $1 AND state = $2
`, id, string(from), string(to), progress, step, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("transition workflow: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM workflows WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check workflow exists: %w", err)
	}
	if !exists {
		return domain.WrapError(domain.ErrNotFound, "transition", fmt.Errorf("id %s", id))
	}
	return domain.WrapError(domain.ErrAlreadyStarted, "transition",
		fmt.Errorf("workflow %s is not in state %s", id, from))
}

// UpdateProgress records a mid-stage waypoint without changing state.
// Terminal workflows are left untouched.
func (r *WorkflowRepository) UpdateProgress(ctx context.Context, id string, progress int, step string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE workflows
SET progress = GREATEST(progress, $2), current_step = $3, updated_at = $4
WHERE id = $1 AND state NOT IN ('completed', 'failed')
`, id, progress, step, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update workflow progress: %w", err)
	}
	return nil
}

func (r *WorkflowRepository) MarkFailed(ctx context.Context, id string, kind domain.FailureKind, message string, attempts int) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE workflows
SET state = 'failed', error_kind = $2, error_message = $3, attempts = $4, updated_at = $5
WHERE id = $1 AND state NOT IN ('completed', 'failed')
`, id, string(kind), message, attempts, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark workflow failed: %w", err)
	}
	return nil
}

func (r *WorkflowRepository) RecordAttempts(ctx context.Context, id string, attempts int) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE workflows SET attempts = $2, updated_at = $3 WHERE id = $1
`, id, attempts, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record workflow attempts: %w", err)
	}
	return nil
}

func (r *WorkflowRepository) CountByState(ctx context.Context) (map[domain.WorkflowState]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM workflows GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("query state counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.WorkflowState]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("scan state count: %w", err)
		}
		counts[domain.WorkflowState(state)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state counts: %w", err)
	}
	return counts, nil
}

func (r *WorkflowRepository) AverageCompletionSeconds(ctx context.Context) (float64, error) {
	var avg sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
SELECT AVG(EXTRACT(EPOCH FROM (updated_at - created_at)))
FROM workflows
WHERE state = 'completed'
`).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("query average completion: %w", err)
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}
