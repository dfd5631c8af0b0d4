package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clauseguard/docengine/internal/core/domain"
)

type QARepository struct {
	db *sql.DB
}

func NewQARepository(db *sql.DB) *QARepository {
	return &QARepository{db: db}
}

func (r *QARepository) Create(ctx context.Context, entry *domain.QAEntry) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO qa_entries (id, document_id, question, status, asked_at)
VALUES ($1,$2,$3,$4,$5)
`,
		entry.ID, entry.DocumentID, entry.Question, string(entry.Status), entry.AskedAt,
	)
	if err != nil {
		return fmt.Errorf("insert qa entry: %w", err)
	}
	return nil
}

func (r *QARepository) Complete(ctx context.Context, id, answer string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
UPDATE qa_entries SET answer = $2, status = 'answered', answered_at = $3 WHERE id = $1
`, id, answer, now)
	if err != nil {
		return fmt.Errorf("complete qa entry: %w", err)
	}
	return requireRow(res, "complete qa entry", id)
}

func (r *QARepository) Fail(ctx context.Context, id, message string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
UPDATE qa_entries SET status = 'error', error_message = $2, answered_at = $3 WHERE id = $1
`, id, message, now)
	if err != nil {
		return fmt.Errorf("fail qa entry: %w", err)
	}
	return requireRow(res, "fail qa entry", id)
}

func requireRow(res sql.Result, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, op, fmt.Errorf("id %s", id))
	}
	return nil
}

func (r *QARepository) GetByID(ctx context.Context, id string) (*domain.QAEntry, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, document_id, question, answer, status, error_message, asked_at, answered_at
FROM qa_entries
WHERE id = $1
`, id)
	entry, err := scanQAEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get qa entry", fmt.Errorf("id %s", id))
		}
		return nil, err
	}
	return entry, nil
}

func (r *QARepository) ListByDocument(ctx context.Context, documentID string) ([]domain.QAEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, document_id, question, answer, status, error_message, asked_at, answered_at
FROM qa_entries
WHERE document_id = $1
ORDER BY asked_at, id
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query qa entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.QAEntry, 0)
	for rows.Next() {
		entry, err := scanQAEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate qa entries: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQAEntry(row rowScanner) (*domain.QAEntry, error) {
	var entry domain.QAEntry
	var answer, errMsg sql.NullString
	var status string
	var answeredAt sql.NullTime
	err := row.Scan(
		&entry.ID, &entry.DocumentID, &entry.Question, &answer, &status, &errMsg,
		&entry.AskedAt, &answeredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan qa entry: %w", err)
	}
	entry.Status = domain.QAStatus(status)
	entry.Answer = answer.String
	entry.ErrorMessage = errMsg.String
	if answeredAt.Valid {
		t := answeredAt.Time
		entry.AnsweredAt = &t
	}
	return &entry, nil
}
