package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clauseguard/docengine/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (id, filename, content_type, size_bytes, storage_path, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`,
		doc.ID, doc.Filename, doc.ContentType, doc.SizeBytes, doc.StoragePath, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, content_type, size_bytes, storage_path, redacted_content, created_at
FROM documents
WHERE id = $1
`, id)
	return scanDocument(row, id)
}

func scanDocument(row *sql.Row, id string) (*domain.Document, error) {
	var doc domain.Document
	var redacted sql.NullString

	err := row.Scan(
		&doc.ID, &doc.Filename, &doc.ContentType, &doc.SizeBytes,
		&doc.StoragePath, &redacted, &doc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get document", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	if redacted.Valid {
		doc.RedactedContent = redacted.String
		doc.RedactionApplied = true
	}
	return &doc, nil
}

func (r *DocumentRepository) List(ctx context.Context, offset, limit int) ([]domain.Document, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, filename, content_type, size_bytes, storage_path, redacted_content, created_at
FROM documents
ORDER BY created_at DESC, id
OFFSET $1 LIMIT $2
`, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := make([]domain.Document, 0, limit)
	for rows.Next() {
		var doc domain.Document
		var redacted sql.NullString
		if err := rows.Scan(
			&doc.ID, &doc.Filename, &doc.ContentType, &doc.SizeBytes,
			&doc.StoragePath, &redacted, &doc.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan document row: %w", err)
		}
		if redacted.Valid {
			doc.RedactedContent = redacted.String
			doc.RedactionApplied = true
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, total, nil
}

// SetRedacted is write-once: the conditional update only matches a row whose
// redacted_content is still NULL. A second call fails with ErrAlreadySet.
func (r *DocumentRepository) SetRedacted(ctx context.Context, id, text string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET redacted_content = $2
WHERE id = $1 AND redacted_content IS NULL
`, id, text)
	if err != nil {
		return fmt.Errorf("set redacted content: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set redacted rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM documents WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check document exists: %w", err)
	}
	if !exists {
		return domain.WrapError(domain.ErrNotFound, "set redacted", fmt.Errorf("id %s", id))
	}
	return domain.WrapError(domain.ErrAlreadySet, "set redacted", fmt.Errorf("id %s", id))
}

// Delete is idempotent; cascades handle dependent rows.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) ExtensionCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT
	CASE WHEN position('.' IN filename) = 0 THEN 'unknown'
	     ELSE lower(reverse(split_part(reverse(filename), '.', 1)))
	END AS ext,
	COUNT(*)
FROM documents
GROUP BY 1
`)
	if err != nil {
		return nil, fmt.Errorf("query extension counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var ext string
		var count int
		if err := rows.Scan(&ext, &count); err != nil {
			return nil, fmt.Errorf("scan extension count: %w", err)
		}
		counts[ext] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate extension counts: %w", err)
	}
	return counts, nil
}
