package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/clauseguard/docengine/internal/core/domain"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) Create(ctx context.Context, result *domain.AnalysisResult) error {
	risks, err := json.Marshal(result.Risks)
	if err != nil {
		return fmt.Errorf("marshal risks: %w", err)
	}
	clauses, err := json.Marshal(result.KeyClauses)
	if err != nil {
		return fmt.Errorf("marshal key clauses: %w", err)
	}
	structure, err := json.Marshal(result.Structure)
	if err != nil {
		return fmt.Errorf("marshal structure: %w", err)
	}
	compliance, err := json.Marshal(result.Compliance)
	if err != nil {
		return fmt.Errorf("marshal compliance: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO analyses (document_id, summary, risks, key_clauses, structure, compliance, overall_risk, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		result.DocumentID, result.Summary, risks, clauses, structure, compliance,
		string(result.OverallRisk()), result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) GetByDocumentID(ctx context.Context, documentID string) (*domain.AnalysisResult, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT document_id, summary, risks, key_clauses, structure, compliance, created_at
FROM analyses
WHERE document_id = $1
`, documentID)

	var result domain.AnalysisResult
	var risks, clauses, structure, compliance []byte
	err := row.Scan(
		&result.DocumentID, &result.Summary, &risks, &clauses, &structure, &compliance, &result.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get analysis", fmt.Errorf("document %s", documentID))
		}
		return nil, fmt.Errorf("scan analysis: %w", err)
	}

	if err := json.Unmarshal(risks, &result.Risks); err != nil {
		return nil, fmt.Errorf("unmarshal risks: %w", err)
	}
	if err := json.Unmarshal(clauses, &result.KeyClauses); err != nil {
		return nil, fmt.Errorf("unmarshal key clauses: %w", err)
	}
	if err := json.Unmarshal(structure, &result.Structure); err != nil {
		return nil, fmt.Errorf("unmarshal structure: %w", err)
	}
	if err := json.Unmarshal(compliance, &result.Compliance); err != nil {
		return nil, fmt.Errorf("unmarshal compliance: %w", err)
	}
	return &result, nil
}

func (r *AnalysisRepository) RiskLevelCounts(ctx context.Context) (map[domain.RiskLevel]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT overall_risk, COUNT(*) FROM analyses GROUP BY overall_risk`)
	if err != nil {
		return nil, fmt.Errorf("query risk counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.RiskLevel]int)
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, fmt.Errorf("scan risk count: %w", err)
		}
		counts[domain.RiskLevel(level)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate risk counts: %w", err)
	}
	return counts, nil
}
