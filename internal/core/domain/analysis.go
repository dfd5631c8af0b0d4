package domain

import "time"

type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

func (l RiskLevel) rank() int {
	switch l {
	case RiskCritical:
		return 3
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

type Risk struct {
	Type           string    `json:"type"`
	Level          RiskLevel `json:"level"`
	Description    string    `json:"description"`
	Recommendation string    `json:"recommendation"`
}

type StructureAnalysis struct {
	CompletenessScore int      `json:"completeness_score"`
	MissingSections   []string `json:"missing_sections"`
}

type Compliance struct {
	ApplicableRegulations []string `json:"applicable_regulations"`
	ComplianceScore       int      `json:"compliance_score"`
}

// AnalysisResult is created exactly once, when the workflow completes, and
// is immutable afterwards.
type AnalysisResult struct {
	DocumentID string            `json:"document_id"`
	Summary    string            `json:"summary"`
	Risks      []Risk            `json:"risks"`
	KeyClauses []string          `json:"key_clauses"`
	Structure  StructureAnalysis `json:"structure_analysis"`
	Compliance Compliance        `json:"compliance"`
	CreatedAt  time.Time         `json:"created_at"`
}

// OverallRisk is the highest level among the identified risks, RiskLow when
// none were identified.
func (a AnalysisResult) OverallRisk() RiskLevel {
	overall := RiskLow
	for _, r := range a.Risks {
		if r.Level.rank() > overall.rank() {
			overall = r.Level
		}
	}
	return overall
}
