package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/clauseguard/docengine/internal/core/domain"
)

// Analyzer produces document analyses and answers follow-up questions. Both
// paths take already redacted text only.
type Analyzer struct {
	client *Client
}

func NewAnalyzer(client *Client) *Analyzer {
	return &Analyzer{client: client}
}

func (a *Analyzer) Analyze(ctx context.Context, cleanText string) (*domain.AnalysisResult, error) {
	respText, err := a.client.generateJSON(ctx, buildAnalysisPrompt(cleanText))
	if err != nil {
		return nil, wrapTemporaryIfNeeded("ollama analyze", err)
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &result); err != nil {
		return nil, fmt.Errorf("parse analysis json: %w", err)
	}
	normalizeResult(&result)
	result.CreatedAt = time.Now().UTC()
	return &result, nil
}

func (a *Analyzer) AnswerQuestion(ctx context.Context, cleanText string, analysis *domain.AnalysisResult, history []domain.QAEntry, question string) (string, error) {
	answer, err := a.client.generateText(ctx, buildAnswerPrompt(cleanText, analysis, history, question))
	if err != nil {
		return "", wrapTemporaryIfNeeded("ollama answer", err)
	}
	return answer, nil
}

// normalizeResult repairs the loose shapes small models produce so the rest
// of the system only ever sees canonical values.
func normalizeResult(result *domain.AnalysisResult) {
	if result.Risks == nil {
		result.Risks = []domain.Risk{}
	}
	for i := range result.Risks {
		result.Risks[i].Level = normalizeRiskLevel(result.Risks[i].Level)
	}
	if result.KeyClauses == nil {
		result.KeyClauses = []string{}
	}
	if result.Structure.MissingSections == nil {
		result.Structure.MissingSections = []string{}
	}
	if result.Compliance.ApplicableRegulations == nil {
		result.Compliance.ApplicableRegulations = []string{}
	}
	result.Structure.CompletenessScore = clampScore(result.Structure.CompletenessScore)
	result.Compliance.ComplianceScore = clampScore(result.Compliance.ComplianceScore)
}

func normalizeRiskLevel(level domain.RiskLevel) domain.RiskLevel {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
	case "critical":
		return domain.RiskCritical
	case "high":
		return domain.RiskHigh
	case "medium", "moderate":
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
