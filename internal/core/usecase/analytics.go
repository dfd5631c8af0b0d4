package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/clauseguard/docengine/internal/core/domain"
	"github.com/clauseguard/docengine/internal/core/ports"
)

var riskSliceOrder = []struct {
	level domain.RiskLevel
	name  string
	color string
}{
	{domain.RiskLow, "Low Risk", "#4caf50"},
	{domain.RiskMedium, "Medium Risk", "#ff9800"},
	{domain.RiskHigh, "High Risk", "#f44336"},
	{domain.RiskCritical, "Critical", "#9c27b0"},
}

// AnalyticsUseCase derives aggregate views from the document and workflow
// collections. Reads only.
type AnalyticsUseCase struct {
	documents ports.DocumentRepository
	workflows ports.WorkflowRepository
	analyses  ports.AnalysisRepository
}

func NewAnalyticsUseCase(
	documents ports.DocumentRepository,
	workflows ports.WorkflowRepository,
	analyses ports.AnalysisRepository,
) *AnalyticsUseCase {
	return &AnalyticsUseCase{
		documents: documents,
		workflows: workflows,
		analyses:  analyses,
	}
}

func (uc *AnalyticsUseCase) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	states, err := uc.workflows.CountByState(ctx)
	if err != nil {
		return nil, fmt.Errorf("count workflow states: %w", err)
	}
	riskCounts, err := uc.analyses.RiskLevelCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count risk levels: %w", err)
	}
	recent, total, err := uc.documents.List(ctx, 0, 5)
	if err != nil {
		return nil, fmt.Errorf("list recent documents: %w", err)
	}

	completed := states[domain.StateCompleted]
	processing := states[domain.StatePending] + states[domain.StateRedacting] + states[domain.StateAnalyzing]
	failed := states[domain.StateFailed]

	distribution := make([]domain.RiskSlice, 0, len(riskSliceOrder))
	for _, slice := range riskSliceOrder {
		distribution = append(distribution, domain.RiskSlice{
			Name:  slice.name,
			Value: riskCounts[slice.level],
			Color: slice.color,
		})
	}

	return &domain.DashboardStats{
		TotalDocuments:      total,
		CompletedAnalyses:   completed,
		ProcessingDocuments: processing,
		FailedDocuments:     failed,
		SuccessRate:         successRate(completed, total),
		RiskDistribution:    distribution,
		RecentDocuments:     recent,
	}, nil
}

func (uc *AnalyticsUseCase) Detailed(ctx context.Context) (*domain.DetailedStats, error) {
	states, err := uc.workflows.CountByState(ctx)
	if err != nil {
		return nil, fmt.Errorf("count workflow states: %w", err)
	}
	riskCounts, err := uc.analyses.RiskLevelCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count risk levels: %w", err)
	}
	extensions, err := uc.documents.ExtensionCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count document extensions: %w", err)
	}
	avgSeconds, err := uc.workflows.AverageCompletionSeconds(ctx)
	if err != nil {
		return nil, fmt.Errorf("average completion time: %w", err)
	}

	total := 0
	for _, count := range states {
		total += count
	}

	types := make([]domain.TypeCount, 0, len(extensions))
	for ext, count := range extensions {
		types = append(types, domain.TypeCount{
			Name:       ext,
			Count:      count,
			Percentage: successRate(count, total),
		})
	}
	// Deterministic ordering for the response payload.
	sort.Slice(types, func(i, j int) bool {
		if types[i].Count != types[j].Count {
			return types[i].Count > types[j].Count
		}
		return types[i].Name < types[j].Name
	})

	riskDistribution := map[domain.RiskLevel]int{
		domain.RiskLow:      riskCounts[domain.RiskLow],
		domain.RiskMedium:   riskCounts[domain.RiskMedium],
		domain.RiskHigh:     riskCounts[domain.RiskHigh],
		domain.RiskCritical: riskCounts[domain.RiskCritical],
	}

	return &domain.DetailedStats{
		DocumentsProcessed:    total,
		SuccessRate:           successRate(states[domain.StateCompleted], total),
		AverageProcessingSecs: avgSeconds,
		DocumentTypes:         types,
		RiskDistribution:      riskDistribution,
	}, nil
}

func successRate(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
