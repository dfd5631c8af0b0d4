package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/clauseguard/docengine/internal/core/domain"
	"github.com/clauseguard/docengine/internal/core/ports"
)

const (
	FormatJSON = "json"
	FormatText = "txt"

	SectionSummary         = "summary"
	SectionRisks           = "risks"
	SectionRecommendations = "recommendations"
	SectionStructure       = "structure"
	SectionCompliance      = "compliance"
)

// sectionOrder fixes the rendering order regardless of how the request lists
// sections, so identical inputs produce byte-identical exports.
var sectionOrder = []string{
	SectionSummary,
	SectionRisks,
	SectionRecommendations,
	SectionStructure,
	SectionCompliance,
}

// ExportAnalysisUseCase renders a completed analysis as JSON or plain text.
type ExportAnalysisUseCase struct {
	documents ports.DocumentRepository
	workflows ports.WorkflowRepository
	analyses  ports.AnalysisRepository
}

func NewExportAnalysisUseCase(
	documents ports.DocumentRepository,
	workflows ports.WorkflowRepository,
	analyses ports.AnalysisRepository,
) *ExportAnalysisUseCase {
	return &ExportAnalysisUseCase{
		documents: documents,
		workflows: workflows,
		analyses:  analyses,
	}
}

// exportView marshals with omitted sections absent rather than null. The
// slice sections are pointers so a requested section with zero entries still
// serializes as an empty array. Field order is fixed by the struct, which
// keeps the JSON deterministic.
type exportView struct {
	DocumentID      string                    `json:"document_id"`
	Filename        string                    `json:"filename"`
	AnalyzedAt      string                    `json:"analyzed_at"`
	Summary         string                    `json:"summary,omitempty"`
	Risks           *[]domain.Risk            `json:"risks,omitempty"`
	Recommendations *[]string                 `json:"recommendations,omitempty"`
	Structure       *domain.StructureAnalysis `json:"structure_analysis,omitempty"`
	Compliance      *domain.Compliance        `json:"compliance,omitempty"`
}

// Export renders the analysis for documentID. An empty section set means all
// sections. The content type of the payload is returned alongside the bytes.
func (uc *ExportAnalysisUseCase) Export(ctx context.Context, documentID, format string, sections []string) ([]byte, string, error) {
	requested, err := normalizeSections(sections)
	if err != nil {
		return nil, "", err
	}

	doc, err := uc.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, "", fmt.Errorf("fetch document: %w", err)
	}
	analysis, err := uc.analyses.GetByDocumentID(ctx, documentID)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return nil, "", domain.WrapError(domain.ErrNotReady, "export", errors.New("analysis does not exist"))
		}
		return nil, "", fmt.Errorf("fetch analysis: %w", err)
	}

	switch format {
	case FormatJSON:
		payload, err := renderJSON(doc, analysis, requested)
		if err != nil {
			return nil, "", err
		}
		return payload, "application/json", nil
	case FormatText:
		return renderText(doc, analysis, requested), "text/plain; charset=utf-8", nil
	default:
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "export",
			fmt.Errorf("unsupported format %q", format))
	}
}

func normalizeSections(sections []string) (map[string]bool, error) {
	requested := make(map[string]bool, len(sectionOrder))
	if len(sections) == 0 {
		for _, s := range sectionOrder {
			requested[s] = true
		}
		return requested, nil
	}
	for _, s := range sections {
		name := strings.ToLower(strings.TrimSpace(s))
		switch name {
		case SectionSummary, SectionRisks, SectionRecommendations, SectionStructure, SectionCompliance:
			requested[name] = true
		default:
			return nil, domain.WrapError(domain.ErrInvalidInput, "export",
				fmt.Errorf("unknown section %q", s))
		}
	}
	return requested, nil
}

func renderJSON(doc *domain.Document, analysis *domain.AnalysisResult, requested map[string]bool) ([]byte, error) {
	view := exportView{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		AnalyzedAt: analysis.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if requested[SectionSummary] {
		view.Summary = analysis.Summary
	}
	if requested[SectionRisks] {
		risks := analysis.Risks
		if risks == nil {
			risks = []domain.Risk{}
		}
		view.Risks = &risks
	}
	if requested[SectionRecommendations] {
		recs := recommendations(analysis)
		view.Recommendations = &recs
	}
	if requested[SectionStructure] {
		structure := analysis.Structure
		view.Structure = &structure
	}
	if requested[SectionCompliance] {
		compliance := analysis.Compliance
		view.Compliance = &compliance
	}

	payload, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return payload, nil
}

func renderText(doc *domain.Document, analysis *domain.AnalysisResult, requested map[string]bool) []byte {
	var b strings.Builder
	b.WriteString("Document Analysis Report\n")
	b.WriteString(strings.Repeat("=", 50) + "\n")
	fmt.Fprintf(&b, "Document: %s\n", doc.Filename)
	fmt.Fprintf(&b, "Analyzed: %s\n", analysis.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"))

	for _, section := range sectionOrder {
		if !requested[section] {
			continue
		}
		b.WriteString("\n")
		switch section {
		case SectionSummary:
			b.WriteString("Summary\n-------\n")
			b.WriteString(analysis.Summary + "\n")
		case SectionRisks:
			b.WriteString("Risks\n-----\n")
			if len(analysis.Risks) == 0 {
				b.WriteString("No risks identified.\n")
			}
			for _, r := range analysis.Risks {
				fmt.Fprintf(&b, "- [%s] %s: %s\n", r.Level, r.Type, r.Description)
			}
		case SectionRecommendations:
			b.WriteString("Recommendations\n---------------\n")
			recs := recommendations(analysis)
			if len(recs) == 0 {
				b.WriteString("No recommendations.\n")
			}
			for _, rec := range recs {
				fmt.Fprintf(&b, "- %s\n", rec)
			}
		case SectionStructure:
			b.WriteString("Structure\n---------\n")
			fmt.Fprintf(&b, "Completeness score: %d/100\n", analysis.Structure.CompletenessScore)
			for _, missing := range analysis.Structure.MissingSections {
				fmt.Fprintf(&b, "Missing section: %s\n", missing)
			}
		case SectionCompliance:
			b.WriteString("Compliance\n----------\n")
			fmt.Fprintf(&b, "Compliance score: %d/100\n", analysis.Compliance.ComplianceScore)
			for _, reg := range analysis.Compliance.ApplicableRegulations {
				fmt.Fprintf(&b, "Applicable regulation: %s\n", reg)
			}
		}
	}
	return []byte(b.String())
}

func recommendations(analysis *domain.AnalysisResult) []string {
	recs := make([]string, 0, len(analysis.Risks))
	for _, r := range analysis.Risks {
		if r.Recommendation != "" {
			recs = append(recs, r.Recommendation)
		}
	}
	return recs
}
