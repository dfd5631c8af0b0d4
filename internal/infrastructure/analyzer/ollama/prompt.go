package ollama

import (
	"fmt"
	"strings"

	"github.com/clauseguard/docengine/internal/core/domain"
)

const maxPromptText = 8000

func clip(text string) string {
	if len(text) > maxPromptText {
		return text[:maxPromptText]
	}
	return text
}

func buildAnalysisPrompt(cleanText string) string {
	return `You are a legal document analyst.
Return a strict JSON object with keys:
summary (string, plain-language overview),
risks (array of objects with keys: type (string), level (one of "Low", "Medium", "High", "Critical"), description (string), recommendation (string)),
key_clauses (array of strings),
structure_analysis (object with keys: completeness_score (integer 0-100), missing_sections (array of strings)),
compliance (object with keys: applicable_regulations (array of strings), compliance_score (integer 0-100)).
No markdown, no extra keys.
Focus on practical implications and fairness, in business-friendly language.

Document:
` + clip(cleanText)
}

func buildAnswerPrompt(cleanText string, analysis *domain.AnalysisResult, history []domain.QAEntry, question string) string {
	var b strings.Builder

	b.WriteString("Answer the user question about this document using only the document and analysis below.\n")
	b.WriteString("If they do not contain the answer, say so directly.\n\n")

	if analysis != nil {
		b.WriteString("Analysis summary:\n")
		b.WriteString(analysis.Summary)
		b.WriteString("\n\n")
		if len(analysis.Risks) > 0 {
			b.WriteString("Identified risks:\n")
			for _, risk := range analysis.Risks {
				fmt.Fprintf(&b, "- [%s] %s: %s\n", risk.Level, risk.Type, risk.Description)
			}
			b.WriteString("\n")
		}
	}

	answered := 0
	for _, entry := range history {
		if entry.Status != domain.QAAnswered {
			continue
		}
		if answered == 0 {
			b.WriteString("Earlier exchanges:\n")
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", entry.Question, entry.Answer)
		answered++
	}
	if answered > 0 {
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Document:\n%s\n\nQuestion:\n%s\n", clip(cleanText), question)
	return b.String()
}
