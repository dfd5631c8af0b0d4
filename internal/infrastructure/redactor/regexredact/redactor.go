// Package regexredact masks personally identifiable information in plain
// text using pattern matching. It runs entirely in-process so raw document
// text never leaves the service before analysis.
package regexredact

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/clauseguard/docengine/internal/core/domain"
)

type Level string

const (
	LevelNone    Level = "none"
	LevelPartial Level = "partial"
	LevelFull    Level = "full"
)

func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelNone:
		return LevelNone, nil
	case LevelPartial, "":
		return LevelPartial, nil
	case LevelFull:
		return LevelFull, nil
	default:
		return "", fmt.Errorf("unknown redaction level %q", s)
	}
}

type piiPattern struct {
	name string
	re   *regexp.Regexp
}

// Ordered so specific patterns claim their matches before broader ones;
// zip_code in particular would otherwise swallow the tail of an SSN.
var patterns = []piiPattern{
	{"ssn", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b|\b\d{9}\b`)},
	{"credit_card", regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`)},
	{"phone", regexp.MustCompile(`\b\d{3}-\d{3}-\d{4}\b|\(\d{3}\)\s*\d{3}-\d{4}`)},
	{"email", regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{"address", regexp.MustCompile(`(?i)\b\d+\s+[A-Za-z\s]+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Place|Pl)\b`)},
	{"zip_code", regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)},
}

var digitsOnly = regexp.MustCompile(`\D`)

type Redactor struct {
	level Level
}

func New(level Level) *Redactor {
	return &Redactor{level: level}
}

func (r *Redactor) Redact(_ context.Context, text string) (domain.RedactionOutcome, error) {
	if r.level == LevelNone {
		return domain.RedactionOutcome{CleanText: text}, nil
	}

	redacted := text
	found := 0
	for _, p := range patterns {
		matches := p.re.FindAllString(redacted, -1)
		for _, original := range matches {
			replacement := r.mask(p.name, original)
			redacted = strings.Replace(redacted, original, replacement, 1)
			found++
		}
	}
	return domain.RedactionOutcome{CleanText: redacted, EntitiesFound: found}, nil
}

func (r *Redactor) mask(kind, original string) string {
	if r.level == LevelFull {
		return placeholder(kind)
	}
	switch kind {
	case "email":
		parts := strings.SplitN(original, "@", 2)
		if len(parts) == 2 && parts[0] != "" {
			return parts[0][:1] + "***@" + parts[1]
		}
		return placeholder(kind)
	case "ssn", "credit_card":
		digits := digitsOnly.ReplaceAllString(original, "")
		if len(digits) >= 4 {
			return "***-**-" + digits[len(digits)-4:]
		}
		return "[REDACTED]"
	case "phone":
		digits := digitsOnly.ReplaceAllString(original, "")
		if len(digits) >= 10 {
			return "(" + digits[:3] + ") ***-****"
		}
		return placeholder(kind)
	default:
		return placeholder(kind)
	}
}

func placeholder(kind string) string {
	return "[" + strings.ToUpper(kind) + "-REDACTED]"
}
