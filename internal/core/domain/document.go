package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Document is the record of an uploaded file. Metadata is immutable after
// creation; RedactedContent is written exactly once by the workflow and the
// repository rejects a second write with ErrAlreadySet.
type Document struct {
	ID               string    `json:"document_id"`
	Filename         string    `json:"filename"`
	ContentType      string    `json:"content_type"`
	SizeBytes        int64     `json:"file_size"`
	StoragePath      string    `json:"-"`
	RedactedContent  string    `json:"-"`
	RedactionApplied bool      `json:"redaction_applied"`
	CreatedAt        time.Time `json:"created_at"`
}

// Extension returns the lowercased filename extension without the leading
// dot, or "unknown" when the filename has none.
func (d Document) Extension() string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(d.Filename)), ".")
	if ext == "" {
		return "unknown"
	}
	return ext
}

// RedactionOutcome is what the redaction collaborator returns.
type RedactionOutcome struct {
	CleanText     string
	EntitiesFound int
}
