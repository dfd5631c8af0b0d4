// Package extractor pulls plain text out of stored documents, dispatching on
// the file extension.
package extractor

import (
	"context"
	"fmt"
	"io"

	"github.com/clauseguard/docengine/internal/core/domain"
	"github.com/clauseguard/docengine/internal/core/ports"
)

type Extractor struct {
	storage ports.ObjectStorage
}

func New(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	switch doc.Extension() {
	case "pdf":
		return extractPDF(raw)
	case "docx":
		return extractDocx(raw)
	default:
		// .txt, and legacy .doc files which are often plain enough.
		return extractPlaintext(raw, doc.Filename)
	}
}
