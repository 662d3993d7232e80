// Package extractor picks a format parser by file extension and feeds it the
// stored source bytes.
package extractor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
	"github.com/kirillkom/campaign-assistant/internal/core/ports"
	"github.com/kirillkom/campaign-assistant/internal/infrastructure/extractor/markdown"
	"github.com/kirillkom/campaign-assistant/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/campaign-assistant/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/campaign-assistant/internal/infrastructure/extractor/xlsx"
)

// MaxSourceBytes caps how much of a stored document is read.
const MaxSourceBytes = 64 << 20

// Parser turns raw document bytes into text.
type Parser interface {
	Parse(raw []byte) (domain.Extraction, error)
}

type Extractor struct {
	storage  ports.ObjectStorage
	parsers  map[string]Parser
	fallback Parser
}

func New(storage ports.ObjectStorage) *Extractor {
	md := markdown.NewParser()
	return &Extractor{
		storage: storage,
		parsers: map[string]Parser{
			".md":       md,
			".markdown": md,
			".pdf":      pdf.NewParser(),
			".xlsx":     xlsx.NewParser(),
		},
		fallback: plaintext.NewParser(),
	}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (domain.Extraction, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(io.LimitReader(reader, MaxSourceBytes))
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("read source document: %w", err)
	}

	extraction, err := e.parserFor(doc.Filename).Parse(raw)
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrInvalidInput, "extract "+doc.Filename, err)
	}
	extraction.Text = strings.TrimSpace(extraction.Text)
	extraction.Title = strings.TrimSpace(extraction.Title)
	return extraction, nil
}

func (e *Extractor) parserFor(filename string) Parser {
	if p, ok := e.parsers[strings.ToLower(filepath.Ext(filename))]; ok {
		return p
	}
	return e.fallback
}
