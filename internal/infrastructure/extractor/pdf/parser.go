// Package pdf extracts page text from PDF rulebooks and adventure modules.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
)

var ErrNoText = errors.New("pdf has no extractable text")

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse joins page text with blank lines. The title is read from the
// document info dictionary when present.
func (p *Parser) Parse(raw []byte) (out domain.Extraction, err error) {
	// ledongthuc/pdf panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("open pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return domain.Extraction{}, fmt.Errorf("read pdf page %d: %w", i, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return domain.Extraction{}, ErrNoText
	}

	return domain.Extraction{
		Title: strings.TrimSpace(reader.Trailer().Key("Info").Key("Title").Text()),
		Text:  strings.Join(pages, "\n\n"),
	}, nil
}
