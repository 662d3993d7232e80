// Package xlsx flattens spreadsheets such as NPC rosters and encounter tables
// into text, one row per line.
package xlsx

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
)

var ErrEmptyWorkbook = errors.New("workbook has no data")

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(raw []byte) (domain.Extraction, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return domain.Extraction{}, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			if line := joinRow(row); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Sheet: " + sheet + "\n")
		b.WriteString(strings.Join(lines, "\n"))
	}
	if b.Len() == 0 {
		return domain.Extraction{}, ErrEmptyWorkbook
	}

	title := ""
	if props, err := f.GetDocProps(); err == nil && props != nil {
		title = strings.TrimSpace(props.Title)
	}
	return domain.Extraction{Title: title, Text: b.String()}, nil
}

func joinRow(row []string) string {
	cells := make([]string, 0, len(row))
	for _, cell := range row {
		if cell = strings.TrimSpace(cell); cell != "" {
			cells = append(cells, cell)
		}
	}
	return strings.Join(cells, " | ")
}
