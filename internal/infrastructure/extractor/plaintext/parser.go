package plaintext

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
)

var ErrBinaryContent = errors.New("unsupported binary format")

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse accepts UTF-8 text only. A leading byte-order mark is dropped.
func (p *Parser) Parse(raw []byte) (domain.Extraction, error) {
	if !utf8.Valid(raw) {
		return domain.Extraction{}, ErrBinaryContent
	}
	text := strings.TrimPrefix(string(raw), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return domain.Extraction{Text: strings.TrimSpace(text)}, nil
}
