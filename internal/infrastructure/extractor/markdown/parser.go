// Package markdown extracts readable text and a title from markdown notes.
package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
)

type Parser struct {
	md goldmark.Markdown
}

func NewParser() *Parser {
	return &Parser{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// Parse drops markup and keeps one block per line. The title comes from a
// front matter "title:" key, else from the first level-one heading.
func (p *Parser) Parse(raw []byte) (domain.Extraction, error) {
	src := bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))
	body, frontTitle := splitFrontMatter(src)

	doc := p.md.Parser().Parse(text.NewReader(body))

	var (
		out        strings.Builder
		firstTitle string
	)
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			line := inlineText(node, body)
			if node.Level == 1 && firstTitle == "" {
				firstTitle = line
			}
			writeBlock(&out, line)
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.TextBlock:
			writeBlock(&out, inlineText(node, body))
			return ast.WalkSkipChildren, nil
		case *east.TableHeader, *east.TableRow:
			writeBlock(&out, tableRow(node, body))
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			writeBlock(&out, blockLines(node, body))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return domain.Extraction{}, err
	}

	title := frontTitle
	if title == "" {
		title = firstTitle
	}
	return domain.Extraction{Title: title, Text: strings.TrimSpace(out.String())}, nil
}

func writeBlock(out *strings.Builder, block string) {
	block = strings.TrimSpace(block)
	if block == "" {
		return
	}
	if out.Len() > 0 {
		out.WriteString("\n")
	}
	out.WriteString(block)
}

func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := c.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.AutoLink:
			b.Write(node.Label(src))
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func tableRow(row ast.Node, src []byte) string {
	cells := make([]string, 0, row.ChildCount())
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		cells = append(cells, strings.TrimSpace(inlineText(c, src)))
	}
	return strings.Join(cells, " | ")
}

func blockLines(n ast.Node, src []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		b.Write(segment.Value(src))
	}
	return b.String()
}

// splitFrontMatter removes a leading "---" block and returns its title key.
func splitFrontMatter(src []byte) ([]byte, string) {
	if !bytes.HasPrefix(src, []byte("---\n")) {
		return src, ""
	}
	rest := src[len("---\n"):]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return src, ""
	}

	title := ""
	for _, line := range strings.Split(string(rest[:end]), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(key), "title") {
			title = strings.Trim(strings.TrimSpace(value), `"'`)
			break
		}
	}

	body := rest[end+len("\n---"):]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}
	return body, title
}
