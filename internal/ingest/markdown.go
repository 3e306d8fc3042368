// Package ingest turns policy sources (CSV exports and markdown files) into
// documents and writes them to the document store.
package ingest

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Section is one block of markdown text with the heading it sits under.
type Section struct {
	Heading string
	Text    string
}

// String prefixes the heading so chunks stay searchable by topic.
func (s Section) String() string {
	if s.Heading == "" {
		return s.Text
	}
	return s.Heading + "\n" + s.Text
}

// Parse splits markdown into sections: paragraphs, lists, block quotes and
// code blocks, each tagged with the nearest heading above it. It also
// returns the first level-1 heading.
func Parse(source []byte) ([]Section, string) {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var (
		sections []Section
		heading  string
		title    string
	)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		var body string
		switch n := n.(type) {
		case *ast.Heading:
			heading = strings.TrimSpace(inlineText(n, source))
			if n.Level == 1 && title == "" {
				title = heading
			}
			continue
		case *ast.Paragraph:
			body = inlineText(n, source)
		case *ast.List:
			body = listText(n, source, "")
		case *ast.Blockquote:
			body = inlineText(n, source)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			body = codeText(n, source)
		default:
			continue
		}
		if body = strings.TrimSpace(body); body != "" {
			sections = append(sections, Section{Heading: heading, Text: body})
		}
	}
	return sections, title
}

// Compress merges consecutive sections until each chunk exceeds size bytes.
// The last chunk may be smaller.
func Compress(sections []Section, size int) []string {
	var (
		chunks []string
		buf    strings.Builder
	)
	for _, s := range sections {
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(s.String())
		if buf.Len() > size {
			chunks = append(chunks, buf.String())
			buf.Reset()
		}
	}
	if buf.Len() > 0 {
		chunks = append(chunks, buf.String())
	}
	return chunks
}

func inlineText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Kind() == ast.KindParagraph && n.NextSibling() != nil {
				buf.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.AutoLink:
			buf.Write(t.URL(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func listText(list *ast.List, source []byte, indent string) string {
	var b strings.Builder
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		b.WriteString(indent + "- ")
		first := true
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if sub, ok := c.(*ast.List); ok {
				b.WriteString("\n" + listText(sub, source, indent+"  "))
				continue
			}
			t := strings.TrimSpace(inlineText(c, source))
			if t == "" {
				continue
			}
			if !first {
				b.WriteByte(' ')
			}
			b.WriteString(t)
			first = false
		}
		if item.NextSibling() != nil {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func codeText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}
