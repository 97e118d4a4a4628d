package content

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MinEligibleRunes is the shortest plain text worth sending to a provider.
const MinEligibleRunes = 10

// Eligible reports whether text carries enough prose for augmentation once
// images, links, code blocks and raw HTML are removed.
func Eligible(markdown string) bool {
	return utf8.RuneCountInString(PlainText(markdown)) >= MinEligibleRunes
}

// PlainText returns the prose of a markdown document with whitespace collapsed.
func PlainText(markdown string) string {
	source := []byte(markdown)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindImage, ast.KindLink, ast.KindAutoLink,
			ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindCodeSpan,
			ast.KindHTMLBlock, ast.KindRawHTML:
			return ast.WalkSkipChildren, nil
		case ast.KindText:
			t := n.(*ast.Text)
			b.Write(t.Segment.Value(source))
			b.WriteByte(' ')
		case ast.KindString:
			b.Write(n.(*ast.String).Value)
			b.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})

	return strings.Join(strings.Fields(b.String()), " ")
}

// SplitTitle separates a first-line "# Title" heading from the rest of the text.
// ok is false when the first line is not a level-1 heading.
func SplitTitle(markdown string) (title, rest string, ok bool) {
	first, rest, _ := strings.Cut(markdown, "\n")
	first = strings.TrimRight(first, " \t\r")
	if !strings.HasPrefix(first, "# ") {
		return "", markdown, false
	}
	title = strings.TrimSpace(first[2:])
	if title == "" {
		return "", markdown, false
	}
	return title, strings.TrimLeft(rest, "\r\n"), true
}
