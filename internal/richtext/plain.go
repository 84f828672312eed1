package richtext

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blockTags end a line when flattening editor HTML.
const blockTags = "p, div, li, h1, h2, h3, h4, h5, h6, blockquote"

// PlainText flattens diary HTML into whitespace-normalized text. Input that
// fails to parse is returned trimmed as-is.
func PlainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	var b strings.Builder
	collect(doc.Selection, &b)
	return strings.Join(strings.Fields(b.String()), " ")
}

func collect(s *goquery.Selection, b *strings.Builder) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			b.WriteString(c.Text())
			return
		case "script", "style", "#comment":
			return
		case "br":
			b.WriteByte(' ')
			return
		}
		block := c.Is(blockTags)
		if block {
			b.WriteByte(' ')
		}
		collect(c, b)
		if block {
			b.WriteByte(' ')
		}
	})
}

// IsBlank reports whether html has no visible text.
func IsBlank(html string) bool {
	return PlainText(html) == ""
}

// Preview truncates the plain text of html to at most limit runes, adding an
// ellipsis when cut.
func Preview(html string, limit int) string {
	return Truncate(PlainText(html), limit)
}

// Truncate shortens s to limit runes.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit == 1 {
		return "…"
	}
	return strings.TrimSpace(string(r[:limit-1])) + "…"
}
