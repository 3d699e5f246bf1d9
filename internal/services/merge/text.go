package merge

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"

	"github.com/ternarybob/indago/pkg/models"
)

// descriptionText extracts plain text from a description in any of the three
// supported encodings. Fingerprints and quality scoring work on this text so
// the same listing hashes identically whether a board serves HTML, markdown,
// or plain text.
func descriptionText(description string, format models.DescriptionFormat) string {
	switch format {
	case models.FormatHTML:
		return htmlToText(description)
	case models.FormatMarkdown:
		return markdownToText(description)
	default:
		return collapseWhitespace(description)
	}
}

func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// html.Parse is lenient; an error here means truly unreadable input.
		return collapseWhitespace(html)
	}
	return collapseWhitespace(doc.Text())
}

func markdownToText(markdown string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return collapseWhitespace(markdown)
	}
	return htmlToText(buf.String())
}

// collapseWhitespace folds all runs of whitespace into single spaces and
// trims the ends.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
