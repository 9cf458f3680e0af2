package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// bodySelectors are tried in order; the first non-empty match wins.
var bodySelectors = []string{"article", "main", "#main", ".content", "body"}

// PlainText returns the readable text of an article page, whitespace-collapsed and cut to limit runes
// (limit <= 0 means no cut). Scripts, styles and navigation are dropped.
func PlainText(html string, limit int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse article: %w", err)
	}

	doc.Find("script, style, noscript, nav, header, footer").Remove()

	var text string
	for _, sel := range bodySelectors {
		text = strings.Join(strings.Fields(doc.Find(sel).First().Text()), " ")
		if text != "" {
			break
		}
	}

	if limit > 0 && utf8.RuneCountInString(text) > limit {
		text = string([]rune(text)[:limit])
	}
	return text, nil
}
