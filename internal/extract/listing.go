// Package extract pulls candidate items out of listing-page markup.
package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"PressWatch/internal/domain"
)

// Listing selects items from html according to rule, in document order. Items missing a title or a
// URL are skipped. Dates are returned as raw text; normalization is left to the caller.
func Listing(html, baseURL string, rule domain.ExtractionRule) ([]domain.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}
	return FromDocument(doc, baseURL, rule), nil
}

// FromDocument runs the extraction over an already parsed document.
func FromDocument(doc *goquery.Document, baseURL string, rule domain.ExtractionRule) []domain.Candidate {
	maxItems := rule.MaxItems
	if maxItems < 0 {
		maxItems = 0
	}

	results := make([]domain.Candidate, 0)
	doc.Find(rule.ItemSelector).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if maxItems > 0 && len(results) >= maxItems {
			return false
		}

		title := strings.TrimSpace(item.Find(rule.TitleSelector).First().Text())
		href, _ := item.Find(rule.URLSelector).First().Attr("href")
		href = strings.TrimSpace(href)
		if title == "" || href == "" {
			return true
		}

		candidate := domain.Candidate{
			Title: title,
			URL:   resolveURL(href, baseURL),
		}
		if rule.DateSelector != "" {
			candidate.RawPublishedAt = strings.TrimSpace(item.Find(rule.DateSelector).First().Text())
		}

		results = append(results, candidate)
		return true
	})

	return results
}

// resolveURL makes href absolute against base, keeping the literal string when either fails to parse.
func resolveURL(href, base string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
