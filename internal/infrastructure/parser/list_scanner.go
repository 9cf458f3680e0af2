package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"PressWatch/internal/dateparse"
	"PressWatch/internal/domain"
	"PressWatch/internal/extract"
	"PressWatch/internal/ports"
	"PressWatch/internal/scanner"
)

// ListScanner fetches a source's listing page and extracts candidates with its simple-list rule.
type ListScanner struct {
	fetcher ports.Fetcher
	logger  *slog.Logger
}

var _ scanner.Scanner = (*ListScanner)(nil)

// NewListScanner wires the page fetcher.
func NewListScanner(fetcher ports.Fetcher, log *slog.Logger) *ListScanner {
	return &ListScanner{fetcher: fetcher, logger: log}
}

// Name identifies the strategy inside the registry.
func (s *ListScanner) Name() string {
	return domain.RuleTypeSimpleList
}

// Scan fetches the listing once (no retry) and returns candidates in document order with dates normalized.
func (s *ListScanner) Scan(ctx context.Context, source domain.Source) ([]domain.Candidate, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("list scanner: fetcher: %w", domain.ErrMisconfigured)
	}

	resp, err := s.fetcher.Get(ctx, source.ListingURL)
	if err != nil {
		return nil, &domain.FetchError{URL: source.ListingURL, Err: err}
	}
	if !resp.OK {
		return nil, &domain.FetchError{URL: source.ListingURL, Status: resp.Status}
	}

	candidates, err := extract.Listing(resp.Body, source.ListingURL, source.Rule)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", source.ID, err)
	}

	loc := s.ruleLocation(source)
	for i := range candidates {
		if candidates[i].RawPublishedAt == "" {
			continue
		}
		ts, err := dateparse.NormalizeWithHint(candidates[i].RawPublishedAt, source.Rule.DateFormatHint, loc)
		if err != nil {
			s.debug("date not recognized", "source", source.ID, "raw", candidates[i].RawPublishedAt)
			continue
		}
		candidates[i].PublishedAt = ts
	}

	s.debug("listing scanned", "source", source.ID, "items", len(candidates))
	return candidates, nil
}

func (s *ListScanner) ruleLocation(source domain.Source) *time.Location {
	if source.Rule.Timezone == "" {
		return nil
	}
	loc, err := time.LoadLocation(source.Rule.Timezone)
	if err != nil {
		s.debug("unknown rule timezone", "source", source.ID, "timezone", source.Rule.Timezone)
		return nil
	}
	return loc
}

func (s *ListScanner) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
