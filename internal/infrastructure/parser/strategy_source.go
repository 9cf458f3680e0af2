package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"PressWatch/internal/domain"
	"PressWatch/internal/metrics"
	"PressWatch/internal/scanner"
)

const (
	defaultConcurrency   = 4
	defaultSourceTimeout = 15 * time.Second
)

// StrategySource fans out scanner strategies across the member sources of a group.
//
// Aggregation policy: every member source yields a SourceSnapshot. A failed source carries its error
// next to the successful ones and never aborts the group; the caller decides what to report.
type StrategySource struct {
	registry      *scanner.Registry
	concurrency   int
	sourceTimeout time.Duration
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// StrategyOptions bound the fan-out.
type StrategyOptions struct {
	Concurrency   int
	SourceTimeout time.Duration
	Metrics       *metrics.Metrics
}

// NewStrategySource wires the scanner registry with fan-out limits.
func NewStrategySource(reg *scanner.Registry, opts StrategyOptions, log *slog.Logger) *StrategySource {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = defaultSourceTimeout
	}
	return &StrategySource{
		registry:      reg,
		concurrency:   opts.Concurrency,
		sourceTimeout: opts.SourceTimeout,
		metrics:       opts.Metrics,
		logger:        log,
	}
}

// CrawlGroup crawls exactly the sources listed in the group's membership, concurrently, and returns one
// snapshot per member in input order. Only a missing registry fails the whole call.
func (s *StrategySource) CrawlGroup(ctx context.Context, group domain.Group, sources []domain.Source) (domain.GroupSnapshot, error) {
	if s.registry == nil {
		return domain.GroupSnapshot{}, fmt.Errorf("scanner registry: %w", domain.ErrMisconfigured)
	}

	members := domain.MembersOf(group, sources)
	s.debug("crawl group", "group", group.ID, "sources", len(members))

	snapshots := make([]domain.SourceSnapshot, len(members))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, src := range members {
		g.Go(func() error {
			items, err := s.CrawlSource(gCtx, src)
			snapshots[i] = domain.SourceSnapshot{Source: src, Items: items, Err: err}
			return nil
		})
	}
	// Workers never return errors; failures live in the snapshots.
	_ = g.Wait()

	snapshot := domain.GroupSnapshot{Group: group, Sources: snapshots}
	s.debug("group crawled", "group", group.ID, "failed", len(snapshot.Failed()), "candidates", len(snapshot.Candidates()))
	return snapshot, nil
}

// CrawlSource runs the strategy for one source under the per-source timeout.
func (s *StrategySource) CrawlSource(ctx context.Context, src domain.Source) ([]domain.Candidate, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry: %w", domain.ErrMisconfigured)
	}

	strategy, err := s.registry.Resolve(src.Rule.Type)
	if err != nil {
		s.warn("source skipped", "source", src.ID, "error", err)
		s.metrics.SourceCrawled(src.ID, metrics.OutcomeUnsupported)
		return nil, fmt.Errorf("source %s: %w", src.ID, err)
	}

	sourceCtx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
	defer cancel()

	items, err := strategy.Scan(sourceCtx, src)
	if err != nil {
		s.warn("source crawl failed", "source", src.ID, "error", err)
		if errors.Is(err, domain.ErrFetchFailed) {
			s.metrics.SourceCrawled(src.ID, metrics.OutcomeFetchFailed)
		} else {
			s.metrics.SourceCrawled(src.ID, metrics.OutcomeError)
		}
		return nil, fmt.Errorf("scan source %s: %w", src.ID, err)
	}

	s.metrics.SourceCrawled(src.ID, metrics.OutcomeOK)
	s.debug("source produced items", "source", src.ID, "count", len(items))
	return items, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
