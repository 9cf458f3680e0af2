package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"PressWatch/internal/domain"
	"PressWatch/internal/extract"
	"PressWatch/internal/metrics"
	"PressWatch/internal/ports"
)

const (
	defaultWriteConcurrency = 4
	defaultBodyLimit        = 8000
)

// Crawler is the crawl orchestrator as seen by the pipeline.
type Crawler interface {
	CrawlGroup(ctx context.Context, group domain.Group, sources []domain.Source) (domain.GroupSnapshot, error)
	CrawlSource(ctx context.Context, src domain.Source) ([]domain.Candidate, error)
}

// Catalog answers which sources and groups exist.
type Catalog interface {
	Source(id string) (domain.Source, bool)
	Group(id string) (domain.Group, bool)
	EnabledSources() []domain.Source
}

// PipelineDeps wires all driven adapters into the ingest pipeline.
type PipelineDeps struct {
	Crawler    Crawler
	Catalog    Catalog
	Items      ports.ItemRepository
	Fetcher    ports.Fetcher
	Summarizer ports.Summarizer
	// WriteConcurrency bounds concurrent upserts and summarizations.
	WriteConcurrency int
	// BodyLimit caps the article text handed to the summarizer.
	BodyLimit int
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Pipeline implements crawl-and-save and the full group ingest run.
type Pipeline struct {
	crawler     Crawler
	catalog     Catalog
	items       ports.ItemRepository
	fetcher     ports.Fetcher
	summarizer  ports.Summarizer
	concurrency int
	bodyLimit   int
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// SourceFailure names a source that produced nothing in a run.
type SourceFailure struct {
	SourceID string
	Err      error
}

// IngestReport summarizes one ingest run.
type IngestReport struct {
	GroupID string
	// Saved counts records written.
	Saved int
	// New counts candidates the group did not know before the run.
	New int
	// Summarized counts records back-filled with a summary.
	Summarized int
	// StoreFailures counts records that could not be written.
	StoreFailures  int
	FailedSources  []SourceFailure
	CandidateCount int
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.WriteConcurrency <= 0 {
		deps.WriteConcurrency = defaultWriteConcurrency
	}
	if deps.BodyLimit <= 0 {
		deps.BodyLimit = defaultBodyLimit
	}
	return &Pipeline{
		crawler:     deps.Crawler,
		catalog:     deps.Catalog,
		items:       deps.Items,
		fetcher:     deps.Fetcher,
		summarizer:  deps.Summarizer,
		concurrency: deps.WriteConcurrency,
		bodyLimit:   deps.BodyLimit,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}
}

// CrawlAndSave crawls one source of a group and upserts every candidate it lists.
// Existing summaries survive because records are written without one.
// A failed crawl is returned as an error and reported in FailedSources.
func (p *Pipeline) CrawlAndSave(ctx context.Context, groupID, sourceID string) (IngestReport, error) {
	report := IngestReport{GroupID: groupID}
	if err := p.ready(); err != nil {
		return report, err
	}

	group, ok := p.catalog.Group(groupID)
	if !ok {
		return report, fmt.Errorf("group %s: %w", groupID, domain.ErrNotFound)
	}
	src, ok := p.catalog.Source(sourceID)
	if !ok {
		return report, fmt.Errorf("source %s: %w", sourceID, domain.ErrNotFound)
	}
	if !group.Has(src.ID) {
		return report, fmt.Errorf("source %s, group %s: %w", sourceID, groupID, domain.ErrSourceUnavailable)
	}

	candidates, err := p.crawler.CrawlSource(ctx, src)
	if err != nil {
		report.FailedSources = append(report.FailedSources, SourceFailure{SourceID: src.ID, Err: err})
		return report, err
	}
	report.CandidateCount = len(candidates)

	// Repeated URLs on one page collapse into their first occurrence.
	unique := domain.DetectNew(nil, candidates)
	saved, failed, _ := p.persist(ctx, groupID, originsOf(src, unique), unique, false)
	report.Saved = saved
	report.StoreFailures = failed

	p.info("crawl and save finished", "group", groupID, "source", sourceID, "saved", saved, "failed", failed)
	return report, nil
}

// RunGroup crawls every enabled member of a group, stores only the candidates the group does not know yet
// and back-fills their summaries when a summarizer is configured.
func (p *Pipeline) RunGroup(ctx context.Context, groupID string) (IngestReport, error) {
	report := IngestReport{GroupID: groupID}
	if err := p.ready(); err != nil {
		return report, err
	}

	group, ok := p.catalog.Group(groupID)
	if !ok {
		return report, fmt.Errorf("group %s: %w", groupID, domain.ErrNotFound)
	}

	snapshot, err := p.crawler.CrawlGroup(ctx, group, p.catalog.EnabledSources())
	if err != nil {
		return report, fmt.Errorf("crawl group %s: %w", groupID, err)
	}
	for _, failed := range snapshot.Failed() {
		report.FailedSources = append(report.FailedSources, SourceFailure{SourceID: failed.Source.ID, Err: failed.Err})
	}

	candidates := snapshot.Candidates()
	report.CandidateCount = len(candidates)

	urls := make([]string, 0, len(candidates))
	for _, c := range candidates {
		urls = append(urls, c.URL)
	}
	known, err := p.items.KnownURLs(ctx, groupID, urls)
	if err != nil {
		return report, fmt.Errorf("load known urls for %s: %w", groupID, err)
	}

	fresh := domain.DetectNew(known, candidates)
	report.New = len(fresh)

	origins := map[string]domain.Source{}
	for _, s := range snapshot.Sources {
		if s.Err != nil {
			continue
		}
		for _, c := range s.Items {
			if _, seen := origins[c.URL]; !seen {
				origins[c.URL] = s.Source
			}
		}
	}

	report.Saved, report.StoreFailures, report.Summarized = p.persist(ctx, groupID, origins, fresh, true)

	p.info("group run finished",
		"group", groupID,
		"candidates", report.CandidateCount,
		"new", report.New,
		"saved", report.Saved,
		"summarized", report.Summarized,
		"failed_sources", len(report.FailedSources),
	)
	return report, nil
}

// SaveItem upserts a fully specified record, deriving its id from the URL.
func (p *Pipeline) SaveItem(ctx context.Context, item domain.KnownItem) (domain.KnownItem, error) {
	if p.items == nil {
		return item, fmt.Errorf("item store: %w", domain.ErrMisconfigured)
	}
	item.ItemID = domain.ItemID(item.URL)
	if err := p.items.Upsert(ctx, item); err != nil {
		p.metrics.ItemStored(metrics.OutcomeError)
		return item, err
	}
	p.metrics.ItemStored(metrics.OutcomeOK)
	return p.items.Get(ctx, item.GroupID, item.ItemID)
}

// Summarize runs the summarization collaborator directly.
func (p *Pipeline) Summarize(ctx context.Context, req domain.SummaryRequest) (domain.Summary, error) {
	if p.summarizer == nil {
		return domain.Summary{}, fmt.Errorf("summarizer: %w", domain.ErrMisconfigured)
	}
	return p.summarizer.Summarize(ctx, req)
}

func (p *Pipeline) ready() error {
	switch {
	case p.crawler == nil:
		return fmt.Errorf("crawler: %w", domain.ErrMisconfigured)
	case p.catalog == nil:
		return fmt.Errorf("catalog: %w", domain.ErrMisconfigured)
	case p.items == nil:
		return fmt.Errorf("item store: %w", domain.ErrMisconfigured)
	}
	return nil
}

// persist writes candidates concurrently. One failed write never blocks the others.
func (p *Pipeline) persist(ctx context.Context, groupID string, origins map[string]domain.Source, candidates []domain.Candidate, summarize bool) (saved, failed, summarized int) {
	var savedN, failedN, summarizedN atomic.Int64

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, c := range candidates {
		src := origins[c.URL]
		item := domain.KnownItem{
			GroupID:     groupID,
			SourceID:    src.ID,
			SourceName:  src.Name,
			ItemID:      domain.ItemID(c.URL),
			Title:       c.Title,
			URL:         c.URL,
			PublishedAt: c.PublishedAt,
		}

		g.Go(func() error {
			if err := p.items.Upsert(gCtx, item); err != nil {
				failedN.Add(1)
				p.metrics.ItemStored(metrics.OutcomeError)
				p.error("store item failed", "group", groupID, "url", item.URL, "error", err)
				return nil
			}
			savedN.Add(1)
			p.metrics.ItemStored(metrics.OutcomeOK)

			if summarize && p.backfill(gCtx, item) {
				summarizedN.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(savedN.Load()), int(failedN.Load()), int(summarizedN.Load())
}

// backfill fetches the article, summarizes it and rewrites the record. Any failure leaves the
// record without a summary.
func (p *Pipeline) backfill(ctx context.Context, item domain.KnownItem) bool {
	if p.summarizer == nil || p.fetcher == nil {
		return false
	}

	resp, err := p.fetcher.Get(ctx, item.URL)
	if err != nil || !resp.OK {
		if err == nil {
			err = &domain.FetchError{URL: item.URL, Status: resp.Status}
		}
		p.warn("article fetch failed", "url", item.URL, "error", err)
		return false
	}

	body, err := extract.PlainText(resp.Body, p.bodyLimit)
	if err != nil || body == "" {
		p.warn("article body empty", "url", item.URL, "error", err)
		return false
	}

	req := domain.SummaryRequest{
		Title:      item.Title,
		SourceName: item.SourceName,
		URL:        item.URL,
		Body:       body,
	}
	if item.HasPublishedAt() {
		req.PublishedAt = domain.FormatInstant(item.PublishedAt)
	}

	summary, err := p.summarizer.Summarize(ctx, req)
	if err != nil || summary.Text == "" {
		p.warn("summarize failed", "url", item.URL, "error", err)
		return false
	}

	item.SummaryText = summary.Text
	item.Glossary = summary.Glossary
	if err := p.items.Upsert(ctx, item); err != nil {
		p.error("store summary failed", "url", item.URL, "error", err)
		return false
	}
	return true
}

func originsOf(src domain.Source, candidates []domain.Candidate) map[string]domain.Source {
	origins := make(map[string]domain.Source, len(candidates))
	for _, c := range candidates {
		origins[c.URL] = src
	}
	return origins
}

// FetchFailed reports whether any source failure was a fetch failure.
func (r IngestReport) FetchFailed() bool {
	for _, f := range r.FailedSources {
		if errors.Is(f.Err, domain.ErrFetchFailed) {
			return true
		}
	}
	return false
}

func (p *Pipeline) info(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) error(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}
