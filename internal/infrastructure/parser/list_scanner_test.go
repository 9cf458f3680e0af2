package parser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"PressWatch/internal/domain"
	"PressWatch/internal/infrastructure/fetch"
)

const pressPage = `
<div class="entrylist"><ul>
  <li><a href="/news/2024/12/02.html"><span class="entrylist_title">Winter launch</span></a>
      <span class="entrymeta_date">2024年 12月 2日（月）</span></li>
  <li><a href="/news/2024/11/15.html"><span class="entrylist_title">Autumn update</span></a>
      <span class="entrymeta_date">coming soon</span></li>
</ul></div>`

func testSource(url string) domain.Source {
	return domain.Source{
		ID:         "six-apart",
		Name:       "Six Apart",
		ListingURL: url,
		Rule: domain.ExtractionRule{
			Type:          domain.RuleTypeSimpleList,
			ItemSelector:  ".entrylist ul > li",
			TitleSelector: ".entrylist_title",
			URLSelector:   "a",
			DateSelector:  ".entrymeta_date",
			MaxItems:      20,
		},
	}
}

func TestListScannerScan(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pressPage))
	}))
	defer server.Close()

	sc := NewListScanner(fetch.NewHTTPFetcher(server.Client(), fetch.Options{}), nil)
	items, err := sc.Scan(context.Background(), testSource(server.URL+"/news/"))
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].URL != server.URL+"/news/2024/12/02.html" {
		t.Fatalf("unexpected url: %s", items[0].URL)
	}
	want := time.Date(2024, time.December, 1, 15, 0, 0, 0, time.UTC)
	if !items[0].PublishedAt.Equal(want) {
		t.Fatalf("unexpected published date: %v", items[0].PublishedAt)
	}
	if items[1].HasPublishedAt() {
		t.Fatalf("unrecognized date should stay unknown, got %v", items[1].PublishedAt)
	}
	if items[1].RawPublishedAt != "coming soon" {
		t.Fatalf("raw date should be kept, got %q", items[1].RawPublishedAt)
	}
}

func TestListScannerFetchFailed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	sc := NewListScanner(fetch.NewHTTPFetcher(server.Client(), fetch.Options{}), nil)
	_, err := sc.Scan(context.Background(), testSource(server.URL))
	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}

	var fetchErr *domain.FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected FetchError with status 503, got %v", err)
	}
}
