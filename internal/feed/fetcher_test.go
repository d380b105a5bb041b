package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bilgisen/autopress/internal/catalog"
	"github.com/bilgisen/autopress/internal/models"
	"github.com/gorilla/feeds"
)

func rssFixture(t *testing.T, titles ...string) string {
	t.Helper()
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	feed := &feeds.Feed{
		Title:       "Fixture",
		Link:        &feeds.Link{Href: "https://example.com"},
		Description: "fixture feed",
		Created:     now,
	}
	for i, title := range titles {
		feed.Items = append(feed.Items, &feeds.Item{
			Title:       title,
			Link:        &feeds.Link{Href: "https://example.com/" + title},
			Description: "<p>Ringkasan " + title + "</p>",
			Created:     now.Add(time.Duration(i) * time.Hour),
			Enclosure:   &feeds.Enclosure{Url: "https://cdn.example.com/" + title + ".jpg", Length: "1024", Type: "image/jpeg"},
		})
	}
	rss, err := feed.ToRss()
	if err != nil {
		t.Fatalf("failed to render fixture: %v", err)
	}
	return rss
}

func newTestFetcher(t *testing.T, timeout time.Duration, descs ...models.FeedDescriptor) *Fetcher {
	t.Helper()
	cat, err := catalog.New(descs)
	if err != nil {
		t.Fatalf("catalog.New returned error: %v", err)
	}
	return NewFetcher(cat, Options{Timeout: timeout, DefaultCount: 5})
}

func TestFetchManyIsolatesFailures(t *testing.T) {
	fixture := rssFixture(t, "satu", "dua")
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(fixture))
	}))
	defer good.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not a feed"))
	}))
	defer garbage.Close()

	f := newTestFetcher(t, 300*time.Millisecond,
		models.FeedDescriptor{ID: "good", Name: "Good", URL: good.URL},
		models.FeedDescriptor{ID: "broken", Name: "Broken", URL: broken.URL},
		models.FeedDescriptor{ID: "slow", Name: "Slow", URL: slow.URL},
		models.FeedDescriptor{ID: "garbage", Name: "Garbage", URL: garbage.URL},
	)

	start := time.Now()
	articles, stats := f.FetchMany(context.Background(), []string{"good", "broken", "slow", "garbage"})
	if elapsed := time.Since(start); elapsed > 1500*time.Millisecond {
		t.Errorf("Expected per-feed timeout to bound the call, took %v", elapsed)
	}

	if len(articles) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(articles))
	}
	for _, a := range articles {
		if a.SourceFeedID != "good" || a.SourceName != "Good" {
			t.Errorf("Unexpected source on %+v", a)
		}
	}
	if stats.Requested != 4 || stats.Succeeded != 1 || stats.Failed != 3 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestFetchManyDropsUnknownIDs(t *testing.T) {
	fixture := rssFixture(t, "berita")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fixture))
	}))
	defer srv.Close()

	f := newTestFetcher(t, time.Second,
		models.FeedDescriptor{ID: "known-feed-a", Name: "A", URL: srv.URL},
	)

	articles, stats := f.FetchMany(context.Background(), []string{"known-feed-a", "unknown-feed-x"})
	if len(articles) != 1 {
		t.Fatalf("Expected 1 article, got %d", len(articles))
	}
	if articles[0].SourceFeedID != "known-feed-a" {
		t.Errorf("Expected article from known-feed-a, got %s", articles[0].SourceFeedID)
	}
	if stats.Requested != 1 || stats.Failed != 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestFetchManyNothingSelected(t *testing.T) {
	f := newTestFetcher(t, time.Second, models.FeedDescriptor{ID: "a", URL: "http://127.0.0.1:1"})

	articles, stats := f.FetchMany(context.Background(), []string{"missing"})
	if articles == nil || len(articles) != 0 {
		t.Errorf("Expected empty non-nil result, got %v", articles)
	}
	if stats.Requested != 0 {
		t.Errorf("Expected nothing requested, got %+v", stats)
	}
}

func TestSelectDefaultSubset(t *testing.T) {
	var descs []models.FeedDescriptor
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		descs = append(descs, models.FeedDescriptor{ID: id, URL: "http://example.com/" + id})
	}
	f := newTestFetcher(t, time.Second, descs...)

	got := f.Select(nil)
	if len(got) != 5 {
		t.Fatalf("Expected default subset of 5 feeds, got %d", len(got))
	}
	if got[0].ID != "a" || got[4].ID != "e" {
		t.Errorf("Expected first catalog entries, got %s..%s", got[0].ID, got[4].ID)
	}
}

func TestFetchFeedRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(t, time.Second)
	if _, err := f.FetchFeed(context.Background(), models.FeedDescriptor{ID: "x", URL: srv.URL}); err == nil {
		t.Error("Expected error for 404 response")
	}
}

func TestFetchFeedSendsBrowserUserAgent(t *testing.T) {
	var ua string
	fixture := rssFixture(t, "x")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Write([]byte(fixture))
	}))
	defer srv.Close()

	f := newTestFetcher(t, time.Second)
	if _, err := f.FetchFeed(context.Background(), models.FeedDescriptor{ID: "x", URL: srv.URL}); err != nil {
		t.Fatalf("FetchFeed returned error: %v", err)
	}
	if ua != browserUserAgent {
		t.Errorf("Expected browser user agent, got %q", ua)
	}
}
