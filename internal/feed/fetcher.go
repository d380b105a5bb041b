package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bilgisen/autopress/internal/catalog"
	"github.com/bilgisen/autopress/internal/logger"
	"github.com/bilgisen/autopress/internal/models"
	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options tunes the fetcher
type Options struct {
	// Timeout bounds each feed independently
	Timeout time.Duration
	// DefaultCount is how many catalog feeds are read when no ids are given
	DefaultCount int
}

// FetchStats summarizes one FetchMany call
type FetchStats struct {
	Requested   int      `json:"requested"`
	Succeeded   int      `json:"succeeded"`
	Failed      int      `json:"failed"`
	FailedFeeds []string `json:"failedFeeds"`
}

type Fetcher struct {
	client  *resty.Client
	parser  *Parser
	catalog *catalog.Catalog
	opts    Options
}

func NewFetcher(cat *catalog.Catalog, opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.DefaultCount <= 0 {
		opts.DefaultCount = 5
	}

	return &Fetcher{
		client: resty.New().
			SetHeader("User-Agent", browserUserAgent).
			SetHeader("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8").
			SetRetryCount(1).
			SetRetryWaitTime(500 * time.Millisecond).
			SetRetryMaxWaitTime(2 * time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return r != nil && r.StatusCode() >= http.StatusInternalServerError
			}),
		parser:  NewParser(),
		catalog: cat,
		opts:    opts,
	}
}

// FetchFeed retrieves and parses a single feed
func (f *Fetcher) FetchFeed(ctx context.Context, src models.FeedDescriptor) ([]models.ArticleSummary, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		Get(src.URL)

	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed from %s: %w", src.URL, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode(), src.URL)
	}

	return f.parser.Parse(resp.Body(), src)
}

// Select resolves ids against the catalog, or picks the default subset when ids is empty
func (f *Fetcher) Select(ids []string) []models.FeedDescriptor {
	if len(ids) == 0 {
		return f.catalog.Defaults(f.opts.DefaultCount)
	}
	return f.catalog.FindByIDs(ids)
}

// FetchMany fetches the selected feeds concurrently. A failing feed is
// counted in the stats and never fails the call or the other feeds.
func (f *Fetcher) FetchMany(ctx context.Context, ids []string) ([]models.ArticleSummary, FetchStats) {
	log := logger.Component("feed")
	start := time.Now()
	feeds := f.Select(ids)

	stats := FetchStats{Requested: len(feeds), FailedFeeds: []string{}}
	if len(feeds) == 0 {
		log.Info().Strs("feed_ids", ids).Msg("No feeds selected")
		return []models.ArticleSummary{}, stats
	}

	results := make([][]models.ArticleSummary, len(feeds))
	errs := make([]error, len(feeds))

	var g errgroup.Group
	for i, src := range feeds {
		g.Go(func() error {
			feedCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
			defer cancel()

			feedStart := time.Now()
			items, err := f.FetchFeed(feedCtx, src)
			if err != nil {
				errs[i] = err
				log.Warn().
					Err(err).
					Str("feed_id", src.ID).
					Dur("duration", time.Since(feedStart)).
					Msg("Feed fetch failed")
				return nil
			}

			results[i] = items
			log.Debug().
				Str("feed_id", src.ID).
				Int("items", len(items)).
				Dur("duration", time.Since(feedStart)).
				Msg("Fetched feed")
			return nil
		})
	}
	_ = g.Wait()

	articles := make([]models.ArticleSummary, 0)
	for i, src := range feeds {
		if errs[i] != nil {
			stats.Failed++
			stats.FailedFeeds = append(stats.FailedFeeds, src.ID)
			continue
		}
		stats.Succeeded++
		articles = append(articles, results[i]...)
	}

	log.Info().
		Int("feeds", stats.Requested).
		Int("failed", stats.Failed).
		Int("articles", len(articles)).
		Dur("duration", time.Since(start)).
		Msg("Fetched feeds")

	return articles, stats
}
