package feed

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bilgisen/autopress/internal/cache"
	"github.com/bilgisen/autopress/internal/logger"
	"github.com/bilgisen/autopress/internal/models"
	"github.com/bilgisen/autopress/internal/utils"
)

// Processor remembers which article links were already turned into items
type Processor struct {
	cache cache.Store
	ttl   time.Duration
}

func NewProcessor(store cache.Store, ttl time.Duration) *Processor {
	return &Processor{
		cache: store,
		ttl:   ttl,
	}
}

// Pending drops articles without a link, repeated links and links already
// processed, then orders the rest newest first.
func (p *Processor) Pending(ctx context.Context, items []models.ArticleSummary) ([]models.ArticleSummary, error) {
	log := logger.Component("feed")
	start := time.Now()

	if len(items) == 0 {
		return []models.ArticleSummary{}, nil
	}

	keep := make([]bool, len(items))
	var wg sync.WaitGroup

	// Use a semaphore to limit concurrent cache checks
	semaphore := make(chan struct{}, 10)
	seen := make(map[string]bool, len(items))

	for i, item := range items {
		if item.Link == "" || seen[item.Link] {
			continue
		}
		seen[item.Link] = true

		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-semaphore }()

			processed, err := p.cache.IsProcessed(ctx, utils.Hash(item.Link))
			if err != nil {
				log.Error().
					Err(err).
					Str("url", item.Link).
					Msg("Error checking cache for item")
				return
			}
			keep[i] = !processed
		}()
	}
	wg.Wait()

	pending := make([]models.ArticleSummary, 0, len(items))
	for i, item := range items {
		if keep[i] {
			pending = append(pending, item)
		}
	}

	sort.SliceStable(pending, func(a, b int) bool {
		return pending[a].PublishedAt.After(pending[b].PublishedAt)
	})

	log.Info().
		Int("total_items", len(items)).
		Int("pending_items", len(pending)).
		Dur("duration", time.Since(start)).
		Msg("Filtered processed items")

	return pending, nil
}

// MarkProcessed records link so later runs skip it
func (p *Processor) MarkProcessed(ctx context.Context, link string) error {
	if err := p.cache.MarkProcessed(ctx, utils.Hash(link), p.ttl); err != nil {
		return fmt.Errorf("error marking %s as processed: %w", link, err)
	}
	return nil
}
