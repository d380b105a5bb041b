package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bilgisen/autopress/internal/ai"
	"github.com/bilgisen/autopress/internal/cache"
	"github.com/bilgisen/autopress/internal/feed"
	"github.com/bilgisen/autopress/internal/logger"
	"github.com/bilgisen/autopress/internal/models"
	"github.com/bilgisen/autopress/internal/storage"
	"github.com/rs/zerolog"
)

var (
	// ErrJobNotFound is returned when no job matches the task key
	ErrJobNotFound = errors.New("not found")
	// ErrJobDisabled is returned for an inactive job
	ErrJobDisabled = errors.New("disabled")
	// ErrJobBusy is returned while another run of the same job holds the lock
	ErrJobBusy = errors.New("already running")
)

// ArticleWriter synthesizes article drafts
type ArticleWriter interface {
	GenerateArticle(ctx context.Context, req ai.GenerateRequest) (*ai.Draft, error)
	RewriteArticle(ctx context.Context, req ai.RewriteRequest) (*ai.Draft, error)
}

// Illustrator renders a lead image for a finished draft
type Illustrator interface {
	Illustrate(ctx context.Context, title, content string) (string, error)
}

// ContentExtractor scrapes one article page
type ContentExtractor interface {
	Extract(ctx context.Context, pageURL string) models.ExtractedContent
}

// FeedSource reads syndication feeds by catalog id
type FeedSource interface {
	FetchMany(ctx context.Context, ids []string) ([]models.ArticleSummary, feed.FetchStats)
}

// LinkTracker remembers which feed entries were already turned into articles
type LinkTracker interface {
	Pending(ctx context.Context, items []models.ArticleSummary) ([]models.ArticleSummary, error)
	MarkProcessed(ctx context.Context, link string) error
}

// MediaStore copies a remote image to storage the site controls
type MediaStore interface {
	Mirror(ctx context.Context, src string) (string, error)
}

// Locker hands out named advisory locks
type Locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (func(), error)
}

// Deps are the collaborators of a Runner. Illustrator, Feeds, Links,
// Extractor, Media and Locks are optional; a nil value disables the feature.
type Deps struct {
	Jobs        storage.JobStore
	Articles    storage.ArticleStore
	Writer      ArticleWriter
	Illustrator Illustrator
	Extractor   ContentExtractor
	Feeds       FeedSource
	Links       LinkTracker
	Media       MediaStore
	Locks       Locker
}

// Options tunes a Runner
type Options struct {
	// Delay is the pause between two iterations of one run
	Delay               time.Duration
	DefaultCategoryName string
	DefaultLanguage     string
	LockTTL             time.Duration
	// WriterName is stored as the source of theme-generated articles
	WriterName string
}

// TriggerReport is the outcome of a run that got past the activity check
type TriggerReport struct {
	Success              bool               `json:"success"`
	JobName              string             `json:"jobName"`
	ItemsProduced        int                `json:"itemsProduced"`
	ExecutionTimeSeconds float64            `json:"executionTimeSeconds"`
	PublishStatus        string             `json:"publishStatus"`
	Results              []models.RunResult `json:"results"`
}

// Runner executes jobs
type Runner struct {
	deps  Deps
	opts  Options
	log   *zerolog.Logger
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

func NewRunner(deps Deps, opts Options) *Runner {
	if opts.DefaultCategoryName == "" {
		opts.DefaultCategoryName = "Umum"
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = "id"
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Minute
	}
	if opts.WriterName == "" {
		opts.WriterName = "Newslan AI Writer"
	}

	return &Runner{
		deps:  deps,
		opts:  opts,
		log:   logger.Component("jobs"),
		now:   time.Now,
		sleep: sleepContext,
	}
}

// Trigger runs the job addressed by taskKey to completion.
// Lookup and activity failures leave the job record untouched.
func (r *Runner) Trigger(ctx context.Context, taskKey string) (*TriggerReport, error) {
	start := r.now()

	job, err := r.deps.Jobs.JobByTaskKey(ctx, taskKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if !job.IsActive {
		return nil, ErrJobDisabled
	}

	log := r.log.With().Str("task_key", taskKey).Str("job", job.Name).Logger()

	if r.deps.Locks != nil {
		release, err := r.deps.Locks.AcquireLock(ctx, "job:"+taskKey, r.opts.LockTTL)
		switch {
		case errors.Is(err, cache.ErrLockHeld):
			log.Warn().Msg("Job is already running")
			return nil, ErrJobBusy
		case err != nil:
			log.Error().Err(err).Msg("Run lock unavailable, continuing without it")
		default:
			defer release()
		}
	}

	if err := r.deps.Jobs.MarkGenerating(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("failed to mark job as generating: %w", err)
	}
	log.Info().Int("items_per_run", job.ItemsPerRun).Str("kind", string(job.Kind)).Msg("Job started")

	results := r.RunJob(ctx, job)

	produced := 0
	for _, res := range results {
		if res.Status == models.RunResultSuccess {
			produced++
		}
	}

	status := models.RunStatusFailed
	if produced > 0 {
		status = models.RunStatusSuccess
	}

	finished := r.now()
	if err := r.deps.Jobs.CompleteRun(ctx, job.ID, models.RunCompletion{
		FinishedAt:    finished,
		Status:        status,
		ItemsProduced: produced,
	}); err != nil {
		log.Error().Err(err).Msg("Failed to record run statistics")
	}

	publishStatus := "draft"
	if job.IsPublishByDefault {
		publishStatus = "published"
	}

	elapsed := finished.Sub(start)
	log.Info().
		Int("produced", produced).
		Int("attempted", len(results)).
		Dur("duration", elapsed).
		Str("status", string(status)).
		Msg("Job finished")

	return &TriggerReport{
		Success:              true,
		JobName:              job.Name,
		ItemsProduced:        produced,
		ExecutionTimeSeconds: elapsed.Seconds(),
		PublishStatus:        publishStatus,
		Results:              results,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
