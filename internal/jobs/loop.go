package jobs

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bilgisen/autopress/internal/ai"
	"github.com/bilgisen/autopress/internal/models"
	"github.com/bilgisen/autopress/internal/storage"
	"github.com/bilgisen/autopress/internal/utils"
	"github.com/rs/zerolog"
)

// minSourceRunes is the shortest extracted body worth rewriting
const minSourceRunes = 200

// themeVariants steer each item of a multi-item run toward a different angle
var themeVariants = []string{
	"fokus pada aspek sosial",
	"fokus pada dampak ekonomi",
	"fokus pada opini masyarakat",
	"fokus pada perspektif masa depan",
	"aspek kontroversial",
	"aspek human interest",
}

func variantTheme(theme string, i, n int) string {
	if n <= 1 {
		return theme
	}
	return fmt.Sprintf("%s (%s)", theme, themeVariants[i%len(themeVariants)])
}

// RunJob performs one run of job and returns exactly one result per
// attempted item. Item failures are recorded, never returned.
func (r *Runner) RunJob(ctx context.Context, job *models.JobRecord) []models.RunResult {
	n := max(job.ItemsPerRun, 1)
	log := r.log.With().Str("task_key", job.TaskKey).Logger()

	category := r.categoryName(ctx, job)

	var queue []models.ArticleSummary
	if job.Kind == models.JobKindFeed {
		queue = r.pendingArticles(ctx, job, log)
	}

	results := make([]models.RunResult, 0, n)
	for i := range n {
		start := r.now()

		var res models.RunResult
		switch {
		case job.Kind != models.JobKindFeed:
			res = r.generateItem(ctx, job, category, i, n)
		case i < len(queue):
			res = r.rewriteItem(ctx, job, queue[i])
		default:
			res = errorResult(errors.New("no pending feed article left"))
		}
		results = append(results, res)

		event := log.Info()
		if res.Status != models.RunResultSuccess {
			event = log.Warn().Str("error", res.ErrorMessage)
		}
		event.
			Int("iteration", i+1).
			Int("of", n).
			Str("status", string(res.Status)).
			Dur("duration", r.now().Sub(start)).
			Msg("Item finished")

		if i < n-1 && r.opts.Delay > 0 {
			r.sleep(ctx, r.opts.Delay)
		}
	}
	return results
}

func (r *Runner) categoryName(ctx context.Context, job *models.JobRecord) string {
	if job.TargetCategoryID == "" || r.deps.Articles == nil {
		return r.opts.DefaultCategoryName
	}
	name, err := r.deps.Articles.CategoryName(ctx, job.TargetCategoryID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			r.log.Warn().Err(err).Str("category_id", job.TargetCategoryID).Msg("Category lookup failed")
		}
		return r.opts.DefaultCategoryName
	}
	return name
}

func (r *Runner) language(job *models.JobRecord) string {
	if job.Source.Language != "" {
		return job.Source.Language
	}
	return r.opts.DefaultLanguage
}

func (r *Runner) pendingArticles(ctx context.Context, job *models.JobRecord, log zerolog.Logger) []models.ArticleSummary {
	if r.deps.Feeds == nil {
		log.Error().Msg("Feed job without a feed source")
		return nil
	}

	articles, stats := r.deps.Feeds.FetchMany(ctx, job.Source.FeedIDs)
	log.Info().
		Int("articles", len(articles)).
		Int("feeds_failed", stats.Failed).
		Msg("Fetched feeds for job")

	if r.deps.Links == nil {
		return articles
	}
	pending, err := r.deps.Links.Pending(ctx, articles)
	if err != nil {
		log.Error().Err(err).Msg("Failed to filter processed articles")
		return nil
	}
	return pending
}

func (r *Runner) generateItem(ctx context.Context, job *models.JobRecord, category string, i, n int) models.RunResult {
	if strings.TrimSpace(job.Source.Theme) == "" {
		return errorResult(errors.New("job has no theme"))
	}

	draft, err := r.deps.Writer.GenerateArticle(ctx, ai.GenerateRequest{
		Theme:    variantTheme(job.Source.Theme, i, n),
		Category: category,
		Style:    job.Source.Style,
		Model:    job.Source.Model,
		Language: r.language(job),
	})
	if err != nil {
		return errorResult(err)
	}

	return r.persist(ctx, &models.Article{
		Title:       draft.Title,
		Content:     draft.Content,
		Excerpt:     draft.Excerpt,
		ImageURL:    r.illustrate(ctx, job, draft),
		CategoryID:  job.TargetCategoryID,
		SourceName:  r.opts.WriterName,
		IsPublished: job.IsPublishByDefault,
		JobID:       job.ID,
	})
}

func (r *Runner) rewriteItem(ctx context.Context, job *models.JobRecord, item models.ArticleSummary) models.RunResult {
	title := item.Title
	body := feedText(item)
	var extractedImage string

	if r.deps.Extractor != nil {
		extracted := r.deps.Extractor.Extract(ctx, item.Link)
		extractedImage = extracted.LeadImage
		switch {
		case extracted.OK() && utf8.RuneCountInString(extracted.BodyText) >= minSourceRunes:
			body = extracted.BodyText
			if extracted.Title != "" {
				title = extracted.Title
			}
		case body == "" && extracted.OK():
			body = extracted.BodyText
		default:
			r.log.Debug().
				Str("url", item.Link).
				Str("status", string(extracted.Status)).
				Msg("Using feed text instead of extracted page")
		}
	}

	if body == "" {
		return errorResult(fmt.Errorf("no usable text for %s", item.Link))
	}

	draft, err := r.deps.Writer.RewriteArticle(ctx, ai.RewriteRequest{
		Title:      title,
		Content:    body,
		SourceName: item.SourceName,
		Language:   r.language(job),
	})
	if err != nil {
		return errorResult(err)
	}

	image := r.illustrate(ctx, job, draft)
	if image == "" {
		image = extractedImage
	}
	if image == "" {
		image = item.LeadImage
	}

	content := draft.Content
	if job.Source.ShowSourceAttribution && item.SourceName != "" {
		content += sourceAttribution(item.SourceName)
	}

	res := r.persist(ctx, &models.Article{
		Title:       draft.Title,
		Content:     content,
		Excerpt:     draft.Excerpt,
		ImageURL:    image,
		CategoryID:  job.TargetCategoryID,
		SourceName:  item.SourceName,
		SourceURL:   item.Link,
		IsPublished: job.IsPublishByDefault,
		JobID:       job.ID,
	})

	if res.Status == models.RunResultSuccess && r.deps.Links != nil {
		if err := r.deps.Links.MarkProcessed(ctx, item.Link); err != nil {
			r.log.Error().Err(err).Str("url", item.Link).Msg("Failed to mark article as processed")
		}
	}
	return res
}

// illustrate returns a generated image URL, or "" when disabled or failed
func (r *Runner) illustrate(ctx context.Context, job *models.JobRecord, draft *ai.Draft) string {
	if !job.Source.GenerateImage || r.deps.Illustrator == nil {
		return ""
	}
	image, err := r.deps.Illustrator.Illustrate(ctx, draft.Title, draft.Content)
	if err != nil {
		r.log.Warn().Err(err).Str("title", draft.Title).Msg("Image generation failed")
		return ""
	}
	return image
}

// persist mirrors the image, assigns a slug and saves the article.
// A slug collision is retried once with a fresh suffix.
func (r *Runner) persist(ctx context.Context, a *models.Article) models.RunResult {
	if a.ImageURL != "" && r.deps.Media != nil {
		mirrored, err := r.deps.Media.Mirror(ctx, a.ImageURL)
		if err != nil {
			r.log.Warn().Err(err).Str("image", a.ImageURL).Msg("Image mirroring failed, keeping source URL")
		} else {
			a.ImageURL = mirrored
		}
	}

	a.CreatedAt = r.now().UTC().Truncate(time.Second)

	var err error
	for range 2 {
		a.Slug = utils.Slug(a.Title)
		if err = r.deps.Articles.SaveArticle(ctx, a); !errors.Is(err, storage.ErrSlugTaken) {
			break
		}
	}
	if err != nil {
		return models.RunResult{
			Status:       models.RunResultFailed,
			Title:        a.Title,
			ErrorMessage: err.Error(),
		}
	}

	return models.RunResult{
		Status:     models.RunResultSuccess,
		ProducedID: a.ID,
		Title:      a.Title,
	}
}

func feedText(item models.ArticleSummary) string {
	if text := ai.PlainText(item.RawContent); text != "" {
		return text
	}
	return ai.PlainText(item.Snippet)
}

func sourceAttribution(name string) string {
	return fmt.Sprintf("\n\n<div class=\"source-attribution\"><p><strong>Sumber:</strong> %s</p></div>", html.EscapeString(name))
}

func errorResult(err error) models.RunResult {
	return models.RunResult{Status: models.RunResultError, ErrorMessage: err.Error()}
}
