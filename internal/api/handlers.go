package api

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bilgisen/autopress/internal/catalog"
	"github.com/bilgisen/autopress/internal/config"
	"github.com/bilgisen/autopress/internal/jobs"
	"github.com/bilgisen/autopress/internal/logger"
	"github.com/bilgisen/autopress/internal/middleware"
	"github.com/bilgisen/autopress/internal/models"
	"github.com/bilgisen/autopress/internal/storage"
	"github.com/bilgisen/autopress/internal/utils"
	"github.com/gofiber/fiber/v2"
)

const version = "1.0.0"

// JobTrigger runs a job by task key
type JobTrigger interface {
	Trigger(ctx context.Context, taskKey string) (*jobs.TriggerReport, error)
}

// Deps are the services the handlers front
type Deps struct {
	Catalog   *catalog.Catalog
	Feeds     jobs.FeedSource
	Extractor jobs.ContentExtractor
	Runner    JobTrigger
	Store     storage.Store
}

type Handlers struct {
	config *config.Config
	deps   Deps
}

func NewHandlers(cfg *config.Config, deps Deps) *Handlers {
	return &Handlers{config: cfg, deps: deps}
}

// HealthCheck handles GET /api/v1/health
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": version,
		"time":    time.Now().Format(time.RFC3339),
	})
}

// ListFeeds handles GET /api/v1/feeds
func (h *Handlers) ListFeeds(c *fiber.Ctx) error {
	feeds := h.deps.Catalog.All()
	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(feeds),
		"feeds":   feeds,
	})
}

// FetchFeeds handles GET /api/v1/feeds/articles?feeds=a,b
func (h *Handlers) FetchFeeds(c *fiber.Ctx) error {
	var ids []string
	for _, id := range strings.Split(c.Query("feeds"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	articles, stats := h.deps.Feeds.FetchMany(c.UserContext(), ids)
	return c.JSON(fiber.Map{
		"success":     true,
		"count":       len(articles),
		"failedFeeds": stats.Failed,
		"stats":       stats,
		"articles":    articles,
	})
}

// ExtractRequest is the body of POST /api/v1/extract
type ExtractRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// Extract handles POST /api/v1/extract
func (h *Handlers) Extract(c *fiber.Ctx) error {
	req := middleware.Validated[ExtractRequest](c)
	if req == nil {
		return fiber.ErrBadRequest
	}

	content := h.deps.Extractor.Extract(c.UserContext(), req.URL)
	return c.JSON(fiber.Map{
		"success": content.OK(),
		"data": fiber.Map{
			"title":         content.Title,
			"bodyText":      content.BodyText,
			"leadImage":     content.LeadImage,
			"author":        content.Author,
			"status":        content.Status,
			"contentLength": len([]rune(content.BodyText)),
		},
	})
}

// TriggerJob handles GET /api/v1/jobs/:taskKey
func (h *Handlers) TriggerJob(c *fiber.Ctx) error {
	taskKey := c.Params("taskKey")
	log := logger.Get().With().Str("task_key", taskKey).Str("ip", c.IP()).Logger()

	report, err := h.deps.Runner.Trigger(c.UserContext(), taskKey)
	if err != nil {
		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, jobs.ErrJobNotFound):
			status = fiber.StatusNotFound
		case errors.Is(err, jobs.ErrJobDisabled):
			status = fiber.StatusBadRequest
		case errors.Is(err, jobs.ErrJobBusy):
			status = fiber.StatusConflict
		default:
			log.Error().Err(err).Msg("Job trigger failed")
		}
		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(report)
}

// CreateJobRequest is the body of POST /api/v1/admin/jobs
type CreateJobRequest struct {
	Name               string              `json:"name" validate:"required,max=200"`
	Kind               models.JobKind      `json:"kind" validate:"required,oneof=theme feed"`
	Source             models.SourceConfig `json:"sourceConfig"`
	TargetCategoryID   string              `json:"targetCategoryId"`
	ItemsPerRun        int                 `json:"itemsPerRun" validate:"min=1,max=20"`
	IsActive           *bool               `json:"isActive"`
	IsPublishByDefault bool                `json:"isPublishByDefault"`
}

// CreateJob handles POST /api/v1/admin/jobs
func (h *Handlers) CreateJob(c *fiber.Ctx) error {
	req := middleware.Validated[CreateJobRequest](c)
	if req == nil {
		return fiber.ErrBadRequest
	}

	if req.Kind == models.JobKindTheme && strings.TrimSpace(req.Source.Theme) == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success": false,
			"error":   "Validation failed",
			"fields":  fiber.Map{"Theme": "required"},
		})
	}

	job := &models.JobRecord{
		Name:               req.Name,
		Kind:               req.Kind,
		Source:             req.Source,
		TargetCategoryID:   req.TargetCategoryID,
		ItemsPerRun:        req.ItemsPerRun,
		IsActive:           req.IsActive == nil || *req.IsActive,
		IsPublishByDefault: req.IsPublishByDefault,
	}
	if err := RegisterJob(c.UserContext(), h.deps.Store, job); err != nil {
		logger.Get().Error().Err(err).Str("name", req.Name).Msg("Error creating job")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to create job",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"job":        job,
		"triggerUrl": TriggerURL(h.config.SiteURL, job.TaskKey),
	})
}

// ListJobs handles GET /api/v1/admin/jobs
func (h *Handlers) ListJobs(c *fiber.Ctx) error {
	list, err := h.deps.Store.ListJobs(c.UserContext())
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error listing jobs")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to list jobs",
		})
	}
	if list == nil {
		list = []*models.JobRecord{}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(list),
		"jobs":    list,
	})
}

// ListArticles handles GET /api/v1/admin/articles
func (h *Handlers) ListArticles(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}

	pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))
	switch {
	case pageSize > 100:
		pageSize = 100
	case pageSize <= 0:
		pageSize = 20
	}

	articles, err := h.deps.Store.ListArticles(c.UserContext(), page, pageSize)
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error listing articles")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to list articles",
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"page":      page,
		"page_size": pageSize,
		"count":     len(articles),
		"items":     articles,
	})
}

// RegisterJob assigns a fresh task key and saves job, retrying once on a
// key collision
func RegisterJob(ctx context.Context, store storage.JobStore, job *models.JobRecord) error {
	var err error
	for range 2 {
		if job.TaskKey, err = utils.NewTaskKey(); err != nil {
			return err
		}
		if err = store.CreateJob(ctx, job); !errors.Is(err, storage.ErrTaskKeyTaken) {
			return err
		}
	}
	return err
}

// TriggerURL is the address an external scheduler calls for taskKey
func TriggerURL(siteURL, taskKey string) string {
	return strings.TrimSuffix(siteURL, "/") + "/api/v1/jobs/" + taskKey
}
