package storage

import (
	"context"
	"errors"

	"github.com/bilgisen/autopress/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")
	// ErrSlugTaken is returned when an article slug is already in use
	ErrSlugTaken = errors.New("slug already taken")
	// ErrTaskKeyTaken is returned when a job task key collides
	ErrTaskKeyTaken = errors.New("task key already taken")
)

// JobStore persists job records and their run statistics
type JobStore interface {
	JobByTaskKey(ctx context.Context, taskKey string) (*models.JobRecord, error)
	// MarkGenerating moves the job into the generating state
	MarkGenerating(ctx context.Context, id string) error
	// CompleteRun records the outcome of a run. Counters are incremented
	// by the store, never overwritten from a value the caller read earlier.
	CompleteRun(ctx context.Context, id string, c models.RunCompletion) error
	CreateJob(ctx context.Context, job *models.JobRecord) error
	ListJobs(ctx context.Context) ([]*models.JobRecord, error)
}

// ArticleStore persists produced articles
type ArticleStore interface {
	SaveArticle(ctx context.Context, a *models.Article) error
	ListArticles(ctx context.Context, page, pageSize int) ([]*models.Article, error)
	CategoryName(ctx context.Context, id string) (string, error)
}

// Store is a complete persistence backend
type Store interface {
	JobStore
	ArticleStore
	Close() error
}
