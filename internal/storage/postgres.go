package storage

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/bilgisen/autopress/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

var jobColumns = []string{
	"id", "task_key", "name", "kind", "source_config", "target_category_id",
	"items_per_run", "is_active", "is_publish_by_default", "last_run_at",
	"last_run_status", "total_runs", "total_items_produced", "created_at", "updated_at",
}

// PostgresStore persists jobs and articles in PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
	psql sq.StatementBuilderType
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &PostgresStore{
		pool: pool,
		psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Migrate creates the tables when they do not exist
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.JobRecord) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.LastRunStatus == "" {
		job.LastRunStatus = models.RunStatusIdle
	}

	source, err := json.Marshal(job.Source)
	if err != nil {
		return fmt.Errorf("failed to marshal source config: %w", err)
	}

	query, args, err := s.psql.Insert("jobs").
		Columns("id", "task_key", "name", "kind", "source_config", "target_category_id",
			"items_per_run", "is_active", "is_publish_by_default", "last_run_status").
		Values(job.ID, job.TaskKey, job.Name, string(job.Kind), source, nullable(job.TargetCategoryID),
			job.ItemsPerRun, job.IsActive, job.IsPublishByDefault, string(job.LastRunStatus)).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	err = s.pool.QueryRow(ctx, query, args...).Scan(&job.CreatedAt, &job.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrTaskKeyTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListJobs(ctx context.Context) ([]*models.JobRecord, error) {
	query, args, err := s.psql.Select(jobColumns...).
		From("jobs").
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.JobRecord
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

func (s *PostgresStore) JobByTaskKey(ctx context.Context, taskKey string) (*models.JobRecord, error) {
	query, args, err := s.psql.Select(jobColumns...).
		From("jobs").
		Where(sq.Eq{"task_key": taskKey}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	job, err := scanJob(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *PostgresStore) MarkGenerating(ctx context.Context, id string) error {
	return s.execJobUpdate(ctx, s.psql.Update("jobs").
		Set("last_run_status", string(models.RunStatusGenerating)).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}))
}

func (s *PostgresStore) CompleteRun(ctx context.Context, id string, c models.RunCompletion) error {
	return s.execJobUpdate(ctx, s.psql.Update("jobs").
		Set("last_run_at", c.FinishedAt.UTC()).
		Set("last_run_status", string(c.Status)).
		Set("total_runs", sq.Expr("total_runs + 1")).
		Set("total_items_produced", sq.Expr("total_items_produced + ?", c.ItemsProduced)).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}))
}

func (s *PostgresStore) execJobUpdate(ctx context.Context, b sq.UpdateBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SaveArticle(ctx context.Context, a *models.Article) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	query, args, err := s.psql.Insert("articles").
		Columns("id", "title", "slug", "content", "excerpt", "image_url", "category_id",
			"source_name", "source_url", "is_published", "job_id").
		Values(a.ID, a.Title, a.Slug, a.Content, a.Excerpt, nullable(a.ImageURL), nullable(a.CategoryID),
			a.SourceName, nullable(a.SourceURL), a.IsPublished, nullable(a.JobID)).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	err = s.pool.QueryRow(ctx, query, args...).Scan(&a.CreatedAt)
	if isUniqueViolation(err) {
		return ErrSlugTaken
	}
	if err != nil {
		return fmt.Errorf("failed to save article: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListArticles(ctx context.Context, page, pageSize int) ([]*models.Article, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		return []*models.Article{}, nil
	}

	query, args, err := s.psql.Select("id", "title", "slug", "content", "excerpt",
		"coalesce(image_url, '')", "coalesce(category_id, '')", "source_name",
		"coalesce(source_url, '')", "is_published", "coalesce(job_id, '')", "created_at").
		From("articles").
		OrderBy("created_at DESC").
		Limit(uint64(pageSize)).
		Offset(uint64((page - 1) * pageSize)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	articles := []*models.Article{}
	for rows.Next() {
		var a models.Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Slug, &a.Content, &a.Excerpt, &a.ImageURL,
			&a.CategoryID, &a.SourceName, &a.SourceURL, &a.IsPublished, &a.JobID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return articles, nil
}

func (s *PostgresStore) CategoryName(ctx context.Context, id string) (string, error) {
	query, args, err := s.psql.Select("name").
		From("categories").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build query: %w", err)
	}

	var name string
	err = s.pool.QueryRow(ctx, query, args...).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get category: %w", err)
	}
	return name, nil
}

func scanJob(row pgx.Row) (*models.JobRecord, error) {
	var (
		job        models.JobRecord
		kind       string
		status     string
		source     []byte
		categoryID *string
	)

	err := row.Scan(&job.ID, &job.TaskKey, &job.Name, &kind, &source, &categoryID,
		&job.ItemsPerRun, &job.IsActive, &job.IsPublishByDefault, &job.LastRunAt,
		&status, &job.TotalRuns, &job.TotalItemsProduced, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	job.Kind = models.JobKind(kind)
	job.LastRunStatus = models.RunStatus(status)
	if categoryID != nil {
		job.TargetCategoryID = *categoryID
	}
	if len(source) > 0 {
		if err := json.Unmarshal(source, &job.Source); err != nil {
			return nil, fmt.Errorf("failed to decode source config of job %s: %w", job.ID, err)
		}
	}
	return &job, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
