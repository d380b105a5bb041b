package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bilgisen/autopress/internal/models"
	"github.com/google/uuid"
)

const (
	jobsDir        = "jobs"
	articlesDir    = "articles"
	categoriesFile = "categories.json"
)

// FileStore keeps jobs and articles as JSON files under a base directory.
// It is meant for local runs and a single process.
type FileStore struct {
	basePath string
	mu       sync.RWMutex
	slugs    map[string]bool
	now      func() time.Time
}

func NewFileStore(basePath string) (*FileStore, error) {
	for _, dir := range []string{basePath, filepath.Join(basePath, jobsDir), filepath.Join(basePath, articlesDir)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	s := &FileStore{
		basePath: basePath,
		slugs:    make(map[string]bool),
		now:      time.Now,
	}

	articles, err := s.readArticles()
	if err != nil {
		return nil, err
	}
	for _, a := range articles {
		s.slugs[a.Slug] = true
	}

	return s, nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) jobPath(id string) string {
	return filepath.Join(s.basePath, jobsDir, id+".json")
}

// CreateJob saves a new job, assigning an id and timestamps when missing
func (s *FileStore) CreateJob(ctx context.Context, job *models.JobRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jobs, err := s.readJobs()
	if err != nil {
		return err
	}
	for _, existing := range jobs {
		if existing.TaskKey == job.TaskKey {
			return ErrTaskKeyTaken
		}
	}

	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := s.now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if job.LastRunStatus == "" {
		job.LastRunStatus = models.RunStatusIdle
	}

	return s.writeJob(job)
}

// ListJobs returns all jobs, oldest first
func (s *FileStore) ListJobs(ctx context.Context) ([]*models.JobRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs, err := s.readJobs()
	if err != nil {
		return nil, err
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs, nil
}

func (s *FileStore) JobByTaskKey(ctx context.Context, taskKey string) (*models.JobRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs, err := s.readJobs()
	if err != nil {
		return nil, err
	}
	for _, job := range jobs {
		if job.TaskKey == taskKey {
			return job, nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStore) MarkGenerating(ctx context.Context, id string) error {
	return s.updateJob(ctx, id, func(job *models.JobRecord) {
		job.LastRunStatus = models.RunStatusGenerating
	})
}

func (s *FileStore) CompleteRun(ctx context.Context, id string, c models.RunCompletion) error {
	return s.updateJob(ctx, id, func(job *models.JobRecord) {
		finished := c.FinishedAt.UTC()
		job.LastRunAt = &finished
		job.LastRunStatus = c.Status
		job.TotalRuns++
		job.TotalItemsProduced += c.ItemsProduced
	})
}

// updateJob applies fn under the write lock so concurrent runs in this
// process never lose each other's counter increments
func (s *FileStore) updateJob(ctx context.Context, id string, fn func(*models.JobRecord)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.readJob(s.jobPath(id))
	if err != nil {
		return err
	}
	fn(job)
	job.UpdatedAt = s.now().UTC()
	return s.writeJob(job)
}

func (s *FileStore) readJob(path string) (*models.JobRecord, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	var job models.JobRecord
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", path, err)
	}
	return &job, nil
}

func (s *FileStore) readJobs() ([]*models.JobRecord, error) {
	entries, err := os.ReadDir(filepath.Join(s.basePath, jobsDir))
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	jobs := make([]*models.JobRecord, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		job, err := s.readJob(filepath.Join(s.basePath, jobsDir, e.Name()))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *FileStore) writeJob(job *models.JobRecord) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return writeFileAtomic(s.jobPath(job.ID), data)
}

// SaveArticle writes the article under a dated directory (YYYY/MM/DD)
func (s *FileStore) SaveArticle(ctx context.Context, a *models.Article) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slugs[a.Slug] {
		return ErrSlugTaken
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC()
	}

	datePath := filepath.Join(s.basePath, articlesDir, a.CreatedAt.Format("2006/01/02"))
	if err := os.MkdirAll(datePath, 0755); err != nil {
		return fmt.Errorf("failed to create date directory: %w", err)
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal article: %w", err)
	}

	filename := fmt.Sprintf("%d_%s.json", a.CreatedAt.Unix(), a.ID)
	if err := writeFileAtomic(filepath.Join(datePath, filename), data); err != nil {
		return err
	}

	s.slugs[a.Slug] = true
	return nil
}

// ListArticles retrieves a page of articles, newest first
func (s *FileStore) ListArticles(ctx context.Context, page, pageSize int) ([]*models.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	articles, err := s.readArticles()
	if err != nil {
		return nil, err
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].CreatedAt.After(articles[j].CreatedAt)
	})

	// Apply pagination
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if pageSize <= 0 || start >= len(articles) {
		return []*models.Article{}, nil
	}
	end := min(start+pageSize, len(articles))
	return articles[start:end], nil
}

func (s *FileStore) readArticles() ([]*models.Article, error) {
	var articles []*models.Article
	err := filepath.WalkDir(filepath.Join(s.basePath, articlesDir), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", path, err)
		}
		var a models.Article
		if err := json.Unmarshal(data, &a); err != nil {
			return fmt.Errorf("failed to unmarshal article %s: %w", path, err)
		}
		articles = append(articles, &a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking the path: %w", err)
	}
	return articles, nil
}

// CategoryName resolves a category id from categories.json ({"id": "name"})
func (s *FileStore) CategoryName(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(filepath.Join(s.basePath, categoriesFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read categories: %w", err)
	}

	var categories map[string]string
	if err := json.Unmarshal(data, &categories); err != nil {
		return "", fmt.Errorf("failed to parse categories: %w", err)
	}
	name, ok := categories[id]
	if !ok || name == "" {
		return "", ErrNotFound
	}
	return name, nil
}

// writeFileAtomic writes through a temporary file so readers never see a partial record
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return nil
}
