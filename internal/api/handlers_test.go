package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bilgisen/autopress/internal/catalog"
	"github.com/bilgisen/autopress/internal/config"
	"github.com/bilgisen/autopress/internal/feed"
	"github.com/bilgisen/autopress/internal/jobs"
	"github.com/bilgisen/autopress/internal/models"
	"github.com/bilgisen/autopress/internal/storage"
	"github.com/go-playground/assert/v2"
	"github.com/gofiber/fiber/v2"
)

type fakeRunner struct {
	report *jobs.TriggerReport
	err    error
	gotKey string
}

func (f *fakeRunner) Trigger(ctx context.Context, taskKey string) (*jobs.TriggerReport, error) {
	f.gotKey = taskKey
	return f.report, f.err
}

type fakeFeeds struct{ gotIDs []string }

func (f *fakeFeeds) FetchMany(ctx context.Context, ids []string) ([]models.ArticleSummary, feed.FetchStats) {
	f.gotIDs = ids
	return []models.ArticleSummary{{Title: "Satu", Link: "https://news.example.com/1"}},
		feed.FetchStats{Requested: 2, Succeeded: 1, Failed: 1, FailedFeeds: []string{"b"}}
}

type fakeExtractor struct{}

func (fakeExtractor) Extract(ctx context.Context, pageURL string) models.ExtractedContent {
	return models.ExtractedContent{Title: "Judul", BodyText: "Isi berita è", Status: models.ExtractionOK}
}

type testEnv struct {
	app    *fiber.App
	runner *fakeRunner
	feeds  *fakeFeeds
	store  *storage.FileStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cat, err := catalog.New([]models.FeedDescriptor{
		{ID: "a", Name: "Feed A", URL: "https://a.example.com/rss"},
		{ID: "b", Name: "Feed B", URL: "https://b.example.com/rss"},
	})
	if err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{SiteURL: "https://press.example.com", AdminAPIKey: "secret", Env: "test"}
	env := &testEnv{runner: &fakeRunner{}, feeds: &fakeFeeds{}, store: store}
	h := NewHandlers(cfg, Deps{
		Catalog:   cat,
		Feeds:     env.feeds,
		Extractor: fakeExtractor{},
		Runner:    env.runner,
		Store:     store,
	})
	env.app = NewServer(cfg, h)
	return env
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("invalid JSON response %q: %v", body, err)
	}
	return resp.StatusCode, out
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	status, body := doRequest(t, env.app, httptest.NewRequest("GET", "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestListFeeds(t *testing.T) {
	env := newTestEnv(t)
	status, body := doRequest(t, env.app, httptest.NewRequest("GET", "/api/v1/feeds", nil))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["count"])
}

func TestFetchFeeds(t *testing.T) {
	env := newTestEnv(t)
	status, body := doRequest(t, env.app, httptest.NewRequest("GET", "/api/v1/feeds/articles?feeds=a,%20b,,", nil))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"a", "b"}, env.feeds.gotIDs)
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, float64(1), body["failedFeeds"])
}

func TestExtract(t *testing.T) {
	env := newTestEnv(t)

	status, body := doRequest(t, env.app, jsonRequest("POST", "/api/v1/extract", `{"url":"https://news.example.com/a"}`))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "Judul", data["title"])
	assert.Equal(t, float64(12), data["contentLength"])

	status, body = doRequest(t, env.app, jsonRequest("POST", "/api/v1/extract", `{"url":"not a url"}`))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "url", body["fields"].(map[string]any)["URL"])

	status, _ = doRequest(t, env.app, jsonRequest("POST", "/api/v1/extract", `{"url":`))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTriggerJob(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"not found", jobs.ErrJobNotFound, http.StatusNotFound, "not found"},
		{"disabled", jobs.ErrJobDisabled, http.StatusBadRequest, "disabled"},
		{"busy", jobs.ErrJobBusy, http.StatusConflict, "already running"},
		{"unexpected", io.ErrUnexpectedEOF, http.StatusInternalServerError, "unexpected EOF"},
	}

	for _, tt := range tests {
		env := newTestEnv(t)
		env.runner.err = tt.err

		status, body := doRequest(t, env.app, httptest.NewRequest("GET", "/api/v1/jobs/k3y", nil))
		assert.Equal(t, tt.status, status)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, tt.msg, body["error"])
	}
}

func TestTriggerJobReport(t *testing.T) {
	env := newTestEnv(t)
	env.runner.report = &jobs.TriggerReport{
		Success:       true,
		JobName:       "Ekonomi harian",
		ItemsProduced: 2,
		PublishStatus: "draft",
		Results: []models.RunResult{
			{Status: models.RunResultSuccess, ProducedID: "a1"},
			{Status: models.RunResultError, ErrorMessage: "synthesis unavailable"},
			{Status: models.RunResultSuccess, ProducedID: "a2"},
		},
	}

	status, body := doRequest(t, env.app, httptest.NewRequest("GET", "/api/v1/jobs/k3y", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "k3y", env.runner.gotKey)
	assert.Equal(t, "Ekonomi harian", body["jobName"])
	assert.Equal(t, float64(2), body["itemsProduced"])
	assert.Equal(t, 3, len(body["results"].([]any)))
}

func TestAdminRequiresKey(t *testing.T) {
	env := newTestEnv(t)

	status, _ := doRequest(t, env.app, httptest.NewRequest("GET", "/api/v1/admin/jobs", nil))
	assert.Equal(t, http.StatusUnauthorized, status)

	req := httptest.NewRequest("GET", "/api/v1/admin/jobs", nil)
	req.Header.Set("X-API-Key", "wrong")
	status, _ = doRequest(t, env.app, req)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCreateAndListJobs(t *testing.T) {
	env := newTestEnv(t)

	req := jsonRequest("POST", "/api/v1/admin/jobs", `{
		"name": "Ekonomi harian",
		"kind": "theme",
		"sourceConfig": {"theme": "harga pangan", "style": "Formal", "language": "id"},
		"itemsPerRun": 3
	}`)
	req.Header.Set("X-API-Key", "secret")
	status, body := doRequest(t, env.app, req)
	assert.Equal(t, http.StatusCreated, status)

	job := body["job"].(map[string]any)
	key := job["taskKey"].(string)
	assert.Equal(t, 24, len(key))
	assert.Equal(t, true, job["isActive"])
	assert.Equal(t, "https://press.example.com/api/v1/jobs/"+key, body["triggerUrl"])

	stored, err := env.store.JobByTaskKey(context.Background(), key)
	assert.Equal(t, nil, err)
	assert.Equal(t, 3, stored.ItemsPerRun)

	list := httptest.NewRequest("GET", "/api/v1/admin/jobs", nil)
	list.Header.Set("X-API-Key", "secret")
	status, body = doRequest(t, env.app, list)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["count"])
}

func TestCreateJobValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"kind":"theme","sourceConfig":{"theme":"x"},"itemsPerRun":1}`},
		{"bad kind", `{"name":"n","kind":"video","itemsPerRun":1}`},
		{"too many items", `{"name":"n","kind":"theme","sourceConfig":{"theme":"x"},"itemsPerRun":50}`},
		{"bad style", `{"name":"n","kind":"theme","sourceConfig":{"theme":"x","style":"Lucu"},"itemsPerRun":1}`},
		{"theme job without theme", `{"name":"n","kind":"theme","itemsPerRun":1}`},
	}

	for _, tt := range tests {
		req := jsonRequest("POST", "/api/v1/admin/jobs", tt.body)
		req.Header.Set("X-API-Key", "secret")
		status, _ := doRequest(t, env.app, req)
		if status != http.StatusUnprocessableEntity {
			t.Errorf("%s: status = %d, want 422", tt.name, status)
		}
	}
}

func TestListArticles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, slug := range []string{"satu-aaaaa", "dua-bbbbb", "tiga-ccccc"} {
		if err := env.store.SaveArticle(ctx, &models.Article{Title: slug, Slug: slug}); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest("GET", "/api/v1/admin/articles?page=1&page_size=2", nil)
	req.Header.Set("X-API-Key", "secret")
	status, body := doRequest(t, env.app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, float64(2), body["page_size"])
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	status, body := doRequest(t, env.app, httptest.NewRequest("GET", "/nope", nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Endpoint not found", body["error"])
}

func TestTriggerURL(t *testing.T) {
	assert.Equal(t, "https://x.example.com/api/v1/jobs/abc", TriggerURL("https://x.example.com/", "abc"))
}
