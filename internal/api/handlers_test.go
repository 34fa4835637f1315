package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/newsdesk/internal/database"
	"github.com/lysyi3m/newsdesk/internal/tasks"
)

const testKey = "secret"

type mockScheduler struct {
	reloads   int
	triggers  int
	reloadErr error
	queueErr  error
}

func (m *mockScheduler) Start() {}

func (m *mockScheduler) Stop() {}

func (m *mockScheduler) EnqueueTask(task tasks.TaskInterface) error {
	return m.queueErr
}

func (m *mockScheduler) Reload(ctx context.Context) error {
	m.reloads++
	return m.reloadErr
}

func (m *mockScheduler) TriggerFetchAll() error {
	if m.queueErr != nil {
		return m.queueErr
	}
	m.triggers++
	return nil
}

func (m *mockScheduler) Jobs() []tasks.JobInfo {
	return []tasks.JobInfo{{ID: tasks.CleanupJobID, Interval: time.Hour}}
}

type mockAnalyzer struct {
	enabled bool
	err     error
	titles  []string
}

func (m *mockAnalyzer) Enabled() bool {
	return m.enabled
}

func (m *mockAnalyzer) AnalyzeTitles(ctx context.Context, titles []string, lang string) (string, error) {
	m.titles = titles
	if m.err != nil {
		return "", m.err
	}
	return fmt.Sprintf("%d headlines in %s", len(titles), lang), nil
}

type failingTopics struct {
	database.TopicRepository
}

func (f failingTopics) ListTopics(ctx context.Context) ([]database.Topic, error) {
	return nil, errors.New("disk I/O error: /var/lib/secret.db")
}

type testEnv struct {
	db        *database.DB
	topics    *database.TopicStore
	sources   *database.SourceStore
	articles  *database.ArticleStore
	runs      *database.FetchRunStore
	scheduler *mockScheduler
	analyzer  *mockAnalyzer
	handler   *Handler
	router    *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(database.MemoryPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	env := &testEnv{
		db:        db,
		topics:    database.NewTopicStore(db),
		sources:   database.NewSourceStore(db),
		articles:  database.NewArticleStore(db),
		runs:      database.NewFetchRunStore(db),
		scheduler: &mockScheduler{},
		analyzer:  &mockAnalyzer{enabled: true},
	}
	env.handler = NewHandler(env.topics, env.sources, env.articles, env.runs, env.scheduler, env.analyzer, "zh")
	env.router = NewServer(env.handler, testKey)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testKey)

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}

func (e *testEnv) createTopic(t *testing.T, name string) int64 {
	t.Helper()
	id, err := e.topics.CreateTopic(context.Background(), database.Topic{Name: name, Enabled: true})
	if err != nil {
		t.Fatalf("Failed to create topic: %v", err)
	}
	return id
}

func (e *testEnv) storeArticle(t *testing.T, topicID int64, url, title string, primary bool, published time.Time) int64 {
	t.Helper()
	ctx := context.Background()

	sources, _ := e.sources.ListSources(ctx)
	var sourceID int64
	if len(sources) > 0 {
		sourceID = sources[0].ID
	} else {
		var err error
		sourceID, err = e.sources.CreateSource(ctx, database.Source{Name: "Wire", URL: "https://wire.test/rss", Lang: "en", Enabled: true})
		if err != nil {
			t.Fatalf("Failed to create source: %v", err)
		}
	}

	id, err := e.articles.Store(ctx, database.NewArticle{
		Article: database.Article{SourceID: sourceID, URL: url, TitleOrig: title, LangOrig: "en", PublishedAt: &published, FetchedAt: published},
		Enrichment: database.Enrichment{
			Title:          "译:" + title,
			RelevanceLabel: database.LabelRelevant,
			FinanceScore:   0.8,
			DedupeKey:      "key-" + url,
			IsPrimaryLang:  primary,
		},
		TopicID: topicID,
	})
	if err != nil {
		t.Fatalf("Failed to store article: %v", err)
	}
	return id
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		header   string
		value    string
		expected int
	}{
		{"missing key", "", "", http.StatusUnauthorized},
		{"wrong key", "X-API-Key", "nope", http.StatusUnauthorized},
		{"api key header", "X-API-Key", testKey, http.StatusOK},
		{"bearer token", "Authorization", "Bearer " + testKey, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/topics", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, req)

			if w.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, w.Code)
			}
		})
	}
}

func TestServer_APIDisabledWithoutKey(t *testing.T) {
	env := newTestEnv(t)
	router := NewServer(env.handler, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/topics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 with API disabled, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected health to stay public, got %d", w.Code)
	}
}

func TestGetHealth(t *testing.T) {
	env := newTestEnv(t)
	env.createTopic(t, "黄金")

	w := env.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body map[string]any
	decode(t, w, &body)
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body["status"])
	}
	if body["topics"] != float64(1) {
		t.Errorf("Expected 1 topic, got %v", body["topics"])
	}
	if body["llm_enabled"] != true {
		t.Errorf("Expected llm_enabled true, got %v", body["llm_enabled"])
	}
}

func TestGetStats(t *testing.T) {
	env := newTestEnv(t)
	topicID := env.createTopic(t, "黄金")
	env.storeArticle(t, topicID, "https://wire.test/a", "Gold rises", true, time.Now().UTC())

	w := env.do(t, http.MethodGet, "/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body map[string]any
	decode(t, w, &body)
	if body["articles"] != float64(1) {
		t.Errorf("Expected 1 article, got %v", body["articles"])
	}
}

func TestCreateTopic(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/topics", map[string]any{
		"name":     " 黄金 ",
		"name_en":  "Gold",
		"keywords": []string{"黄金", "gold"},
		"is_core":  true,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var topic topicResponse
	decode(t, w, &topic)
	if topic.Name != "黄金" || !topic.IsCore || !topic.Enabled {
		t.Errorf("Unexpected topic: %+v", topic)
	}
	if len(topic.Keywords) != 2 {
		t.Errorf("Expected 2 keywords, got %v", topic.Keywords)
	}
	if env.scheduler.reloads != 1 {
		t.Errorf("Expected schedule reload, got %d reloads", env.scheduler.reloads)
	}

	w = env.do(t, http.MethodPost, "/api/topics", map[string]any{"name": "黄金"})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate name, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/topics", map[string]any{"keywords": []string{"x"}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing name, got %d", w.Code)
	}
}

func TestUpdateTopic(t *testing.T) {
	env := newTestEnv(t)
	id := env.createTopic(t, "黄金")

	w := env.do(t, http.MethodPatch, fmt.Sprintf("/api/topics/%d", id), map[string]any{"is_core": true, "enabled": false})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	stored, _ := env.topics.GetTopic(context.Background(), id)
	if !stored.IsCore || stored.Enabled {
		t.Errorf("Expected topic to be core and disabled, got %+v", stored)
	}
	if stored.Name != "黄金" {
		t.Errorf("Expected name to be untouched, got %s", stored.Name)
	}
	if env.scheduler.reloads != 1 {
		t.Errorf("Expected schedule reload, got %d", env.scheduler.reloads)
	}

	w = env.do(t, http.MethodPatch, "/api/topics/999", map[string]any{"is_core": true})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}

	w = env.do(t, http.MethodPatch, "/api/topics/abc", map[string]any{"is_core": true})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestCreateAndUpdateSource(t *testing.T) {
	env := newTestEnv(t)
	topicID := env.createTopic(t, "黄金")

	w := env.do(t, http.MethodPost, "/api/sources", map[string]any{
		"name":     "Kitco",
		"url":      "https://kitco.test/rss",
		"priority": 5,
		"topic_id": topicID,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var source sourceResponse
	decode(t, w, &source)
	if source.Lang != "en" || source.TopicID == nil || *source.TopicID != topicID || !source.Enabled {
		t.Errorf("Unexpected source: %+v", source)
	}

	w = env.do(t, http.MethodPost, "/api/sources", map[string]any{"url": "https://kitco.test/rss"})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate url, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/sources", map[string]any{"url": "https://other.test/rss", "topic_id": 999})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown topic, got %d", w.Code)
	}

	w = env.do(t, http.MethodPatch, fmt.Sprintf("/api/sources/%d", source.ID), map[string]any{"topic_id": 0, "lang": "ZH"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	stored, _ := env.sources.GetSource(context.Background(), source.ID)
	if stored.TopicID != nil {
		t.Errorf("Expected source to become topic-agnostic, got %v", *stored.TopicID)
	}
	if stored.Lang != "zh" {
		t.Errorf("Expected lang zh, got %s", stored.Lang)
	}

	w = env.do(t, http.MethodGet, "/api/sources", nil)
	var list struct {
		Total int `json:"total"`
	}
	decode(t, w, &list)
	if list.Total != 1 {
		t.Errorf("Expected 1 source, got %d", list.Total)
	}
}

func TestListArticles(t *testing.T) {
	env := newTestEnv(t)
	gold := env.createTopic(t, "黄金")
	oil := env.createTopic(t, "原油")

	now := time.Now().UTC().Truncate(time.Second)
	env.storeArticle(t, gold, "https://wire.test/a", "Gold rises", true, now)
	env.storeArticle(t, gold, "https://wire.test/b", "Gold up", false, now.Add(-time.Hour))
	env.storeArticle(t, oil, "https://wire.test/c", "Oil falls", true, now.Add(-2*time.Hour))

	w := env.do(t, http.MethodGet, fmt.Sprintf("/api/articles?topic_id=%d&primary_only=true", gold), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body struct {
		Articles []articleResponse `json:"articles"`
		Total    int               `json:"total"`
	}
	decode(t, w, &body)
	if body.Total != 1 {
		t.Fatalf("Expected 1 article, got %d", body.Total)
	}
	if body.Articles[0].Title != "译:Gold rises" || body.Articles[0].TitleOrig != "Gold rises" {
		t.Errorf("Unexpected article: %+v", body.Articles[0])
	}
	if len(body.Articles[0].TopicIDs) != 1 || body.Articles[0].TopicIDs[0] != gold {
		t.Errorf("Expected topic ids [%d], got %v", gold, body.Articles[0].TopicIDs)
	}

	w = env.do(t, http.MethodGet, "/api/articles?limit=2", nil)
	decode(t, w, &body)
	if body.Total != 2 {
		t.Errorf("Expected limit to apply, got %d", body.Total)
	}

	w = env.do(t, http.MethodGet, "/api/articles?topic_id=x", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid topic_id, got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/articles?since=yesterday", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid since, got %d", w.Code)
	}
}

func TestListFetchRuns(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	topicID := env.createTopic(t, "黄金")
	sourceID, _ := env.sources.CreateSource(ctx, database.Source{Name: "Wire", URL: "https://wire.test/rss", Lang: "en", Enabled: true})

	now := time.Now().UTC()
	ok, _ := env.runs.StartRun(ctx, topicID, sourceID, now)
	env.runs.FinishRun(ctx, ok, database.RunStatusSuccess, "", now)
	failed, _ := env.runs.StartRun(ctx, topicID, sourceID, now)
	env.runs.FinishRun(ctx, failed, database.RunStatusFailed, "HTTP error: 503", now)

	w := env.do(t, http.MethodGet, "/api/fetch-runs?status=failed", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body struct {
		Runs  []fetchRunResponse `json:"fetch_runs"`
		Total int                `json:"total"`
	}
	decode(t, w, &body)
	if body.Total != 1 || body.Runs[0].Error != "HTTP error: 503" {
		t.Errorf("Expected one failed run with error, got %+v", body.Runs)
	}

	w = env.do(t, http.MethodGet, "/api/fetch-runs?status=bogus", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid status, got %d", w.Code)
	}
}

func TestTriggerFetch(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/fetch", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}
	if env.scheduler.reloads != 1 || env.scheduler.triggers != 1 {
		t.Errorf("Expected reload and trigger, got %d reloads %d triggers", env.scheduler.reloads, env.scheduler.triggers)
	}

	env.scheduler.queueErr = errors.New("task queue is full")
	w = env.do(t, http.MethodPost, "/api/fetch", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 when queue is full, got %d", w.Code)
	}
}

func TestListJobs(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/jobs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"id":"cleanup"`) {
		t.Errorf("Expected cleanup job in response, got %s", w.Body.String())
	}
}

func TestAnalyzeTopic(t *testing.T) {
	env := newTestEnv(t)
	topicID := env.createTopic(t, "黄金")
	now := time.Now().UTC()
	env.storeArticle(t, topicID, "https://wire.test/a", "Gold rises", true, now)
	env.storeArticle(t, topicID, "https://wire.test/b", "Gold up", false, now)

	w := env.do(t, http.MethodGet, fmt.Sprintf("/api/topics/%d/analysis", topicID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]any
	decode(t, w, &body)
	if body["analysis"] != "1 headlines in zh" {
		t.Errorf("Unexpected analysis: %v", body["analysis"])
	}
	if len(env.analyzer.titles) != 1 || env.analyzer.titles[0] != "译:Gold rises" {
		t.Errorf("Expected primary titles only, got %v", env.analyzer.titles)
	}

	w = env.do(t, http.MethodGet, "/api/topics/999/analysis", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}

	env.analyzer.err = errors.New("upstream timeout")
	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/topics/%d/analysis", topicID), nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected 502, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "upstream timeout") {
		t.Error("Expected upstream error to stay out of the response")
	}

	env.analyzer.enabled = false
	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/topics/%d/analysis", topicID), nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 when disabled, got %d", w.Code)
	}
}

func TestGetTopicFeed(t *testing.T) {
	env := newTestEnv(t)
	topicID := env.createTopic(t, "黄金")
	env.storeArticle(t, topicID, "https://wire.test/a", "Gold rises", true, time.Now().UTC())

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/feeds/topics/%d", topicID), nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Errorf("Expected XML content type, got %s", ct)
	}
	if !strings.Contains(w.Body.String(), "<title>译:Gold rises</title>") {
		t.Errorf("Expected translated title in feed, got %s", w.Body.String())
	}
	if w.Header().Get("X-Feed-Items") != "1" {
		t.Errorf("Expected X-Feed-Items 1, got %s", w.Header().Get("X-Feed-Items"))
	}

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/feeds/topics/999", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestInternalErrorsStayGeneric(t *testing.T) {
	env := newTestEnv(t)
	handler := NewHandler(failingTopics{env.topics}, env.sources, env.articles, env.runs, env.scheduler, env.analyzer, "zh")
	router := NewServer(handler, testKey)

	req := httptest.NewRequest(http.MethodGet, "/api/topics", nil)
	req.Header.Set("X-API-Key", testKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "secret.db") {
		t.Errorf("Expected generic error message, got %s", w.Body.String())
	}
}
