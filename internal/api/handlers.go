package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/newsdesk/internal/cfg"
	"github.com/lysyi3m/newsdesk/internal/database"
	"github.com/lysyi3m/newsdesk/internal/feed"
	"github.com/lysyi3m/newsdesk/internal/llm"
	"github.com/lysyi3m/newsdesk/internal/tasks"
)

const (
	defaultLimit  = 50
	maxLimit      = 500
	analysisLimit = 30
)

func NewHandler(topicRepo database.TopicRepository, sourceRepo database.SourceRepository,
	articleRepo database.ArticleRepository, runRepo database.FetchRunRepository,
	scheduler tasks.TaskSchedulerInterface, analyzer Analyzer, primaryLang string) *Handler {
	return &Handler{
		topicRepo:   topicRepo,
		sourceRepo:  sourceRepo,
		articleRepo: articleRepo,
		runRepo:     runRepo,
		scheduler:   scheduler,
		analyzer:    analyzer,
		generator:   feed.NewGenerator(),
		primaryLang: primaryLang,
		version:     cfg.GetVersion(),
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if topicCount, err := h.topicRepo.GetTopicCount(c.Request.Context()); err == nil {
		health["topics"] = topicCount
	} else {
		slog.Error("Database error", "operation", "count_topics", "error", err)
		health["status"] = "degraded"
	}

	health["scheduled_jobs"] = len(h.scheduler.Jobs())
	health["llm_enabled"] = h.analyzer != nil && h.analyzer.Enabled()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	stats := map[string]interface{}{}

	if count, err := h.articleRepo.GetArticleCount(ctx); err == nil {
		stats["articles"] = count
	}
	if count, err := h.topicRepo.GetTopicCount(ctx); err == nil {
		stats["topics"] = count
	}
	if count, err := h.sourceRepo.GetSourceCount(ctx); err == nil {
		stats["sources"] = count
	}
	if runs, err := h.runRepo.GetRunStats(ctx); err == nil {
		stats["fetch_runs"] = runs
	}
	stats["jobs"] = h.scheduler.Jobs()

	c.JSON(http.StatusOK, stats)
}

// GetTopicFeed publishes the primary-language articles of a topic as RSS.
func (h *Handler) GetTopicFeed(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.Status(http.StatusBadRequest)
		return
	}

	topic, err := h.topicRepo.GetTopic(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "get_topic", "topic_id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if topic == nil {
		c.Status(http.StatusNotFound)
		return
	}

	articles, err := h.articleRepo.ListArticles(c.Request.Context(), database.ArticleFilter{
		TopicID:     id,
		PrimaryOnly: true,
		Limit:       defaultLimit,
	})
	if err != nil {
		slog.Error("Database error", "operation", "list_articles", "topic_id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(feed.Channel{
		Title:       topic.Name,
		Description: topic.NameEn,
		SelfLink:    fmt.Sprintf("http://%s/feeds/topics/%d", c.Request.Host, id),
		Language:    h.primaryLang,
		Generator:   fmt.Sprintf("newsdesk/%s", h.version),
	}, articles)
	if err != nil {
		slog.Error("RSS generation error", "topic_id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(articles)))
	c.String(http.StatusOK, rss)
}

func (h *Handler) ListTopics(c *gin.Context) {
	topics, err := h.topicRepo.ListTopics(c.Request.Context())
	if err != nil {
		internalError(c, "list_topics", err)
		return
	}

	response := make([]topicResponse, 0, len(topics))
	for _, topic := range topics {
		response = append(response, newTopicResponse(topic))
	}

	c.JSON(http.StatusOK, gin.H{"topics": response, "total": len(response)})
}

func (h *Handler) CreateTopic(c *gin.Context) {
	var req topicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Topic name is required"})
		return
	}

	ctx := c.Request.Context()
	topic := database.Topic{Enabled: true}
	applyTopicRequest(&topic, req)

	if conflict, err := h.topicNameTaken(c, topic.Name, 0); err != nil {
		internalError(c, "list_topics", err)
		return
	} else if conflict {
		c.JSON(http.StatusConflict, gin.H{"error": "Topic name already exists"})
		return
	}

	id, err := h.topicRepo.CreateTopic(ctx, topic)
	if err != nil {
		internalError(c, "create_topic", err)
		return
	}

	created, err := h.topicRepo.GetTopic(ctx, id)
	if err != nil || created == nil {
		internalError(c, "get_topic", err)
		return
	}

	h.reloadSchedule(c)
	c.JSON(http.StatusCreated, newTopicResponse(*created))
}

func (h *Handler) UpdateTopic(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid topic id"})
		return
	}

	var req topicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Topic name cannot be empty"})
		return
	}

	ctx := c.Request.Context()
	topic, err := h.topicRepo.GetTopic(ctx, id)
	if err != nil {
		internalError(c, "get_topic", err)
		return
	}
	if topic == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Topic not found"})
		return
	}

	applyTopicRequest(topic, req)

	if conflict, err := h.topicNameTaken(c, topic.Name, id); err != nil {
		internalError(c, "list_topics", err)
		return
	} else if conflict {
		c.JSON(http.StatusConflict, gin.H{"error": "Topic name already exists"})
		return
	}

	if err := h.topicRepo.UpdateTopic(ctx, *topic); err != nil {
		internalError(c, "update_topic", err)
		return
	}

	h.reloadSchedule(c)
	c.JSON(http.StatusOK, newTopicResponse(*topic))
}

// AnalyzeTopic asks the language model for a briefing over the topic's recent headlines.
func (h *Handler) AnalyzeTopic(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid topic id"})
		return
	}

	if h.analyzer == nil || !h.analyzer.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Language model is not configured"})
		return
	}

	ctx := c.Request.Context()
	topic, err := h.topicRepo.GetTopic(ctx, id)
	if err != nil {
		internalError(c, "get_topic", err)
		return
	}
	if topic == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Topic not found"})
		return
	}

	articles, err := h.articleRepo.ListArticles(ctx, database.ArticleFilter{
		TopicID:     id,
		PrimaryOnly: true,
		Limit:       parseLimit(c, analysisLimit),
	})
	if err != nil {
		internalError(c, "list_articles", err)
		return
	}

	titles := make([]string, 0, len(articles))
	for _, article := range articles {
		titles = append(titles, article.Title)
	}

	response := gin.H{
		"topic_id": id,
		"titles":   len(titles),
		"analysis": "",
	}
	if len(titles) == 0 {
		c.JSON(http.StatusOK, response)
		return
	}

	analysis, err := h.analyzer.AnalyzeTitles(ctx, titles, h.primaryLang)
	if errors.Is(err, llm.ErrDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Language model is not configured"})
		return
	}
	if err != nil {
		slog.Error("Title analysis failed", "topic_id", id, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Analysis failed"})
		return
	}

	response["analysis"] = analysis
	c.JSON(http.StatusOK, response)
}

func (h *Handler) ListSources(c *gin.Context) {
	sources, err := h.sourceRepo.ListSources(c.Request.Context())
	if err != nil {
		internalError(c, "list_sources", err)
		return
	}

	response := make([]sourceResponse, 0, len(sources))
	for _, source := range sources {
		response = append(response, newSourceResponse(source))
	}

	c.JSON(http.StatusOK, gin.H{"sources": response, "total": len(response)})
}

func (h *Handler) CreateSource(c *gin.Context) {
	var req sourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.URL == nil || strings.TrimSpace(*req.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Source url is required"})
		return
	}

	source := database.Source{Lang: "en", Enabled: true}
	applySourceRequest(&source, req)
	if source.Name == "" {
		source.Name = source.URL
	}

	if !h.validateSource(c, source, 0) {
		return
	}

	ctx := c.Request.Context()
	id, err := h.sourceRepo.CreateSource(ctx, source)
	if err != nil {
		internalError(c, "create_source", err)
		return
	}

	created, err := h.sourceRepo.GetSource(ctx, id)
	if err != nil || created == nil {
		internalError(c, "get_source", err)
		return
	}

	c.JSON(http.StatusCreated, newSourceResponse(*created))
}

func (h *Handler) UpdateSource(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid source id"})
		return
	}

	var req sourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.URL != nil && strings.TrimSpace(*req.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Source url cannot be empty"})
		return
	}

	ctx := c.Request.Context()
	source, err := h.sourceRepo.GetSource(ctx, id)
	if err != nil {
		internalError(c, "get_source", err)
		return
	}
	if source == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}

	applySourceRequest(source, req)

	if !h.validateSource(c, *source, id) {
		return
	}

	if err := h.sourceRepo.UpdateSource(ctx, *source); err != nil {
		internalError(c, "update_source", err)
		return
	}

	c.JSON(http.StatusOK, newSourceResponse(*source))
}

func (h *Handler) ListArticles(c *gin.Context) {
	filter := database.ArticleFilter{
		PrimaryOnly: c.Query("primary_only") == "true" || c.Query("primary_only") == "1",
		Limit:       parseLimit(c, defaultLimit),
	}

	if raw := c.Query("topic_id"); raw != "" {
		topicID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || topicID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid topic_id"})
			return
		}
		filter.TopicID = topicID
	}

	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid since, expected RFC3339"})
			return
		}
		filter.Since = &since
	}

	articles, err := h.articleRepo.ListArticles(c.Request.Context(), filter)
	if err != nil {
		internalError(c, "list_articles", err)
		return
	}

	response := make([]articleResponse, 0, len(articles))
	for _, article := range articles {
		response = append(response, newArticleResponse(article))
	}

	c.JSON(http.StatusOK, gin.H{"articles": response, "total": len(response)})
}

func (h *Handler) ListFetchRuns(c *gin.Context) {
	filter := database.RunFilter{
		Status: c.Query("status"),
		Limit:  parseLimit(c, defaultLimit),
	}

	switch filter.Status {
	case "", database.RunStatusRunning, database.RunStatusSuccess, database.RunStatusFailed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	if raw := c.Query("topic_id"); raw != "" {
		topicID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || topicID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid topic_id"})
			return
		}
		filter.TopicID = topicID
	}

	runs, err := h.runRepo.ListRuns(c.Request.Context(), filter)
	if err != nil {
		internalError(c, "list_fetch_runs", err)
		return
	}

	response := make([]fetchRunResponse, 0, len(runs))
	for _, run := range runs {
		response = append(response, newFetchRunResponse(run))
	}

	c.JSON(http.StatusOK, gin.H{"fetch_runs": response, "total": len(response)})
}

func (h *Handler) ListJobs(c *gin.Context) {
	jobs := h.scheduler.Jobs()
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "total": len(jobs)})
}

// TriggerFetch rebuilds the schedule and queues an immediate run over every enabled topic.
func (h *Handler) TriggerFetch(c *gin.Context) {
	if err := h.scheduler.Reload(c.Request.Context()); err != nil {
		internalError(c, "reload_schedule", err)
		return
	}

	if err := h.scheduler.TriggerFetchAll(); err != nil {
		slog.Warn("Failed to enqueue fetch", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Task queue is busy, try again later"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Fetch of all enabled topics enqueued",
		"jobs":    len(h.scheduler.Jobs()),
	})
}

func (h *Handler) reloadSchedule(c *gin.Context) {
	if err := h.scheduler.Reload(c.Request.Context()); err != nil {
		slog.Error("Failed to reload schedule", "error", err)
	}
}

func (h *Handler) topicNameTaken(c *gin.Context, name string, exceptID int64) (bool, error) {
	topics, err := h.topicRepo.ListTopics(c.Request.Context())
	if err != nil {
		return false, err
	}
	for _, topic := range topics {
		if topic.Name == name && topic.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

// validateSource writes the error response itself and reports whether the handler may continue.
func (h *Handler) validateSource(c *gin.Context, source database.Source, exceptID int64) bool {
	ctx := c.Request.Context()

	if source.TopicID != nil {
		topic, err := h.topicRepo.GetTopic(ctx, *source.TopicID)
		if err != nil {
			internalError(c, "get_topic", err)
			return false
		}
		if topic == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown topic_id"})
			return false
		}
	}

	sources, err := h.sourceRepo.ListSources(ctx)
	if err != nil {
		internalError(c, "list_sources", err)
		return false
	}
	for _, existing := range sources {
		if existing.URL == source.URL && existing.ID != exceptID {
			c.JSON(http.StatusConflict, gin.H{"error": "Source url already exists"})
			return false
		}
	}

	return true
}

func applyTopicRequest(topic *database.Topic, req topicRequest) {
	if req.Name != nil {
		topic.Name = strings.TrimSpace(*req.Name)
	}
	if req.NameEn != nil {
		topic.NameEn = strings.TrimSpace(*req.NameEn)
	}
	if req.Keywords != nil {
		topic.Keywords = database.JoinKeywords(*req.Keywords)
	}
	if req.IsCore != nil {
		topic.IsCore = *req.IsCore
	}
	if req.Enabled != nil {
		topic.Enabled = *req.Enabled
	}
}

func applySourceRequest(source *database.Source, req sourceRequest) {
	if req.Name != nil {
		source.Name = strings.TrimSpace(*req.Name)
	}
	if req.URL != nil {
		source.URL = strings.TrimSpace(*req.URL)
	}
	if req.Lang != nil {
		source.Lang = strings.ToLower(strings.TrimSpace(*req.Lang))
	}
	if req.Priority != nil {
		source.Priority = *req.Priority
	}
	if req.TopicID != nil {
		if *req.TopicID == 0 {
			source.TopicID = nil
		} else {
			topicID := *req.TopicID
			source.TopicID = &topicID
		}
	}
	if req.Enabled != nil {
		source.Enabled = *req.Enabled
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func parseLimit(c *gin.Context, fallback int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return fallback
	}
	return min(limit, maxLimit)
}

func internalError(c *gin.Context, operation string, err error) {
	slog.Error("Database error", "operation", operation, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
