package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health"},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)
	r.GET("/feeds/topics/:id", handler.GetTopicFeed)

	if apiAccessKey != "" {
		api := r.Group("/api")
		api.Use(authMiddleware(apiAccessKey))
		{
			api.GET("/topics", handler.ListTopics)
			api.POST("/topics", handler.CreateTopic)
			api.PATCH("/topics/:id", handler.UpdateTopic)
			api.GET("/topics/:id/analysis", handler.AnalyzeTopic)

			api.GET("/sources", handler.ListSources)
			api.POST("/sources", handler.CreateSource)
			api.PATCH("/sources/:id", handler.UpdateSource)

			api.GET("/articles", handler.ListArticles)
			api.GET("/fetch-runs", handler.ListFetchRuns)
			api.GET("/jobs", handler.ListJobs)
			api.POST("/fetch", handler.TriggerFetch)
		}
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Warn("API endpoints disabled (API_ACCESS_KEY not set)")
	}

	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"health": "/health",
			"stats":  "/stats",
			"feed":   "/feeds/topics/<id>",
		}

		if apiAccessKey != "" {
			endpoints["topics"] = "/api/topics (GET, POST; PATCH /api/topics/<id>)"
			endpoints["sources"] = "/api/sources (GET, POST; PATCH /api/sources/<id>)"
			endpoints["articles"] = "/api/articles?topic_id=&primary_only=&since=&limit="
			endpoints["fetch_runs"] = "/api/fetch-runs?status=&topic_id=&limit="
			endpoints["analysis"] = "/api/topics/<id>/analysis"
			endpoints["fetch"] = "/api/fetch (POST)"
		}

		c.JSON(http.StatusOK, gin.H{
			"service":     "newsdesk",
			"version":     handler.version,
			"description": "Topic news ingestion with relevance filtering, deduplication and translation",
			"endpoints":   endpoints,
			"api_status": gin.H{
				"enabled":       apiAccessKey != "",
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			return
		}

		if providedKey != apiAccessKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			return
		}

		c.Next()
	}
}
