package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lysyi3m/newsdesk/internal/api"
	"github.com/lysyi3m/newsdesk/internal/cache"
	"github.com/lysyi3m/newsdesk/internal/cfg"
	"github.com/lysyi3m/newsdesk/internal/classify"
	"github.com/lysyi3m/newsdesk/internal/database"
	"github.com/lysyi3m/newsdesk/internal/dedup"
	"github.com/lysyi3m/newsdesk/internal/enrich"
	"github.com/lysyi3m/newsdesk/internal/feed"
	"github.com/lysyi3m/newsdesk/internal/ingest"
	"github.com/lysyi3m/newsdesk/internal/llm"
	"github.com/lysyi3m/newsdesk/internal/tasks"
)

func main() {
	config, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if config == nil {
		// help was shown
		return
	}

	logLevel := slog.LevelInfo
	if config.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting newsdesk", "version", config.Version, "primary_lang", config.PrimaryLang)

	db, err := database.Open(config.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", config.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", config.DBPath, "schema_version", version, "dirty", dirty)

	topicRepo := database.NewTopicStore(db)
	sourceRepo := database.NewSourceStore(db)
	articleRepo := database.NewArticleStore(db)
	runRepo := database.NewFetchRunStore(db)

	seed, err := cfg.LoadSeed(config.ConfigFile)
	if err != nil {
		slog.Error("Failed to load seed file", "path", config.ConfigFile, "error", err)
		os.Exit(1)
	}
	seedTask := tasks.NewSeedConfigTask(seed, topicRepo, sourceRepo)
	seedTask.Start()
	if err := seedTask.Execute(context.Background()); err != nil {
		slog.Error("Failed to seed configuration", "error", err)
		os.Exit(1)
	}

	llmCache := newCache(config)
	defer llmCache.Close()

	completer, closeCompleter, err := newCompleter(config)
	if err != nil {
		slog.Error("Failed to create language model client", "provider", config.LLMProvider, "error", err)
		os.Exit(1)
	}
	defer closeCompleter()

	llmService := llm.NewService(completer, llmCache, config.LLMTimeout, config.CacheTTL)
	if !llmService.Enabled() {
		slog.Warn("Language model disabled (LLM_API_KEY not set), uncertain entries keep their rule score and titles stay untranslated")
	}

	httpClient := feed.NewHTTPClient(config.FeedTimeout, config.InsecureTLS)
	fetcher := feed.NewFetcher(httpClient, feed.NewParser(), config.UserAgent)

	orchestrator := ingest.NewOrchestrator(ingest.Deps{
		Topics:     topicRepo,
		Sources:    sourceRepo,
		Articles:   articleRepo,
		Runs:       runRepo,
		Fetcher:    fetcher,
		Classifier: classify.NewClassifier(llmService),
		Finder:     dedup.NewFinder(articleRepo, config.Retention),
		Translator: enrich.NewTranslator(llmService, config.PrimaryLang),
		Detector:   enrich.NewDetector(config.PrimaryLang),
	}, config.PrimaryLang, config.Retention)

	opts := tasks.Options{
		CoreInterval:    config.CoreInterval,
		RegularInterval: config.RegularInterval,
		CleanupInterval: config.CleanupInterval,
		WorkerCount:     config.WorkerCount,
		RunOnStart:      true,
	}
	if config.ExtractContent {
		extractor := feed.NewContentExtractor()
		opts.NewExtractTask = func() tasks.TaskInterface {
			return tasks.NewExtractContentTask(articleRepo, fetcher, extractor, config.ExtractLimit, config.FeedTimeout)
		}
	}

	scheduler := tasks.NewScheduler(orchestrator, topicRepo, opts)
	if err := scheduler.Reload(context.Background()); err != nil {
		slog.Error("Failed to build schedule", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting background scheduler", "workers", config.WorkerCount, "jobs", len(scheduler.Jobs()))
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(topicRepo, sourceRepo, articleRepo, runRepo, scheduler, llmService, config.PrimaryLang)
	server := api.NewServer(apiHandler, config.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", config.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// scheduler, clients and database close via defer
	slog.Info("Shutdown complete")
}

// newCache prefers Redis and falls back to an in-process cache when Redis is unset or unreachable.
func newCache(config *cfg.Cfg) cache.Cache {
	if config.RedisAddr == "" {
		return cache.NewMemoryCache()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisCache, err := cache.NewRedisCache(ctx, config.RedisAddr)
	if err != nil {
		slog.Warn("Redis unavailable, using in-memory cache", "addr", config.RedisAddr, "error", err)
		return cache.NewMemoryCache()
	}

	slog.Info("Using Redis cache", "addr", config.RedisAddr)
	return redisCache
}

// newCompleter returns a nil Completer when no API key is configured.
func newCompleter(config *cfg.Cfg) (llm.Completer, func(), error) {
	noop := func() {}

	if !config.LLMEnabled() {
		return nil, noop, nil
	}

	switch config.LLMProvider {
	case llm.ProviderGemini:
		model := config.LLMModel
		if strings.HasPrefix(model, "deepseek") {
			model = "gemini-1.5-flash"
		}
		client, err := llm.NewGeminiClient(context.Background(), config.LLMAPIKey, model)
		if err != nil {
			return nil, noop, err
		}
		return client, func() { client.Close() }, nil
	default:
		httpClient := &http.Client{Timeout: config.LLMTimeout}
		return llm.NewOpenAIClient(config.LLMAPIKey, config.LLMBaseURL, config.LLMModel, httpClient), noop, nil
	}
}
