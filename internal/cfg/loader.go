package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./data/newsdesk.db" description:"SQLite database file"`
	ConfigFile string `long:"config-file" env:"CONFIG_FILE" default:"./newsdesk.yml" description:"YAML file with default topics and sources, applied when the store is empty"`

	// HTTP API
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Pipeline
	PrimaryLang     string        `long:"primary-lang" env:"PRIMARY_LANG" default:"zh" description:"Language every article is normalized into"`
	Retention       time.Duration `long:"retention" env:"RETENTION" default:"72h" description:"How long articles are kept"`
	CoreInterval    time.Duration `long:"core-interval" env:"CORE_INTERVAL" default:"15m" description:"Fetch interval for core topics"`
	RegularInterval time.Duration `long:"regular-interval" env:"REGULAR_INTERVAL" default:"60m" description:"Fetch interval for non-core topics"`
	CleanupInterval time.Duration `long:"cleanup-interval" env:"CLEANUP_INTERVAL" default:"6h" description:"Retention cleanup interval"`
	WorkerCount     int           `long:"worker-count" env:"WORKER_COUNT" default:"4" description:"Number of background workers"`
	FeedTimeout     time.Duration `long:"feed-timeout" env:"FEED_TIMEOUT" default:"15s" description:"Timeout for a single feed request"`
	InsecureTLS     bool          `long:"insecure-tls" env:"INSECURE_TLS" description:"Skip TLS certificate verification for feed and article hosts"`
	ExtractContent  bool          `long:"extract-content" env:"EXTRACT_CONTENT" description:"Fetch full article pages after each topic run"`
	ExtractLimit    int           `long:"extract-limit" env:"EXTRACT_LIMIT" default:"20" description:"Articles per content extraction pass"`

	// Language model
	LLMProvider string        `long:"llm-provider" env:"LLM_PROVIDER" default:"openai" choice:"openai" choice:"gemini" description:"Language model provider"`
	LLMBaseURL  string        `long:"llm-base-url" env:"LLM_BASE_URL" default:"https://api.deepseek.com" description:"Base URL of an OpenAI-compatible endpoint"`
	LLMAPIKey   string        `long:"llm-api-key" env:"LLM_API_KEY" description:"Language model API key; empty disables classification and translation calls"`
	LLMModel    string        `long:"llm-model" env:"LLM_MODEL" default:"deepseek-chat" description:"Model name"`
	LLMTimeout  time.Duration `long:"llm-timeout" env:"LLM_TIMEOUT" default:"30s" description:"Timeout for a single language model call"`

	// Cache
	RedisAddr string        `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for the language model cache (in-memory when empty)"`
	CacheTTL  time.Duration `long:"cache-ttl" env:"CACHE_TTL" default:"72h" description:"Language model cache TTL"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Shanghai)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return load(nil)
}

func load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:          raw.DBPath,
		ConfigFile:      raw.ConfigFile,
		Port:            raw.Port,
		APIAccessKey:    raw.APIAccessKey,
		PrimaryLang:     raw.PrimaryLang,
		Retention:       raw.Retention,
		CoreInterval:    raw.CoreInterval,
		RegularInterval: raw.RegularInterval,
		CleanupInterval: raw.CleanupInterval,
		WorkerCount:     raw.WorkerCount,
		FeedTimeout:     raw.FeedTimeout,
		InsecureTLS:     raw.InsecureTLS,
		ExtractContent:  raw.ExtractContent,
		ExtractLimit:    raw.ExtractLimit,
		LLMProvider:     raw.LLMProvider,
		LLMBaseURL:      raw.LLMBaseURL,
		LLMAPIKey:       raw.LLMAPIKey,
		LLMModel:        raw.LLMModel,
		LLMTimeout:      raw.LLMTimeout,
		RedisAddr:       raw.RedisAddr,
		CacheTTL:        raw.CacheTTL,
		UserAgent:       raw.UserAgent,
		Timezone:        raw.Timezone,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(cfg *Cfg) error {
	positive := map[string]time.Duration{
		"retention":        cfg.Retention,
		"core interval":    cfg.CoreInterval,
		"regular interval": cfg.RegularInterval,
		"cleanup interval": cfg.CleanupInterval,
		"feed timeout":     cfg.FeedTimeout,
		"llm timeout":      cfg.LLMTimeout,
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if cfg.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if cfg.PrimaryLang == "" {
		return fmt.Errorf("primary language is required")
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
