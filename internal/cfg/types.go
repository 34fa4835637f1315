package cfg

import "time"

type Cfg struct {
	// Storage
	DBPath     string
	ConfigFile string

	// HTTP API
	Port         string
	APIAccessKey string

	// Pipeline
	PrimaryLang     string
	Retention       time.Duration
	CoreInterval    time.Duration
	RegularInterval time.Duration
	CleanupInterval time.Duration
	WorkerCount     int
	FeedTimeout     time.Duration
	InsecureTLS     bool
	ExtractContent  bool
	ExtractLimit    int

	// Language model
	LLMProvider string
	LLMBaseURL  string
	LLMAPIKey   string
	LLMModel    string
	LLMTimeout  time.Duration

	// Cache
	RedisAddr string
	CacheTTL  time.Duration

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

// LLMEnabled reports whether credentials for the language model are configured.
func (c *Cfg) LLMEnabled() bool {
	return c.LLMAPIKey != ""
}

// Seed is the YAML document used to populate an empty store.
type Seed struct {
	Topics  []SeedTopic  `yaml:"topics"`
	Sources []SeedSource `yaml:"sources"`
}

type SeedTopic struct {
	Name     string   `yaml:"name"`
	NameEn   string   `yaml:"name_en"`
	Keywords []string `yaml:"keywords"`
	IsCore   bool     `yaml:"is_core"`
	Enabled  *bool    `yaml:"enabled"`
}

type SeedSource struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Lang     string `yaml:"lang"`
	Priority int    `yaml:"priority"`
	Topic    string `yaml:"topic"` // topic name; empty means every topic
	Enabled  *bool  `yaml:"enabled"`
}

// IsEnabled treats a missing flag as enabled.
func (t SeedTopic) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

func (s SeedSource) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}
