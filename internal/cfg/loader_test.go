package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load([]string{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.PrimaryLang != "zh" {
		t.Errorf("Expected primary language 'zh', got '%s'", cfg.PrimaryLang)
	}
	if cfg.CoreInterval != 15*time.Minute {
		t.Errorf("Expected core interval 15m, got %v", cfg.CoreInterval)
	}
	if cfg.RegularInterval != 60*time.Minute {
		t.Errorf("Expected regular interval 60m, got %v", cfg.RegularInterval)
	}
	if cfg.CleanupInterval != 6*time.Hour {
		t.Errorf("Expected cleanup interval 6h, got %v", cfg.CleanupInterval)
	}
	if cfg.Retention != 72*time.Hour {
		t.Errorf("Expected retention 72h, got %v", cfg.Retention)
	}
	if cfg.LLMProvider != "openai" {
		t.Errorf("Expected provider 'openai', got '%s'", cfg.LLMProvider)
	}
	if cfg.LLMEnabled() {
		t.Error("Expected LLM to be disabled without an API key")
	}
	if Get() != cfg {
		t.Error("Expected Get to return the loaded configuration")
	}
}

func TestLoad_Flags(t *testing.T) {
	cfg, err := load([]string{
		"--primary-lang", "en",
		"--core-interval", "5m",
		"--llm-api-key", "secret",
		"--llm-provider", "gemini",
		"--worker-count", "2",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.PrimaryLang != "en" {
		t.Errorf("Expected primary language 'en', got '%s'", cfg.PrimaryLang)
	}
	if cfg.CoreInterval != 5*time.Minute {
		t.Errorf("Expected core interval 5m, got %v", cfg.CoreInterval)
	}
	if !cfg.LLMEnabled() {
		t.Error("Expected LLM to be enabled with an API key")
	}
	if cfg.LLMProvider != "gemini" {
		t.Errorf("Expected provider 'gemini', got '%s'", cfg.LLMProvider)
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("Expected worker count 2, got %d", cfg.WorkerCount)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := [][]string{
		{"--worker-count", "0"},
		{"--retention", "0s"},
		{"--llm-provider", "unknown"},
	}

	for _, args := range cases {
		if _, err := load(args); err == nil {
			t.Errorf("Expected error for args %v", args)
		}
	}
}

func TestParseSeed(t *testing.T) {
	data := []byte(`
topics:
  - name: 黄金
    name_en: Gold
    keywords: [黄金, 金价, Gold]
    is_core: true
  - name: 特朗普
    keywords: [Trump]
    enabled: false
sources:
  - name: Reuters World
    url: https://www.reuters.com/world/rss
    priority: 8
  - name: Gold News
    url: https://example.com/gold.xml
    lang: zh
    topic: 黄金
`)

	seed, err := ParseSeed(data)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(seed.Topics) != 2 {
		t.Fatalf("Expected 2 topics, got %d", len(seed.Topics))
	}
	if !seed.Topics[0].IsCore || !seed.Topics[0].IsEnabled() {
		t.Error("Expected first topic to be core and enabled")
	}
	if seed.Topics[1].IsEnabled() {
		t.Error("Expected second topic to be disabled")
	}
	if len(seed.Sources) != 2 {
		t.Fatalf("Expected 2 sources, got %d", len(seed.Sources))
	}
	if seed.Sources[0].Lang != "en" {
		t.Errorf("Expected default language 'en', got '%s'", seed.Sources[0].Lang)
	}
	if seed.Sources[1].Topic != "黄金" {
		t.Errorf("Expected topic affinity '黄金', got '%s'", seed.Sources[1].Topic)
	}
}

func TestParseSeed_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing topic name": "topics:\n  - keywords: [a]\n",
		"duplicate url":      "sources:\n  - url: https://a\n  - url: https://a\n",
		"unknown topic":      "sources:\n  - url: https://a\n    topic: nope\n",
		"malformed yaml":     "topics: [",
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseSeed([]byte(data)); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestLoadSeed_MissingFile(t *testing.T) {
	seed, err := LoadSeed(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("Expected no error for missing file, got: %v", err)
	}
	if len(seed.Topics) != 0 || len(seed.Sources) != 0 {
		t.Error("Expected empty seed for missing file")
	}
}

func TestLoadSeed_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yml")
	if err := os.WriteFile(path, []byte("topics:\n  - name: Gold\n"), 0o600); err != nil {
		t.Fatalf("Failed to write seed file: %v", err)
	}

	seed, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(seed.Topics) != 1 || seed.Topics[0].Name != "Gold" {
		t.Errorf("Expected one topic named Gold, got %+v", seed.Topics)
	}
}
