package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"FEED_TIMEOUT", "FEED_DEFAULT_COUNT", "GENERATION_DELAY", "EXTRACT_MAX_CHARS"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	if cfg.FeedTimeout != 10*time.Second {
		t.Errorf("FeedTimeout = %v, want 10s", cfg.FeedTimeout)
	}
	if cfg.FeedDefaultCount != 5 {
		t.Errorf("FeedDefaultCount = %d, want 5", cfg.FeedDefaultCount)
	}
	if cfg.GenerationDelay != 3*time.Second {
		t.Errorf("GenerationDelay = %v, want 3s", cfg.GenerationDelay)
	}
	if cfg.ExtractMaxChars != 15000 {
		t.Errorf("ExtractMaxChars = %d, want 15000", cfg.ExtractMaxChars)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SITE_URL", "https://press.example.com/")
	t.Setenv("GENERATION_DELAY", "500ms")
	t.Setenv("FEED_DEFAULT_COUNT", "not-a-number")
	t.Setenv("R2_PUBLIC_URL", "https://cdn.example.com/")

	cfg := FromEnv()
	if cfg.Port != "9090" {
		t.Errorf("Port = %s, want 9090", cfg.Port)
	}
	if cfg.SiteURL != "https://press.example.com" {
		t.Errorf("SiteURL = %s, want trailing slash trimmed", cfg.SiteURL)
	}
	if cfg.GenerationDelay != 500*time.Millisecond {
		t.Errorf("GenerationDelay = %v, want 500ms", cfg.GenerationDelay)
	}
	if cfg.FeedDefaultCount != 5 {
		t.Errorf("Expected invalid count to fall back to 5, got %d", cfg.FeedDefaultCount)
	}
	if cfg.R2PublicURL != "https://cdn.example.com" {
		t.Errorf("R2PublicURL = %s", cfg.R2PublicURL)
	}
}

func validConfig() *Config {
	return &Config{
		Port:             "8080",
		Env:              "development",
		ShutdownTimeout:  time.Second,
		HTTPTimeout:      time.Second,
		StoreDriver:      "file",
		StoragePath:      "./data",
		ProcessedTTL:     time.Hour,
		RunLockTTL:       time.Minute,
		FeedTimeout:      time.Second,
		FeedDefaultCount: 5,
		ExtractTimeout:   time.Second,
		ExtractMaxChars:  15000,
		DefaultLanguage:  "id",
		AIProvider:       "groq",
		AITimeout:        time.Second,
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"non numeric port", func(c *Config) { c.Port = "http" }},
		{"unknown env", func(c *Config) { c.Env = "qa" }},
		{"postgres without url", func(c *Config) { c.StoreDriver = "postgres" }},
		{"unknown driver", func(c *Config) { c.StoreDriver = "sqlite" }},
		{"unknown provider", func(c *Config) { c.AIProvider = "claude" }},
		{"negative delay", func(c *Config) { c.GenerationDelay = -time.Second }},
		{"tiny extract cap", func(c *Config) { c.ExtractMaxChars = 10 }},
		{"bad site url", func(c *Config) { c.SiteURL = "not a url" }},
	}

	for _, tt := range tests {
		cfg := validConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestR2Enabled(t *testing.T) {
	cfg := validConfig()
	if cfg.R2Enabled() {
		t.Error("Expected R2 disabled without settings")
	}
	cfg.R2Endpoint = "https://acc.r2.cloudflarestorage.com"
	cfg.R2AccessKey = "ak"
	cfg.R2SecretKey = "sk"
	cfg.R2Bucket = "media"
	cfg.R2PublicURL = "https://cdn.example.com"
	if !cfg.R2Enabled() {
		t.Error("Expected R2 enabled")
	}
}
