package cfg

import (
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadArgs_Defaults(t *testing.T) {
	cfg, err := LoadArgs(nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.DBPath != "./rss-sentry.db" {
		t.Errorf("Expected db path './rss-sentry.db', got '%s'", cfg.DBPath)
	}
	if cfg.FeedsDir != "./feeds" {
		t.Errorf("Expected feeds dir './feeds', got '%s'", cfg.FeedsDir)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.UserAgent != "RSS Sentry/1.0" {
		t.Errorf("Expected user agent 'RSS Sentry/1.0', got '%s'", cfg.UserAgent)
	}
	if cfg.DNSCacheSize != 1000 {
		t.Errorf("Expected DNS cache size 1000, got %d", cfg.DNSCacheSize)
	}
	if cfg.DNSCacheTTL != 5*time.Minute {
		t.Errorf("Expected DNS cache TTL 5m, got %s", cfg.DNSCacheTTL)
	}
	if cfg.DNSCleanupInterval != time.Hour {
		t.Errorf("Expected DNS cleanup interval 1h, got %s", cfg.DNSCleanupInterval)
	}
	if cfg.FetchTimeout != 15*time.Second {
		t.Errorf("Expected fetch timeout 15s, got %s", cfg.FetchTimeout)
	}
	if cfg.SyncInterval != 30*time.Minute {
		t.Errorf("Expected sync interval 30m, got %s", cfg.SyncInterval)
	}
	if cfg.SyncConcurrency != 0 {
		t.Errorf("Expected sync concurrency 0, got %d", cfg.SyncConcurrency)
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("Expected worker count 2, got %d", cfg.WorkerCount)
	}
	if cfg.ImageMaxBytes != 10<<20 {
		t.Errorf("Expected image max bytes %d, got %d", 10<<20, cfg.ImageMaxBytes)
	}

	if Get() != cfg {
		t.Error("Expected Get to return the loaded configuration")
	}
}

func TestLoadArgs_Overrides(t *testing.T) {
	cfg, err := LoadArgs([]string{
		"--db-path", ":memory:",
		"--dns-cache-size", "50",
		"--dns-cache-ttl", "90s",
		"--fetch-timeout", "3s",
		"--sync-concurrency", "4",
		"--api-key", "secret",
		"--debug",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.DBPath != ":memory:" {
		t.Errorf("Expected db path ':memory:', got '%s'", cfg.DBPath)
	}
	if cfg.DNSCacheSize != 50 {
		t.Errorf("Expected DNS cache size 50, got %d", cfg.DNSCacheSize)
	}
	if cfg.DNSCacheTTL != 90*time.Second {
		t.Errorf("Expected DNS cache TTL 90s, got %s", cfg.DNSCacheTTL)
	}
	if cfg.FetchTimeout != 3*time.Second {
		t.Errorf("Expected fetch timeout 3s, got %s", cfg.FetchTimeout)
	}
	if cfg.SyncConcurrency != 4 {
		t.Errorf("Expected sync concurrency 4, got %d", cfg.SyncConcurrency)
	}
	if cfg.APIAccessKey != "secret" {
		t.Errorf("Expected API key 'secret', got '%s'", cfg.APIAccessKey)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
}

func TestLoadArgs_SyncIntervalZero(t *testing.T) {
	cfg, err := LoadArgs([]string{"--sync-interval", "0s"})
	if err != nil {
		t.Fatalf("Expected zero sync interval to be accepted, got %v", err)
	}
	if cfg.SyncInterval != 0 {
		t.Errorf("Expected sync interval 0, got %s", cfg.SyncInterval)
	}
}

func TestLoadArgs_Invalid(t *testing.T) {
	tests := [][]string{
		{"--dns-cache-size", "0"},
		{"--fetch-timeout", "0s"},
		{"--sync-concurrency=-1"},
		{"--worker-count", "0"},
		{"--sync-interval=-1m"},
		{"--fetch-timeout", "soon"},
	}

	for _, args := range tests {
		if _, err := LoadArgs(args); err == nil {
			t.Errorf("Expected error for %v", args)
		}
	}
}
