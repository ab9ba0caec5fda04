package cfg

import (
	"cmp"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath   string `long:"db-path" env:"DB_PATH" default:"./rss-sentry.db" description:"SQLite database file (use :memory: for a throwaway database)"`
	FeedsDir string `long:"feeds-dir" env:"FEEDS_DIR" default:"./feeds" description:"Directory of *.yml feed seeds registered at startup (may be absent)"`

	// HTTP configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (API disabled when empty)"`
	UserAgent    string `long:"user-agent" env:"USER_AGENT" default:"RSS Sentry/1.0" description:"User agent string for HTTP requests"`

	// Guard configuration
	DNSCacheSize       int           `long:"dns-cache-size" env:"DNS_CACHE_SIZE" default:"1000" description:"Maximum number of cached DNS resolutions"`
	DNSCacheTTL        time.Duration `long:"dns-cache-ttl" env:"DNS_CACHE_TTL" default:"5m" description:"Age after which a cached DNS resolution is stale"`
	DNSCleanupInterval time.Duration `long:"dns-cleanup-interval" env:"DNS_CLEANUP_INTERVAL" default:"1h" description:"Interval between sweeps of stale DNS resolutions"`
	ImageMaxBytes      int64         `long:"image-max-bytes" env:"IMAGE_MAX_BYTES" default:"10485760" description:"Largest image the proxy will relay"`

	// Sync configuration
	FetchTimeout    time.Duration `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"15s" description:"Per-feed fetch timeout"`
	SyncInterval    time.Duration `long:"sync-interval" env:"SYNC_INTERVAL" default:"30m" description:"Interval between background syncs of all feeds (0 disables them)"`
	SyncConcurrency int           `long:"sync-concurrency" env:"SYNC_CONCURRENCY" default:"0" description:"Maximum feeds fetched at once (0 means all)"`
	WorkerCount     int           `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background task workers"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs parses args and the environment. It returns (nil, nil) when
// help was requested.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:             raw.DBPath,
		FeedsDir:           raw.FeedsDir,
		Port:               raw.Port,
		APIAccessKey:       raw.APIAccessKey,
		UserAgent:          raw.UserAgent,
		DNSCacheSize:       raw.DNSCacheSize,
		DNSCacheTTL:        raw.DNSCacheTTL,
		DNSCleanupInterval: raw.DNSCleanupInterval,
		ImageMaxBytes:      raw.ImageMaxBytes,
		FetchTimeout:       raw.FetchTimeout,
		SyncInterval:       raw.SyncInterval,
		SyncConcurrency:    raw.SyncConcurrency,
		WorkerCount:        raw.WorkerCount,
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		Version:            GetVersion(),
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
	if cfg.DNSCacheSize <= 0 {
		return fmt.Errorf("dns-cache-size must be positive, got %d", cfg.DNSCacheSize)
	}
	if cfg.DNSCacheTTL <= 0 {
		return fmt.Errorf("dns-cache-ttl must be positive, got %s", cfg.DNSCacheTTL)
	}
	if cfg.DNSCleanupInterval <= 0 {
		return fmt.Errorf("dns-cleanup-interval must be positive, got %s", cfg.DNSCleanupInterval)
	}
	if cfg.FetchTimeout <= 0 {
		return fmt.Errorf("fetch-timeout must be positive, got %s", cfg.FetchTimeout)
	}
	if cfg.SyncInterval < 0 {
		return fmt.Errorf("sync-interval must not be negative, got %s", cfg.SyncInterval)
	}
	if cfg.SyncConcurrency < 0 {
		return fmt.Errorf("sync-concurrency must not be negative, got %d", cfg.SyncConcurrency)
	}
	if cfg.WorkerCount <= 0 {
		return fmt.Errorf("worker-count must be positive, got %d", cfg.WorkerCount)
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
