package cfg

import "time"

type Cfg struct {
	// Storage configuration
	DBPath   string
	FeedsDir string

	// HTTP configuration
	Port         string
	APIAccessKey string
	UserAgent    string

	// Guard configuration
	DNSCacheSize       int
	DNSCacheTTL        time.Duration
	DNSCleanupInterval time.Duration
	ImageMaxBytes      int64

	// Sync configuration
	FetchTimeout    time.Duration
	SyncInterval    time.Duration
	SyncConcurrency int
	WorkerCount     int

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
