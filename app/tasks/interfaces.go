package tasks

import (
	"context"

	"github.com/lysyi3m/rss-sentry/app/database"
	"github.com/lysyi3m/rss-sentry/app/feed"
	"github.com/lysyi3m/rss-sentry/app/guard"
	"github.com/lysyi3m/rss-sentry/app/syncer"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to manage background task processing.
// Example usage:
//
//	scheduler := NewScheduler(settings, seedSource, feedStore, g, orchestrator)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewCleanDNSCacheTask(g))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

type SeedSource interface {
	GetSeeds() []feed.Seed
}

type FeedRegistry interface {
	AddFeed(url, title string) (*database.Feed, bool, error)
	ListTargets() ([]feed.Target, error)
}

type FeedValidator interface {
	ValidateForFeed(ctx context.Context, rawURL string) guard.Verdict
}

type CacheSweeper interface {
	SweepCache() int
	CacheLen() int
}

// Guard validates seed URLs and owns the DNS resolution cache.
type Guard interface {
	FeedValidator
	CacheSweeper
}

var _ Guard = (*guard.Guard)(nil)

type BatchSyncer interface {
	SyncAll(ctx context.Context, targets []feed.Target) <-chan syncer.Progress
}
