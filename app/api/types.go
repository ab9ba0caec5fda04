package api

import (
	"context"
	"time"

	"github.com/lysyi3m/rss-sentry/app/database"
	"github.com/lysyi3m/rss-sentry/app/feed"
	"github.com/lysyi3m/rss-sentry/app/guard"
	"github.com/lysyi3m/rss-sentry/app/proxy"
	"github.com/lysyi3m/rss-sentry/app/syncer"
)

type FeedGuard interface {
	ValidateForFeed(ctx context.Context, rawURL string) guard.Verdict
	CacheLen() int
}

type FeedSyncer interface {
	SyncOne(ctx context.Context, target feed.Target) (syncer.Outcome, error)
	SyncAll(ctx context.Context, targets []feed.Target) <-chan syncer.Progress
}

type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*proxy.Image, error)
}

var (
	_ FeedGuard    = (*guard.Guard)(nil)
	_ FeedSyncer   = (*syncer.Orchestrator)(nil)
	_ ImageFetcher = (*proxy.ImageProxy)(nil)
)

type Handler struct {
	feedRepo    database.FeedStore
	articleRepo database.ArticleStore
	guard       FeedGuard
	syncer      FeedSyncer
	images      ImageFetcher
}

type addFeedRequest struct {
	URL   string `json:"url" binding:"required"`
	Title string `json:"title"`
}

type feedResponse struct {
	ID           int64      `json:"id"`
	URL          string     `json:"url"`
	Title        string     `json:"title"`
	CreatedAt    time.Time  `json:"created_at"`
	LastSyncedAt *time.Time `json:"last_synced_at"`
	ArticleCount *int       `json:"article_count,omitempty"`
}
