package syncer

import (
	"context"
	"time"

	"github.com/lysyi3m/rss-sentry/app/feed"
	"github.com/lysyi3m/rss-sentry/app/guard"
)

type Validator interface {
	ValidateForFeed(ctx context.Context, rawURL string) guard.Verdict
}

// Fetcher downloads and parses one feed document. Implementations should
// honor ctx, but the orchestrator does not rely on it to enforce timeouts.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*feed.ParsedFeed, error)
}

type Storage interface {
	GetExistingArticles(feedID int64) ([]feed.Article, error)
	InsertArticle(feedID int64, candidate feed.Candidate) (*feed.Article, error)
	MarkSynced(feedID int64, at time.Time) error
}
