package database

import (
	"time"

	"github.com/lysyi3m/rss-sentry/app/feed"
)

type FeedStore interface {
	AddFeed(url, title string) (*Feed, bool, error)
	GetFeed(id int64) (*Feed, error)
	GetFeeds() ([]Feed, error)
	GetFeedCount() (int, error)
	ListTargets() ([]feed.Target, error)
	MarkSynced(id int64, at time.Time) error
}

type ArticleStore interface {
	GetExistingArticles(feedID int64) ([]feed.Article, error)
	InsertArticle(feedID int64, candidate feed.Candidate) (*feed.Article, error)
	GetArticleCount(feedID int64) (int, error)
}

var (
	_ FeedStore    = (*FeedRepository)(nil)
	_ ArticleStore = (*ArticleRepository)(nil)
)
