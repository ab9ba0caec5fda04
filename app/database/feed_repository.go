package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lysyi3m/rss-sentry/app/feed"
)

// FeedRepository handles database operations for feeds
type FeedRepository struct {
	db *DB
}

// NewFeedRepository creates a new feed repository
func NewFeedRepository(db *DB) *FeedRepository {
	return &FeedRepository{db: db}
}

// AddFeed registers url, or returns the existing feed with that url. The
// boolean reports whether a new row was created.
func (r *FeedRepository) AddFeed(url, title string) (*Feed, bool, error) {
	var id int64
	err := r.db.QueryRow(`
		INSERT INTO feeds (url, title)
		VALUES (?, ?)
		ON CONFLICT (url) DO NOTHING
		RETURNING id
	`, url, title).Scan(&id)

	created := true
	if errors.Is(err, sql.ErrNoRows) {
		created = false
		err = r.db.QueryRow(`SELECT id FROM feeds WHERE url = ?`, url).Scan(&id)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to add feed: %w", err)
	}

	f, err := r.GetFeed(id)
	if err != nil {
		return nil, false, err
	}

	return f, created, nil
}

// GetFeed retrieves a feed by ID; a missing feed is (nil, nil)
func (r *FeedRepository) GetFeed(id int64) (*Feed, error) {
	f, err := scanFeed(r.db.QueryRow(`
		SELECT id, url, title, created_at, last_synced_at
		FROM feeds
		WHERE id = ?
	`, id))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return f, nil
}

func (r *FeedRepository) GetFeeds() ([]Feed, error) {
	rows, err := r.db.Query(`
		SELECT id, url, title, created_at, last_synced_at
		FROM feeds
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		feeds = append(feeds, *f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

// ListTargets returns every registered feed in registration order
func (r *FeedRepository) ListTargets() ([]feed.Target, error) {
	feeds, err := r.GetFeeds()
	if err != nil {
		return nil, err
	}

	targets := make([]feed.Target, 0, len(feeds))
	for _, f := range feeds {
		targets = append(targets, feed.Target{ID: f.ID, URL: f.URL})
	}

	return targets, nil
}

func (r *FeedRepository) GetFeedCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM feeds`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}

	return count, nil
}

// MarkSynced records the time of the last successful sync
func (r *FeedRepository) MarkSynced(id int64, at time.Time) error {
	_, err := r.db.Exec(`
		UPDATE feeds
		SET last_synced_at = ?
		WHERE id = ?
	`, at.UTC(), id)

	if err != nil {
		return fmt.Errorf("failed to mark feed synced: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (*Feed, error) {
	var f Feed
	var lastSynced sql.NullTime

	if err := row.Scan(&f.ID, &f.URL, &f.Title, &f.CreatedAt, &lastSynced); err != nil {
		return nil, err
	}

	if lastSynced.Valid {
		t := lastSynced.Time
		f.LastSyncedAt = &t
	}

	return &f, nil
}
