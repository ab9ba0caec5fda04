package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lysyi3m/rss-sentry/app/feed"
)

// ArticleRepository handles database operations for articles
type ArticleRepository struct {
	db *DB
}

// NewArticleRepository creates a new article repository
func NewArticleRepository(db *DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// GetExistingArticles returns every stored article of a feed, oldest first
func (r *ArticleRepository) GetExistingArticles(feedID int64) ([]feed.Article, error) {
	rows, err := r.db.Query(`
		SELECT id, feed_id, title, link, content, pub_date, image_url
		FROM articles
		WHERE feed_id = ?
		ORDER BY id
	`, feedID)
	if err != nil {
		return nil, fmt.Errorf("failed to get articles: %w", err)
	}
	defer rows.Close()

	var articles []feed.Article
	for rows.Next() {
		var a feed.Article
		var pubDate sql.NullTime
		err := rows.Scan(&a.ID, &a.FeedID, &a.Title, &a.Link, &a.Content, &pubDate, &a.ImageURL)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		if pubDate.Valid {
			t := pubDate.Time
			a.PubDate = &t
		}
		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

// InsertArticle stores candidate under feedID. It returns (nil, nil) when
// the feed already holds an article with the same normalized link.
func (r *ArticleRepository) InsertArticle(feedID int64, candidate feed.Candidate) (*feed.Article, error) {
	normalizedLink := ""
	if candidate.Link != "" {
		normalizedLink = feed.NormalizeURL(candidate.Link)
	}

	var pubDate any
	if candidate.PubDate != nil {
		pubDate = candidate.PubDate.UTC()
	}

	var id int64
	err := r.db.QueryRow(`
		INSERT INTO articles (
			feed_id, title, link, normalized_link, normalized_title,
			content, pub_date, image_url
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
		RETURNING id
	`, feedID, candidate.Title, candidate.Link, normalizedLink, feed.NormalizeTitle(candidate.Title),
		candidate.Content, pubDate, candidate.ImageURL).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert article: %w", err)
	}

	return &feed.Article{
		ID:       id,
		FeedID:   feedID,
		Title:    candidate.Title,
		Link:     candidate.Link,
		Content:  candidate.Content,
		PubDate:  candidate.PubDate,
		ImageURL: candidate.ImageURL,
	}, nil
}

func (r *ArticleRepository) GetArticleCount(feedID int64) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM articles WHERE feed_id = ?`, feedID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get article count: %w", err)
	}

	return count, nil
}
