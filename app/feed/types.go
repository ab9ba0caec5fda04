package feed

import (
	"time"
)

// Target is one feed to sync.
type Target struct {
	ID  int64
	URL string
}

type Metadata struct {
	Title       string
	Link        string
	Description string
	ImageURL    string
	Language    string
}

// Candidate is an article as read from a feed document, before
// deduplication.
type Candidate struct {
	Title    string
	Link     string
	Content  string
	PubDate  *time.Time
	ImageURL string
}

type ParsedFeed struct {
	Metadata Metadata
	Items    []Candidate
}

// Article is the stored form the deduplicator compares candidates against.
type Article struct {
	ID       int64
	FeedID   int64
	Title    string
	Link     string
	Content  string
	PubDate  *time.Time
	ImageURL string
}

// Seed is a feed declared in a YAML file under the feeds directory.
type Seed struct {
	Name  string // Derived from filename (without .yml extension)
	URL   string `yaml:"url"`
	Title string `yaml:"title"`
}
