package syncer

import (
	"errors"
)

const (
	ProgressTypeProgress = "progress"
	ProgressTypeComplete = "complete"
)

var (
	ErrUnsafeTarget = errors.New("feed URL rejected by guard")
	ErrFetchTimeout = errors.New("feed fetch timed out")
)

// Outcome is the result of syncing one feed. Added counts the articles
// stored by this run; Total counts the items the document carried.
type Outcome struct {
	FeedID  int64  `json:"feedId"`
	Added   int    `json:"added"`
	Total   int    `json:"total"`
	Warning string `json:"warning,omitempty"`
}

// Progress is one element of a batch stream. Completed is always
// Synced+Failed and Total is fixed for the whole batch.
type Progress struct {
	Type      string `json:"type"`
	Synced    int    `json:"synced"`
	Failed    int    `json:"failed"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}
