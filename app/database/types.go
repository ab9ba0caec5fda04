package database

import (
	"time"
)

type Feed struct {
	ID           int64
	URL          string
	Title        string
	CreatedAt    time.Time
	LastSyncedAt *time.Time
}
