package database

import (
	"testing"
	"time"

	"github.com/lysyi3m/rss-sentry/app/feed"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	version, dirty, err := RunMigrations(db)
	if err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	if version != 1 || dirty {
		t.Fatalf("Expected clean migration version 1, got %d (dirty=%v)", version, dirty)
	}

	return db
}

func TestNewConnection_EmptyPath(t *testing.T) {
	_, err := NewConnection("  ")
	if err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := newTestDB(t)

	version, _, err := RunMigrations(db)
	if err != nil {
		t.Fatalf("Expected second run to succeed, got %v", err)
	}
	if version != 1 {
		t.Errorf("Expected version 1, got %d", version)
	}
}

func TestFeedRepository_AddFeed(t *testing.T) {
	repo := NewFeedRepository(newTestDB(t))

	f, created, err := repo.AddFeed("https://example.com/rss", "Example")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !created {
		t.Error("Expected feed to be created")
	}
	if f.ID == 0 || f.URL != "https://example.com/rss" || f.Title != "Example" {
		t.Errorf("Unexpected feed: %+v", f)
	}
	if f.LastSyncedAt != nil {
		t.Errorf("Expected no sync time, got %v", f.LastSyncedAt)
	}

	again, created, err := repo.AddFeed("https://example.com/rss", "Other title")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if created {
		t.Error("Expected existing feed to be returned")
	}
	if again.ID != f.ID || again.Title != "Example" {
		t.Errorf("Expected original feed %d, got %+v", f.ID, again)
	}

	count, err := repo.GetFeedCount()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 feed, got %d", count)
	}
}

func TestFeedRepository_GetFeedMissing(t *testing.T) {
	repo := NewFeedRepository(newTestDB(t))

	f, err := repo.GetFeed(42)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if f != nil {
		t.Errorf("Expected nil feed, got %+v", f)
	}
}

func TestFeedRepository_ListTargetsAndMarkSynced(t *testing.T) {
	repo := NewFeedRepository(newTestDB(t))

	first, _, _ := repo.AddFeed("https://a.example.com/feed", "A")
	second, _, _ := repo.AddFeed("https://b.example.com/feed", "B")

	targets, err := repo.ListTargets()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	expected := []feed.Target{
		{ID: first.ID, URL: first.URL},
		{ID: second.ID, URL: second.URL},
	}
	if len(targets) != len(expected) {
		t.Fatalf("Expected %d targets, got %d", len(expected), len(targets))
	}
	for i := range expected {
		if targets[i] != expected[i] {
			t.Errorf("Target %d: expected %+v, got %+v", i, expected[i], targets[i])
		}
	}

	syncedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.MarkSynced(first.ID, syncedAt); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got, err := repo.GetFeed(first.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.LastSyncedAt == nil || !got.LastSyncedAt.Equal(syncedAt) {
		t.Errorf("Expected last sync %v, got %v", syncedAt, got.LastSyncedAt)
	}
}

func TestArticleRepository_InsertAndDuplicate(t *testing.T) {
	db := newTestDB(t)
	feeds := NewFeedRepository(db)
	articles := NewArticleRepository(db)

	f, _, _ := feeds.AddFeed("https://example.com/rss", "Example")

	pub := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	inserted, err := articles.InsertArticle(f.ID, feed.Candidate{
		Title:   "Hello",
		Link:    "https://example.com/a?utm_source=x",
		Content: "Body",
		PubDate: &pub,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if inserted == nil || inserted.ID == 0 {
		t.Fatalf("Expected inserted article, got %+v", inserted)
	}

	// Same link once tracking parameters are stripped.
	dup, err := articles.InsertArticle(f.ID, feed.Candidate{
		Title: "Different title",
		Link:  "https://example.com/a#comments",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if dup != nil {
		t.Errorf("Expected nil for duplicate link, got %+v", dup)
	}

	existing, err := articles.GetExistingArticles(f.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(existing) != 1 {
		t.Fatalf("Expected 1 article, got %d", len(existing))
	}
	if existing[0].PubDate == nil || !existing[0].PubDate.Equal(pub) {
		t.Errorf("Expected pub date %v, got %v", pub, existing[0].PubDate)
	}
	if existing[0].Link != "https://example.com/a?utm_source=x" {
		t.Errorf("Expected original link to be stored, got %s", existing[0].Link)
	}
}

func TestArticleRepository_DuplicatesAreFeedScoped(t *testing.T) {
	db := newTestDB(t)
	feeds := NewFeedRepository(db)
	articles := NewArticleRepository(db)

	a, _, _ := feeds.AddFeed("https://a.example.com/rss", "A")
	b, _, _ := feeds.AddFeed("https://b.example.com/rss", "B")

	candidate := feed.Candidate{Title: "Shared", Link: "https://news.example.com/story"}

	for _, feedID := range []int64{a.ID, b.ID} {
		inserted, err := articles.InsertArticle(feedID, candidate)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if inserted == nil {
			t.Errorf("Expected insert into feed %d", feedID)
		}
	}

	for _, feedID := range []int64{a.ID, b.ID} {
		count, err := articles.GetArticleCount(feedID)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 article in feed %d, got %d", feedID, count)
		}
	}
}

func TestArticleRepository_EmptyLinksNeverConflict(t *testing.T) {
	db := newTestDB(t)
	feeds := NewFeedRepository(db)
	articles := NewArticleRepository(db)

	f, _, _ := feeds.AddFeed("https://example.com/rss", "Example")

	for _, title := range []string{"One", "Two"} {
		inserted, err := articles.InsertArticle(f.ID, feed.Candidate{Title: title})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if inserted == nil {
			t.Errorf("Expected %q to be inserted", title)
		}
	}
}
