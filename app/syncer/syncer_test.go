package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/rss-sentry/app/feed"
	"github.com/lysyi3m/rss-sentry/app/guard"
)

type fakeValidator struct {
	verdicts map[string]guard.Verdict
}

func (v *fakeValidator) ValidateForFeed(ctx context.Context, rawURL string) guard.Verdict {
	if verdict, ok := v.verdicts[rawURL]; ok {
		return verdict
	}
	return guard.Verdict{Safe: true}
}

// fakeFetcher serves documents by URL. URLs listed in hang block until
// release is closed, ignoring the context.
type fakeFetcher struct {
	docs    map[string]*feed.ParsedFeed
	errs    map[string]error
	hang    map[string]bool
	release chan struct{}

	mu    sync.Mutex
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*feed.ParsedFeed, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()

	if f.hang[url] {
		<-f.release
		return &feed.ParsedFeed{}, nil
	}
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if doc, ok := f.docs[url]; ok {
		return doc, nil
	}
	return &feed.ParsedFeed{}, nil
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeStorage struct {
	mu       sync.Mutex
	articles map[int64][]feed.Article
	synced   map[int64]time.Time
	nextID   int64
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		articles: make(map[int64][]feed.Article),
		synced:   make(map[int64]time.Time),
	}
}

func (s *fakeStorage) GetExistingArticles(feedID int64) ([]feed.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]feed.Article(nil), s.articles[feedID]...), nil
}

func (s *fakeStorage) InsertArticle(feedID int64, c feed.Candidate) (*feed.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.articles[feedID] {
		if c.Link != "" && feed.NormalizeURL(a.Link) == feed.NormalizeURL(c.Link) {
			return nil, nil
		}
	}

	s.nextID++
	article := feed.Article{ID: s.nextID, FeedID: feedID, Title: c.Title, Link: c.Link, Content: c.Content}
	s.articles[feedID] = append(s.articles[feedID], article)
	return &article, nil
}

func (s *fakeStorage) MarkSynced(feedID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced[feedID] = at
	return nil
}

func (s *fakeStorage) count(feedID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.articles[feedID])
}

func drain(t *testing.T, events <-chan Progress) []Progress {
	t.Helper()

	var got []Progress
	timeout := time.After(5 * time.Second)
	for {
		select {
		case p, ok := <-events:
			if !ok {
				return got
			}
			got = append(got, p)
		case <-timeout:
			t.Fatalf("Timed out waiting for progress stream, got %d events", len(got))
			return nil
		}
	}
}

func TestSyncAll_TimeoutDoesNotAbortBatch(t *testing.T) {
	fetcher := &fakeFetcher{
		hang:    map[string]bool{"https://slow.example.com/rss": true},
		release: make(chan struct{}),
	}
	defer close(fetcher.release)

	o := NewOrchestrator(&fakeValidator{}, fetcher, newFakeStorage(), 50*time.Millisecond, 0)

	targets := []feed.Target{
		{ID: 1, URL: "https://a.example.com/rss"},
		{ID: 2, URL: "https://b.example.com/rss"},
		{ID: 3, URL: "https://slow.example.com/rss"},
		{ID: 4, URL: "https://c.example.com/rss"},
		{ID: 5, URL: "https://d.example.com/rss"},
	}

	events := drain(t, o.SyncAll(context.Background(), targets))

	if len(events) != 6 {
		t.Fatalf("Expected 5 progress events and 1 complete, got %d: %+v", len(events), events)
	}

	for i, p := range events[:5] {
		if p.Type != ProgressTypeProgress {
			t.Errorf("Event %d: expected type %q, got %q", i, ProgressTypeProgress, p.Type)
		}
		if p.Completed != i+1 {
			t.Errorf("Event %d: expected completed %d, got %d", i, i+1, p.Completed)
		}
		if p.Completed != p.Synced+p.Failed {
			t.Errorf("Event %d: completed %d != synced %d + failed %d", i, p.Completed, p.Synced, p.Failed)
		}
		if p.Total != 5 {
			t.Errorf("Event %d: expected total 5, got %d", i, p.Total)
		}
	}

	last := events[5]
	expected := Progress{Type: ProgressTypeComplete, Synced: 4, Failed: 1, Completed: 5, Total: 5}
	if last != expected {
		t.Errorf("Expected %+v, got %+v", expected, last)
	}
}

func TestSyncAll_CountsAreMonotonic(t *testing.T) {
	fetcher := &fakeFetcher{
		errs: map[string]error{
			"https://broken.example.com/rss": errors.New("connection refused"),
		},
	}
	validator := &fakeValidator{verdicts: map[string]guard.Verdict{
		"http://localhost/rss": {Safe: false, Reason: guard.ReasonBlockedHost},
	}}

	o := NewOrchestrator(validator, fetcher, newFakeStorage(), time.Second, 2)

	targets := []feed.Target{
		{ID: 1, URL: "https://a.example.com/rss"},
		{ID: 2, URL: "https://broken.example.com/rss"},
		{ID: 3, URL: "http://localhost/rss"},
		{ID: 4, URL: "https://b.example.com/rss"},
	}

	events := drain(t, o.SyncAll(context.Background(), targets))
	if len(events) != 5 {
		t.Fatalf("Expected 5 events, got %d", len(events))
	}

	prev := Progress{}
	for i, p := range events {
		if p.Synced < prev.Synced || p.Failed < prev.Failed || p.Completed < prev.Completed {
			t.Errorf("Event %d went backwards: %+v after %+v", i, p, prev)
		}
		prev = p
	}

	if prev.Synced != 2 || prev.Failed != 2 {
		t.Errorf("Expected 2 synced and 2 failed, got %+v", prev)
	}

	for _, url := range fetcher.Calls() {
		if url == "http://localhost/rss" {
			t.Error("Expected blocked feed not to be fetched")
		}
	}
}

func TestSyncAll_Empty(t *testing.T) {
	o := NewOrchestrator(&fakeValidator{}, &fakeFetcher{}, newFakeStorage(), time.Second, 0)

	events := drain(t, o.SyncAll(context.Background(), nil))
	if len(events) != 1 {
		t.Fatalf("Expected a single event, got %d", len(events))
	}

	expected := Progress{Type: ProgressTypeComplete}
	if events[0] != expected {
		t.Errorf("Expected %+v, got %+v", expected, events[0])
	}
}

func TestSyncOne_Deduplicates(t *testing.T) {
	url := "https://news.example.com/rss"
	fetcher := &fakeFetcher{docs: map[string]*feed.ParsedFeed{
		url: {Items: []feed.Candidate{
			{Title: "First", Link: "https://news.example.com/1?utm_source=rss"},
			{Title: "Second", Link: "https://news.example.com/2"},
			{Title: "  FIRST  ", Link: "https://news.example.com/other"},
			{Title: "Third", Link: "https://news.example.com/1#top"},
		}},
	}}
	storage := newFakeStorage()
	o := NewOrchestrator(&fakeValidator{}, fetcher, storage, time.Second, 0)

	outcome, err := o.SyncOne(context.Background(), feed.Target{ID: 7, URL: url})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := Outcome{FeedID: 7, Added: 2, Total: 4}
	if outcome != expected {
		t.Errorf("Expected %+v, got %+v", expected, outcome)
	}

	again, err := o.SyncOne(context.Background(), feed.Target{ID: 7, URL: url})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if again.Added != 0 {
		t.Errorf("Expected no new articles on resync, got %d", again.Added)
	}
	if storage.count(7) != 2 {
		t.Errorf("Expected 2 stored articles, got %d", storage.count(7))
	}
	if _, ok := storage.synced[7]; !ok {
		t.Error("Expected feed to be marked synced")
	}
}

func TestSyncOne_SameLinkInTwoFeeds(t *testing.T) {
	doc := &feed.ParsedFeed{Items: []feed.Candidate{
		{Title: "Syndicated", Link: "https://wire.example.com/story"},
	}}
	fetcher := &fakeFetcher{docs: map[string]*feed.ParsedFeed{
		"https://a.example.com/rss": doc,
		"https://b.example.com/rss": doc,
	}}
	storage := newFakeStorage()
	o := NewOrchestrator(&fakeValidator{}, fetcher, storage, time.Second, 0)

	for _, target := range []feed.Target{
		{ID: 1, URL: "https://a.example.com/rss"},
		{ID: 2, URL: "https://b.example.com/rss"},
	} {
		outcome, err := o.SyncOne(context.Background(), target)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if outcome.Added != 1 {
			t.Errorf("Feed %d: expected 1 added, got %d", target.ID, outcome.Added)
		}
	}
}

func TestSyncOne_Blocked(t *testing.T) {
	validator := &fakeValidator{verdicts: map[string]guard.Verdict{
		"http://169.254.169.254/rss": {Safe: false, Reason: guard.ReasonBlockedHost},
	}}
	fetcher := &fakeFetcher{}
	o := NewOrchestrator(validator, fetcher, newFakeStorage(), time.Second, 0)

	_, err := o.SyncOne(context.Background(), feed.Target{ID: 1, URL: "http://169.254.169.254/rss"})
	if !errors.Is(err, ErrUnsafeTarget) {
		t.Errorf("Expected ErrUnsafeTarget, got %v", err)
	}
	if len(fetcher.Calls()) != 0 {
		t.Errorf("Expected no fetch, got %v", fetcher.Calls())
	}
}

func TestSyncOne_Warning(t *testing.T) {
	url := "http://192.168.1.50/feed.xml"
	validator := &fakeValidator{verdicts: map[string]guard.Verdict{
		url: {Safe: true, Warning: guard.ReasonPrivateIP},
	}}
	o := NewOrchestrator(validator, &fakeFetcher{}, newFakeStorage(), time.Second, 0)

	outcome, err := o.SyncOne(context.Background(), feed.Target{ID: 1, URL: url})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if outcome.Warning != guard.ReasonPrivateIP {
		t.Errorf("Expected warning %q, got %q", guard.ReasonPrivateIP, outcome.Warning)
	}
}

func TestSyncOne_Timeout(t *testing.T) {
	url := "https://slow.example.com/rss"
	fetcher := &fakeFetcher{
		hang:    map[string]bool{url: true},
		release: make(chan struct{}),
	}
	defer close(fetcher.release)

	o := NewOrchestrator(&fakeValidator{}, fetcher, newFakeStorage(), 20*time.Millisecond, 0)

	start := time.Now()
	_, err := o.SyncOne(context.Background(), feed.Target{ID: 1, URL: url})
	if !errors.Is(err, ErrFetchTimeout) {
		t.Errorf("Expected ErrFetchTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Expected timeout to fire promptly, took %s", elapsed)
	}
}

func TestSyncOne_FetchError(t *testing.T) {
	url := "https://broken.example.com/rss"
	fetcher := &fakeFetcher{errs: map[string]error{url: errors.New("HTTP 500")}}
	o := NewOrchestrator(&fakeValidator{}, fetcher, newFakeStorage(), time.Second, 0)

	_, err := o.SyncOne(context.Background(), feed.Target{ID: 1, URL: url})
	if err == nil {
		t.Fatal("Expected error")
	}
	if errors.Is(err, ErrFetchTimeout) {
		t.Errorf("Expected plain fetch error, got timeout: %v", err)
	}
}

func TestNewOrchestrator_DefaultTimeout(t *testing.T) {
	o := NewOrchestrator(&fakeValidator{}, &fakeFetcher{}, newFakeStorage(), 0, 0)
	if o.timeout != DefaultFetchTimeout {
		t.Errorf("Expected %s, got %s", DefaultFetchTimeout, o.timeout)
	}
}
