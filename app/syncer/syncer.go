package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/rss-sentry/app/feed"
)

const DefaultFetchTimeout = 15 * time.Second

type Orchestrator struct {
	validator   Validator
	fetcher     Fetcher
	storage     Storage
	timeout     time.Duration
	concurrency int
	now         func() time.Time
}

// NewOrchestrator creates an orchestrator. A non-positive timeout means
// DefaultFetchTimeout; a non-positive concurrency runs every feed of a
// batch at once.
func NewOrchestrator(validator Validator, fetcher Fetcher, storage Storage, timeout time.Duration, concurrency int) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	return &Orchestrator{
		validator:   validator,
		fetcher:     fetcher,
		storage:     storage,
		timeout:     timeout,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// SyncOne validates, fetches and stores the new articles of a single feed.
func (o *Orchestrator) SyncOne(ctx context.Context, target feed.Target) (Outcome, error) {
	outcome := Outcome{FeedID: target.ID}

	verdict := o.validator.ValidateForFeed(ctx, target.URL)
	if !verdict.Safe {
		slog.Warn("Feed URL blocked", "feed_id", target.ID, "url", target.URL, "reason", verdict.Reason)
		return outcome, fmt.Errorf("%w: %s", ErrUnsafeTarget, verdict.Reason)
	}
	if verdict.Warning != "" {
		slog.Warn("Feed URL allowed with warning", "feed_id", target.ID, "url", target.URL, "warning", verdict.Warning)
		outcome.Warning = verdict.Warning
	}

	parsed, err := o.fetch(ctx, target.URL)
	if err != nil {
		return outcome, err
	}
	outcome.Total = len(parsed.Items)

	existing, err := o.storage.GetExistingArticles(target.ID)
	if err != nil {
		return outcome, fmt.Errorf("failed to load existing articles: %w", err)
	}

	for _, candidate := range parsed.Items {
		if feed.IsDuplicate(target.ID, candidate, existing) {
			continue
		}

		article, err := o.storage.InsertArticle(target.ID, candidate)
		if err != nil {
			return outcome, fmt.Errorf("failed to insert article: %w", err)
		}
		if article == nil {
			continue
		}

		// Items repeated within one document are caught by the next comparison.
		existing = append(existing, *article)
		outcome.Added++
	}

	if err := o.storage.MarkSynced(target.ID, o.now()); err != nil {
		slog.Warn("Failed to record sync time", "feed_id", target.ID, "error", err)
	}

	slog.Debug("Feed synced", "feed_id", target.ID, "added", outcome.Added, "total", outcome.Total)

	return outcome, nil
}

// SyncAll syncs targets concurrently and streams one progress event per
// finished feed, in completion order, followed by a single complete event.
// The channel is closed after the complete event. A failing feed never
// stops the others.
func (o *Orchestrator) SyncAll(ctx context.Context, targets []feed.Target) <-chan Progress {
	out := make(chan Progress, len(targets)+1)
	total := len(targets)

	if total == 0 {
		out <- Progress{Type: ProgressTypeComplete}
		close(out)
		return out
	}

	results := make(chan bool, total)

	var g errgroup.Group
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}

	// g.Go blocks once the limit is reached, so dispatch runs on its own.
	go func() {
		for _, target := range targets {
			g.Go(func() error {
				_, err := o.SyncOne(ctx, target)
				if err != nil {
					slog.Warn("Feed sync failed", "feed_id", target.ID, "url", target.URL, "error", err)
				}
				results <- err == nil
				return nil
			})
		}
		g.Wait()
		close(results)
	}()

	go func() {
		defer close(out)

		var synced, failed int
		for ok := range results {
			if ok {
				synced++
			} else {
				failed++
			}
			out <- Progress{
				Type:      ProgressTypeProgress,
				Synced:    synced,
				Failed:    failed,
				Completed: synced + failed,
				Total:     total,
			}
		}

		out <- Progress{
			Type:      ProgressTypeComplete,
			Synced:    synced,
			Failed:    failed,
			Completed: synced + failed,
			Total:     total,
		}

		slog.Info("Feed batch synced", "synced", synced, "failed", failed, "total", total)
	}()

	return out
}

type fetchResult struct {
	parsed *feed.ParsedFeed
	err    error
}

// fetch races the fetcher against the per-feed deadline. The fetcher's
// goroutine may outlive a timeout; its result is dropped.
func (o *Orchestrator) fetch(ctx context.Context, url string) (*feed.ParsedFeed, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	done := make(chan fetchResult, 1)
	go func() {
		parsed, err := o.fetcher.Fetch(fetchCtx, url)
		done <- fetchResult{parsed: parsed, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if ctx.Err() == nil && errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w after %s", ErrFetchTimeout, o.timeout)
			}
			return nil, fmt.Errorf("failed to fetch feed: %w", r.err)
		}
		if r.parsed == nil {
			return nil, fmt.Errorf("failed to fetch feed: empty result")
		}
		return r.parsed, nil
	case <-fetchCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w after %s", ErrFetchTimeout, o.timeout)
	}
}
