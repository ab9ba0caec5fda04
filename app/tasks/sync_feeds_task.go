package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/lysyi3m/rss-sentry/app/syncer"
)

// SyncFeedsTask syncs every registered feed as one batch. Only one batch
// runs at a time; a task that finds another in flight does nothing.
type SyncFeedsTask struct {
	Task
	registry FeedRegistry
	syncer   BatchSyncer
	running  *atomic.Bool
}

func NewSyncFeedsTask(registry FeedRegistry, batchSyncer BatchSyncer, running *atomic.Bool) *SyncFeedsTask {
	return &SyncFeedsTask{
		Task:     NewTask(TaskTypeSyncFeeds, "all"),
		registry: registry,
		syncer:   batchSyncer,
		running:  running,
	}
}

func (t *SyncFeedsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.running.CompareAndSwap(false, true) {
		slog.Debug("Feed sync already running, skipping")
		return nil
	}
	defer t.running.Store(false)

	targets, err := t.registry.ListTargets()
	if err != nil {
		return fmt.Errorf("failed to list feeds: %w", err)
	}

	var last syncer.Progress
	for progress := range t.syncer.SyncAll(ctx, targets) {
		last = progress
	}

	slog.Info("Task completed",
		"type", "SyncFeeds",
		"duration", t.GetDuration(),
		"total", last.Total,
		"synced", last.Synced,
		"failed", last.Failed)

	return nil
}
