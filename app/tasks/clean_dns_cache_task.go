package tasks

import (
	"context"
	"log/slog"
)

type CleanDNSCacheTask struct {
	Task
	cache CacheSweeper
}

func NewCleanDNSCacheTask(cache CacheSweeper) *CleanDNSCacheTask {
	return &CleanDNSCacheTask{
		Task:  NewTask(TaskTypeCleanDNSCache, "dns"),
		cache: cache,
	}
}

func (t *CleanDNSCacheTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	removed := t.cache.SweepCache()

	slog.Info("Task completed",
		"type", "CleanDNSCache",
		"duration", t.GetDuration(),
		"removed", removed,
		"remaining", t.cache.CacheLen())

	return nil
}
