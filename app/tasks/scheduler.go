package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	DefaultCleanupInterval = time.Hour

	taskQueueSize = 300
	taskTimeout   = 5 * time.Minute
)

// Settings tunes the scheduler. A zero SyncInterval disables periodic
// syncs; the startup sync still runs.
type Settings struct {
	SyncInterval    time.Duration
	CleanupInterval time.Duration
	WorkerCount     int
}

type Scheduler struct {
	seeds           SeedSource
	registry        FeedRegistry
	validator       FeedValidator
	cache           CacheSweeper
	syncer          BatchSyncer
	syncInterval    time.Duration
	cleanupInterval time.Duration
	workerCount     int
	syncRunning     atomic.Bool
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	taskQueue       chan TaskInterface
}

// NewScheduler creates a scheduler. seeds may be nil.
func NewScheduler(settings Settings, seeds SeedSource, registry FeedRegistry, g Guard, batchSyncer BatchSyncer) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	cleanupInterval := settings.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}

	workerCount := settings.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
	}

	return &Scheduler{
		seeds:           seeds,
		registry:        registry,
		validator:       g,
		cache:           g,
		syncer:          batchSyncer,
		syncInterval:    settings.SyncInterval,
		cleanupInterval: cleanupInterval,
		workerCount:     workerCount,
		ctx:             ctx,
		cancel:          cancel,
		taskQueue:       make(chan TaskInterface, taskQueueSize),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		var syncTick <-chan time.Time
		if s.syncInterval > 0 {
			syncTicker := time.NewTicker(s.syncInterval)
			defer syncTicker.Stop()
			syncTick = syncTicker.C
		}

		cleanupTicker := time.NewTicker(s.cleanupInterval)
		defer cleanupTicker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-syncTick:
				s.enqueueSync()
			case <-cleanupTicker.C:
				if err := s.EnqueueTask(NewCleanDNSCacheTask(s.cache)); err != nil {
					slog.Warn("Failed to enqueue CleanDNSCacheTask", "error", err)
				}
			}
		}
	}()

}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// enqueueStartupTasks registers the seeds and then syncs once. Seeds are
// registered inline so the first sync sees them.
func (s *Scheduler) enqueueStartupTasks() {
	if s.seeds != nil {
		seeds := s.seeds.GetSeeds()
		slog.Debug("Registering feed seeds", "count", len(seeds))

		for _, seed := range seeds {
			s.executeTask(-1, NewRegisterSeedTask(seed, s.validator, s.registry))
		}
	}

	s.enqueueSync()
}

func (s *Scheduler) enqueueSync() {
	if err := s.EnqueueTask(NewSyncFeedsTask(s.registry, s.syncer, &s.syncRunning)); err != nil {
		slog.Warn("Failed to enqueue SyncFeedsTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if retryDelay, ok := task.NextRetry(); ok {
			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "subject", task.GetSubject(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()

				timer := time.NewTimer(retryDelay)
				defer timer.Stop()

				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
				case <-timer.C:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
