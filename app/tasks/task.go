package tasks

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

type TaskType string

const (
	TaskTypeRegisterSeed  TaskType = "register_seed"
	TaskTypeSyncFeeds     TaskType = "sync_feeds"
	TaskTypeCleanDNSCache TaskType = "clean_dns_cache"
)

const (
	DefaultMaxRetries = 3
	maxRetryDelay     = 30 * time.Second
)

// TaskInterface is what the scheduler needs from a queued task.
type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetSubject() string
	GetRetryCount() int
	GetMaxRetries() int
	Start()
	NextRetry() (time.Duration, bool)
}

// Task holds the bookkeeping shared by all tasks. Subject names what the
// task works on, such as a seed name, and only appears in logs.
type Task struct {
	ID         string
	Type       TaskType
	Subject    string
	RetryCount int
	MaxRetries int
	StartedAt  *time.Time
}

func NewTask(taskType TaskType, subject string) Task {
	return Task{
		ID:         fmt.Sprintf("%s-%d-%d", taskType, time.Now().UnixNano(), rand.Intn(10000)),
		Type:       taskType,
		Subject:    subject,
		MaxRetries: DefaultMaxRetries,
	}
}

func (t *Task) GetID() string { return t.ID }
func (t *Task) GetType() TaskType { return t.Type }
func (t *Task) GetSubject() string { return t.Subject }
func (t *Task) GetRetryCount() int { return t.RetryCount }
func (t *Task) GetMaxRetries() int { return t.MaxRetries }

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

// NextRetry counts another attempt and returns its backoff: 1s, 2s, 4s and
// so on, capped at maxRetryDelay. It reports false once retries are used up.
func (t *Task) NextRetry() (time.Duration, bool) {
	if t.RetryCount >= t.MaxRetries {
		return 0, false
	}
	t.RetryCount++

	delay := time.Duration(1<<uint(t.RetryCount-1)) * time.Second
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay, true
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}
