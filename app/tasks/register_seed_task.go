package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-sentry/app/feed"
)

// RegisterSeedTask adds a feed declared in the feeds directory, after the
// same check a feed added over the API goes through.
type RegisterSeedTask struct {
	Task
	Seed      feed.Seed
	validator FeedValidator
	registry  FeedRegistry
}

func NewRegisterSeedTask(seed feed.Seed, validator FeedValidator, registry FeedRegistry) *RegisterSeedTask {
	return &RegisterSeedTask{
		Task:      NewTask(TaskTypeRegisterSeed, seed.Name),
		Seed:      seed,
		validator: validator,
		registry:  registry,
	}
}

func (t *RegisterSeedTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	verdict := t.validator.ValidateForFeed(ctx, t.Seed.URL)
	if !verdict.Safe {
		// Retrying cannot change a policy decision.
		slog.Warn("Feed seed rejected", "seed", t.Seed.Name, "url", t.Seed.URL, "reason", verdict.Reason)
		return nil
	}
	if verdict.Warning != "" {
		slog.Warn("Feed seed allowed with warning", "seed", t.Seed.Name, "url", t.Seed.URL, "warning", verdict.Warning)
	}

	f, created, err := t.registry.AddFeed(t.Seed.URL, t.Seed.Title)
	if err != nil {
		slog.Error("Task failed", "type", "RegisterSeed", "seed", t.Seed.Name, "error", err)
		return fmt.Errorf("failed to register feed seed: %w", err)
	}

	slog.Info("Task completed",
		"type", "RegisterSeed",
		"seed", t.Seed.Name,
		"feed_id", f.ID,
		"created", created,
		"duration", t.GetDuration())

	return nil
}
