package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/letsrace/digest/app/runner"
)

// WarmEventsTask pre-populates the event cache so the digest run and the
// admin preview endpoints don't pay the full fetch cost.
type WarmEventsTask struct {
	Task
	source runner.EventLoader
}

func NewWarmEventsTask(source runner.EventLoader) *WarmEventsTask {
	return &WarmEventsTask{
		Task:   NewTask(TaskTypeWarmEvents, DefaultMaxRetries),
		source: source,
	}
}

func (t *WarmEventsTask) Execute(ctx context.Context) error {
	events, err := t.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to warm event cache: %w", err)
	}

	slog.Info("Task completed",
		"type", "WarmEvents",
		"duration", t.GetDuration(),
		"events", len(events))

	return nil
}
