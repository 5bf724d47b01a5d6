package tasks

import (
	"context"
	"log/slog"

	"github.com/letsrace/digest/app/runner"
)

// RunDigestTask executes one digest batch. It never retries: a failed run
// simply waits for the next scheduled day, and re-running after a partial
// batch could double-send emails.
type RunDigestTask struct {
	Task
	runner *runner.Runner
}

func NewRunDigestTask(r *runner.Runner) *RunDigestTask {
	return &RunDigestTask{
		Task:   NewTask(TaskTypeRunDigest, 0),
		runner: r,
	}
}

func (t *RunDigestTask) Execute(ctx context.Context) error {
	results, err := t.runner.Run(ctx)
	if err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", "RunDigest",
		"duration", t.GetDuration(),
		"sent", results.Sent,
		"failed", results.Failed,
		"skipped", results.Skipped)

	return nil
}
