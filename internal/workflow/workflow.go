// Package workflow executes manifest workflows: named groups of
// orchestrator-level tasks such as shell commands and scenario smoke
// checks. Sequential workflows run tasks in declared order; parallel
// workflows run them in dependency waves derived from task Needs edges.
package workflow

import (
	"context"
	"time"

	"github.com/figdock/figdock/internal/manifest"
)

// DefaultTaskTimeout bounds a single task run when the runner does not
// override it.
const DefaultTaskTimeout = 5 * time.Minute

// outputTailBytes is how much task output a TaskResult retains.
const outputTailBytes = 4 << 10

// TaskStatus reports how a task run ended.
type TaskStatus string

const (
	StatusSucceeded TaskStatus = "succeeded"
	StatusFailed    TaskStatus = "failed"
	// StatusSkipped marks tasks not attempted because an earlier task failed.
	StatusSkipped TaskStatus = "skipped"
)

// TaskResult records one task run within a workflow.
type TaskResult struct {
	Name     string
	Kind     manifest.TaskKind
	Status   TaskStatus
	Output   string
	Duration time.Duration
	Err      error
}

// TaskExecutor runs a single task and returns its output tail. Implemented
// per task kind; the runner picks the executor from the task's Kind.
type TaskExecutor interface {
	Execute(ctx context.Context, task manifest.Task) (string, error)
}

// TaskExecutorFunc adapts a function to TaskExecutor.
type TaskExecutorFunc func(ctx context.Context, task manifest.Task) (string, error)

// Execute implements TaskExecutor.
func (f TaskExecutorFunc) Execute(ctx context.Context, task manifest.Task) (string, error) {
	return f(ctx, task)
}

func tail(s string) string {
	if len(s) <= outputTailBytes {
		return s
	}
	return s[len(s)-outputTailBytes:]
}
