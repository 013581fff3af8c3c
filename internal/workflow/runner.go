package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dominikbraun/graph"
	"golang.org/x/sync/errgroup"

	"github.com/figdock/figdock/internal/manifest"
	apperrors "github.com/figdock/figdock/internal/platform/errors"
)

// Runner executes workflows from a manifest.
type Runner struct {
	executors map[manifest.TaskKind]TaskExecutor

	// TaskTimeout bounds each task run. Zero means DefaultTaskTimeout.
	TaskTimeout time.Duration
	// ParallelLimit caps concurrent tasks in parallel mode. Zero means
	// one goroutine per task in the current wave.
	ParallelLimit int
	// Logf receives one line per task outcome. Nil falls back to log.Printf.
	Logf func(format string, args ...any)
}

// NewRunner creates a workflow runner with the given executors keyed by
// task kind.
func NewRunner(executors map[manifest.TaskKind]TaskExecutor) *Runner {
	copied := make(map[manifest.TaskKind]TaskExecutor, len(executors))
	for kind, exec := range executors {
		copied[kind] = exec
	}
	return &Runner{executors: copied}
}

// Run executes the workflow and returns per-task results in completion
// order. A task failure fails the workflow; tasks not attempted because of
// a failure are reported as skipped.
func (r *Runner) Run(ctx context.Context, wf manifest.Workflow) ([]TaskResult, error) {
	if r == nil {
		return nil, fmt.Errorf("workflow runner is nil")
	}
	if len(wf.Tasks) == 0 {
		return nil, nil
	}

	r.logf("workflow %q starting mode=%s tasks=%d", wf.Name, wf.Mode, len(wf.Tasks))

	var results []TaskResult
	var err error
	switch wf.Mode {
	case manifest.ModeParallel:
		results, err = r.runParallel(ctx, wf)
	default:
		results, err = r.runSequential(ctx, wf)
	}
	if err != nil {
		r.logf("workflow %q failed: %v", wf.Name, err)
		return results, err
	}
	r.logf("workflow %q complete", wf.Name)
	return results, nil
}

func (r *Runner) runSequential(ctx context.Context, wf manifest.Workflow) ([]TaskResult, error) {
	results := make([]TaskResult, 0, len(wf.Tasks))
	for i, task := range wf.Tasks {
		res := r.runTask(ctx, task)
		results = append(results, res)
		if res.Status == StatusFailed {
			for _, rest := range wf.Tasks[i+1:] {
				results = append(results, TaskResult{Name: rest.Name, Kind: rest.Kind, Status: StatusSkipped})
			}
			return results, apperrors.Wrap(apperrors.CodeWorkflowTaskFailed,
				fmt.Sprintf("workflow %q task %q", wf.Name, task.Name), res.Err)
		}
	}
	return results, nil
}

// runParallel executes tasks in topological waves: every task whose Needs
// are satisfied runs concurrently with the rest of its wave. The first
// failure stops scheduling of later waves; unattempted tasks report as
// skipped.
func (r *Runner) runParallel(ctx context.Context, wf manifest.Workflow) ([]TaskResult, error) {
	waves, err := taskWaves(wf)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]manifest.Task, len(wf.Tasks))
	for _, task := range wf.Tasks {
		byName[task.Name] = task
	}

	var mu sync.Mutex
	results := make([]TaskResult, 0, len(wf.Tasks))
	attempted := make(map[string]bool, len(wf.Tasks))

	var failed error
	for _, wave := range waves {
		group, groupCtx := errgroup.WithContext(ctx)
		if r.ParallelLimit > 0 {
			group.SetLimit(r.ParallelLimit)
		}
		for _, name := range wave {
			task := byName[name]
			mu.Lock()
			attempted[name] = true
			mu.Unlock()
			group.Go(func() error {
				res := r.runTask(groupCtx, task)
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
				if res.Status == StatusFailed {
					return apperrors.Wrap(apperrors.CodeWorkflowTaskFailed,
						fmt.Sprintf("workflow %q task %q", wf.Name, task.Name), res.Err)
				}
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			failed = err
			break
		}
	}

	if failed != nil {
		for _, task := range wf.Tasks {
			if !attempted[task.Name] {
				results = append(results, TaskResult{Name: task.Name, Kind: task.Kind, Status: StatusSkipped})
			}
		}
		return results, failed
	}
	return results, nil
}

func (r *Runner) runTask(ctx context.Context, task manifest.Task) TaskResult {
	result := TaskResult{Name: task.Name, Kind: task.Kind}

	executor, ok := r.executors[task.Kind]
	if !ok {
		result.Status = StatusFailed
		result.Err = apperrors.WithMetadata(apperrors.CodeWorkflowUnknownKind,
			"no executor for task kind", map[string]string{"kind": string(task.Kind)})
		return result
	}

	timeout := r.TaskTimeout
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	output, err := executor.Execute(taskCtx, task)
	result.Duration = time.Since(started)
	result.Output = tail(output)
	if err != nil {
		result.Status = StatusFailed
		result.Err = err
		r.logf("task %q kind=%s failed after %s: %v", task.Name, task.Kind, result.Duration.Round(time.Millisecond), err)
		return result
	}
	result.Status = StatusSucceeded
	r.logf("task %q kind=%s succeeded in %s", task.Name, task.Kind, result.Duration.Round(time.Millisecond))
	return result
}

// taskWaves orders tasks into dependency waves: wave n contains every task
// whose Needs all resolved in waves < n. Validation already rejects cycles
// and unknown Needs; errors here guard direct callers.
func taskWaves(wf manifest.Workflow) ([][]string, error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	for _, task := range wf.Tasks {
		if err := g.AddVertex(task.Name); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeWorkflowDuplicateTask,
				fmt.Sprintf("task %q", task.Name), err)
		}
	}
	for _, task := range wf.Tasks {
		for _, need := range task.Needs {
			if err := g.AddEdge(need, task.Name); err != nil {
				code := apperrors.CodeWorkflowUnknownNeed
				if errors.Is(err, graph.ErrEdgeCreatesCycle) {
					code = apperrors.CodeWorkflowCycle
				}
				return nil, apperrors.Wrap(code,
					fmt.Sprintf("task %q needs %q", task.Name, need), err)
			}
		}
	}

	depth := make(map[string]int, len(wf.Tasks))
	order, err := graph.TopologicalSort(g)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeWorkflowCycle, "order tasks", err)
	}
	needsByName := make(map[string][]string, len(wf.Tasks))
	for _, task := range wf.Tasks {
		needsByName[task.Name] = task.Needs
	}
	maxDepth := 0
	for _, name := range order {
		d := 0
		for _, need := range needsByName[name] {
			if depth[need]+1 > d {
				d = depth[need] + 1
			}
		}
		depth[name] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	waves := make([][]string, maxDepth+1)
	for _, name := range order {
		waves[depth[name]] = append(waves[depth[name]], name)
	}
	return waves, nil
}

func (r *Runner) logf(format string, args ...any) {
	if r != nil && r.Logf != nil {
		r.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}
