package workflow

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/figdock/figdock/internal/manifest"
	"github.com/figdock/figdock/internal/scenario"
)

// stepRound trims scenario step durations for the output summary.
const stepRound = time.Millisecond

// ShellExecutor runs shell.exec tasks via sh -c.
type ShellExecutor struct {
	// Dir is the working directory for task commands. Empty inherits the
	// process working directory.
	Dir string
	// Env is appended to the inherited environment, KEY=VALUE form.
	Env []string
}

// Execute runs the task's Args as a shell command and returns its combined
// output.
func (e *ShellExecutor) Execute(ctx context.Context, task manifest.Task) (string, error) {
	command := strings.TrimSpace(task.Args)
	if command == "" {
		return "", fmt.Errorf("task %q has no command", task.Name)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if e != nil {
		cmd.Dir = e.Dir
		if len(e.Env) > 0 {
			cmd.Env = append(os.Environ(), e.Env...)
		}
	}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return output.String(), fmt.Errorf("command %q: %w", command, ctxErr)
	}
	if err != nil {
		return output.String(), fmt.Errorf("command %q: %w", command, err)
	}
	return output.String(), nil
}

// ScenarioExecutor runs scenario.run tasks: Args names a Lua scenario file
// executed against the target base URL.
type ScenarioExecutor struct {
	// BaseURL is the root of the app under test.
	BaseURL string
	// Client overrides the HTTP client used for scenario steps.
	Client *http.Client
	// Logf receives scenario step lines. Nil discards.
	Logf func(format string, args ...any)
}

// Execute loads and runs the scenario file named by the task's Args.
func (e *ScenarioExecutor) Execute(ctx context.Context, task manifest.Task) (string, error) {
	path := strings.TrimSpace(task.Args)
	if path == "" {
		return "", fmt.Errorf("task %q names no scenario file", task.Name)
	}

	sc, err := scenario.LoadFile(path)
	if err != nil {
		return "", fmt.Errorf("load scenario %q: %w", path, err)
	}

	runner := &scenario.Runner{BaseURL: e.BaseURL, Client: e.Client, Logf: e.Logf}
	steps, err := runner.Run(ctx, sc)

	var summary strings.Builder
	for _, step := range steps {
		fmt.Fprintf(&summary, "step %d %s: %s (%s)\n", step.Index+1, step.Kind, step.Detail, step.Duration.Round(stepRound))
	}
	if err != nil {
		return summary.String(), fmt.Errorf("scenario %q: %w", sc.Name, err)
	}
	return summary.String(), nil
}
