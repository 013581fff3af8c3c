package scenario

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/figdock/figdock/internal/platform/errors"
	"github.com/figdock/figdock/internal/platform/timeouts"
)

// maxBodyBytes caps how much of a response body a contains check reads.
const maxBodyBytes = 1 << 20

// Runner executes scenario steps against a base URL.
type Runner struct {
	// BaseURL is the root of the target app, without a trailing slash.
	BaseURL string
	// Client is the HTTP client to use. A nil client falls back to a
	// default with the per-request timeout applied.
	Client *http.Client
	// Logf receives one line per completed step. Nil discards.
	Logf func(format string, args ...any)
}

// StepResult records one executed step.
type StepResult struct {
	Index    int
	Kind     string
	Detail   string
	Duration time.Duration
}

// Run executes the scenario steps in order, stopping at the first
// failure. The returned results cover the steps that completed.
func (r *Runner) Run(ctx context.Context, sc *Scenario) ([]StepResult, error) {
	if sc == nil || len(sc.Steps) == 0 {
		return nil, apperrors.New(apperrors.CodeScenarioInvalid, "scenario has no steps")
	}

	results := make([]StepResult, 0, len(sc.Steps))
	for i, step := range sc.Steps {
		start := time.Now()
		detail, err := r.runStep(ctx, step)
		if err != nil {
			return results, apperrors.WrapWithMetadata(
				apperrors.CodeScenarioStepFailed,
				fmt.Sprintf("scenario %q step %d (%s)", sc.Name, i+1, step.Kind),
				map[string]string{"step": strconv.Itoa(i + 1), "kind": step.Kind},
				err,
			)
		}
		result := StepResult{Index: i + 1, Kind: step.Kind, Detail: detail, Duration: time.Since(start)}
		results = append(results, result)
		r.logf("step %d/%d %s: %s (%s)", i+1, len(sc.Steps), step.Kind, detail, result.Duration.Round(time.Millisecond))
	}
	return results, nil
}

func (r *Runner) runStep(ctx context.Context, step Step) (string, error) {
	switch step.Kind {
	case StepGet:
		return r.request(ctx, http.MethodGet, step.Args)
	case StepPost:
		return r.request(ctx, http.MethodPost, step.Args)
	case StepWaitHealthy:
		return r.waitHealthy(ctx, step.Args)
	case StepSleep:
		return sleep(ctx, step.Args)
	default:
		return "", fmt.Errorf("unknown step kind %q", step.Kind)
	}
}

func (r *Runner) request(ctx context.Context, method string, args map[string]any) (string, error) {
	path, _ := stringArg(args, "path")
	expect := http.StatusOK
	if status, ok := intArg(args, "expect"); ok {
		expect = status
	}

	var body io.Reader
	if raw, ok := stringArg(args, "body"); ok {
		body = strings.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.join(path), body)
	if err != nil {
		return "", err
	}
	if method == http.MethodPost {
		contentType, ok := stringArg(args, "content_type")
		if !ok {
			contentType = "application/json"
		}
		req.Header.Set("Content-Type", contentType)
	}

	res, err := r.client().Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != expect {
		return "", fmt.Errorf("%s %s returned %d, want %d", method, path, res.StatusCode, expect)
	}
	if substr, ok := stringArg(args, "contains"); ok && substr != "" {
		raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
		if err != nil {
			return "", fmt.Errorf("read %s body: %w", path, err)
		}
		if !strings.Contains(string(raw), substr) {
			return "", fmt.Errorf("%s %s body does not contain %q", method, path, substr)
		}
	}
	return fmt.Sprintf("%s %s -> %d", method, path, res.StatusCode), nil
}

func (r *Runner) waitHealthy(ctx context.Context, args map[string]any) (string, error) {
	path, ok := stringArg(args, "path")
	if !ok || path == "" {
		path = "/healthz"
	}
	timeout := timeouts.ReadyWait
	if secs, ok := floatArg(args, "timeout_seconds"); ok {
		timeout = time.Duration(secs * float64(time.Second))
	}

	deadline := time.Now().Add(timeout)
	var lastErr error
	for {
		status, err := r.probe(ctx, path)
		if err == nil && status == http.StatusOK {
			return fmt.Sprintf("GET %s -> %d", path, status), nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("status %d", status)
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("%s not healthy after %s: %w", path, timeout, lastErr)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(timeouts.ReadyPoll):
		}
	}
}

func (r *Runner) probe(ctx context.Context, path string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.join(path), nil)
	if err != nil {
		return 0, err
	}
	res, err := r.client().Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	io.Copy(io.Discard, io.LimitReader(res.Body, maxBodyBytes))
	return res.StatusCode, nil
}

func sleep(ctx context.Context, args map[string]any) (string, error) {
	secs, _ := floatArg(args, "seconds")
	d := time.Duration(secs * float64(time.Second))
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(d):
		return fmt.Sprintf("slept %s", d), nil
	}
}

func (r *Runner) join(path string) string {
	return strings.TrimRight(r.BaseURL, "/") + path
}

func (r *Runner) client() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	return &http.Client{Timeout: timeouts.ScenarioRequest}
}

func (r *Runner) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
	}
}
