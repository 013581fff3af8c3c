// Package scenario loads and runs Lua smoke-check scripts against a
// hosted app. A script builds a Scenario value through step methods and
// returns it; the runner replays the recorded steps over HTTP.
package scenario

import (
	"fmt"
	"strings"

	apperrors "github.com/figdock/figdock/internal/platform/errors"
)

// Step kinds recorded by the Lua binding.
const (
	StepGet         = "get"
	StepPost        = "post"
	StepWaitHealthy = "wait_healthy"
	StepSleep       = "sleep"
)

// Scenario is a named sequence of smoke-check steps.
type Scenario struct {
	Name  string
	Steps []Step
}

// Step is a single recorded action. Args carries the decoded Lua table
// for the step; the runner interprets it per Kind.
type Step struct {
	Kind string
	Args map[string]any
}

// validate rejects scenarios the runner could not execute, so script
// mistakes surface at load time instead of mid-run.
func (s *Scenario) validate() error {
	if len(s.Steps) == 0 {
		return apperrors.New(apperrors.CodeScenarioInvalid, "scenario has no steps")
	}
	for i, step := range s.Steps {
		if err := step.validate(); err != nil {
			return apperrors.Wrap(apperrors.CodeScenarioInvalid, fmt.Sprintf("step %d (%s)", i+1, step.Kind), err)
		}
	}
	return nil
}

func (s Step) validate() error {
	switch s.Kind {
	case StepGet, StepPost:
		path, _ := stringArg(s.Args, "path")
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("path is required")
		}
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("path %q must start with /", path)
		}
	case StepWaitHealthy:
		if secs, ok := floatArg(s.Args, "timeout_seconds"); ok && secs <= 0 {
			return fmt.Errorf("timeout_seconds must be positive")
		}
	case StepSleep:
		secs, ok := floatArg(s.Args, "seconds")
		if !ok || secs <= 0 {
			return fmt.Errorf("seconds must be positive")
		}
	default:
		return fmt.Errorf("unknown step kind %q", s.Kind)
	}
	return nil
}

// stringArg fetches a string argument by key.
func stringArg(args map[string]any, key string) (string, bool) {
	val, ok := args[key].(string)
	return val, ok
}

// floatArg fetches a numeric argument by key. Lua numbers decode as int
// when integral and float64 otherwise, so both are accepted.
func floatArg(args map[string]any, key string) (float64, bool) {
	switch val := args[key].(type) {
	case int:
		return float64(val), true
	case float64:
		return val, true
	default:
		return 0, false
	}
}

// intArg fetches an integer argument by key.
func intArg(args map[string]any, key string) (int, bool) {
	val, ok := floatArg(args, key)
	return int(val), ok
}
