package manifest

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/dominikbraun/graph"
	colors "gopkg.in/go-playground/colors.v1"

	apperrors "github.com/figdock/figdock/internal/platform/errors"
)

var packageNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Validate checks the manifest invariants: a runnable launch command, sane
// port mappings, recognized deployment target, consistent scaling bounds,
// well-formed workflows with acyclic task dependencies, and parseable theme
// colors. It expects Normalize to have run (Parse does this).
func (m *Manifest) Validate() error {
	if m == nil {
		return apperrors.New(apperrors.CodeManifestSyntax, "manifest is nil")
	}

	argv := m.RunArgv()
	if len(argv) == 0 {
		return apperrors.New(apperrors.CodeManifestRunEmpty, "manifest declares no run command")
	}

	switch m.Deployment.Target {
	case TargetAutoscale, TargetReserved:
	default:
		return apperrors.WithMetadata(apperrors.CodeManifestTargetUnknown,
			"unknown deployment target",
			map[string]string{"target": string(m.Deployment.Target)})
	}

	if err := m.validatePorts(argv); err != nil {
		return err
	}
	if err := m.validateScaling(); err != nil {
		return err
	}
	if err := m.validatePackages(); err != nil {
		return err
	}
	if err := m.validateWorkflows(); err != nil {
		return err
	}
	return m.validateTheme()
}

func (m *Manifest) validatePorts(argv []string) error {
	if len(m.Ports) == 0 {
		return apperrors.New(apperrors.CodeManifestPortInvalid, "manifest declares no port mapping")
	}

	seenLocal := map[int]bool{}
	seenExternal := map[int]bool{}
	for _, p := range m.Ports {
		if p.LocalPort < 1 || p.LocalPort > 65535 || p.ExternalPort < 1 || p.ExternalPort > 65535 {
			return apperrors.WithMetadata(apperrors.CodeManifestPortInvalid,
				"port out of range",
				map[string]string{
					"local":    strconv.Itoa(p.LocalPort),
					"external": strconv.Itoa(p.ExternalPort),
				})
		}
		if seenLocal[p.LocalPort] || seenExternal[p.ExternalPort] {
			return apperrors.WithMetadata(apperrors.CodeManifestPortConflict,
				"duplicate port mapping",
				map[string]string{
					"local":    strconv.Itoa(p.LocalPort),
					"external": strconv.Itoa(p.ExternalPort),
				})
		}
		seenLocal[p.LocalPort] = true
		seenExternal[p.ExternalPort] = true
	}

	primary, _ := m.PrimaryPort()
	if declared, ok := serverPortFlag(argv); ok && declared != primary.LocalPort {
		return apperrors.WithMetadata(apperrors.CodeManifestPortRunMismatch,
			"run command port flag disagrees with primary port mapping",
			map[string]string{
				"flag":    strconv.Itoa(declared),
				"mapping": strconv.Itoa(primary.LocalPort),
			})
	}
	return nil
}

// serverPortFlag scans argv for a --server.port flag in either
// "--server.port 5000" or "--server.port=5000" form.
func serverPortFlag(argv []string) (int, bool) {
	const flag = "--server.port"
	for i, word := range argv {
		if word == flag && i+1 < len(argv) {
			if port, err := strconv.Atoi(argv[i+1]); err == nil {
				return port, true
			}
			return 0, false
		}
		if rest, ok := strings.CutPrefix(word, flag+"="); ok {
			if port, err := strconv.Atoi(rest); err == nil {
				return port, true
			}
			return 0, false
		}
	}
	return 0, false
}

func (m *Manifest) validateScaling() error {
	s := m.Deployment.Scaling
	if s.MinReplicas < 1 || s.MaxReplicas < s.MinReplicas || s.Concurrency < 1 {
		return apperrors.WithMetadata(apperrors.CodeManifestScalingInvalid,
			"scaling bounds are inconsistent",
			map[string]string{
				"min":         strconv.Itoa(s.MinReplicas),
				"max":         strconv.Itoa(s.MaxReplicas),
				"concurrency": strconv.Itoa(s.Concurrency),
			})
	}
	return nil
}

func (m *Manifest) validatePackages() error {
	for _, name := range m.Packages {
		if !packageNamePattern.MatchString(name) {
			return apperrors.WithMetadata(apperrors.CodeManifestPackageName,
				"malformed package name",
				map[string]string{"package": name})
		}
	}
	return nil
}

func (m *Manifest) validateWorkflows() error {
	seenWorkflow := map[string]bool{}
	for _, wf := range m.Workflows {
		name := strings.TrimSpace(wf.Name)
		if name == "" || seenWorkflow[name] {
			return apperrors.WithMetadata(apperrors.CodeWorkflowDuplicateName,
				"workflow names must be unique and non-empty",
				map[string]string{"workflow": wf.Name})
		}
		seenWorkflow[name] = true

		if wf.Mode != ModeSequential && wf.Mode != ModeParallel {
			return apperrors.WithMetadata(apperrors.CodeWorkflowUnknownKind,
				"unknown workflow mode",
				map[string]string{"workflow": name, "mode": string(wf.Mode)})
		}
		if err := validateTasks(name, wf.Tasks); err != nil {
			return err
		}
	}
	return nil
}

func validateTasks(workflow string, tasks []Task) error {
	names := map[string]bool{}
	for _, task := range tasks {
		switch task.Kind {
		case TaskShellExec, TaskScenarioRun:
		default:
			return apperrors.WithMetadata(apperrors.CodeWorkflowUnknownKind,
				"unknown task kind",
				map[string]string{"workflow": workflow, "kind": string(task.Kind)})
		}
		if names[task.Name] {
			return apperrors.WithMetadata(apperrors.CodeWorkflowDuplicateTask,
				"task names must be unique within a workflow",
				map[string]string{"workflow": workflow, "task": task.Name})
		}
		names[task.Name] = true
	}

	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	for _, task := range tasks {
		if err := g.AddVertex(task.Name); err != nil {
			return apperrors.Wrap(apperrors.CodeWorkflowDuplicateTask, "register task", err)
		}
	}
	for _, task := range tasks {
		for _, need := range task.Needs {
			if !names[need] {
				return apperrors.WithMetadata(apperrors.CodeWorkflowUnknownNeed,
					"task depends on an undeclared task",
					map[string]string{"workflow": workflow, "task": task.Name, "needs": need})
			}
			if err := g.AddEdge(need, task.Name); err != nil {
				if errors.Is(err, graph.ErrEdgeCreatesCycle) {
					return apperrors.WithMetadata(apperrors.CodeWorkflowCycle,
						"task dependencies form a cycle",
						map[string]string{"workflow": workflow, "task": task.Name, "needs": need})
				}
				return apperrors.Wrap(apperrors.CodeWorkflowCycle, "register task dependency", err)
			}
		}
	}
	return nil
}

func (m *Manifest) validateTheme() error {
	for field, value := range map[string]string{
		"primaryColor":    m.Theme.PrimaryColor,
		"backgroundColor": m.Theme.BackgroundColor,
		"textColor":       m.Theme.TextColor,
	} {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if _, err := colors.ParseHEX(value); err != nil {
			return apperrors.WrapWithMetadata(apperrors.CodeManifestThemeInvalid,
				"theme color is not a hex color",
				map[string]string{"field": field, "value": value}, err)
		}
	}
	return nil
}
