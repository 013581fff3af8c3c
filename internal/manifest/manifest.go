// Package manifest models the Figdock deployment manifest: the environment
// package list, deployment target, port mappings, run command, and named
// workflows that describe how a hosted app is provisioned and launched.
package manifest

import (
	"strconv"
	"strings"
)

// DeploymentTarget selects how the gateway provisions replicas.
type DeploymentTarget string

const (
	// TargetAutoscale lets the gateway scale replicas between the declared bounds.
	TargetAutoscale DeploymentTarget = "autoscale"
	// TargetReserved pins the replica count to the declared minimum.
	TargetReserved DeploymentTarget = "reserved"
)

// WorkflowMode selects how workflow tasks are scheduled.
type WorkflowMode string

const (
	ModeSequential WorkflowMode = "sequential"
	ModeParallel   WorkflowMode = "parallel"
)

// TaskKind identifies the orchestrator action a task performs.
type TaskKind string

const (
	// TaskShellExec runs a shell command on the host.
	TaskShellExec TaskKind = "shell.exec"
	// TaskScenarioRun executes a Lua scenario file against the app.
	TaskScenarioRun TaskKind = "scenario.run"
)

// Default scaling bounds applied by Normalize when the manifest omits them.
const (
	DefaultMinReplicas = 1
	DefaultMaxReplicas = 1
	DefaultConcurrency = 16
)

// Manifest is the parsed deployment manifest.
type Manifest struct {
	Run        string            `yaml:"run"`
	Entrypoint string            `yaml:"entrypoint"`
	Packages   []string          `yaml:"packages"`
	Env        map[string]string `yaml:"env"`
	Deployment Deployment        `yaml:"deployment"`
	Ports      []PortMapping     `yaml:"ports"`
	Workflows  []Workflow        `yaml:"workflows"`
	Theme      Theme             `yaml:"theme"`
}

// Deployment declares the hosting target and scaling bounds.
type Deployment struct {
	Target  DeploymentTarget `yaml:"target"`
	Run     []string         `yaml:"run"`
	Scaling Scaling          `yaml:"scaling"`
}

// Scaling bounds replica provisioning for the autoscale target.
type Scaling struct {
	MinReplicas int `yaml:"minReplicas"`
	MaxReplicas int `yaml:"maxReplicas"`
	Concurrency int `yaml:"concurrency"`
}

// PortMapping maps the port the app binds locally to the externally exposed port.
type PortMapping struct {
	LocalPort    int `yaml:"localPort"`
	ExternalPort int `yaml:"externalPort"`
}

// Workflow is a named group of orchestrator tasks.
type Workflow struct {
	Name  string       `yaml:"name"`
	Mode  WorkflowMode `yaml:"mode"`
	Tasks []Task       `yaml:"tasks"`
}

// Task is a single orchestrator action within a workflow.
type Task struct {
	Name  string   `yaml:"name"`
	Kind  TaskKind `yaml:"kind"`
	Args  string   `yaml:"args"`
	Needs []string `yaml:"needs"`
}

// Theme carries UI colors forwarded to the hosted app.
type Theme struct {
	PrimaryColor    string `yaml:"primaryColor"`
	BackgroundColor string `yaml:"backgroundColor"`
	TextColor       string `yaml:"textColor"`
}

// Normalize fills defaults in place: deployment target, scaling bounds,
// workflow modes, and task names. Parse calls it; manifests built in code
// should call it before Validate.
func (m *Manifest) Normalize() {
	if m == nil {
		return
	}
	if strings.TrimSpace(string(m.Deployment.Target)) == "" {
		m.Deployment.Target = TargetAutoscale
	}
	if m.Deployment.Scaling.MinReplicas == 0 {
		m.Deployment.Scaling.MinReplicas = DefaultMinReplicas
	}
	if m.Deployment.Scaling.MaxReplicas == 0 {
		m.Deployment.Scaling.MaxReplicas = m.Deployment.Scaling.MinReplicas
		if m.Deployment.Scaling.MaxReplicas < DefaultMaxReplicas {
			m.Deployment.Scaling.MaxReplicas = DefaultMaxReplicas
		}
	}
	if m.Deployment.Scaling.Concurrency == 0 {
		m.Deployment.Scaling.Concurrency = DefaultConcurrency
	}
	for i := range m.Workflows {
		if strings.TrimSpace(string(m.Workflows[i].Mode)) == "" {
			m.Workflows[i].Mode = ModeSequential
		}
		for j := range m.Workflows[i].Tasks {
			if strings.TrimSpace(m.Workflows[i].Tasks[j].Name) == "" {
				m.Workflows[i].Tasks[j].Name = defaultTaskName(m.Workflows[i].Tasks[j].Kind, j)
			}
		}
	}
}

func defaultTaskName(kind TaskKind, index int) string {
	base := strings.ReplaceAll(string(kind), ".", "-")
	if base == "" {
		base = "task"
	}
	return base + "-" + strconv.Itoa(index+1)
}

// PrimaryPort returns the mapping that serves the app: the one with the
// lowest external port. ok is false when the manifest declares no ports.
func (m *Manifest) PrimaryPort() (PortMapping, bool) {
	if m == nil || len(m.Ports) == 0 {
		return PortMapping{}, false
	}
	primary := m.Ports[0]
	for _, p := range m.Ports[1:] {
		if p.ExternalPort < primary.ExternalPort {
			primary = p
		}
	}
	return primary, true
}

// RunArgv returns the launch command as an argv slice. The deployment argv
// wins when declared; otherwise the run string is split with shell-style
// quoting rules.
func (m *Manifest) RunArgv() []string {
	if m == nil {
		return nil
	}
	if len(m.Deployment.Run) > 0 {
		argv := make([]string, len(m.Deployment.Run))
		copy(argv, m.Deployment.Run)
		return argv
	}
	return SplitCommand(m.Run)
}

// Workflow returns the named workflow, or false when it is not declared.
func (m *Manifest) Workflow(name string) (Workflow, bool) {
	if m == nil {
		return Workflow{}, false
	}
	for _, wf := range m.Workflows {
		if wf.Name == name {
			return wf, true
		}
	}
	return Workflow{}, false
}
