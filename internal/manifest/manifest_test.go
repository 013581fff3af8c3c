package manifest

import (
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/figdock/figdock/internal/platform/errors"
)

func loadCanonical(t *testing.T) *Manifest {
	t.Helper()
	m, err := Load(filepath.Join("testdata", "figdock.yaml"))
	if err != nil {
		t.Fatalf("load canonical manifest: %v", err)
	}
	return m
}

func TestCanonicalManifestPortContract(t *testing.T) {
	m := loadCanonical(t)

	primary, ok := m.PrimaryPort()
	if !ok {
		t.Fatal("expected a primary port mapping")
	}
	if primary.LocalPort != 5000 {
		t.Fatalf("local port = %d, want 5000", primary.LocalPort)
	}
	if primary.ExternalPort != 80 {
		t.Fatalf("external port = %d, want 80", primary.ExternalPort)
	}
}

func TestCanonicalManifestRunCommand(t *testing.T) {
	m := loadCanonical(t)

	argv := m.RunArgv()
	if len(argv) == 0 {
		t.Fatal("expected a run command")
	}
	joined := strings.Join(argv, " ")
	if !strings.Contains(joined, "streamlit") {
		t.Fatalf("run command %q does not reference the streamlit runtime", joined)
	}
	if !strings.Contains(joined, "app.py") {
		t.Fatalf("run command %q does not reference app.py", joined)
	}
	if m.Entrypoint != "app.py" {
		t.Fatalf("entrypoint = %q, want app.py", m.Entrypoint)
	}
}

func TestCanonicalManifestValidates(t *testing.T) {
	m := loadCanonical(t)
	if err := m.Validate(); err != nil {
		t.Fatalf("canonical manifest should validate, got %v", err)
	}
	if m.Deployment.Target != TargetAutoscale {
		t.Fatalf("target = %q, want autoscale", m.Deployment.Target)
	}
	if len(m.Packages) == 0 {
		t.Fatal("expected codec packages")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("run: \"app\"\nbogus: true\n"))
	if err == nil {
		t.Fatal("expected unknown field error")
	}
	if apperrors.CodeOf(err) != apperrors.CodeManifestSyntax {
		t.Fatalf("code = %q, want %q", apperrors.CodeOf(err), apperrors.CodeManifestSyntax)
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	m := &Manifest{Run: "streamlit run app.py", Ports: []PortMapping{{LocalPort: 5000, ExternalPort: 80}}}
	m.Normalize()

	if m.Deployment.Target != TargetAutoscale {
		t.Fatalf("target = %q, want autoscale default", m.Deployment.Target)
	}
	if m.Deployment.Scaling.MinReplicas != 1 || m.Deployment.Scaling.MaxReplicas != 1 {
		t.Fatalf("scaling defaults = %+v, want min=max=1", m.Deployment.Scaling)
	}
	if m.Deployment.Scaling.Concurrency != DefaultConcurrency {
		t.Fatalf("concurrency = %d, want %d", m.Deployment.Scaling.Concurrency, DefaultConcurrency)
	}
}

func TestNormalizeNamesAnonymousTasks(t *testing.T) {
	m := &Manifest{
		Run:   "app",
		Ports: []PortMapping{{LocalPort: 5000, ExternalPort: 80}},
		Workflows: []Workflow{{
			Name:  "Boot",
			Tasks: []Task{{Kind: TaskShellExec, Args: "echo hi"}, {Kind: TaskShellExec, Args: "echo bye"}},
		}},
	}
	m.Normalize()

	if m.Workflows[0].Mode != ModeSequential {
		t.Fatalf("mode = %q, want sequential default", m.Workflows[0].Mode)
	}
	if got := m.Workflows[0].Tasks[0].Name; got != "shell-exec-1" {
		t.Fatalf("task name = %q, want shell-exec-1", got)
	}
	if got := m.Workflows[0].Tasks[1].Name; got != "shell-exec-2" {
		t.Fatalf("task name = %q, want shell-exec-2", got)
	}
}

func TestPrimaryPortPrefersLowestExternal(t *testing.T) {
	m := &Manifest{Ports: []PortMapping{
		{LocalPort: 9000, ExternalPort: 8080},
		{LocalPort: 5000, ExternalPort: 80},
	}}
	primary, ok := m.PrimaryPort()
	if !ok {
		t.Fatal("expected primary port")
	}
	if primary.LocalPort != 5000 || primary.ExternalPort != 80 {
		t.Fatalf("primary = %+v, want 5000->80", primary)
	}
}

func TestRunArgvPrefersDeploymentArgv(t *testing.T) {
	m := &Manifest{
		Run:        "echo fallback",
		Deployment: Deployment{Run: []string{"streamlit", "run", "app.py"}},
	}
	argv := m.RunArgv()
	if len(argv) != 3 || argv[0] != "streamlit" {
		t.Fatalf("argv = %v, want deployment argv", argv)
	}

	argv[0] = "mutated"
	if m.Deployment.Run[0] != "streamlit" {
		t.Fatal("RunArgv must copy the deployment argv")
	}
}

func TestSplitCommandQuoting(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{`streamlit run app.py --server.port 5000`, []string{"streamlit", "run", "app.py", "--server.port", "5000"}},
		{`sh -c 'echo "hello world"'`, []string{"sh", "-c", `echo "hello world"`}},
		{`echo "a b" c\ d`, []string{"echo", "a b", "c d"}},
		{``, nil},
		{`   `, nil},
	}
	for _, tc := range cases {
		got := SplitCommand(tc.in)
		if len(got) != len(tc.want) {
			t.Fatalf("SplitCommand(%q) = %v, want %v", tc.in, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("SplitCommand(%q)[%d] = %q, want %q", tc.in, i, got[i], tc.want[i])
			}
		}
	}
}

func TestWorkflowLookup(t *testing.T) {
	m := loadCanonical(t)
	wf, ok := m.Workflow("Smoke Check")
	if !ok {
		t.Fatal("expected Smoke Check workflow")
	}
	if len(wf.Tasks) != 1 || wf.Tasks[0].Kind != TaskScenarioRun {
		t.Fatalf("tasks = %+v, want one scenario.run task", wf.Tasks)
	}
	if _, ok := m.Workflow("missing"); ok {
		t.Fatal("expected missing workflow lookup to fail")
	}
}
