// Package gateway hosts the app described by a deployment manifest: it
// supervises replica processes, proxies external traffic to ready replicas,
// autoscales within the manifest bounds, and exposes an ops control plane.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/figdock/figdock/internal/platform/timeouts"
)

// ReplicaState tracks where a replica is in its lifecycle.
type ReplicaState string

const (
	StateStarting ReplicaState = "starting"
	StateReady    ReplicaState = "ready"
	StateBackoff  ReplicaState = "backoff"
	StateStopped  ReplicaState = "stopped"
)

// Restart backoff bounds for crashing replicas.
const (
	backoffInitial = 500 * time.Millisecond
	backoffMax     = 30 * time.Second
	// backoffQuiet is how long a replica must stay up before its backoff
	// resets to the initial value.
	backoffQuiet = 60 * time.Second
)

// Process is a started replica process.
type Process interface {
	// Signal delivers a signal to the process.
	Signal(sig os.Signal) error
	// Kill terminates the process immediately.
	Kill() error
	// Wait blocks until the process exits.
	Wait() error
}

// Launcher starts replica processes. The exec implementation runs the
// manifest's argv; tests substitute fakes.
type Launcher interface {
	Launch(ctx context.Context, port int, argv []string, env map[string]string) (Process, error)
}

// Prober reports whether a replica answers its readiness probe.
type Prober interface {
	Ready(ctx context.Context, port int) bool
}

// ExecLauncher launches replicas as child processes with inherited stdio,
// the manifest env, and PORT set to the replica's local port.
type ExecLauncher struct{}

// Launch starts the argv as a child process bound to port.
func (ExecLauncher) Launch(ctx context.Context, port int, argv []string, env map[string]string) (Process, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("replica argv is empty")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	for key, value := range env {
		cmd.Env = append(cmd.Env, key+"="+value)
	}
	cmd.Env = append(cmd.Env, "PORT="+strconv.Itoa(port))
	// Deliver SIGTERM on context cancellation so replicas can drain; the
	// supervisor escalates to SIGKILL after the grace period.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = timeouts.TerminateGrace
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start replica on port %d: %w", port, err)
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Signal(sig os.Signal) error {
	if p.cmd.Process == nil {
		return fmt.Errorf("process not started")
	}
	return p.cmd.Process.Signal(sig)
}

func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return fmt.Errorf("process not started")
	}
	return p.cmd.Process.Kill()
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}

// HTTPProber probes replica readiness with GET /healthz on localhost.
type HTTPProber struct {
	Client *http.Client
	Path   string
}

// Ready reports whether the replica's health endpoint answers 200.
func (p HTTPProber) Ready(ctx context.Context, port int) bool {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: timeouts.ReadyPoll * 4}
	}
	path := p.Path
	if path == "" {
		path = "/healthz"
	}
	url := "http://127.0.0.1:" + strconv.Itoa(port) + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// portArgv returns argv with its listen-port flag value rewritten to
// port. The manifest's run command carries the base port; replicas past
// index 0 must bind their own slot or every replica would collide on it.
func portArgv(argv []string, port int) []string {
	out := make([]string, len(argv))
	copy(out, argv)
	value := strconv.Itoa(port)
	for i := 0; i < len(out); i++ {
		if isPortFlag(out[i]) && i+1 < len(out) {
			out[i+1] = value
			i++
			continue
		}
		if name, _, found := strings.Cut(out[i], "="); found && isPortFlag(name) {
			out[i] = name + "=" + value
		}
	}
	return out
}

// isPortFlag matches the listen-port flags of the runtimes figdock
// launches: streamlit's --server.port and the plain port flags.
func isPortFlag(name string) bool {
	switch name {
	case "--server.port", "--port", "-port":
		return true
	}
	return false
}
