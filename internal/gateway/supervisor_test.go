package gateway

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"
)

// fakeProcess exits when told or when its launch context is cancelled.
type fakeProcess struct {
	once sync.Once
	exit chan error
}

func (p *fakeProcess) stop(err error) {
	p.once.Do(func() { p.exit <- err })
}

func (p *fakeProcess) Signal(os.Signal) error { p.stop(nil); return nil }
func (p *fakeProcess) Kill() error            { p.stop(nil); return nil }
func (p *fakeProcess) Wait() error            { return <-p.exit }

type launchRecord struct {
	port int
	argv []string
}

// fakeLauncher records launches and can crash the first launches of a
// port immediately.
type fakeLauncher struct {
	mu        sync.Mutex
	launches  []launchRecord
	crashLeft map[int]int
}

func (l *fakeLauncher) Launch(ctx context.Context, port int, argv []string, _ map[string]string) (Process, error) {
	l.mu.Lock()
	l.launches = append(l.launches, launchRecord{port: port, argv: append([]string(nil), argv...)})
	crash := l.crashLeft[port] > 0
	if crash {
		l.crashLeft[port]--
	}
	l.mu.Unlock()

	p := &fakeProcess{exit: make(chan error, 1)}
	if crash {
		p.stop(stderrors.New("crashed"))
		return p, nil
	}
	go func() {
		<-ctx.Done()
		p.stop(nil)
	}()
	return p, nil
}

func (l *fakeLauncher) launched() []launchRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]launchRecord, len(l.launches))
	copy(out, l.launches)
	return out
}

func (l *fakeLauncher) launchedPorts() []int {
	out := []int{}
	for _, launch := range l.launched() {
		out = append(out, launch.port)
	}
	return out
}

// timedLauncher crashes each launch after a scripted uptime; launches
// beyond the script live until their context is cancelled.
type timedLauncher struct {
	mu      sync.Mutex
	uptimes []time.Duration
	starts  []time.Time
}

func (l *timedLauncher) Launch(ctx context.Context, _ int, _ []string, _ map[string]string) (Process, error) {
	l.mu.Lock()
	l.starts = append(l.starts, time.Now())
	var uptime time.Duration
	scripted := len(l.uptimes) > 0
	if scripted {
		uptime = l.uptimes[0]
		l.uptimes = l.uptimes[1:]
	}
	l.mu.Unlock()

	p := &fakeProcess{exit: make(chan error, 1)}
	go func() {
		if !scripted {
			<-ctx.Done()
			p.stop(nil)
			return
		}
		timer := time.NewTimer(uptime)
		defer timer.Stop()
		select {
		case <-timer.C:
			p.stop(stderrors.New("crashed"))
		case <-ctx.Done():
			p.stop(nil)
		}
	}()
	return p, nil
}

func (l *timedLauncher) startTimes() []time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]time.Time, len(l.starts))
	copy(out, l.starts)
	return out
}

// fakeProber marks ports ready via an allow set. A nil set means always
// ready.
type fakeProber struct {
	mu    sync.Mutex
	allow map[int]bool
}

func (p *fakeProber) Ready(_ context.Context, port int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.allow == nil {
		return true
	}
	return p.allow[port]
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func testSupervisor(t *testing.T, launcher Launcher, prober Prober) *Supervisor {
	t.Helper()
	m := testManifest()
	s, err := NewSupervisor(SupervisorConfig{
		Manifest: m,
		BasePort: 5000,
		Launcher: launcher,
		Prober:   prober,
		Logf:     t.Logf,
	})
	if err != nil {
		t.Fatalf("new supervisor: %v", err)
	}
	return s
}

func TestSupervisorStartsReplicasOnSequentialPorts(t *testing.T) {
	launcher := &fakeLauncher{}
	s := testSupervisor(t, launcher, &fakeProber{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx, 3)
	waitFor(t, 5*time.Second, "all replicas ready", func() bool {
		return len(s.ReadyPorts()) == 3
	})

	ports := s.ReadyPorts()
	for i, want := range []int{5000, 5001, 5002} {
		if ports[i] != want {
			t.Fatalf("ready ports = %v, want [5000 5001 5002]", ports)
		}
	}
	cancel()
	s.Shutdown()
}

func TestSupervisorRewritesPortFlagPerReplica(t *testing.T) {
	launcher := &fakeLauncher{}
	s := testSupervisor(t, launcher, &fakeProber{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx, 3)
	waitFor(t, 5*time.Second, "all replicas ready", func() bool {
		return len(s.ReadyPorts()) == 3
	})

	for _, launch := range launcher.launched() {
		want := strconv.Itoa(launch.port)
		var got string
		for i, word := range launch.argv {
			if word == "--server.port" && i+1 < len(launch.argv) {
				got = launch.argv[i+1]
			}
		}
		if got != want {
			t.Fatalf("replica on port %d launched with --server.port %s: argv %v", launch.port, got, launch.argv)
		}
	}
	cancel()
	s.Shutdown()
}

// The exec launcher must hand each replica its rewritten argv, not the
// manifest's literal run command.
func TestExecLaunchedReplicasSeeTheirOwnPort(t *testing.T) {
	dir := t.TempDir()
	m := testManifest()
	m.Deployment.Run = []string{
		"sh", "-c", `echo ok > "$FIGDOCK_PORT_DIR/$2"; exec sleep 30`,
		"sh", "--server.port", "5000",
	}
	m.Env = map[string]string{"FIGDOCK_PORT_DIR": dir}

	s, err := NewSupervisor(SupervisorConfig{
		Manifest: m,
		BasePort: 5000,
		Launcher: ExecLauncher{},
		Prober:   &fakeProber{},
		Logf:     t.Logf,
	})
	if err != nil {
		t.Fatalf("new supervisor: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx, 2)
	for _, port := range []string{"5000", "5001"} {
		waitFor(t, 10*time.Second, "port file "+port, func() bool {
			_, err := os.Stat(filepath.Join(dir, port))
			return err == nil
		})
	}
	cancel()
	s.Shutdown()
}

func TestRestartBackoffResetsAfterQuietUptime(t *testing.T) {
	launcher := &timedLauncher{uptimes: []time.Duration{0, 0, 0, 250 * time.Millisecond}}
	s, err := NewSupervisor(SupervisorConfig{
		Manifest:     testManifest(),
		BasePort:     5000,
		Launcher:     launcher,
		Prober:       &fakeProber{},
		Logf:         t.Logf,
		BackoffQuiet: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new supervisor: %v", err)
	}
	s.backoffInitial = 50 * time.Millisecond
	s.backoffMax = 2 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx, 1)
	waitFor(t, 10*time.Second, "five launches", func() bool {
		return len(launcher.startTimes()) >= 5
	})

	starts := launcher.startTimes()
	// Three immediate crashes escalate the backoff to 200ms; the fourth
	// launch stays up past the quiet window, so the fifth follows after
	// the reset initial delay, not an escalated one.
	if gap := starts[3].Sub(starts[2]); gap < 150*time.Millisecond {
		t.Fatalf("backoff before quiet uptime = %v, want escalation past 150ms", gap)
	}
	if gap := starts[4].Sub(starts[3]); gap > 500*time.Millisecond {
		t.Fatalf("relaunch gap after quiet uptime = %v, want the reset initial backoff", gap)
	}
	cancel()
	s.Shutdown()
}

func TestReplicaJoinsPoolOnlyWhenProbePasses(t *testing.T) {
	prober := &fakeProber{allow: map[int]bool{5000: true}}
	s := testSupervisor(t, &fakeLauncher{}, prober)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx, 2)
	waitFor(t, 5*time.Second, "replica 0 ready", func() bool {
		return len(s.ReadyPorts()) == 1
	})

	time.Sleep(300 * time.Millisecond)
	ports := s.ReadyPorts()
	if len(ports) != 1 || ports[0] != 5000 {
		t.Fatalf("ready ports = %v, want [5000]", ports)
	}

	prober.mu.Lock()
	prober.allow[5001] = true
	prober.mu.Unlock()
	waitFor(t, 5*time.Second, "replica 1 ready", func() bool {
		return len(s.ReadyPorts()) == 2
	})
	cancel()
	s.Shutdown()
}

func TestScaleDownStopsHighestIndexFirst(t *testing.T) {
	s := testSupervisor(t, &fakeLauncher{}, &fakeProber{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx, 3)
	waitFor(t, 5*time.Second, "all replicas ready", func() bool {
		return len(s.ReadyPorts()) == 3
	})

	s.Scale(1)
	waitFor(t, 5*time.Second, "scale down to one replica", func() bool {
		ports := s.ReadyPorts()
		return len(ports) == 1 && ports[0] == 5000
	})
	if got := s.Desired(); got != 1 {
		t.Fatalf("desired = %d, want 1", got)
	}
	cancel()
	s.Shutdown()
}

func TestSupervisorRestartsCrashedReplica(t *testing.T) {
	launcher := &fakeLauncher{crashLeft: map[int]int{5000: 1}}
	s := testSupervisor(t, launcher, &fakeProber{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx, 1)
	waitFor(t, 10*time.Second, "replica to restart and become ready", func() bool {
		ports := s.ReadyPorts()
		return len(ports) == 1 && ports[0] == 5000
	})

	status := s.Status()
	if len(status) != 1 {
		t.Fatalf("status length = %d", len(status))
	}
	if status[0].Restarts < 1 {
		t.Fatalf("restarts = %d, want at least 1", status[0].Restarts)
	}
	if got := launcher.launchedPorts(); len(got) < 2 {
		t.Fatalf("expected a relaunch, launches = %v", got)
	}
	cancel()
	s.Shutdown()
}

func TestShutdownStopsAllReplicas(t *testing.T) {
	s := testSupervisor(t, &fakeLauncher{}, &fakeProber{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx, 2)
	waitFor(t, 5*time.Second, "replicas ready", func() bool {
		return len(s.ReadyPorts()) == 2
	})

	s.Shutdown()
	if got := len(s.ReadyPorts()); got != 0 {
		t.Fatalf("ready ports after shutdown = %d, want 0", got)
	}
	if got := s.Desired(); got != 0 {
		t.Fatalf("desired after shutdown = %d, want 0", got)
	}
}
