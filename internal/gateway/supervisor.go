package gateway

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/figdock/figdock/internal/manifest"
	"github.com/figdock/figdock/internal/platform/timeouts"
)

// ReplicaStatus is one replica's externally visible state.
type ReplicaStatus struct {
	Index    int          `json:"index"`
	Port     int          `json:"port"`
	State    ReplicaState `json:"state"`
	Restarts int          `json:"restarts"`
	Since    time.Time    `json:"since"`
}

// EventFunc receives supervisor lifecycle events for the telemetry journal.
type EventFunc func(name string, attrs map[string]any)

// Supervisor runs the manifest's app command as a pool of replica
// processes, one per scale slot, restarting crashed replicas with bounded
// backoff.
type Supervisor struct {
	argv     []string
	env      map[string]string
	basePort int
	launcher Launcher
	prober   Prober
	logf     func(format string, args ...any)
	onEvent  EventFunc

	backoffInitial time.Duration
	backoffMax     time.Duration
	backoffQuiet   time.Duration

	mu       sync.Mutex
	ctx      context.Context
	replicas map[int]*replica
	wg       sync.WaitGroup
}

type replica struct {
	index    int
	port     int
	state    ReplicaState
	restarts int
	since    time.Time
	cancel   context.CancelFunc
}

// SupervisorConfig wires a supervisor.
type SupervisorConfig struct {
	Manifest *manifest.Manifest
	// BasePort is the local port of replica 0. Successive replicas bind
	// BasePort+1, BasePort+2 and so on.
	BasePort int
	Launcher Launcher
	Prober   Prober
	Logf     func(format string, args ...any)
	OnEvent  EventFunc
	// BackoffQuiet overrides how long a replica must stay up before its
	// restart backoff resets. Zero keeps the default.
	BackoffQuiet time.Duration
}

// NewSupervisor builds a supervisor from the manifest's run command and env.
func NewSupervisor(cfg SupervisorConfig) (*Supervisor, error) {
	if cfg.Manifest == nil {
		return nil, fmt.Errorf("manifest is required")
	}
	argv := cfg.Manifest.RunArgv()
	if len(argv) == 0 {
		return nil, fmt.Errorf("manifest declares no run command")
	}
	if cfg.BasePort <= 0 {
		return nil, fmt.Errorf("base port must be positive")
	}
	if cfg.Launcher == nil {
		cfg.Launcher = ExecLauncher{}
	}
	if cfg.Prober == nil {
		cfg.Prober = HTTPProber{}
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	if cfg.BackoffQuiet <= 0 {
		cfg.BackoffQuiet = backoffQuiet
	}
	return &Supervisor{
		argv:     argv,
		env:      cfg.Manifest.Env,
		basePort: cfg.BasePort,
		launcher: cfg.Launcher,
		prober:   cfg.Prober,
		logf:     cfg.Logf,
		onEvent:  cfg.OnEvent,

		backoffInitial: backoffInitial,
		backoffMax:     backoffMax,
		backoffQuiet:   cfg.BackoffQuiet,

		replicas: map[int]*replica{},
	}, nil
}

// Start launches the initial replica set and reconciles to count.
func (s *Supervisor) Start(ctx context.Context, count int) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.Scale(count)
}

// Scale reconciles the replica set to count slots. Extra replicas are
// stopped highest index first so replica 0 keeps the manifest's declared
// port for as long as any replica runs.
func (s *Supervisor) Scale(count int) {
	if count < 0 {
		count = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return
	}

	for index := 0; index < count; index++ {
		if _, running := s.replicas[index]; running {
			continue
		}
		s.startReplicaLocked(index)
	}

	indexes := make([]int, 0, len(s.replicas))
	for index := range s.replicas {
		indexes = append(indexes, index)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(indexes)))
	for _, index := range indexes {
		if index < count {
			continue
		}
		s.stopReplicaLocked(index)
	}
}

// Desired returns the current replica slot count.
func (s *Supervisor) Desired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.replicas)
}

// ReadyPorts lists the local ports of replicas that passed readiness,
// ordered by replica index.
func (s *Supervisor) ReadyPorts() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	indexes := make([]int, 0, len(s.replicas))
	for index, r := range s.replicas {
		if r.state == StateReady {
			indexes = append(indexes, index)
		}
	}
	sort.Ints(indexes)
	ports := make([]int, 0, len(indexes))
	for _, index := range indexes {
		ports = append(ports, s.replicas[index].port)
	}
	return ports
}

// Status snapshots every replica slot ordered by index.
func (s *Supervisor) Status() []ReplicaStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ReplicaStatus, 0, len(s.replicas))
	for _, r := range s.replicas {
		out = append(out, ReplicaStatus{
			Index:    r.index,
			Port:     r.port,
			State:    r.state,
			Restarts: r.restarts,
			Since:    r.since,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Restart performs a rolling restart: each replica is stopped and its
// supervision loop relaunches it.
func (s *Supervisor) Restart() {
	s.mu.Lock()
	count := len(s.replicas)
	s.mu.Unlock()

	s.Scale(0)
	s.wg.Wait()
	s.Scale(count)
}

// Shutdown stops all replicas and waits for their processes to exit.
func (s *Supervisor) Shutdown() {
	s.Scale(0)
	s.wg.Wait()
}

func (s *Supervisor) startReplicaLocked(index int) {
	ctx, cancel := context.WithCancel(s.ctx)
	r := &replica{
		index:  index,
		port:   s.basePort + index,
		state:  StateStarting,
		since:  time.Now().UTC(),
		cancel: cancel,
	}
	s.replicas[index] = r
	s.wg.Add(1)
	go s.run(ctx, r)
}

func (s *Supervisor) stopReplicaLocked(index int) {
	r, ok := s.replicas[index]
	if !ok {
		return
	}
	delete(s.replicas, index)
	r.cancel()
}

// run supervises one replica slot until its context is cancelled.
func (s *Supervisor) run(ctx context.Context, r *replica) {
	defer s.wg.Done()
	backoff := time.Duration(0)

	for {
		if ctx.Err() != nil {
			s.setState(r, StateStopped)
			return
		}

		started := time.Now()
		proc, err := s.launcher.Launch(ctx, r.port, portArgv(s.argv, r.port), s.env)
		if err != nil {
			s.logf("replica %d: launch failed: %v", r.index, err)
			backoff = s.nextBackoff(backoff)
			s.setState(r, StateBackoff)
			if !sleepCtx(ctx, backoff) {
				s.setState(r, StateStopped)
				return
			}
			continue
		}
		s.logf("replica %d: started on port %d", r.index, r.port)
		s.emit("replica.started", map[string]any{"replica": r.index, "port": r.port})

		exited := make(chan error, 1)
		go func() { exited <- proc.Wait() }()

		if s.awaitReady(ctx, r, exited) {
			s.setState(r, StateReady)
			s.logf("replica %d: ready", r.index)

			select {
			case err := <-exited:
				s.logf("replica %d: exited: %v", r.index, err)
				s.emit("replica.exited", map[string]any{"replica": r.index, "error": fmt.Sprint(err)})
			case <-ctx.Done():
				s.terminate(r, proc, exited)
				s.setState(r, StateStopped)
				return
			}
		} else if ctx.Err() != nil {
			s.terminate(r, proc, exited)
			s.setState(r, StateStopped)
			return
		} else {
			// Never became ready. Reap the process before relaunching so
			// the port is free for the next attempt.
			select {
			case err := <-exited:
				s.logf("replica %d: exited before ready: %v", r.index, err)
			default:
				_ = proc.Kill()
				<-exited
			}
		}

		// The replica exited (or never became ready and exited). A quiet
		// uptime resets the backoff so one-off crashes restart quickly.
		if time.Since(started) >= s.backoffQuiet {
			backoff = 0
		}
		backoff = s.nextBackoff(backoff)
		s.mu.Lock()
		r.restarts++
		s.mu.Unlock()
		s.setState(r, StateBackoff)
		if !sleepCtx(ctx, backoff) {
			s.setState(r, StateStopped)
			return
		}
	}
}

// awaitReady polls the readiness probe until it passes, the replica exits,
// the wait window lapses, or ctx is cancelled. The exit result is pushed
// back to the channel so the caller still observes it.
func (s *Supervisor) awaitReady(ctx context.Context, r *replica, exited chan error) bool {
	deadline := time.NewTimer(timeouts.ReadyWait)
	defer deadline.Stop()
	ticker := time.NewTicker(timeouts.ReadyPoll)
	defer ticker.Stop()

	for {
		if s.prober.Ready(ctx, r.port) {
			return true
		}
		select {
		case err := <-exited:
			exited <- err
			return false
		case <-deadline.C:
			s.logf("replica %d: readiness probe timed out", r.index)
			return false
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// terminate delivers SIGTERM via context cancellation and escalates to
// SIGKILL when the process outlives the grace period.
func (s *Supervisor) terminate(r *replica, proc Process, exited chan error) {
	grace := time.NewTimer(timeouts.TerminateGrace)
	defer grace.Stop()
	select {
	case <-exited:
	case <-grace.C:
		s.logf("replica %d: grace period lapsed, killing", r.index)
		_ = proc.Kill()
		<-exited
	}
}

// nextBackoff doubles the restart delay up to the cap.
func (s *Supervisor) nextBackoff(current time.Duration) time.Duration {
	if current <= 0 {
		return s.backoffInitial
	}
	doubled := current * 2
	if doubled > s.backoffMax {
		return s.backoffMax
	}
	return doubled
}

func (s *Supervisor) setState(r *replica, state ReplicaState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.state = state
	r.since = time.Now().UTC()
}

func (s *Supervisor) emit(name string, attrs map[string]any) {
	if s.onEvent == nil {
		return
	}
	s.onEvent(name, attrs)
}

// sleepCtx sleeps for d, returning false when ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
