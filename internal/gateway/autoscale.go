package gateway

import (
	"context"
	"log"
	"time"

	"github.com/figdock/figdock/internal/manifest"
)

// Autoscaler tuning. Load is smoothed with an exponentially weighted
// moving average so short bursts do not thrash the replica count.
const (
	ewmaAlpha         = 0.3
	sampleInterval    = 5 * time.Second
	scaleUpCooldown   = 30 * time.Second
	scaleDownCooldown = 2 * time.Minute
)

// LoadSource reports current proxy load.
type LoadSource interface {
	InFlight() int64
}

// ScaleTarget is the replica pool the autoscaler resizes.
type ScaleTarget interface {
	ReadyPorts() []int
	Desired() int
	Scale(count int)
}

// Autoscaler resizes the replica pool between the manifest's scaling
// bounds based on smoothed in-flight load per ready replica.
type Autoscaler struct {
	scaling manifest.Scaling
	load    LoadSource
	target  ScaleTarget
	logf    func(format string, args ...any)
	onEvent EventFunc
	now     func() time.Time

	ewma     float64
	lastUp   time.Time
	lastDown time.Time
}

// NewAutoscaler builds an autoscaler over the supervisor and proxy load.
func NewAutoscaler(scaling manifest.Scaling, load LoadSource, target ScaleTarget, logf func(string, ...any), onEvent EventFunc) *Autoscaler {
	if logf == nil {
		logf = log.Printf
	}
	return &Autoscaler{
		scaling: scaling,
		load:    load,
		target:  target,
		logf:    logf,
		onEvent: onEvent,
		now:     time.Now,
	}
}

// Run samples load until ctx is cancelled.
func (a *Autoscaler) Run(ctx context.Context) {
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Tick()
		}
	}
}

// Tick takes one load sample and applies at most one scaling step, always
// staying inside [MinReplicas, MaxReplicas].
func (a *Autoscaler) Tick() {
	ready := len(a.target.ReadyPorts())
	if ready == 0 {
		return
	}
	load := float64(a.load.InFlight()) / float64(ready)
	a.ewma = ewmaAlpha*load + (1-ewmaAlpha)*a.ewma

	desired := a.target.Desired()
	capacity := float64(a.scaling.Concurrency)
	now := a.now()

	switch {
	case a.ewma > capacity && desired < a.scaling.MaxReplicas:
		if now.Sub(a.lastUp) < scaleUpCooldown {
			return
		}
		a.lastUp = now
		a.logf("autoscale: load %.1f per replica exceeds concurrency %d, scaling %d -> %d", a.ewma, a.scaling.Concurrency, desired, desired+1)
		a.emit("scale.up", desired, desired+1)
		a.target.Scale(desired + 1)
	case a.ewma < capacity/2 && desired > a.scaling.MinReplicas:
		if now.Sub(a.lastDown) < scaleDownCooldown {
			return
		}
		a.lastDown = now
		a.logf("autoscale: load %.1f per replica under half capacity, scaling %d -> %d", a.ewma, desired, desired-1)
		a.emit("scale.down", desired, desired-1)
		a.target.Scale(desired - 1)
	}
}

func (a *Autoscaler) emit(name string, from, to int) {
	if a.onEvent == nil {
		return
	}
	a.onEvent(name, map[string]any{"from": from, "to": to})
}
