// Package monitor runs periodic connectivity probes against remote
// dependencies and notifies observers when a probe changes state.
//
// Each probe runs in its own background goroutine at a shared interval.
// Probes use consecutive failure/success thresholds to avoid flapping: a
// probe must fail failureThreshold times in a row before being reported
// down, and succeed successThreshold times before being reported up again.
package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// ProbeFunc checks one dependency. It returns nil when the dependency is
// reachable and an error describing the problem otherwise.
type ProbeFunc func(ctx context.Context) error

// Event describes a probe state change.
type Event struct {
	// Probe is the probe's registered name.
	Probe string
	// Up is the new state.
	Up bool
	// Err is the error that drove a down transition; nil on recovery.
	Err error
}

// probe holds configuration and runtime state for a single check.
//
// Concurrency model: run() is called from exactly one goroutine (the
// ticker). The consecutive counters are only touched by run() and need no
// synchronization. The up flag and lastErr are read from arbitrary
// goroutines and use atomics.
type probe struct {
	name             string
	timeout          time.Duration
	fn               ProbeFunc
	failureThreshold int
	successThreshold int

	up      atomic.Bool
	lastErr atomic.Pointer[error]

	consecutiveFails int
	consecutiveOK    int
}

// run executes the probe once and returns a non-nil Event when the state
// flipped. Must be called from a single goroutine.
func (p *probe) run(ctx context.Context) *Event {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.fn(probeCtx)
	p.lastErr.Store(&err)

	if err != nil {
		p.consecutiveOK = 0
		p.consecutiveFails++
		if p.consecutiveFails >= p.failureThreshold && p.up.Load() {
			p.up.Store(false)
			return &Event{Probe: p.name, Up: false, Err: err}
		}
		return nil
	}

	p.consecutiveFails = 0
	p.consecutiveOK++
	if p.consecutiveOK >= p.successThreshold && !p.up.Load() {
		p.up.Store(true)
		return &Event{Probe: p.name, Up: true}
	}
	return nil
}

// Monitor manages a set of connectivity probes.
type Monitor struct {
	// mu protects probes, observers, and cancel. Registration happens before
	// Start; observers may come and go at any time.
	mu        sync.Mutex
	probes    []*probe
	observers map[int]func(Event)
	nextID    int
	cancel    context.CancelFunc
}

// New creates a Monitor with no probes.
func New() *Monitor {
	return &Monitor{observers: make(map[int]func(Event))}
}

// AddProbe registers a named probe. Probes start in the up state so a
// healthy system boots silently; the first sustained failure emits a down
// event. Register all probes before calling Start.
func (m *Monitor) AddProbe(name string, timeout time.Duration, fn ProbeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := &probe{
		name:             name,
		timeout:          timeout,
		fn:               fn,
		failureThreshold: 3,
		successThreshold: 1,
	}
	p.up.Store(true)
	m.probes = append(m.probes, p)
}

// Subscribe registers an observer for probe state changes. The returned
// cancel function is idempotent.
func (m *Monitor) Subscribe(fn func(Event)) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.observers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

// Start launches one goroutine per probe, each running at the given
// interval until the context is cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.cancel = cancel
	probes := append([]*probe(nil), m.probes...)
	m.mu.Unlock()

	for _, p := range probes {
		go m.runProbe(ctx, p, interval)
	}
}

// runProbe drives a single probe until the context is cancelled.
func (m *Monitor) runProbe(ctx context.Context, p *probe, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Probe immediately on start.
	m.dispatch(p.run(ctx))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.dispatch(p.run(ctx))
		}
	}
}

// dispatch fans an event out to all observers. A nil event is a no-op.
func (m *Monitor) dispatch(ev *Event) {
	if ev == nil {
		return
	}
	m.mu.Lock()
	observers := make([]func(Event), 0, len(m.observers))
	for _, fn := range m.observers {
		observers = append(observers, fn)
	}
	m.mu.Unlock()

	for _, fn := range observers {
		fn(*ev)
	}
}

// Healthy reports whether every probe is currently up.
func (m *Monitor) Healthy() bool {
	m.mu.Lock()
	probes := m.probes
	m.mu.Unlock()

	for _, p := range probes {
		if !p.up.Load() {
			return false
		}
	}
	return true
}

// Status returns the last error per probe; a nil value means the probe is
// passing.
func (m *Monitor) Status() map[string]error {
	m.mu.Lock()
	probes := m.probes
	m.mu.Unlock()

	out := make(map[string]error, len(probes))
	for _, p := range probes {
		var err error
		if e := p.lastErr.Load(); e != nil {
			err = *e
		}
		out[p.name] = err
	}
	return out
}

// Stop cancels all probe goroutines. Safe to call multiple times.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}
