package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passingProbe() ProbeFunc {
	return func(context.Context) error { return nil }
}

func failingProbe(msg string) ProbeFunc {
	return func(context.Context) error { return errors.New(msg) }
}

// drive runs the probe n times and returns every emitted event, bypassing
// the ticker goroutine so tests stay deterministic.
func drive(m *Monitor, n int) []Event {
	var events []Event
	for range n {
		for _, p := range m.probes {
			if ev := p.run(context.Background()); ev != nil {
				events = append(events, *ev)
			}
		}
	}
	return events
}

func TestMonitor_StartsUpAndSilent(t *testing.T) {
	m := New()
	m.AddProbe("api", time.Second, passingProbe())

	events := drive(m, 3)
	assert.Empty(t, events)
	assert.True(t, m.Healthy())
}

func TestMonitor_DownAfterFailureThreshold(t *testing.T) {
	m := New()
	m.AddProbe("api", time.Second, failingProbe("connection refused"))

	// Two failures are below the threshold of three.
	events := drive(m, 2)
	assert.Empty(t, events)
	assert.True(t, m.Healthy())

	events = drive(m, 1)
	require.Len(t, events, 1)
	assert.Equal(t, "api", events[0].Probe)
	assert.False(t, events[0].Up)
	assert.EqualError(t, events[0].Err, "connection refused")
	assert.False(t, m.Healthy())
}

func TestMonitor_RecoversAfterOneSuccess(t *testing.T) {
	failures := 3
	var mu sync.Mutex
	m := New()
	m.AddProbe("db", time.Second, func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		if failures > 0 {
			failures--
			return errors.New("down")
		}
		return nil
	})

	events := drive(m, 3)
	require.Len(t, events, 1)
	assert.False(t, events[0].Up)

	events = drive(m, 1)
	require.Len(t, events, 1)
	assert.True(t, events[0].Up)
	assert.Nil(t, events[0].Err)
	assert.True(t, m.Healthy())
}

func TestMonitor_StatusReportsLastError(t *testing.T) {
	m := New()
	m.AddProbe("api", time.Second, passingProbe())
	m.AddProbe("db", time.Second, failingProbe("no route"))

	drive(m, 1)

	st := m.Status()
	assert.NoError(t, st["api"])
	assert.EqualError(t, st["db"], "no route")
}

func TestMonitor_SubscribersReceiveEvents(t *testing.T) {
	m := New()
	m.AddProbe("api", time.Second, failingProbe("boom"))

	var mu sync.Mutex
	var got []Event
	cancel := m.Subscribe(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
	})

	for _, p := range m.probes {
		for range 3 {
			m.dispatch(p.run(context.Background()))
		}
	}

	mu.Lock()
	require.Len(t, got, 1)
	assert.False(t, got[0].Up)
	mu.Unlock()

	cancel()
	cancel() // idempotent
}

func TestMonitor_StartStop(t *testing.T) {
	m := New()
	m.AddProbe("api", 50*time.Millisecond, passingProbe())

	ctx := context.Background()
	m.Start(ctx, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	m.Stop()
	m.Stop() // safe to repeat

	assert.True(t, m.Healthy())
}
