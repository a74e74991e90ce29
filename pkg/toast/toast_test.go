package toast

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newQuietService returns a Service whose expiry timers are captured instead
// of scheduled, so tests control when messages expire.
func newQuietService() (*Service, *[]func()) {
	s := NewService()
	var expirations []func()
	var mu sync.Mutex
	s.schedule = func(_ time.Duration, fn func()) {
		mu.Lock()
		defer mu.Unlock()
		expirations = append(expirations, fn)
	}
	return s, &expirations
}

func TestService_Show(t *testing.T) {
	s, _ := newQuietService()

	id := s.Show("saved", TierSuccess)
	require.NotEmpty(t, id)

	msgs := s.Snapshot()
	require.Len(t, msgs, 1)
	assert.Equal(t, "saved", msgs[0].Text)
	assert.Equal(t, TierSuccess, msgs[0].Tier)
	assert.Equal(t, durationSuccess, msgs[0].Duration)
}

func TestService_TierDurations(t *testing.T) {
	tests := []struct {
		tier Tier
		want time.Duration
	}{
		{TierSuccess, 3 * time.Second},
		{TierError, 7 * time.Second},
		{TierWarning, 5 * time.Second},
		{TierInfo, 4 * time.Second},
		{Tier("bogus"), 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			assert.Equal(t, tt.want, defaultDuration(tt.tier))
		})
	}
}

func TestService_OldestEvictedWhenFull(t *testing.T) {
	s, _ := newQuietService()

	for i := range maxVisible + 2 {
		s.Info(fmt.Sprintf("msg %d", i))
	}

	msgs := s.Snapshot()
	require.Len(t, msgs, maxVisible)
	assert.Equal(t, "msg 2", msgs[0].Text)
	assert.Equal(t, fmt.Sprintf("msg %d", maxVisible+1), msgs[len(msgs)-1].Text)
}

func TestService_AutoExpiry(t *testing.T) {
	s, expirations := newQuietService()

	s.Warning("slow down")
	require.Len(t, s.Snapshot(), 1)
	require.Len(t, *expirations, 1)

	(*expirations)[0]()
	assert.Empty(t, s.Snapshot())
}

func TestService_RemoveUnknownID(t *testing.T) {
	s, _ := newQuietService()
	s.Info("hello")
	s.Remove("no-such-id")
	assert.Len(t, s.Snapshot(), 1)
}

func TestService_Clear(t *testing.T) {
	s, _ := newQuietService()
	s.Info("one")
	s.Error("two")
	s.Clear()
	assert.Empty(t, s.Snapshot())
}

func TestService_SubscribeNotifiesOnChange(t *testing.T) {
	s, _ := newQuietService()

	var mu sync.Mutex
	var calls [][]Message
	cancel := s.Subscribe(func(msgs []Message) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, msgs)
	})

	id := s.Success("created")
	s.Remove(id)

	mu.Lock()
	require.Len(t, calls, 2)
	assert.Len(t, calls[0], 1)
	assert.Empty(t, calls[1])
	mu.Unlock()

	cancel()
	cancel() // idempotent
	s.Info("after cancel")

	mu.Lock()
	assert.Len(t, calls, 2)
	mu.Unlock()
}
