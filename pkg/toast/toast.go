// Package toast implements transient user notifications with severity
// tiers, a bounded queue, and per-tier display durations.
package toast

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Tier is the severity of a notification.
type Tier string

const (
	TierSuccess Tier = "success"
	TierError   Tier = "error"
	TierWarning Tier = "warning"
	TierInfo    Tier = "info"
)

// Default display durations per tier. Errors linger longest so the user has
// a chance to read them.
const (
	durationSuccess = 3 * time.Second
	durationError   = 7 * time.Second
	durationWarning = 5 * time.Second
	durationInfo    = 4 * time.Second
)

// maxVisible bounds the queue; the oldest message is evicted when a new one
// would exceed it.
const maxVisible = 5

// Message is one queued notification.
type Message struct {
	ID        string
	Text      string
	Tier      Tier
	Duration  time.Duration
	CreatedAt time.Time
}

// Service owns the notification queue. It is safe for concurrent use.
type Service struct {
	mu        sync.Mutex
	messages  []Message
	observers map[int]func([]Message)
	nextID    int

	now func() time.Time
	// schedule defers fn by d. Swapped out in tests.
	schedule func(d time.Duration, fn func())
}

// NewService creates an empty notification Service.
func NewService() *Service {
	return &Service{
		observers: make(map[int]func([]Message)),
		now:       time.Now,
		schedule: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
}

// Show queues a notification and returns its id. The message expires
// automatically after the tier's default duration; Remove dismisses it
// earlier. When the queue is full the oldest message is evicted.
func (s *Service) Show(text string, tier Tier) string {
	return s.ShowFor(text, tier, defaultDuration(tier))
}

// ShowFor is Show with an explicit duration. A non-positive duration keeps
// the message until it is removed explicitly.
func (s *Service) ShowFor(text string, tier Tier, d time.Duration) string {
	msg := Message{
		ID:        uuid.New().String(),
		Text:      text,
		Tier:      tier,
		Duration:  d,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	if len(s.messages) >= maxVisible {
		s.messages = s.messages[1:]
	}
	s.messages = append(s.messages, msg)
	snapshot := s.snapshotLocked()
	notify := s.observersLocked()
	s.mu.Unlock()

	for _, fn := range notify {
		fn(snapshot)
	}

	if d > 0 {
		s.schedule(d, func() { s.Remove(msg.ID) })
	}
	return msg.ID
}

// Success queues a success notification.
func (s *Service) Success(text string) string { return s.Show(text, TierSuccess) }

// Error queues an error notification.
func (s *Service) Error(text string) string { return s.Show(text, TierError) }

// Warning queues a warning notification.
func (s *Service) Warning(text string) string { return s.Show(text, TierWarning) }

// Info queues an info notification.
func (s *Service) Info(text string) string { return s.Show(text, TierInfo) }

// Remove dismisses a message by id. Unknown ids are ignored.
func (s *Service) Remove(id string) {
	s.mu.Lock()
	kept := s.messages[:0]
	removed := false
	for _, m := range s.messages {
		if m.ID == id {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	s.messages = kept
	var snapshot []Message
	var notify []func([]Message)
	if removed {
		snapshot = s.snapshotLocked()
		notify = s.observersLocked()
	}
	s.mu.Unlock()

	for _, fn := range notify {
		fn(snapshot)
	}
}

// Clear dismisses all messages.
func (s *Service) Clear() {
	s.mu.Lock()
	s.messages = nil
	notify := s.observersLocked()
	s.mu.Unlock()

	for _, fn := range notify {
		fn(nil)
	}
}

// Snapshot returns the currently queued messages, oldest first.
func (s *Service) Snapshot() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers an observer called with the full queue on every
// change. The returned cancel function is idempotent.
func (s *Service) Subscribe(fn func([]Message)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Service) snapshotLocked() []Message {
	return append([]Message(nil), s.messages...)
}

func (s *Service) observersLocked() []func([]Message) {
	out := make([]func([]Message), 0, len(s.observers))
	for _, fn := range s.observers {
		out = append(out, fn)
	}
	return out
}

func defaultDuration(tier Tier) time.Duration {
	switch tier {
	case TierSuccess:
		return durationSuccess
	case TierError:
		return durationError
	case TierWarning:
		return durationWarning
	case TierInfo:
		return durationInfo
	default:
		return durationWarning
	}
}
