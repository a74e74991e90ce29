// Package loading tracks in-flight HTTP requests behind a single
// process-wide counter.
//
// Observers are notified only on edge transitions: when the counter moves
// from 0 to 1 (show a loading indicator) and from 1 back to 0 (hide it).
// Overlapping requests therefore share one indicator instead of flashing it
// once per request.
package loading

import "sync"

// Tracker counts in-flight requests and notifies observers on visibility
// transitions. It is safe for concurrent use. The zero value is not usable;
// call New.
type Tracker struct {
	// mu protects active and observers. Observer callbacks run outside the
	// lock so they may call back into the Tracker.
	mu        sync.Mutex
	active    int
	observers map[int]func(visible bool)
	nextID    int
}

// New creates an idle Tracker.
func New() *Tracker {
	return &Tracker{observers: make(map[int]func(bool))}
}

// Begin records the start of a request and returns the matching completion
// callback. The callback must be invoked exactly when the request finishes,
// success or failure; calling it more than once is a harmless no-op.
func (t *Tracker) Begin() (done func()) {
	t.mu.Lock()
	t.active++
	var notify []func(bool)
	if t.active == 1 {
		notify = t.snapshotLocked()
	}
	t.mu.Unlock()

	for _, fn := range notify {
		fn(true)
	}

	var once sync.Once
	return func() {
		once.Do(t.end)
	}
}

// end records the completion of one request.
func (t *Tracker) end() {
	t.mu.Lock()
	t.active--
	var notify []func(bool)
	if t.active == 0 {
		notify = t.snapshotLocked()
	}
	t.mu.Unlock()

	for _, fn := range notify {
		fn(false)
	}
}

// Active returns the current number of in-flight requests.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Visible reports whether at least one request is outstanding.
func (t *Tracker) Visible() bool {
	return t.Active() > 0
}

// Subscribe registers an observer for visibility transitions. The returned
// cancel function removes the observer and may be called multiple times.
func (t *Tracker) Subscribe(fn func(visible bool)) (cancel func()) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.observers[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.observers, id)
		t.mu.Unlock()
	}
}

// snapshotLocked copies the observer set. Callers must hold mu.
func (t *Tracker) snapshotLocked() []func(bool) {
	out := make([]func(bool), 0, len(t.observers))
	for _, fn := range t.observers {
		out = append(out, fn)
	}
	return out
}
