// Package catalog implements the client-side data access layer for the
// product catalog: a filter-keyed cache with a freshness window, a published
// product-list snapshot that all views render from, and a loading-state
// stream.
//
// The Coordinator owns the cache and the published list exclusively. Views
// only observe published snapshots; after a successful create, update, or
// delete the list is patched locally instead of re-fetched.
package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/finexus/catalog-console/internal/domain/product"
)

// DefaultFreshness is how long a cached listing stays valid.
const DefaultFreshness = 5 * time.Minute

// State is the coordinator's loading state. There is exactly one per
// Coordinator; every transition overwrites the previous value.
type State int8

const (
	StateIdle State = iota
	StateLoading
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// API is the remote operation set the Coordinator mediates. Implemented by
// *rest.Client.
type API interface {
	ListProducts(ctx context.Context, filters *product.Filters) ([]product.Product, error)
	GetProduct(ctx context.Context, id int64) (*product.Product, error)
	CreateProduct(ctx context.Context, in product.CreateProduct) (*product.Product, error)
	UpdateProduct(ctx context.Context, id int64, in product.UpdateProduct) (*product.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

// Coordinator is the single point of access for product CRUD operations.
// It is safe for concurrent use, but concurrent mutations of the same record
// are applied in response-arrival order, not issue order.
type Coordinator struct {
	api API

	// mu protects everything below. Network calls run outside the lock;
	// observer callbacks run outside it too, so they may call back in.
	mu        sync.Mutex
	cache     map[string][]product.Product
	lastFetch time.Time
	published []product.Product
	state     State

	listObservers  map[int]func([]product.Product)
	stateObservers map[int]func(State)
	nextObserver   int

	freshness time.Duration
	now       func() time.Time
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithFreshness overrides the cache freshness window.
func WithFreshness(d time.Duration) Option {
	return func(c *Coordinator) { c.freshness = d }
}

// New creates a Coordinator backed by the given API. One Coordinator is
// created per application instance and torn down with it; it is never reset
// implicitly.
func New(api API, opts ...Option) *Coordinator {
	c := &Coordinator{
		api:            api,
		cache:          make(map[string][]product.Product),
		listObservers:  make(map[int]func([]product.Product)),
		stateObservers: make(map[int]func(State)),
		freshness:      DefaultFreshness,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchAll returns the product list for the given filters. A cached entry is
// served without network activity when forceRefresh is false and the last
// fetch is within the freshness window; otherwise the list is fetched,
// cached under the filter key, and published.
func (c *Coordinator) FetchAll(ctx context.Context, filters *product.Filters, forceRefresh bool) ([]product.Product, error) {
	key := filters.CacheKey()

	c.mu.Lock()
	if !forceRefresh {
		if cached, ok := c.cache[key]; ok && c.freshLocked() {
			c.published = cached
			notify := c.listNotifyLocked(cached)
			c.mu.Unlock()
			runAll(notify)
			return cached, nil
		}
	}
	stateNotify := c.setStateLocked(StateLoading)
	c.mu.Unlock()
	runAll(stateNotify)

	list, err := c.api.ListProducts(ctx, filters)
	if err != nil {
		c.transition(StateError)
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = list
	c.lastFetch = c.now()
	c.published = list
	notify := c.listNotifyLocked(list)
	notify = append(notify, c.setStateLocked(StateSuccess)...)
	c.mu.Unlock()
	runAll(notify)

	return list, nil
}

// FetchByID fetches a single record. The result is not cached and the list
// cache is left untouched.
func (c *Coordinator) FetchByID(ctx context.Context, id int64) (*product.Product, error) {
	c.transition(StateLoading)

	p, err := c.api.GetProduct(ctx, id)
	if err != nil {
		c.transition(StateError)
		return nil, err
	}

	c.transition(StateSuccess)
	return p, nil
}

// Create sends the payload to the API and, on success, appends the created
// record to the published list and the default cache entry. The Coordinator
// performs no payload validation; that responsibility sits with the form
// layer.
func (c *Coordinator) Create(ctx context.Context, in product.CreateProduct) (*product.Product, error) {
	c.transition(StateLoading)

	created, err := c.api.CreateProduct(ctx, in)
	if err != nil {
		c.transition(StateError)
		return nil, err
	}

	c.patch(func(cur []product.Product) []product.Product {
		next := make([]product.Product, 0, len(cur)+1)
		next = append(next, cur...)
		return append(next, *created)
	})
	return created, nil
}

// Update sends a partial update and, on success, replaces the matching
// record in the published list. When the id is absent from the local list
// the local patch is a silent no-op.
func (c *Coordinator) Update(ctx context.Context, id int64, in product.UpdateProduct) (*product.Product, error) {
	c.transition(StateLoading)

	updated, err := c.api.UpdateProduct(ctx, id, in)
	if err != nil {
		c.transition(StateError)
		return nil, err
	}

	c.patch(func(cur []product.Product) []product.Product {
		next := make([]product.Product, len(cur))
		for i, p := range cur {
			if p.ID == updated.ID {
				next[i] = *updated
			} else {
				next[i] = p
			}
		}
		return next
	})
	return updated, nil
}

// Delete removes a record and, on success, drops it from the published list.
func (c *Coordinator) Delete(ctx context.Context, id int64) error {
	c.transition(StateLoading)

	if err := c.api.DeleteProduct(ctx, id); err != nil {
		c.transition(StateError)
		return err
	}

	c.patch(func(cur []product.Product) []product.Product {
		next := make([]product.Product, 0, len(cur))
		for _, p := range cur {
			if p.ID != id {
				next = append(next, p)
			}
		}
		return next
	})
	return nil
}

// ClearCache discards all cache entries and the last-fetch timestamp, and
// republishes an empty list. In-flight requests are unaffected; the next
// FetchAll hits the network regardless of the freshness window.
func (c *Coordinator) ClearCache() {
	c.mu.Lock()
	c.cache = make(map[string][]product.Product)
	c.lastFetch = time.Time{}
	c.published = []product.Product{}
	notify := c.listNotifyLocked(c.published)
	c.mu.Unlock()
	runAll(notify)
}

// Snapshot returns the last-published list without any network activity.
// Callers must treat the returned slice as read-only.
func (c *Coordinator) Snapshot() []product.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.published
}

// State returns the current loading state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsLoading reports whether a request is currently in progress.
func (c *Coordinator) IsLoading() bool {
	return c.State() == StateLoading
}

// SubscribeProducts registers an observer called with every newly published
// list. The returned cancel function is idempotent.
func (c *Coordinator) SubscribeProducts(fn func([]product.Product)) (cancel func()) {
	c.mu.Lock()
	id := c.nextObserver
	c.nextObserver++
	c.listObservers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listObservers, id)
		c.mu.Unlock()
	}
}

// SubscribeState registers an observer for loading-state transitions. The
// returned cancel function is idempotent.
func (c *Coordinator) SubscribeState(fn func(State)) (cancel func()) {
	c.mu.Lock()
	id := c.nextObserver
	c.nextObserver++
	c.stateObservers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.stateObservers, id)
		c.mu.Unlock()
	}
}

// patch applies a local mutation to the published list after a successful
// write: the list is replaced, never mutated in place, the default cache
// entry tracks it, and the state moves to success.
func (c *Coordinator) patch(apply func([]product.Product) []product.Product) {
	c.mu.Lock()
	next := apply(c.published)
	c.published = next
	c.cache[product.DefaultCacheKey] = next
	notify := c.listNotifyLocked(next)
	notify = append(notify, c.setStateLocked(StateSuccess)...)
	c.mu.Unlock()
	runAll(notify)
}

// transition moves the loading state and notifies observers.
func (c *Coordinator) transition(s State) {
	c.mu.Lock()
	notify := c.setStateLocked(s)
	c.mu.Unlock()
	runAll(notify)
}

// freshLocked reports whether the last fetch is within the freshness window.
func (c *Coordinator) freshLocked() bool {
	return !c.lastFetch.IsZero() && c.now().Sub(c.lastFetch) < c.freshness
}

func (c *Coordinator) setStateLocked(s State) []func() {
	c.state = s
	out := make([]func(), 0, len(c.stateObservers))
	for _, fn := range c.stateObservers {
		out = append(out, func() { fn(s) })
	}
	return out
}

func (c *Coordinator) listNotifyLocked(list []product.Product) []func() {
	out := make([]func(), 0, len(c.listObservers))
	for _, fn := range c.listObservers {
		out = append(out, func() { fn(list) })
	}
	return out
}

func runAll(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}
