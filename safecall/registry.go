package safecall

import (
	"sync"
	"sync/atomic"
	"time"
	"weak"
)

// Observer receives lifecycle hooks from a Registry and its wrappers.
// Implementations must be safe for concurrent use.
type Observer interface {
	RegistryCreated()
	RegistryClosed(live int)
	WrapperCreated(name string)
	WrapperCancelled(name string)
	WrapperCalled(name string, executed bool, dur time.Duration)
}

type RegistryOption func(*registryOptions)

type registryOptions struct {
	obs Observer
}

// WithObserver attaches an observer to the registry. Wrappers made from the
// registry report their hooks to the same observer.
func WithObserver(obs Observer) RegistryOption {
	return func(o *registryOptions) { o.obs = obs }
}

// token is the cancellation link between a Registry entry and exactly one
// wrapper. Its identity is its own address; fire clears the wrapper's
// callable through a weak reference and is idempotent.
type token struct {
	fire func()
}

// Registry tracks the cancellation tokens of every live wrapper issued on
// behalf of one owner. The zero value is not usable; construct with
// NewRegistry and embed it as a field of the owner. Closing the registry
// cancels every outstanding wrapper exactly once.
type Registry struct {
	closed atomic.Bool
	mu     sync.Mutex
	tokens map[*token]weak.Pointer[token]

	obs Observer
}

// NewRegistry returns a registry with no registered wrappers.
func NewRegistry(optFns ...RegistryOption) *Registry {
	var o registryOptions
	for _, fn := range optFns {
		fn(&o)
	}
	r := &Registry{
		tokens: make(map[*token]weak.Pointer[token]),
		obs:    o.obs,
	}
	if r.obs != nil {
		r.obs.RegistryCreated()
	}
	return r
}

// Close cancels every live wrapper registered with r and marks the registry
// closed. Wrappers made afterward start cancelled. Close is idempotent; only
// the first call does any work. Call it when the owner is torn down,
// typically via defer.
func (r *Registry) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}
	r.mu.Lock()
	live := len(r.tokens)
	// Firing a token only takes that wrapper's own lock, never this one,
	// so holding r.mu across the loop cannot deadlock.
	for _, wt := range r.tokens {
		if t := wt.Value(); t != nil {
			t.fire()
		}
	}
	r.tokens = nil
	r.mu.Unlock()
	if r.obs != nil {
		r.obs.RegistryClosed(live)
	}
}

// Closed reports whether Close has been called.
func (r *Registry) Closed() bool { return r.closed.Load() }

// Len returns the number of currently registered wrappers. It is zero once
// the registry is closed.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

func (r *Registry) addToken(t *token) {
	if r.closed.Load() {
		t.fire()
		return
	}
	r.mu.Lock()
	// Re-check under the lock: a Close that won the flag race has already
	// drained the map, so this registration must resolve to cancelled
	// rather than leave a stale entry behind.
	if r.closed.Load() {
		r.mu.Unlock()
		t.fire()
		return
	}
	r.tokens[t] = weak.Make(t)
	r.mu.Unlock()
}

func (r *Registry) removeToken(t *token) {
	if r.closed.Load() {
		return
	}
	r.mu.Lock()
	delete(r.tokens, t)
	r.mu.Unlock()
}
