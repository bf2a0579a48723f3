package safecall

import (
	"runtime"
	"sync"
	"time"
	"weak"
)

// state is the shared core of a wrapper. All handle copies point at one
// state; cancellation observed through any copy is observed through all.
type state struct {
	mu       sync.Mutex
	callable any // nil once cancelled
	def      any
	owner    weak.Pointer[Registry]
	tok      *token
	name     string
	obs      Observer
	cleanup  runtime.Cleanup
}

type cleanupArg struct {
	owner weak.Pointer[Registry]
	tok   *token
}

func newState(r *Registry, callable, def any, name string) *state {
	st := &state{
		callable: callable,
		def:      def,
		owner:    weak.Make(r),
		name:     name,
		obs:      r.obs,
	}
	ws := weak.Make(st)
	st.tok = &token{fire: func() {
		if s := ws.Value(); s != nil {
			s.cancel()
		}
	}}
	// Prune the registry entry when the last handle copy is dropped
	// without an explicit Release. The argument must not reference st or
	// the state would never become collectable.
	st.cleanup = runtime.AddCleanup(st, func(c cleanupArg) {
		if reg := c.owner.Value(); reg != nil {
			reg.removeToken(c.tok)
		}
	}, cleanupArg{owner: st.owner, tok: st.tok})
	if st.obs != nil {
		st.obs.WrapperCreated(name)
	}
	r.addToken(st.tok)
	return st
}

// cancel drops the stored callable. Idempotent; the observer hook fires only
// on the actual transition.
func (s *state) cancel() {
	s.mu.Lock()
	had := s.callable != nil
	s.callable = nil
	s.mu.Unlock()
	if had && s.obs != nil {
		s.obs.WrapperCancelled(s.name)
	}
}

func (s *state) cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callable == nil
}

// release is the explicit teardown path: drop the callable and remove the
// token from the registry, best-effort if the registry is already gone.
func (s *state) release() {
	s.cancel()
	if reg := s.owner.Value(); reg != nil {
		reg.removeToken(s.tok)
	}
	s.cleanup.Stop()
}

// begin performs the presence check for a call. If the callable is present
// it is returned with the wrapper lock already released, so invocation runs
// outside the lock and reentrant self-invocation cannot self-deadlock. If
// the wrapper is cancelled, begin returns a nil callable and the stored
// default.
func (s *state) begin() (callable, def any) {
	s.mu.Lock()
	c := s.callable
	if c == nil {
		d := s.def
		s.mu.Unlock()
		if s.obs != nil {
			s.obs.WrapperCalled(s.name, false, 0)
		}
		return nil, d
	}
	s.mu.Unlock()
	return c, nil
}

func (s *state) finish(start time.Time) {
	s.obs.WrapperCalled(s.name, true, time.Since(start))
}

func defaultOf[R any](def any) R {
	if def == nil {
		var zero R
		return zero
	}
	return def.(R)
}

// handle is the common surface shared by every typed wrapper kind.
type handle struct {
	st *state
}

// Cancel transitions the wrapper to its cancelled state directly, without
// involving the registry. Cancelled is terminal; repeating it is a no-op.
func (h handle) Cancel() { h.st.cancel() }

// Cancelled reports whether the wrapper will still run its real callable.
func (h handle) Cancelled() bool { return h.st.cancelled() }

// Release tears the wrapper down: it cancels it and removes its token from
// the registry so the registry's map does not grow without bound. Safe to
// call more than once; releasing is best-effort when the registry is
// already closed or gone. Handles left unreleased are pruned lazily when
// garbage collected.
func (h handle) Release() { h.st.release() }

// Name returns the diagnostic name given at construction, if any.
func (h handle) Name() string { return h.st.name }

// Func is a safe zero-argument wrapper returning R. Copies are cheap and
// share one underlying state. The zero Func is not valid; construct with
// Make.
type Func[R any] struct{ handle }

// Call runs the wrapped callable and returns its result, or returns the
// default value once the wrapper is cancelled. A call that passes its
// presence check before cancellation begins completes normally. Panics from
// the callable propagate unchanged.
func (f Func[R]) Call() R {
	c, d := f.st.begin()
	if c == nil {
		return defaultOf[R](d)
	}
	fn := c.(func() R)
	if f.st.obs == nil {
		return fn()
	}
	start := time.Now()
	res := fn()
	f.st.finish(start)
	return res
}

// Func1 is a safe one-argument wrapper returning R.
type Func1[A, R any] struct{ handle }

func (f Func1[A, R]) Call(a A) R {
	c, d := f.st.begin()
	if c == nil {
		return defaultOf[R](d)
	}
	fn := c.(func(A) R)
	if f.st.obs == nil {
		return fn(a)
	}
	start := time.Now()
	res := fn(a)
	f.st.finish(start)
	return res
}

// Func2 is a safe two-argument wrapper returning R.
type Func2[A, B, R any] struct{ handle }

func (f Func2[A, B, R]) Call(a A, b B) R {
	c, d := f.st.begin()
	if c == nil {
		return defaultOf[R](d)
	}
	fn := c.(func(A, B) R)
	if f.st.obs == nil {
		return fn(a, b)
	}
	start := time.Now()
	res := fn(a, b)
	f.st.finish(start)
	return res
}

// Proc is a safe zero-argument wrapper with no result; a cancelled Proc
// simply returns.
type Proc struct{ handle }

func (p Proc) Call() {
	c, _ := p.st.begin()
	if c == nil {
		return
	}
	fn := c.(func())
	if p.st.obs == nil {
		fn()
		return
	}
	start := time.Now()
	fn()
	p.st.finish(start)
}

// Proc1 is a safe one-argument wrapper with no result.
type Proc1[A any] struct{ handle }

func (p Proc1[A]) Call(a A) {
	c, _ := p.st.begin()
	if c == nil {
		return
	}
	fn := c.(func(A))
	if p.st.obs == nil {
		fn(a)
		return
	}
	start := time.Now()
	fn(a)
	p.st.finish(start)
}

// Proc2 is a safe two-argument wrapper with no result.
type Proc2[A, B any] struct{ handle }

func (p Proc2[A, B]) Call(a A, b B) {
	c, _ := p.st.begin()
	if c == nil {
		return
	}
	fn := c.(func(A, B))
	if p.st.obs == nil {
		fn(a, b)
		return
	}
	start := time.Now()
	fn(a, b)
	p.st.finish(start)
}
