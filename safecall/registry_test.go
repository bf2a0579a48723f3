package safecall

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCloseCancelsAllWrappers(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	ran := atomic.Int32{}
	w1 := Must(Make(r, func() int { ran.Add(1); return 1 }))
	w2 := Must(Make(r, func() int { ran.Add(1); return 2 }))
	if got := r.Len(); got != 2 {
		t.Fatalf("expected 2 registered wrappers, got %d", got)
	}
	r.Close()
	if got := w1.Call(); got != 0 {
		t.Fatalf("expected zero value after close, got %d", got)
	}
	if got := w2.Call(); got != 0 {
		t.Fatalf("expected zero value after close, got %d", got)
	}
	if got := ran.Load(); got != 0 {
		t.Fatalf("callable ran %d times after close", got)
	}
	if !r.Closed() {
		t.Fatal("registry should report closed")
	}
}

func TestCloseIdempotent(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	w := Must(Make(r, func() string { return "live" }, WithDefault("gone")))
	r.Close()
	r.Close()
	r.Close()
	if got := w.Call(); got != "gone" {
		t.Fatalf("expected default after repeated close, got %q", got)
	}
	if got := r.Len(); got != 0 {
		t.Fatalf("expected empty registry after close, got %d", got)
	}
}

func TestMakeAfterCloseStartsCancelled(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.Close()
	touched := atomic.Bool{}
	w := Must(Make(r, func() int { touched.Store(true); return 99 }, WithDefault(7)))
	if !w.Cancelled() {
		t.Fatal("wrapper made after close must start cancelled")
	}
	if got := w.Call(); got != 7 {
		t.Fatalf("expected default 7 on first call, got %d", got)
	}
	if touched.Load() {
		t.Fatal("callable must never run for a post-close wrapper")
	}
	if got := r.Len(); got != 0 {
		t.Fatalf("post-close wrapper must not register, live=%d", got)
	}
}

func TestReleaseRemovesToken(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	defer r.Close()
	w := Must(Make(r, func() int { return 1 }))
	keep := Must(Make(r, func() int { return 2 }))
	w.Release()
	if got := r.Len(); got != 1 {
		t.Fatalf("expected 1 live wrapper after release, got %d", got)
	}
	w.Release() // safe to repeat
	if got := keep.Call(); got != 2 {
		t.Fatalf("unrelated wrapper affected by release: %d", got)
	}
}

func TestDroppedHandleIsPruned(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	defer r.Close()
	func() {
		_ = Must(Make(r, func() int { return 1 }))
	}()
	for i := 0; i < 200; i++ {
		runtime.GC()
		if r.Len() == 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("dropped handle was not pruned, live=%d", r.Len())
}

func TestConcurrentCallAndClose(t *testing.T) {
	t.Parallel()
	const callers = 8
	const iters = 200
	r := NewRegistry()
	w := Must(Make(r, func() int { return 42 }, WithDefault(-1)))

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < iters; j++ {
				if got := w.Call(); got != 42 && got != -1 {
					t.Errorf("call returned %d, want real result or default", got)
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		r.Close()
	}()
	close(start)
	wg.Wait()

	if got := w.Call(); got != -1 {
		t.Fatalf("call after close returned %d, want default", got)
	}
}

func TestConcurrentMakeAndClose(t *testing.T) {
	t.Parallel()
	const makers = 8
	r := NewRegistry()
	var wg sync.WaitGroup
	start := make(chan struct{})
	ran := atomic.Int32{}
	wrappers := make(chan Func[int], makers*50)
	for i := 0; i < makers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 50; j++ {
				wrappers <- Must(Make(r, func() int { ran.Add(1); return 1 }))
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		r.Close()
	}()
	close(start)
	wg.Wait()
	close(wrappers)

	// After close has returned, no wrapper may run its callable any more.
	before := ran.Load()
	for w := range wrappers {
		_ = w.Call()
	}
	if got := ran.Load(); got != before {
		t.Fatalf("callable ran %d times after close returned", got-before)
	}
	if got := r.Len(); got != 0 {
		t.Fatalf("registry should be drained, live=%d", got)
	}
}

type countObserver struct {
	registryCreated atomic.Int64
	registryClosed  atomic.Int64
	liveAtClose     atomic.Int64
	created         atomic.Int64
	cancelled       atomic.Int64
	executed        atomic.Int64
	defaulted       atomic.Int64
}

func (o *countObserver) RegistryCreated() { o.registryCreated.Add(1) }
func (o *countObserver) RegistryClosed(live int) {
	o.registryClosed.Add(1)
	o.liveAtClose.Add(int64(live))
}
func (o *countObserver) WrapperCreated(_ string)   { o.created.Add(1) }
func (o *countObserver) WrapperCancelled(_ string) { o.cancelled.Add(1) }
func (o *countObserver) WrapperCalled(_ string, executed bool, _ time.Duration) {
	if executed {
		o.executed.Add(1)
	} else {
		o.defaulted.Add(1)
	}
}

func TestObserverHooks(t *testing.T) {
	t.Parallel()
	obs := &countObserver{}
	r := NewRegistry(WithObserver(obs))
	w := Must(Make(r, func() int { return 1 }, WithName("a")))
	w2 := Must(Make(r, func() int { return 2 }, WithName("b")))
	_ = w.Call()
	r.Close()
	_ = w.Call()
	if !w2.Cancelled() {
		t.Fatal("second wrapper should be cancelled by close")
	}

	if obs.registryCreated.Load() != 1 || obs.registryClosed.Load() != 1 {
		t.Fatalf("unexpected registry hook counts: created=%d closed=%d",
			obs.registryCreated.Load(), obs.registryClosed.Load())
	}
	if got := obs.liveAtClose.Load(); got != 2 {
		t.Fatalf("expected 2 live wrappers at close, got %d", got)
	}
	if obs.created.Load() != 2 || obs.cancelled.Load() != 2 {
		t.Fatalf("unexpected wrapper hook counts: created=%d cancelled=%d",
			obs.created.Load(), obs.cancelled.Load())
	}
	if obs.executed.Load() != 1 || obs.defaulted.Load() != 1 {
		t.Fatalf("unexpected call hook counts: executed=%d defaulted=%d",
			obs.executed.Load(), obs.defaulted.Load())
	}
}
