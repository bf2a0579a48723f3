// Package ctxbind bridges safecall registries to the standard context
// package. It lets a registry's lifetime follow a context, so callbacks
// handed out by an owner degrade to their defaults as soon as the
// surrounding request or process scope is cancelled.
package ctxbind

import (
	"context"
	"sync"

	"github.com/NetPo4ki/go-safecall/safecall"
)

// Bind closes r when ctx is done. The returned release function detaches
// the binding without closing the registry; it blocks until the watching
// goroutine has exited and is safe to call more than once. Callers should
// always release, typically via defer, to avoid leaking the watcher when
// ctx is never cancelled.
func Bind(ctx context.Context, r *safecall.Registry) (release func()) {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-ctx.Done():
			r.Close()
		case <-stop:
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(stop) })
		<-done
	}
}
