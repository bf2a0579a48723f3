// Package log provides a slog-backed observer for the safecall library,
// useful when debugging which wrappers execute and which degrade to their
// defaults. Events are logged at debug level with the wrapper's diagnostic
// name when one was set.
package log

import (
	"log/slog"
	"time"
)

// Observer logs safecall lifecycle events through a slog.Logger.
type Observer struct {
	l *slog.Logger
}

// New returns an observer logging through l, or slog.Default when l is nil.
func New(l *slog.Logger) *Observer {
	if l == nil {
		l = slog.Default()
	}
	return &Observer{l: l}
}

func (o *Observer) RegistryCreated() {
	o.l.Debug("safecall: registry created")
}

func (o *Observer) RegistryClosed(live int) {
	o.l.Debug("safecall: registry closed", "live_wrappers", live)
}

func (o *Observer) WrapperCreated(name string) {
	o.l.Debug("safecall: wrapper created", "name", name)
}

func (o *Observer) WrapperCancelled(name string) {
	o.l.Debug("safecall: wrapper cancelled", "name", name)
}

func (o *Observer) WrapperCalled(name string, executed bool, dur time.Duration) {
	if executed {
		o.l.Debug("safecall: wrapper executed", "name", name, "dur", dur)
		return
	}
	o.l.Debug("safecall: wrapper call ignored", "name", name)
}
