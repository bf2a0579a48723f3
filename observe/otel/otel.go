package otel

import (
	"time"
)

// Nop is a no-op implementation of the safecall.Observer interface.
// It serves as a placeholder for an OpenTelemetry-backed observer without
// adding dependencies.
type Nop struct{}

// NewNop returns a no-op observer.
func NewNop() *Nop { return &Nop{} }

func (*Nop) RegistryCreated()                         {}
func (*Nop) RegistryClosed(int)                       {}
func (*Nop) WrapperCreated(string)                    {}
func (*Nop) WrapperCancelled(string)                  {}
func (*Nop) WrapperCalled(string, bool, time.Duration) {}
