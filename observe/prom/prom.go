// Package prom provides a Prometheus-backed observer for the safecall
// library. It exports registry, wrapper, and call counters plus a call
// duration histogram, and implements the safecall.Observer interface.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "safecall"

// Observer records safecall lifecycle events as Prometheus metrics.
type Observer struct {
	registriesCreated prometheus.Counter
	registriesClosed  prometheus.Counter
	cancelledAtClose  prometheus.Counter
	wrappersCreated   prometheus.Counter
	wrappersCancelled prometheus.Counter
	calls             *prometheus.CounterVec
	callDuration      prometheus.Histogram
}

// New returns an observer with its collectors registered on reg. Passing nil
// registers on the default registerer. Wrapper names are deliberately not
// used as label values to keep cardinality bounded.
func New(reg prometheus.Registerer) *Observer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &Observer{
		registriesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registries_created_total",
			Help:      "Number of registries created.",
		}),
		registriesClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registries_closed_total",
			Help:      "Number of registries closed.",
		}),
		cancelledAtClose: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wrappers_cancelled_at_close_total",
			Help:      "Number of live wrappers cancelled by registry close.",
		}),
		wrappersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wrappers_created_total",
			Help:      "Number of wrappers created.",
		}),
		wrappersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wrappers_cancelled_total",
			Help:      "Number of wrappers that transitioned to cancelled.",
		}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Number of wrapper calls by outcome.",
		}, []string{"outcome"}),
		callDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Duration of executed wrapper callables.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		o.registriesCreated,
		o.registriesClosed,
		o.cancelledAtClose,
		o.wrappersCreated,
		o.wrappersCancelled,
		o.calls,
		o.callDuration,
	)
	return o
}

// RegistryCreated records registry construction.
func (o *Observer) RegistryCreated() {
	o.registriesCreated.Inc()
}

// RegistryClosed records a registry close and how many wrappers it cancelled.
func (o *Observer) RegistryClosed(live int) {
	o.registriesClosed.Inc()
	o.cancelledAtClose.Add(float64(live))
}

// WrapperCreated records wrapper construction.
func (o *Observer) WrapperCreated(_ string) {
	o.wrappersCreated.Inc()
}

// WrapperCancelled records a wrapper's transition to cancelled.
func (o *Observer) WrapperCancelled(_ string) {
	o.wrappersCancelled.Inc()
}

// WrapperCalled records a call by outcome; executed calls also feed the
// duration histogram.
func (o *Observer) WrapperCalled(_ string, executed bool, dur time.Duration) {
	if executed {
		o.calls.WithLabelValues("executed").Inc()
		o.callDuration.Observe(dur.Seconds())
		return
	}
	o.calls.WithLabelValues("default").Inc()
}
