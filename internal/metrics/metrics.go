// Package metrics holds the Prometheus collectors for host traffic, history
// paging, media resolution and the event bridge.
//
// Every recording method is safe on a nil *Metrics, so library callers that do not
// care about metrics pass nil.
package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/matheus3301/wppweb/internal/host"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wppweb"

// Media resolution outcomes.
const (
	MediaResolved     = "resolved"
	MediaNoMedia      = "no_media"
	MediaUnresolvable = "unresolvable"
	MediaError        = "error"
)

// Metrics is a set of collectors bound to their own registry.
type Metrics struct {
	registry *prometheus.Registry

	hostCalls     *prometheus.CounterVec
	hostLatency   *prometheus.HistogramVec
	historyPages  *prometheus.CounterVec
	mediaOutcomes *prometheus.CounterVec
	mediaAttempts prometheus.Counter
	bridgeEvents  *prometheus.CounterVec
	bridgeDropped *prometheus.CounterVec
}

// New creates the collectors on a fresh registry that also carries the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		hostCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "calls_total",
			Help:      "Automation host evaluations by query and outcome",
		}, []string{"query", "outcome"}),
		hostLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "call_duration_seconds",
			Help:      "Automation host evaluation latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"query"}),
		historyPages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "page_requests_total",
			Help:      "Earlier-history page requests by result",
		}, []string{"result"}),
		mediaOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "media",
			Name:      "downloads_total",
			Help:      "Media downloads by outcome",
		}, []string{"outcome"}),
		mediaAttempts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "media",
			Name:      "resolve_attempts_total",
			Help:      "Remote media resolution attempts",
		}),
		bridgeEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "events_total",
			Help:      "Typed events published by the bridge",
		}, []string{"kind"}),
		bridgeDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "dropped_total",
			Help:      "Host events the bridge dropped, by reason",
		}, []string{"reason"}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// WatchBusDrops exports dropped, a running count of bus deliveries lost to full
// subscribers, as a counter read at scrape time. Call it once per registry.
func (m *Metrics) WatchBusDrops(dropped func() uint64) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bus",
		Name:      "dropped_total",
		Help:      "Bus deliveries dropped because a subscriber was full",
	}, func() float64 { return float64(dropped()) }))
}

// HostCall records one evaluation of q.
func (m *Metrics) HostCall(q host.Query, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.hostCalls.WithLabelValues(string(q), outcome).Inc()
	m.hostLatency.WithLabelValues(string(q)).Observe(elapsed.Seconds())
}

// PageRequested records an earlier-history page request. exhausted is true when
// the source reported no more pages.
func (m *Metrics) PageRequested(exhausted bool) {
	if m == nil {
		return
	}
	result := "page"
	if exhausted {
		result = "exhausted"
	}
	m.historyPages.WithLabelValues(result).Inc()
}

// MediaOutcome records how a download ended.
func (m *Metrics) MediaOutcome(outcome string) {
	if m == nil {
		return
	}
	m.mediaOutcomes.WithLabelValues(outcome).Inc()
}

// MediaResolveAttempt records one remote resolution attempt.
func (m *Metrics) MediaResolveAttempt() {
	if m == nil {
		return
	}
	m.mediaAttempts.Inc()
}

// BridgeEvent records a published typed event.
func (m *Metrics) BridgeEvent(kind string) {
	if m == nil {
		return
	}
	m.bridgeEvents.WithLabelValues(kind).Inc()
}

// BridgeDropped records a dropped host event.
func (m *Metrics) BridgeDropped(reason string) {
	if m == nil {
		return
	}
	m.bridgeDropped.WithLabelValues(reason).Inc()
}

// Instrument wraps h so every evaluation is counted and timed.
func Instrument(h host.Host, m *Metrics) host.Host {
	if m == nil {
		return h
	}
	return &instrumented{Host: h, m: m}
}

type instrumented struct {
	host.Host
	m *Metrics
}

func (i *instrumented) Evaluate(ctx context.Context, q host.Query, args ...any) (json.RawMessage, error) {
	start := time.Now()
	res, err := i.Host.Evaluate(ctx, q, args...)
	i.m.HostCall(q, err, time.Since(start))
	return res, err
}
