// Package metric provides Prometheus metrics for ClubMesh.
package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clubmesh"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Token metrics
	TokensActive   prometheus.Gauge
	TokensIssued   prometheus.Counter
	TokensRevoked  prometheus.Counter
	TokensSwept    prometheus.Counter
	TokenValidates *prometheus.CounterVec

	// Relationship metrics
	FollowsActive  prometheus.Gauge
	FollowsCreated prometheus.Counter
	FollowsRemoved prometheus.Counter

	// Operation metrics
	OpDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with all ClubMesh metrics registered,
// plus the standard Go runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		TokensActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "active",
			Help:      "Number of live tokens in the cache.",
		}),
		TokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "issued_total",
			Help:      "Total number of tokens issued.",
		}),
		TokensRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "revoked_total",
			Help:      "Total number of tokens revoked.",
		}),
		TokensSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "swept_total",
			Help:      "Total number of expired tokens removed by sweeps.",
		}),
		TokenValidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "validate_total",
			Help:      "Token validation attempts by result.",
		}, []string{"result"}),

		FollowsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "follow",
			Name:      "active",
			Help:      "Number of active follow edges in the cache.",
		}),
		FollowsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "follow",
			Name:      "created_total",
			Help:      "Total number of follow edges created or reactivated.",
		}),
		FollowsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "follow",
			Name:      "removed_total",
			Help:      "Total number of follow edges deactivated.",
		}),

		OpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "op_duration_seconds",
			Help:      "Manager operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.TokensActive,
		r.TokensIssued,
		r.TokensRevoked,
		r.TokensSwept,
		r.TokenValidates,
		r.FollowsActive,
		r.FollowsCreated,
		r.FollowsRemoved,
		r.OpDuration,
	)

	return r
}

var (
	globalOnce     sync.Once
	globalRegistry *Registry
)

// Global returns the process-wide registry, creating it on first use.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// Handler returns an HTTP handler serving the global registry in
// Prometheus exposition format.
func Handler() http.Handler {
	r := Global()
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// HandlerFor returns an HTTP handler serving a specific registry.
func (r *Registry) HandlerFor() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
