// Package metrics exposes the gateway's Prometheus metrics. It plays the
// role aistore's p.statsT plays in ais/prxs3.go (AddMany(cos.NamedVal64{...})
// around every backend round trip) using the idiomatic Prometheus client
// directly, since aistore's own internal stats registry isn't part of the
// retrieval pack to adapt.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// RequestsTotal counts HTTP requests the gateway has served, by method
	// and outcome ("ok"/"error").
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_requests_total",
		Help: "HTTP requests served by the blob gateway.",
	}, []string{"method", "outcome"})

	// InflightRequests is the number of HTTP requests currently being
	// served (accepted, parsing or streaming a body).
	InflightRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_inflight_requests",
		Help: "HTTP requests currently in flight.",
	})

	// BackendRPCDuration observes the latency of a single backend RPC
	// (PUT/GET/RANGE/DELETE/LIST) against one target.
	BackendRPCDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_backend_rpc_duration_seconds",
		Help:    "Backend RPC latency by operation kind.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	// FragmentsTotal counts fragments produced/consumed/removed by the
	// blob pipeline, by operation kind ("put", "get", "delete").
	FragmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_fragments_total",
		Help: "Fragments handled by the blob pipeline.",
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(RequestsTotal, InflightRequests, BackendRPCDuration, FragmentsTotal)
}
