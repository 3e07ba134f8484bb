// Package metrics declares the prometheus collectors shared by the
// engine's components. Register must be called once at startup.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// UpstreamRequests counts outbound HTTP calls per upstream and outcome
	// (ok, rate_limited, upstream_error, unreachable).
	UpstreamRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_requests_total",
		Help: "Outbound upstream HTTP requests by outcome",
	}, []string{"upstream", "outcome"})

	// UpstreamRetries counts 429-triggered retry attempts per upstream.
	UpstreamRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_retries_total",
		Help: "Retry attempts after throttling responses",
	}, []string{"upstream"})

	// CacheLookups counts cache reads by category and result
	// (hit, expired, miss).
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "TTL cache lookups by result",
	}, []string{"category", "result"})
)

// Register registers all collectors with the default registry.
func Register() {
	prometheus.MustRegister(UpstreamRequests, UpstreamRetries, CacheLookups)
}
