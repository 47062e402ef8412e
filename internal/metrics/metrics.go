package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	hydrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kds_hydrations_total",
			Help: "Display hydrations by the source that produced the result",
		},
		[]string{"source"},
	)

	linkOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kds_link_operations_total",
			Help: "Link, unlink and queue creation operations by outcome",
		},
		[]string{"operation", "status"},
	)

	confirmAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kds_queue_confirm_attempts",
			Help:    "Reloads needed to confirm the identity of a newly created queue",
			Buckets: prometheus.LinearBuckets(0, 1, 5),
		},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kds_http_requests_total",
			Help: "HTTP requests served by route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kds_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	prefetchedLinks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kds_prefetched_links",
			Help: "Relation rows held in the latest prefetch snapshot",
		},
	)
)

// TrackHydration counts a hydration by source.
func TrackHydration(source string) {
	hydrations.WithLabelValues(source).Inc()
}

// TrackOperation counts a link/unlink/create outcome.
func TrackOperation(operation, status string) {
	linkOperations.WithLabelValues(operation, status).Inc()
}

// ObserveConfirmAttempts records how many reloads a queue confirmation took.
func ObserveConfirmAttempts(n int) {
	confirmAttempts.Observe(float64(n))
}

// SetPrefetchedLinks records the size of the prefetch snapshot.
func SetPrefetchedLinks(n int) {
	prefetchedLinks.Set(float64(n))
}

// ObserveRequest records one served HTTP request.
func ObserveRequest(method, route string, status int, seconds float64) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(seconds)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
