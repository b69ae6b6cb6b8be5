// README: Prometheus collectors for pricing, quote workflow and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"convoyage/internal/modules/pricing"
)

const (
	metricPrefix = "convoyage_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	rateFetchTotal   *prometheus.CounterVec
	rateFetchLatency *prometheus.HistogramVec
	rateCacheSize    prometheus.Gauge
	rateResolutions  *prometheus.CounterVec

	distanceLookups *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	notifications   *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
)

// Init registers collectors once. db may be nil; when set, pool gauges are exported.
func Init(db *pgxpool.Pool) {
	registerOnce.Do(func() {
		rateFetchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rate_fetch_total",
				Help: "Total rate table fetches by result",
			},
			[]string{"result"},
		)
		rateFetchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "rate_fetch_latency_seconds",
				Help:    "Rate table fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		rateCacheSize = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "rate_cache_entries",
				Help: "Number of rates held by the last successful fetch",
			},
		)
		rateResolutions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rate_resolutions_total",
				Help: "Rate resolutions by customer type and answering level",
			},
			[]string{"customer_type", "source"},
		)

		distanceLookups = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "distance_lookups_total",
				Help: "Road distance lookups by outcome",
			},
			[]string{"outcome"},
		)
		submissions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "quote_submissions_total",
				Help: "Quote submissions by outcome",
			},
			[]string{"outcome"},
		)
		notifications = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Operator notifications by result",
			},
			[]string{"result"},
		)

		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)

		prometheus.MustRegister(
			rateFetchTotal,
			rateFetchLatency,
			rateCacheSize,
			rateResolutions,
			distanceLookups,
			submissions,
			notifications,
			httpRequests,
			httpLatency,
		)

		if db != nil {
			registerPoolMetrics(db)
		}
	})
}

func registerPoolMetrics(db *pgxpool.Pool) {
	prometheus.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: metricPrefix + "db_pool_total_conns",
			Help: "Total connections in the pgx pool",
		}, func() float64 { return float64(db.Stat().TotalConns()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: metricPrefix + "db_pool_idle_conns",
			Help: "Idle connections in the pgx pool",
		}, func() float64 { return float64(db.Stat().IdleConns()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: metricPrefix + "db_pool_acquired_conns",
			Help: "Acquired connections in the pgx pool",
		}, func() float64 { return float64(db.Stat().AcquiredConns()) }),
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// PricingObserver forwards rate cache events to Prometheus.
type PricingObserver struct{}

func (PricingObserver) RateFetch(err error, count int, elapsed time.Duration) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if rateFetchTotal != nil {
		rateFetchTotal.WithLabelValues(result).Inc()
	}
	if rateFetchLatency != nil {
		rateFetchLatency.WithLabelValues(result).Observe(elapsed.Seconds())
	}
	if err == nil && rateCacheSize != nil {
		rateCacheSize.Set(float64(count))
	}
}

func (PricingObserver) RateResolved(customerType pricing.CustomerType, source pricing.Source) {
	if rateResolutions != nil {
		rateResolutions.WithLabelValues(string(customerType), string(source)).Inc()
	}
}

// Distance lookup outcomes.
const (
	DistanceFound    = "found"
	DistanceNotFound = "not_found"
	DistanceError    = "error"
	DistanceStale    = "stale"
)

// IncDistanceLookup counts a finished distance lookup.
func IncDistanceLookup(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if distanceLookups != nil {
		distanceLookups.WithLabelValues(outcome).Inc()
	}
}

// Submission outcomes.
const (
	SubmissionStored   = "stored"
	SubmissionRejected = "rejected"
	SubmissionFailed   = "failed"
)

func IncSubmission(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if submissions != nil {
		submissions.WithLabelValues(outcome).Inc()
	}
}

func IncNotification(err error) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if notifications != nil {
		notifications.WithLabelValues(result).Inc()
	}
}

// ObserveHTTP records one served request. route is the matched pattern, not the raw path.
func ObserveHTTP(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
	}
}
