package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_requests_total",
			Help: "Total API requests",
		}, []string{"code"},
	)
	Latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tracker_request_duration_seconds",
		Help:    "Request latency seconds",
		Buckets: prometheus.DefBuckets,
	})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_in_flight",
		Help: "In-flight HTTP requests",
	})

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_process_runs_total",
			Help: "Snapshot processing runs by outcome",
		}, []string{"outcome"},
	)
	RowsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_snapshot_rows_skipped_total",
		Help: "Snapshot rows dropped during normalization",
	})
	IdentityCollisions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_identity_collisions_total",
		Help: "Duplicate campaign identities within one snapshot",
	})
	ChangeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_change_events_total",
			Help: "Changelog events emitted by type",
		}, []string{"type"},
	)
	BannerActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_banner_actions_total",
			Help: "Banner actions resolved by action",
		}, []string{"action"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal, Latency, InFlight,
		RunsTotal, RowsSkipped, IdentityCollisions, ChangeEvents, BannerActions,
	)
}

func MetricsHandler() http.Handler { return promhttp.Handler() }

type rec struct {
	http.ResponseWriter
	code int
}

func (r *rec) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func Measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		InFlight.Inc()
		defer InFlight.Dec()

		rr := &rec{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rr, r)

		Latency.Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(strconv.Itoa(rr.code)).Inc()
	})
}
