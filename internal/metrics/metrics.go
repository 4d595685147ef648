// Package metrics exposes Prometheus instruments for the HTTP API and the
// quiz attempt lifecycle.
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "courseware"

type Metrics struct {
	RequestCounter     *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	RequestsInFlight   *prometheus.GaugeVec
	DBConnPoolStats    *prometheus.GaugeVec
	AttemptTransitions *prometheus.CounterVec
	AnswersGraded      *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the instruments on reg.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestCounter: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RequestsInFlight: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of requests currently being processed",
		}, []string{"method"}),
		DBConnPoolStats: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "connection_pool",
			Help:      "Database connection pool statistics",
		}, []string{"stat"}),
		AttemptTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quiz",
			Name:      "attempt_transitions_total",
			Help:      "Quiz attempts entering each state",
		}, []string{"status"}),
		AnswersGraded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quiz",
			Name:      "answers_graded_total",
			Help:      "Answers graded, by question type and verdict",
		}, []string{"type", "verdict"}),
		gatherer: reg,
	}
}

// AttemptTransition counts an attempt entering status.
func (m *Metrics) AttemptTransition(status string) {
	m.AttemptTransitions.WithLabelValues(status).Inc()
}

// AnswerGraded counts one graded answer. correct is nil for manual grading.
func (m *Metrics) AnswerGraded(questionType string, correct *bool) {
	verdict := "manual"
	if correct != nil {
		verdict = strconv.FormatBool(*correct)
	}
	m.AnswersGraded.WithLabelValues(questionType, verdict).Inc()
}

// Middleware records request count, latency and in-flight gauge keyed by the
// chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsInFlight.WithLabelValues(r.Method).Inc()
		defer m.RequestsInFlight.WithLabelValues(r.Method).Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		m.RequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}

// Handler serves the registry, refreshing pool gauges from db first.
func (m *Metrics) Handler(db *sql.DB) http.Handler {
	h := promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			m.observeDB(db.Stats())
		}
		h.ServeHTTP(w, r)
	})
}

func (m *Metrics) observeDB(s sql.DBStats) {
	m.DBConnPoolStats.WithLabelValues("open").Set(float64(s.OpenConnections))
	m.DBConnPoolStats.WithLabelValues("in_use").Set(float64(s.InUse))
	m.DBConnPoolStats.WithLabelValues("idle").Set(float64(s.Idle))
	m.DBConnPoolStats.WithLabelValues("wait_count").Set(float64(s.WaitCount))
}
