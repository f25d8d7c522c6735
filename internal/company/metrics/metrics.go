// Package metrics holds the Prometheus collectors of the company service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	e "github.com/gartstein/companyhub/internal/company/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "companyhub"

type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Membership engine
	InviteOperationsTotal *prometheus.CounterVec
	GuardDenialsTotal     prometheus.Counter

	// Scheduler
	RemindersSentTotal prometheus.Counter
	ReminderRunsTotal  *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		InviteOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invite_operations_total",
				Help:      "Invitation and membership operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		GuardDenialsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "guard_denials_total",
				Help:      "Role checks that denied the actor",
			},
		),
		RemindersSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invite_reminders_sent_total",
				Help:      "Reminder notifications created for pending invites",
			},
		),
		ReminderRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invite_reminder_runs_total",
				Help:      "Reminder job runs by status",
			},
			[]string{"status"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.InviteOperationsTotal,
		m.GuardDenialsTotal,
		m.RemindersSentTotal,
		m.ReminderRunsTotal,
	)
	return m
}

// RegisterDB exports connection pool statistics of db.
func (m *Metrics) RegisterDB(db *sql.DB, name string) {
	if m == nil {
		return
	}
	m.registry.MustRegister(collectors.NewDBStatsCollector(db, name))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Operation counts one engine operation. The outcome is "ok" or the code of
// the returned error.
func (m *Metrics) Operation(operation string, err error) {
	if m == nil {
		return
	}
	m.InviteOperationsTotal.WithLabelValues(operation, outcome(err)).Inc()
}

func (m *Metrics) Denied() {
	if m == nil {
		return
	}
	m.GuardDenialsTotal.Inc()
}

func (m *Metrics) ReminderRun(sent int, err error) {
	if m == nil {
		return
	}
	m.RemindersSentTotal.Add(float64(sent))
	if err != nil {
		m.ReminderRunsTotal.WithLabelValues("error").Inc()
		return
	}
	m.ReminderRunsTotal.WithLabelValues("ok").Inc()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var coded *e.Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return "internal"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument wraps next with request counting under the route label.
func (m *Metrics) Instrument(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
