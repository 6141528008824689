package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "medassist"

// ClinicMetrics exposes counters and histograms for the booking assistant.
// A nil *ClinicMetrics is valid and records nothing.
type ClinicMetrics struct {
	gatewayTotal     *prometheus.CounterVec
	gatewayLatency   *prometheus.HistogramVec
	submissionsTotal *prometheus.CounterVec
	directoryLoads   *prometheus.CounterVec
	directorySize    prometheus.Gauge
	activeSessions   *prometheus.GaugeVec
	httpTotal        *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	eventsTotal      *prometheus.CounterVec
}

func NewClinicMetrics(reg prometheus.Registerer) *ClinicMetrics {
	m := &ClinicMetrics{
		gatewayTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Calls to the clinic backend by operation and outcome",
		}, []string{"operation", "outcome"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Latency of calls to the clinic backend",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Booking submissions by outcome",
		}, []string{"outcome"}),
		directoryLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "loads_total",
			Help:      "Doctor directory loads by outcome",
		}, []string{"outcome"}),
		directorySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "doctors",
			Help:      "Doctors currently held in the directory cache",
		}),
		activeSessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Live sessions by kind",
		}, []string{"kind"}),
		httpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of served HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Booking events handed to the broker",
		}, []string{"event_type", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.gatewayTotal,
		m.gatewayLatency,
		m.submissionsTotal,
		m.directoryLoads,
		m.directorySize,
		m.activeSessions,
		m.httpTotal,
		m.httpLatency,
		m.eventsTotal,
	)
	return m
}

func (m *ClinicMetrics) ObserveGatewayCall(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.gatewayTotal.WithLabelValues(operation, outcome).Inc()
	m.gatewayLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *ClinicMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *ClinicMetrics) ObserveDirectoryLoad(outcome string, doctors int) {
	if m == nil {
		return
	}
	m.directoryLoads.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		m.directorySize.Set(float64(doctors))
	}
}

func (m *ClinicMetrics) SetActiveSessions(kind string, n int) {
	if m == nil {
		return
	}
	m.activeSessions.WithLabelValues(kind).Set(float64(n))
}

func (m *ClinicMetrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *ClinicMetrics) ObserveEvent(eventType string, err error) {
	if m == nil {
		return
	}
	status := OutcomeSuccess
	if err != nil {
		status = OutcomeError
	}
	m.eventsTotal.WithLabelValues(eventType, status).Inc()
}

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)
