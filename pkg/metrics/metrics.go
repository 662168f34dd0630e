package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — коллекторы оболочки. Регистрируются в реестре конкретного экземпляра,
// чтобы несколько оболочек в одном процессе (тесты) не конфликтовали.
// Методы безопасны для nil-получателя.
type Metrics struct {
	HealthChecks    *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	HTTPPools       prometheus.Gauge
	ExtensionEvents *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		HealthChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_healthchecks_total",
				Help: "Number of healthcheck requests by result",
			},
			[]string{"result"}, // good|bad
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_http_requests_total",
				Help: "Number of outbound pooled HTTP requests",
			},
			[]string{"origin", "method", "code"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shell_http_request_duration_seconds",
				Help:    "Duration of outbound pooled HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"origin", "method"},
		),
		HTTPPools: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "shell_http_pools",
				Help: "Number of live outbound HTTP pools",
			},
		),
		ExtensionEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_extension_events_total",
				Help: "Extension lifecycle transitions",
			},
			[]string{"extension", "event"}, // started|start_failed|stopped|stop_failed
		),
	}
}

// MustRegister — регистрирует все коллекторы в reg.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.HealthChecks, m.HTTPRequests, m.HTTPDuration, m.HTTPPools, m.ExtensionEvents)
}

// ObserveHealthCheck — результат одной проверки.
func (m *Metrics) ObserveHealthCheck(healthy bool) {
	if m == nil {
		return
	}
	result := "bad"
	if healthy {
		result = "good"
	}
	m.HealthChecks.WithLabelValues(result).Inc()
}

// ObserveRequest — исходящий запрос; code=0 означает транспортную ошибку.
func (m *Metrics) ObserveRequest(origin, method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	m.HTTPRequests.WithLabelValues(origin, method, label).Inc()
	m.HTTPDuration.WithLabelValues(origin, method).Observe(d.Seconds())
}

// SetPools — текущее число пулов.
func (m *Metrics) SetPools(n int) {
	if m == nil {
		return
	}
	m.HTTPPools.Set(float64(n))
}

// ObserveExtension — переход расширения в жизненном цикле.
func (m *Metrics) ObserveExtension(name, event string) {
	if m == nil {
		return
	}
	m.ExtensionEvents.WithLabelValues(name, event).Inc()
}
