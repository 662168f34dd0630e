package metrics_test

import (
	"testing"
	"time"

	"github.com/Gunvolt24/cnshell/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMustRegister_PerRegistry(t *testing.T) {
	// Два набора в разных реестрах не конфликтуют.
	metrics.New().MustRegister(prometheus.NewRegistry())
	metrics.New().MustRegister(prometheus.NewRegistry())
}

func TestObserveHealthCheck(t *testing.T) {
	m := metrics.New()

	m.ObserveHealthCheck(true)
	m.ObserveHealthCheck(true)
	m.ObserveHealthCheck(false)

	if got := testutil.ToFloat64(m.HealthChecks.WithLabelValues("good")); got != 2 {
		t.Fatalf("good: got=%v want=2", got)
	}
	if got := testutil.ToFloat64(m.HealthChecks.WithLabelValues("bad")); got != 1 {
		t.Fatalf("bad: got=%v want=1", got)
	}
}

func TestObserveRequest_Labels(t *testing.T) {
	m := metrics.New()

	m.ObserveRequest("http://a:80", "GET", 200, time.Millisecond)
	m.ObserveRequest("http://a:80", "GET", 0, time.Millisecond)

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("http://a:80", "GET", "200")); got != 1 {
		t.Fatalf("200: got=%v want=1", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("http://a:80", "GET", "error")); got != 1 {
		t.Fatalf("error: got=%v want=1", got)
	}
}

func TestSetPools_And_Extensions(t *testing.T) {
	m := metrics.New()

	m.SetPools(3)
	if got := testutil.ToFloat64(m.HTTPPools); got != 3 {
		t.Fatalf("pools: got=%v want=3", got)
	}

	m.ObserveExtension("jira", "started")
	if got := testutil.ToFloat64(m.ExtensionEvents.WithLabelValues("jira", "started")); got != 1 {
		t.Fatalf("extension events: got=%v want=1", got)
	}
}

func TestNilMetrics_NoPanic(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveHealthCheck(true)
	m.ObserveRequest("o", "GET", 200, time.Second)
	m.SetPools(1)
	m.ObserveExtension("x", "started")
}
