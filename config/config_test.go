package config_test

import (
	"testing"
	"time"

	cfg "github.com/Gunvolt24/cnshell/config"
)

// TestLoadWithPrefix_Defaults — проверка наличия значений по умолчанию.
func TestLoadWithPrefix_Defaults(t *testing.T) {
	t.Parallel()

	c, err := cfg.LoadWithPrefix("CNA_TEST_DEFAULTS")
	if err != nil {
		t.Fatalf("LoadWithPrefix error: %v", err)
	}

	// HTTP
	if c.HTTP.GinMode != "release" || c.HTTP.ShutdownTimeout != 5*time.Second {
		t.Fatalf("HTTP defaults wrong: %+v", c.HTTP)
	}

	// Pool
	if c.Pool.MaxConnsPerHost != 0 || c.Pool.MaxIdleConnsPerHost != 10 {
		t.Fatalf("Pool conns defaults wrong: %+v", c.Pool)
	}
	if c.Pool.IdleConnTimeout != 90*time.Second || c.Pool.DialTimeout != 30*time.Second ||
		c.Pool.KeepAlive != 30*time.Second || c.Pool.TLSHandshakeTimeout != 10*time.Second ||
		c.Pool.ResponseHeaderTimeout != 0 {
		t.Fatalf("Pool timeouts defaults wrong: %+v", c.Pool)
	}

	// Metrics
	if c.Metrics.Addr != "" || c.Metrics.Path != "/metrics" {
		t.Fatalf("Metrics defaults wrong: %+v", c.Metrics)
	}

	// Tracing
	if c.Tracing.Enabled {
		t.Fatalf("Tracing.Enabled: want false, got true")
	}
	if c.Tracing.ServiceName != "cnshell" || c.Tracing.Endpoint != "localhost:4318" || c.Tracing.SampleRatio != 1 {
		t.Fatalf("Tracing defaults wrong: %+v", c.Tracing)
	}
}

// Меняем окружение.
func TestLoadWithPrefix_Overrides(t *testing.T) {
	const p = "CNA_TEST_OVR"

	// HTTP
	t.Setenv(p+"_HTTP_GIN_MODE", "debug")
	t.Setenv(p+"_HTTP_SHUTDOWN_TIMEOUT", "2s")

	// Pool
	t.Setenv(p+"_HTTP_POOL_MAX_CONNS_PER_HOST", "4")
	t.Setenv(p+"_HTTP_POOL_MAX_IDLE_CONNS_PER_HOST", "2")
	t.Setenv(p+"_HTTP_POOL_IDLE_CONN_TIMEOUT", "15s")
	t.Setenv(p+"_HTTP_POOL_DIAL_TIMEOUT", "1s")
	t.Setenv(p+"_HTTP_POOL_RESPONSE_HEADER_TIMEOUT", "4500ms")

	// Metrics
	t.Setenv(p+"_METRICS_ADDR", ":9998")
	t.Setenv(p+"_METRICS_PATH", "/prom")

	// Tracing
	t.Setenv(p+"_TRACING_OTEL_ENABLED", "true")
	t.Setenv(p+"_TRACING_OTEL_SERVICE_NAME", "svc")
	t.Setenv(p+"_TRACING_OTEL_ENDPOINT", "collector:4318")
	t.Setenv(p+"_TRACING_OTEL_SAMPLE_RATIO", "0.25")

	c, err := cfg.LoadWithPrefix(p)
	if err != nil {
		t.Fatalf("LoadWithPrefix error: %v", err)
	}

	// Проверки
	if c.HTTP.GinMode != "debug" || c.HTTP.ShutdownTimeout != 2*time.Second {
		t.Fatalf("HTTP overrides wrong: %+v", c.HTTP)
	}
	if c.Pool.MaxConnsPerHost != 4 || c.Pool.MaxIdleConnsPerHost != 2 ||
		c.Pool.IdleConnTimeout != 15*time.Second || c.Pool.DialTimeout != time.Second ||
		c.Pool.ResponseHeaderTimeout != 4500*time.Millisecond {
		t.Fatalf("Pool overrides wrong: %+v", c.Pool)
	}
	if c.Metrics.Addr != ":9998" || c.Metrics.Path != "/prom" {
		t.Fatalf("Metrics overrides wrong: %+v", c.Metrics)
	}
	if !c.Tracing.Enabled || c.Tracing.ServiceName != "svc" || c.Tracing.Endpoint != "collector:4318" || c.Tracing.SampleRatio != 0.25 {
		t.Fatalf("Tracing overrides wrong: %+v", c.Tracing)
	}
}

// Тоже меняем окружение — но с невалидным значением.
func TestLoadWithPrefix_InvalidValue_ReturnsError(t *testing.T) {
	const p = "CNA_TEST_BAD"
	t.Setenv(p+"_HTTP_POOL_DIAL_TIMEOUT", "not-a-duration")

	if _, err := cfg.LoadWithPrefix(p); err == nil {
		t.Fatalf("expected error for invalid duration, got nil")
	}
}
