package app_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gunvolt24/cnshell/config"
	"github.com/Gunvolt24/cnshell/internal/app"
	"github.com/Gunvolt24/cnshell/internal/probe"
	"github.com/Gunvolt24/cnshell/pkg/shell"
)

func testConfig(env map[string]string) shell.Config {
	return shell.Config{
		Name:    "demo",
		Args:    []string{"--log_level", "silent"},
		Runtime: &config.Config{},
		Testing: true,
		LookupEnv: func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		},
	}
}

func TestAppRun_GracefulShutdown(t *testing.T) {
	a, err := app.Bootstrap(context.Background(), testConfig(nil))
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	if ok, _ := a.HealthCheck(context.Background()); ok {
		t.Fatalf("app must be unhealthy before start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for a.Uptime() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if ok, _ := a.HealthCheck(context.Background()); !ok {
		t.Fatalf("app must be healthy after start")
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for Run to stop")
	}

	if a.Uptime() != 0 {
		t.Fatalf("uptime must reset after stop")
	}
	if state, _ := a.Shell.ExtensionState(probe.Name); state != shell.ExtStopped {
		t.Fatalf("probe must be stopped, got %s", state)
	}
}

func TestApp_RequireUpstream(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusServiceUnavailable)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	a, err := app.Bootstrap(context.Background(), testConfig(map[string]string{
		"CNA_REQUIRE_UPSTREAM": "y",
		"CNE_PROBE_ORIGIN":     srv.URL,
		"CNE_PROBE_INTERVAL":   "20",
	}))
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	defer func() { _ = a.Shell.Exit(context.Background(), 0) }()

	if err := a.Shell.Init(context.Background(), a); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if ok, _ := a.HealthCheck(context.Background()); ok {
		t.Fatalf("app must be unhealthy while upstream is down")
	}

	status.Store(http.StatusOK)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if ok, _ := a.HealthCheck(context.Background()); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("app did not become healthy after upstream recovered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBootstrap_InvalidConfig(t *testing.T) {
	cfg := testConfig(nil)
	cfg.Name = ""

	if _, err := app.Bootstrap(context.Background(), cfg); err == nil {
		t.Fatalf("empty name must fail")
	}

	cfg = testConfig(map[string]string{"CNA_REQUIRE_UPSTREAM": "y", "CNE_PROBE_INTERVAL": "oops"})
	a, err := app.Bootstrap(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	err = a.Shell.Init(context.Background(), a)
	if !errors.Is(err, shell.ErrExtensionStart) {
		t.Fatalf("want ErrExtensionStart, got %v", err)
	}
}
