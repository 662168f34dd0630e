package shell

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	rest "github.com/Gunvolt24/cnshell/internal/transport/http"
	"github.com/Gunvolt24/cnshell/pkg/ctxmeta"
	"github.com/Gunvolt24/cnshell/pkg/logger"
	"github.com/Gunvolt24/cnshell/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const (
	listenerHealthcheck = "healthcheck"
	listenerMetrics     = "metrics"

	defaultShutdownTimeout = 5 * time.Second
)

type listener struct {
	name string
	srv  *http.Server
	addr net.Addr
}

// setupHealthcheck — слушатель healthcheck на первом IPv4 интерфейса.
// Пустой интерфейс — endpoint выключен.
func (s *Shell) setupHealthcheck() error {
	iface := s.http.HealthcheckInterface
	if iface == "" {
		s.Startupf("No HTTP interface specified for healthcheck endpoint - healthcheck disabled!")
		return nil
	}

	s.Startupf("Initialising healthcheck HTTP endpoint ...")
	s.Startupf("Finding IP for interface (%s)", iface)

	ip, err := interfaceIPv4(iface)
	if err != nil {
		return err
	}
	s.Startupf("Found IP (%s) for interface %s", ip, iface)

	addr := net.JoinHostPort(ip.String(), strconv.Itoa(s.http.HealthcheckPort))
	s.Startupf("Attempting to listen on (http://%s)", addr)

	otelServiceName := ""
	if s.traceShutdown != nil {
		otelServiceName = s.runtime.Tracing.ServiceName
	}

	router := rest.NewHealthRouter(rest.HealthOptions{
		Path:            s.http.HealthcheckPath,
		GoodStatus:      s.http.HealthcheckGoodRes,
		BadStatus:       s.http.HealthcheckBadRes,
		Check:           s.healthCheck,
		Log:             s.log,
		Source:          AppSource,
		Metrics:         s.metrics,
		OtelServiceName: otelServiceName,
	})

	// keep-alive больше таймаутов балансировщиков; чтение заголовков дольше keep-alive
	srv := &http.Server{
		Handler:           router,
		IdleTimeout:       s.http.KeepAliveTimeout,
		ReadHeaderTimeout: s.http.HeaderTimeout,
	}

	bound, err := s.serve(listenerHealthcheck, srv, addr)
	if err != nil {
		return err
	}

	s.Startupf("Now listening on (http://%s). Healthcheck endpoint enabled!", bound)
	return nil
}

// setupMetrics — слушатель /metrics, если задан CNA_METRICS_ADDR.
func (s *Shell) setupMetrics() error {
	addr := s.runtime.Metrics.Addr
	if addr == "" {
		return nil
	}

	path := s.runtime.Metrics.Path
	if path == "" {
		path = "/metrics"
	}

	srv := &http.Server{
		Handler:           rest.NewMetricsRouter(s.registry, path),
		IdleTimeout:       s.http.KeepAliveTimeout,
		ReadHeaderTimeout: s.http.HeaderTimeout,
	}

	bound, err := s.serve(listenerMetrics, srv, addr)
	if err != nil {
		return err
	}

	s.Startupf("Metrics endpoint listening on (http://%s%s)", bound, path)
	return nil
}

// serve — синхронный bind и обслуживание в отдельной горутине.
func (s *Shell) serve(name string, srv *http.Server, addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s on %s: %w", name, addr, err)
	}

	s.mu.Lock()
	if s.exited {
		s.mu.Unlock()
		_ = ln.Close()
		return nil, ErrExited
	}
	s.listeners = append(s.listeners, &listener{name: name, srv: srv, addr: ln.Addr()})
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Errorf("%s listener stopped: %v", name, err)
		}
	}()

	return ln.Addr(), nil
}

// closeListeners — параллельная остановка слушателей с таймаутом.
func (s *Shell) closeListeners(ctx context.Context, ls []*listener) error {
	if len(ls) == 0 {
		return nil
	}

	timeout := s.runtime.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for _, l := range ls {
		g.Go(func() error {
			s.Startupf("Closing %s endpoint port now ...", l.name)
			if err := l.srv.Shutdown(gctx); err != nil {
				return fmt.Errorf("close %s listener: %w", l.name, err)
			}
			s.Startupf("Port closed (%s)", l.addr)
			return nil
		})
	}
	return g.Wait()
}

// HealthcheckAddr — адрес слушателя healthcheck; nil, если выключен.
func (s *Shell) HealthcheckAddr() net.Addr { return s.listenerAddr(listenerHealthcheck) }

// MetricsAddr — адрес слушателя метрик; nil, если выключен.
func (s *Shell) MetricsAddr() net.Addr { return s.listenerAddr(listenerMetrics) }

func (s *Shell) listenerAddr(name string) net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.listeners {
		if l.name == name {
			return l.addr
		}
	}
	return nil
}

// healthCheck — хук приложения и, при HTTP_HEALTHCHECK_EXTENSIONS, хуки запущенных расширений.
// Ошибка хука логируется и означает «нездоров».
func (s *Shell) healthCheck(ctx context.Context) bool {
	s.mu.Lock()
	app := s.app
	var exts []Extension
	if s.http.HealthcheckExtensions {
		for _, e := range s.exts {
			if e.state == ExtStarted {
				exts = append(exts, e.ext)
			}
		}
	}
	s.mu.Unlock()

	if app == nil {
		return false
	}

	appCtx := ctxmeta.WithSource(ctx, AppSource)
	healthy, err := app.HealthCheck(appCtx)
	if err != nil {
		s.Errorf("Health check failed (%s): %v", ctxmeta.LogPrefix(appCtx), err)
		return false
	}
	if !healthy {
		return false
	}

	for _, ext := range exts {
		extCtx := ctxmeta.WithSource(ctx, ext.Name())
		ok, err := ext.HealthCheck(extCtx)
		if err != nil {
			s.log.Errorf(ext.Name(), "Health check failed (%s): %v", ctxmeta.LogPrefix(extCtx), err)
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}

// interfaceIPv4 — первый IPv4-адрес сетевого интерфейса name.
func interfaceIPv4(name string) (net.IP, error) {
	ifc, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not an interface on this server", ErrUnknownInterface, name)
	}

	addrs, err := ifc.Addrs()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnknownInterface, name, err)
	}

	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
	}
	return nil, fmt.Errorf("%w: %s has no IPv4 address", ErrUnknownInterface, name)
}

// handleSignals — SIGINT и SIGTERM запускают Exit(0); в режиме Testing выход мягкий.
func (s *Shell) handleSignals() error {
	ch := make(chan os.Signal, 1)

	s.mu.Lock()
	if s.exited {
		s.mu.Unlock()
		return ErrExited
	}
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s.stopSignals = func() { signal.Stop(ch) }
	s.mu.Unlock()

	go func() {
		select {
		case sig := <-ch:
			s.Startupf("Received %s", sig)
			_ = s.exit(context.Background(), 0, !s.testing)
		case <-s.done:
		}
	}()
	return nil
}

// setupTracing — OTel-трейсинг, если включён в runtime-конфигурации.
func (s *Shell) setupTracing(ctx context.Context) {
	tc := s.runtime.Tracing
	if !tc.Enabled {
		return
	}

	shutdown, err := telemetry.SetupTracing(ctx, tc, s.appVersion, s.log, AppSource)
	if err != nil {
		s.Warnf("failed to setup tracing: %v", err)
		return
	}
	s.Startupf("otel tracing enabled service=%s endpoint=%s sample=%.2f", tc.ServiceName, tc.Endpoint, tc.SampleRatio)

	s.mu.Lock()
	s.traceShutdown = shutdown
	s.mu.Unlock()
}

// applyGinMode — режим Gin по строке; неизвестное значение → release и предупреждение.
func applyGinMode(mode string, log logger.Logger) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	case "debug":
		gin.SetMode(gin.DebugMode)
	default:
		gin.SetMode(gin.ReleaseMode)
		log.Warnf(AppSource, "unknown GIN_MODE=%q, fallback to release", mode)
	}
}
