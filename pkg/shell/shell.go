// Package shell — оболочка долгоживущего сетевого сервиса: конфигурация, логирование,
// пулы исходящих HTTP-соединений, healthcheck и упорядоченный старт/останов расширений.
package shell

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Gunvolt24/cnshell/config"
	"github.com/Gunvolt24/cnshell/pkg/configman"
	"github.com/Gunvolt24/cnshell/pkg/ctxmeta"
	"github.com/Gunvolt24/cnshell/pkg/httppool"
	"github.com/Gunvolt24/cnshell/pkg/logger"
	"github.com/Gunvolt24/cnshell/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type extEntry struct {
	ext   Extension
	state ExtState
}

// Shell — оркестратор процесса. Владеет расширениями, логгером, пулами и слушателями.
type Shell struct {
	name       string
	appVersion string
	testing    bool
	exitFn     func(int)

	resolver   *configman.Resolver
	log        logger.Logger
	logCleanup func() error
	http       HTTPConfig
	runtime    config.Config

	pools    *httppool.Manager
	metrics  *metrics.Metrics
	registry *prometheus.Registry

	mu            sync.Mutex
	exts          []*extEntry
	app           App
	appStarted    bool
	initialised   bool
	exited        bool
	listeners     []*listener
	stopSignals   func()
	traceShutdown func(context.Context) error

	exitOnce sync.Once
	exitErr  error
	done     chan struct{}
}

// New — создаёт оболочку: разрешает конфигурацию логгера, запускает логгер,
// затем разрешает HTTP/healthcheck-конфигурацию.
func New(cfg Config) (*Shell, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	resolver, err := configman.New(
		configman.WithArgs(cfg.Args),
		configman.WithLookupEnv(cfg.LookupEnv),
	)
	if err != nil {
		return nil, fmt.Errorf("config resolver: %w", err)
	}

	s := &Shell{
		name:        cfg.Name,
		appVersion:  cfg.AppVersion,
		testing:     cfg.Testing,
		exitFn:      cfg.Exit,
		resolver:    resolver,
		logCleanup:  func() error { return nil },
		stopSignals: func() {},
		done:        make(chan struct{}),
	}

	if err := s.setupLogger(cfg.Log); err != nil {
		return nil, err
	}

	fail := func(err error) (*Shell, error) {
		s.log.Stop()
		_ = s.logCleanup()
		return nil, err
	}

	if s.http, err = s.resolveHTTP(cfg.HTTP); err != nil {
		return fail(err)
	}

	if cfg.Runtime != nil {
		s.runtime = *cfg.Runtime
	} else if s.runtime, err = config.Load(); err != nil {
		return fail(fmt.Errorf("load runtime config: %w", err))
	}
	applyGinMode(s.runtime.HTTP.GinMode, s.log)

	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.metrics = metrics.New()
	s.metrics.MustRegister(s.registry)

	s.pools = httppool.NewManager(
		httppool.WithDefaults(poolOptions(s.runtime.Pool)),
		httppool.WithLogger(s.log, AppSource),
		httppool.WithMetrics(s.metrics),
	)

	s.Startupf("Shell created!")
	return s, nil
}

func (s *Shell) setupLogger(lc LogConfig) error {
	if lc.Logger != nil {
		s.log = lc.Logger
	} else {
		ts, err := s.ConfigBool(CfgLogTimestamp, configman.Options{Default: configman.Bool(lc.Timestamp)})
		if err != nil {
			return err
		}
		tsFormat, err := s.ConfigString(CfgLogTimestampFormat, configman.Options{Default: configman.Str(lc.TimestampFormat)})
		if err != nil {
			return err
		}

		zl, cleanup, err := logger.NewZapLogger(s.name, logger.Options{
			Level:           logger.LevelInfo,
			Timestamps:      ts,
			TimestampFormat: tsFormat,
		})
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		s.log, s.logCleanup = zl, cleanup
	}

	s.log.Start()
	s.resolver.SetLogger(s.log)

	name, err := s.ConfigString(CfgLogLevel, configman.Options{Default: configman.Str(lc.Level)})
	if err != nil {
		s.log.Stop()
		_ = s.logCleanup()
		return err
	}
	level, ok := logger.ParseLevel(name)
	s.log.SetLevel(level)
	if !ok {
		s.Warnf("LogLevel %s is unknown. Setting level to INFO.", name)
	}
	return nil
}

func (s *Shell) resolveHTTP(d HTTPConfig) (HTTPConfig, error) {
	var err error
	str := func(name, def string) string {
		if err != nil {
			return ""
		}
		var v string
		v, err = s.ConfigString(name, configman.Options{Default: configman.Str(def)})
		return v
	}
	num := func(name string, def int64) int64 {
		if err != nil {
			return 0
		}
		var v int64
		v, err = s.ConfigNumber(name, configman.Options{Default: configman.Num(def)})
		return v
	}
	boolean := func(name string, def bool) bool {
		if err != nil {
			return false
		}
		var v bool
		v, err = s.ConfigBool(name, configman.Options{Default: configman.Bool(def)})
		return v
	}

	h := HTTPConfig{
		HealthcheckInterface:  str(CfgHealthcheckInterface, d.HealthcheckInterface),
		HealthcheckPort:       int(num(CfgHealthcheckPort, int64(d.HealthcheckPort))),
		KeepAliveTimeout:      time.Duration(num(CfgHTTPKeepAliveTimeout, d.KeepAliveTimeout.Milliseconds())) * time.Millisecond,
		HeaderTimeout:         time.Duration(num(CfgHTTPHeaderTimeout, d.HeaderTimeout.Milliseconds())) * time.Millisecond,
		HealthcheckPath:       str(CfgHealthcheckPath, d.HealthcheckPath),
		HealthcheckGoodRes:    int(num(CfgHealthcheckGoodRes, int64(d.HealthcheckGoodRes))),
		HealthcheckBadRes:     int(num(CfgHealthcheckBadRes, int64(d.HealthcheckBadRes))),
		HealthcheckExtensions: boolean(CfgHealthcheckExtensions, d.HealthcheckExtensions),
	}
	if err != nil {
		return HTTPConfig{}, err
	}
	if err := h.validate(); err != nil {
		return HTTPConfig{}, err
	}
	return h, nil
}

func poolOptions(p config.Pool) httppool.PoolOptions {
	return httppool.PoolOptions{
		MaxConnsPerHost:       p.MaxConnsPerHost,
		MaxIdleConnsPerHost:   p.MaxIdleConnsPerHost,
		IdleConnTimeout:       p.IdleConnTimeout,
		DialTimeout:           p.DialTimeout,
		KeepAlive:             p.KeepAlive,
		TLSHandshakeTimeout:   p.TLSHandshakeTimeout,
		ResponseHeaderTimeout: p.ResponseHeaderTimeout,
	}
}

// Attach — подключает расширение. Порядок подключения — порядок старта.
func (s *Shell) Attach(ext Extension) error {
	if ext == nil {
		return errors.New("extension is nil")
	}
	name := ext.Name()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.exited:
		return ErrExited
	case s.initialised:
		return fmt.Errorf("%w: %s", ErrAttachAfterInit, name)
	}
	for _, e := range s.exts {
		if e.ext.Name() == name {
			return fmt.Errorf("%w: %s", ErrDuplicateExtension, name)
		}
	}

	s.exts = append(s.exts, &extEntry{ext: ext, state: ExtRegistered})
	s.Startupf("Adding extension %s", name)
	return nil
}

// Init — стартует расширения (в порядке подключения), затем приложение, затем
// healthcheck и обработчики SIGINT/SIGTERM. app == nil — хуки по умолчанию.
// Ошибка старта завершает оболочку: в режиме Testing мягко, иначе через Exit.
func (s *Shell) Init(ctx context.Context, app App) error {
	s.mu.Lock()
	switch {
	case s.exited:
		s.mu.Unlock()
		return ErrExited
	case s.initialised:
		s.mu.Unlock()
		return ErrAlreadyInitialised
	}
	s.initialised = true
	if app == nil {
		app = defaultApp{s}
	}
	s.app = app
	exts := slices.Clone(s.exts)
	s.mu.Unlock()

	s.Startupf("Initialising ...")
	s.Startupf("App Version (%s)", s.appVersion)
	s.Startupf("Go Version (%s)", runtime.Version())

	s.setupTracing(ctx)

	// расширения раньше приложения: приложению они могут понадобиться на старте
	for _, e := range exts {
		name := e.ext.Name()
		s.Startupf("Attempting to start extension %s ...", name)

		s.setState(e, ExtStarting)
		if err := e.ext.Start(ctxmeta.WithSource(ctx, name)); err != nil {
			s.setState(e, ExtFailedStart)
			s.metrics.ObserveExtension(name, "start_failed")
			s.Errorf("Extension %s failed to start: %v", name, err)
			return s.startupError(ctx, fmt.Errorf("%w: %s: %w", ErrExtensionStart, name, err))
		}
		if !s.commitStarted(e) {
			// Exit уже снял снимок состояний: это расширение останавливаем сами
			_ = s.stopExtension(ctx, e)
			return ErrExited
		}
		s.metrics.ObserveExtension(name, "started")
	}

	s.Startupf("Attempting to start the application ...")
	if err := app.Start(ctxmeta.WithSource(ctx, AppSource)); err != nil {
		s.Errorf("Application failed to start: %v", err)
		return s.startupError(ctx, fmt.Errorf("%w: %w", ErrAppStart, err))
	}
	s.mu.Lock()
	exited := s.exited
	s.appStarted = !exited
	s.mu.Unlock()
	if exited {
		if err := app.Stop(ctxmeta.WithSource(ctx, AppSource)); err != nil {
			s.Errorf("Application failed to stop: %v", err)
		}
		return ErrExited
	}

	// healthcheck только после старта приложения
	if err := s.setupHealthcheck(); err != nil {
		return s.listenerError(ctx, err)
	}
	if err := s.setupMetrics(); err != nil {
		return s.listenerError(ctx, err)
	}

	s.Startupf("Setting up event handler for SIGINT and SIGTERM")
	if err := s.handleSignals(); err != nil {
		return err
	}

	s.Startupf("Ready to Rock and Roll baby!")
	return nil
}

// listenerError — ErrExited возвращается как есть: оболочку уже остановил Exit.
func (s *Shell) listenerError(ctx context.Context, err error) error {
	if errors.Is(err, ErrExited) {
		return err
	}
	s.Errorf("%v", err)
	return s.startupError(ctx, err)
}

func (s *Shell) startupError(ctx context.Context, err error) error {
	s.Errorf("Houston, we have a problem. Shutting down now ...")
	_ = s.exit(context.WithoutCancel(ctx), 1, !s.testing)
	return err
}

// Run — Init, ожидание отмены ctx или выхода по сигналу, затем Exit(0).
func (s *Shell) Run(ctx context.Context, app App) error {
	if err := s.Init(ctx, app); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return s.Exit(context.WithoutCancel(ctx), 0)
	case <-s.done:
		return s.exitErr
	}
}

// Exit — закрывает слушатели, останавливает приложение, затем расширения в обратном
// порядке, уничтожает HTTP-пулы и останавливает логгер. Ошибки остановки логируются
// и не прерывают остальные шаги. Вне режима Testing завершает процесс с code.
// Повторные вызовы не повторяют остановку.
func (s *Shell) Exit(ctx context.Context, code int) error {
	return s.exit(ctx, code, !s.testing)
}

func (s *Shell) exit(ctx context.Context, code int, hard bool) error {
	s.exitOnce.Do(func() {
		s.exitErr = s.shutdown(ctx)
		close(s.done)
	})
	if hard {
		s.exitFn(code)
	}
	return s.exitErr
}

func (s *Shell) shutdown(ctx context.Context) error {
	s.Startupf("Exiting ...")

	s.mu.Lock()
	s.exited = true
	stopSignals := s.stopSignals
	listeners := slices.Clone(s.listeners)
	app, appStarted := s.app, s.appStarted
	exts := slices.Clone(s.exts)
	traceShutdown := s.traceShutdown
	s.mu.Unlock()

	stopSignals()

	var errs []error
	if err := s.closeListeners(ctx, listeners); err != nil {
		s.Errorf("%v", err)
		errs = append(errs, err)
	}

	// приложение останавливается раньше расширений
	if appStarted {
		s.Startupf("Attempting to stop the application ...")
		if err := app.Stop(ctxmeta.WithSource(ctx, AppSource)); err != nil {
			s.Errorf("Application failed to stop: %v", err)
			errs = append(errs, fmt.Errorf("stop application: %w", err))
		}
	}

	for _, e := range slices.Backward(exts) {
		if !s.beginStop(e) {
			continue
		}
		if err := s.stopExtension(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}

	s.pools.Close()

	if traceShutdown != nil {
		if err := traceShutdown(ctx); err != nil {
			s.Warnf("shutdown tracing: %v", err)
		}
	}

	s.Startupf("So long and thanks for all the fish!")

	s.log.Stop()
	_ = s.logCleanup()

	return errors.Join(errs...)
}

// Done — закрывается после завершения Exit.
func (s *Shell) Done() <-chan struct{} { return s.done }

func (s *Shell) setState(e *extEntry, st ExtState) {
	s.mu.Lock()
	e.state = st
	s.mu.Unlock()
}

// commitStarted — Starting → Started; если Exit уже начался — Stopping и false.
func (s *Shell) commitStarted(e *extEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exited {
		e.state = ExtStopping
		return false
	}
	e.state = ExtStarted
	return true
}

// beginStop — Started → Stopping; false для расширений в любом другом состоянии.
func (s *Shell) beginStop(e *extEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.state != ExtStarted {
		return false
	}
	e.state = ExtStopping
	return true
}

// stopExtension — Stop-хук расширения в состоянии Stopping; итог всегда Stopped.
func (s *Shell) stopExtension(ctx context.Context, e *extEntry) error {
	name := e.ext.Name()
	s.Startupf("Attempting to stop extension %s ...", name)

	err := e.ext.Stop(ctxmeta.WithSource(ctx, name))
	if err != nil {
		s.metrics.ObserveExtension(name, "stop_failed")
		s.Errorf("Extension %s failed to stop: %v", name, err)
		err = fmt.Errorf("stop extension %s: %w", name, err)
	} else {
		s.metrics.ObserveExtension(name, "stopped")
	}
	s.setState(e, ExtStopped)
	return err
}

// ExtensionState — состояние подключённого расширения.
func (s *Shell) ExtensionState(name string) (ExtState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.exts {
		if e.ext.Name() == name {
			return e.state, true
		}
	}
	return 0, false
}

// Extensions — имена расширений в порядке подключения.
func (s *Shell) Extensions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.exts))
	for _, e := range s.exts {
		out = append(out, e.ext.Name())
	}
	return out
}

func (s *Shell) Name() string                   { return s.name }
func (s *Shell) AppVersion() string             { return s.appVersion }
func (s *Shell) Logger() logger.Logger          { return s.log }
func (s *Shell) Resolver() *configman.Resolver  { return s.resolver }
func (s *Shell) Registry() *prometheus.Registry { return s.registry }
func (s *Shell) RuntimeConfig() config.Config   { return s.runtime }
func (s *Shell) HTTPSettings() HTTPConfig       { return s.http }
func (s *Shell) SetLevel(level logger.Level)    { s.log.SetLevel(level) }
func (s *Shell) HTTPPools() *httppool.Manager   { return s.pools }

// ConfigString — строковый ключ приложения; префикс по умолчанию CNA_.
func (s *Shell) ConfigString(name string, o configman.Options) (string, error) {
	return s.resolver.String(AppSource, name, withPrefix(o, AppEnvPrefix))
}

// ConfigBool — логический ключ приложения; префикс по умолчанию CNA_.
func (s *Shell) ConfigBool(name string, o configman.Options) (bool, error) {
	return s.resolver.Bool(AppSource, name, withPrefix(o, AppEnvPrefix))
}

// ConfigNumber — целый ключ приложения; префикс по умолчанию CNA_.
func (s *Shell) ConfigNumber(name string, o configman.Options) (int64, error) {
	return s.resolver.Number(AppSource, name, withPrefix(o, AppEnvPrefix))
}

func (s *Shell) Fatalf(format string, args ...any)   { s.log.Fatalf(AppSource, format, args...) }
func (s *Shell) Errorf(format string, args ...any)   { s.log.Errorf(AppSource, format, args...) }
func (s *Shell) Warnf(format string, args ...any)    { s.log.Warnf(AppSource, format, args...) }
func (s *Shell) Infof(format string, args ...any)    { s.log.Infof(AppSource, format, args...) }
func (s *Shell) Startupf(format string, args ...any) { s.log.Startupf(AppSource, format, args...) }
func (s *Shell) Debugf(format string, args ...any)   { s.log.Debugf(AppSource, format, args...) }
func (s *Shell) Tracef(format string, args ...any)   { s.log.Tracef(AppSource, format, args...) }
func (s *Shell) Forcef(format string, args ...any)   { s.log.Forcef(AppSource, format, args...) }

// CreateHTTPPool — пул для origin с явными параметрами; повторно — httppool.ErrDuplicatePool.
func (s *Shell) CreateHTTPPool(origin string, opts httppool.PoolOptions) error {
	return s.pools.CreatePool(origin, opts)
}

// HTTPRequest — запрос через пул origin; пул создаётся при первом обращении.
func (s *Shell) HTTPRequest(ctx context.Context, origin, path string, opts httppool.RequestOptions) (*httppool.Response, error) {
	return s.pools.Request(ctx, origin, path, opts)
}

// defaultApp — хуки приложения по умолчанию.
type defaultApp struct{ s *Shell }

func (a defaultApp) Start(context.Context) error {
	a.s.Startupf("Started!")
	return nil
}

func (a defaultApp) Stop(context.Context) error {
	a.s.Startupf("Stopped!")
	return nil
}

func (a defaultApp) HealthCheck(context.Context) (bool, error) {
	a.s.Debugf("Health check called")
	return true, nil
}
