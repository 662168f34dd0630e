package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Gunvolt24/cnshell/internal/probe"
	"github.com/Gunvolt24/cnshell/pkg/configman"
	"github.com/Gunvolt24/cnshell/pkg/shell"
)

// CfgRequireUpstream — приложение нездорово, пока нездоров upstream расширения Probe.
const CfgRequireUpstream = "REQUIRE_UPSTREAM"

// App — демонстрационный сервис: хуки приложения поверх оболочки.
type App struct {
	Shell *shell.Shell
	Probe *probe.Probe

	requireUpstream bool
	startedAt       atomic.Int64 // unix nano; 0 — не запущено
}

// Bootstrap — создаёт оболочку, подключает расширения и возвращает приложение.
// При ошибке оболочка (если создана) завершается.
func Bootstrap(ctx context.Context, cfg shell.Config) (*App, error) {
	sh, err := shell.New(cfg)
	if err != nil {
		return nil, err
	}

	p, err := probe.New(sh)
	if err != nil {
		_ = sh.Exit(context.WithoutCancel(ctx), 1)
		return nil, err
	}

	return &App{Shell: sh, Probe: p}, nil
}

// Run — запускает оболочку с хуками App и ждёт отмены контекста или сигнала.
func (a *App) Run(ctx context.Context) error {
	return a.Shell.Run(ctx, a)
}

// Start — хук старта приложения.
func (a *App) Start(context.Context) error {
	require, err := a.Shell.ConfigBool(CfgRequireUpstream, configman.Options{})
	if err != nil {
		return err
	}
	a.requireUpstream = require

	a.startedAt.Store(time.Now().UnixNano())
	a.Shell.Infof("%s started (version %s, require upstream %t)", a.Shell.Name(), a.Shell.AppVersion(), require)
	return nil
}

// Stop — хук остановки приложения.
func (a *App) Stop(context.Context) error {
	a.Shell.Infof("%s stopped after %s", a.Shell.Name(), a.Uptime().Round(time.Millisecond))
	a.startedAt.Store(0)
	return nil
}

// HealthCheck — здоров после старта; при REQUIRE_UPSTREAM ещё и upstream.
func (a *App) HealthCheck(ctx context.Context) (bool, error) {
	if a.startedAt.Load() == 0 {
		return false, nil
	}
	if !a.requireUpstream {
		return true, nil
	}
	return a.Probe.HealthCheck(ctx)
}

// Uptime — время с момента старта; 0, если не запущено.
func (a *App) Uptime() time.Duration {
	ns := a.startedAt.Load()
	if ns == 0 {
		return 0
	}
	return time.Since(time.Unix(0, ns))
}
