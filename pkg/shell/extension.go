package shell

import (
	"context"

	"github.com/Gunvolt24/cnshell/pkg/configman"
	"github.com/Gunvolt24/cnshell/pkg/httppool"
)

// App — хуки жизненного цикла приложения.
type App interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	HealthCheck(ctx context.Context) (bool, error)
}

// Extension — подключаемый компонент со своими хуками жизненного цикла.
// Стартует до приложения в порядке подключения, останавливается после него в обратном.
type Extension interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	HealthCheck(ctx context.Context) (bool, error)
}

// ExtState — состояние расширения.
type ExtState int

const (
	ExtRegistered ExtState = iota
	ExtStarting
	ExtStarted
	ExtFailedStart
	ExtStopping
	ExtStopped
)

func (s ExtState) String() string {
	switch s {
	case ExtRegistered:
		return "registered"
	case ExtStarting:
		return "starting"
	case ExtStarted:
		return "started"
	case ExtFailedStart:
		return "failed_start"
	case ExtStopping:
		return "stopping"
	case ExtStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Ext — основа для расширений: имя, ссылка на оболочку (не владеющая),
// конфигурация с префиксом CNE_, логирование от имени расширения, HTTP-пулы
// и хуки по умолчанию. Встраивается в тип расширения, хуки переопределяются.
//
//	type Jira struct{ *shell.Ext }
//
//	func NewJira(sh *shell.Shell) (*Jira, error) {
//		j := &Jira{Ext: shell.NewExt(sh, "Jira")}
//		return j, sh.Attach(j)
//	}
type Ext struct {
	name string
	sh   *Shell
}

// NewExt — основа расширения name. Подключение к оболочке — Shell.Attach.
func NewExt(sh *Shell, name string) *Ext {
	e := &Ext{name: name, sh: sh}
	e.Startupf("Initialising ...")
	return e
}

func (e *Ext) Name() string  { return e.name }
func (e *Ext) Shell() *Shell { return e.sh }

// Start — хук по умолчанию.
func (e *Ext) Start(context.Context) error {
	e.Startupf("Started!")
	return nil
}

// Stop — хук по умолчанию.
func (e *Ext) Stop(context.Context) error {
	e.Startupf("Stopped!")
	return nil
}

// HealthCheck — хук по умолчанию: здоров.
func (e *Ext) HealthCheck(context.Context) (bool, error) {
	e.Debugf("Health check called")
	return true, nil
}

// ConfigString — строковый ключ; префикс по умолчанию CNE_.
func (e *Ext) ConfigString(name string, o configman.Options) (string, error) {
	return e.sh.resolver.String(e.name, name, withPrefix(o, ExtEnvPrefix))
}

// ConfigBool — логический ключ; префикс по умолчанию CNE_.
func (e *Ext) ConfigBool(name string, o configman.Options) (bool, error) {
	return e.sh.resolver.Bool(e.name, name, withPrefix(o, ExtEnvPrefix))
}

// ConfigNumber — целый ключ; префикс по умолчанию CNE_.
func (e *Ext) ConfigNumber(name string, o configman.Options) (int64, error) {
	return e.sh.resolver.Number(e.name, name, withPrefix(o, ExtEnvPrefix))
}

func (e *Ext) Fatalf(format string, args ...any)   { e.sh.log.Fatalf(e.name, format, args...) }
func (e *Ext) Errorf(format string, args ...any)   { e.sh.log.Errorf(e.name, format, args...) }
func (e *Ext) Warnf(format string, args ...any)    { e.sh.log.Warnf(e.name, format, args...) }
func (e *Ext) Infof(format string, args ...any)    { e.sh.log.Infof(e.name, format, args...) }
func (e *Ext) Startupf(format string, args ...any) { e.sh.log.Startupf(e.name, format, args...) }
func (e *Ext) Debugf(format string, args ...any)   { e.sh.log.Debugf(e.name, format, args...) }
func (e *Ext) Tracef(format string, args ...any)   { e.sh.log.Tracef(e.name, format, args...) }
func (e *Ext) Forcef(format string, args ...any)   { e.sh.log.Forcef(e.name, format, args...) }

// CreateHTTPPool — см. Shell.CreateHTTPPool.
func (e *Ext) CreateHTTPPool(origin string, opts httppool.PoolOptions) error {
	return e.sh.CreateHTTPPool(origin, opts)
}

// HTTPRequest — см. Shell.HTTPRequest.
func (e *Ext) HTTPRequest(ctx context.Context, origin, path string, opts httppool.RequestOptions) (*httppool.Response, error) {
	return e.sh.HTTPRequest(ctx, origin, path, opts)
}

func withPrefix(o configman.Options, prefix string) configman.Options {
	if o.EnvVarPrefix == "" {
		o.EnvVarPrefix = prefix
	}
	return o
}
