// Package configman — разрешение именованных значений конфигурации из трёх слоёв:
// командная строка (--name), переменная окружения (<PREFIX><NAME>) и значение
// по умолчанию. Значения не кешируются, каждый вызов разрешается заново.
package configman

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/Gunvolt24/cnshell/pkg/logger"
	"github.com/joho/godotenv"
)

// DotenvPath — ключ пути к .env файлу, читается один раз при создании Resolver.
const DotenvPath = "DOTENV_PATH"

const redacted = "redacted"

// Layer — слой, из которого получено значение.
type Layer int

const (
	LayerNone Layer = iota
	LayerCLI
	LayerEnv
	LayerDefault
)

func (l Layer) String() string {
	switch l {
	case LayerCLI:
		return "cli"
	case LayerEnv:
		return "env"
	case LayerDefault:
		return "default"
	default:
		return "none"
	}
}

// Options — параметры одного запроса значения.
type Options struct {
	Default      Value  // nil — значения по умолчанию нет
	Required     bool   // без значения во всех слоях — ErrMissingRequiredConfig
	Redact       bool   // в логе вместо значения пишется "redacted"
	Silent       bool   // не логировать разрешение
	EnvVarPrefix string // префикс имени переменной окружения
}

// Resolution — результат разрешения с указанием слоя.
type Resolution struct {
	Name  string
	Key   string // флаг или переменная окружения, давшие значение
	Layer Layer
	Value Value
}

// Resolver — разрешает значения конфигурации.
type Resolver struct {
	args      []string
	lookupEnv func(string) (string, bool)

	mu  sync.RWMutex
	log logger.Logger
}

// Option — настройка Resolver.
type Option func(*Resolver)

// WithArgs — аргументы командной строки без имени программы.
func WithArgs(args []string) Option {
	return func(r *Resolver) { r.args = args }
}

// WithLookupEnv — источник переменных окружения (по умолчанию os.LookupEnv).
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(r *Resolver) { r.lookupEnv = fn }
}

// WithLogger — логгер для трассировки разрешения.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// New — конструктор. Если задан DOTENV_PATH, загружает файл в окружение
// процесса, не перезаписывая уже заданные переменные.
func New(opts ...Option) (*Resolver, error) {
	r := &Resolver{
		args:      os.Args[1:],
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(r)
	}

	path, err := r.String("", DotenvPath, Options{Default: Str(""), Silent: true})
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("load dotenv %s: %w", path, err)
		}
	}

	return r, nil
}

// SetLogger — подключает логгер после его создания.
func (r *Resolver) SetLogger(l logger.Logger) {
	r.mu.Lock()
	r.log = l
	r.mu.Unlock()
}

// Get — разрешает значение name типа kind.
func (r *Resolver) Get(source, name string, kind Kind, o Options) (Value, error) {
	res, err := r.Lookup(source, name, kind, o)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// Lookup — как Get, но возвращает ещё и слой, давший значение.
// Порядок: CLI, окружение, значение по умолчанию.
func (r *Resolver) Lookup(source, name string, kind Kind, o Options) (Resolution, error) {
	if name == "" {
		return Resolution{}, fmt.Errorf("config name is empty: %w", ErrMissingRequiredConfig)
	}

	flag := strings.ToLower(name)
	if v, ok := r.cliValue(flag); ok {
		r.trace(source, o, "CLI parameter (%s) = (%v)", flag, v)

		cv, ok := fromCLI(v, kind)
		if !ok {
			return Resolution{}, &Error{Name: name, Kind: kind, Layer: LayerCLI, Err: ErrInvalidConfigType}
		}
		return Resolution{Name: name, Key: "--" + flag, Layer: LayerCLI, Value: cv}, nil
	}

	evar := o.EnvVarPrefix + strings.ToUpper(name)
	if raw, ok := r.lookupEnv(evar); ok {
		v, ok := fromEnv(raw, kind)
		if !ok {
			return Resolution{}, &Error{Name: name, Kind: kind, Layer: LayerEnv, Err: ErrInvalidConfigType}
		}
		r.trace(source, o, "Env var (%s) = (%v)", evar, v)
		return Resolution{Name: name, Key: evar, Layer: LayerEnv, Value: v}, nil
	}

	if o.Default != nil {
		if o.Default.Kind() != kind {
			return Resolution{}, &Error{Name: name, Kind: kind, Layer: LayerDefault, Err: ErrInvalidConfigType}
		}
		r.trace(source, o, "Default value used for (%s) = (%v)", name, o.Default)
		return Resolution{Name: name, Layer: LayerDefault, Value: o.Default}, nil
	}

	if o.Required {
		return Resolution{}, &Error{Name: name, Kind: kind, Layer: LayerNone, Err: ErrMissingRequiredConfig}
	}

	r.trace(source, o, "Config (%s) not set, using zero value (%v)", name, zero(kind))
	return Resolution{Name: name, Layer: LayerNone, Value: zero(kind)}, nil
}

// String — разрешает строковое значение.
func (r *Resolver) String(source, name string, o Options) (string, error) {
	v, err := r.Get(source, name, KindString, o)
	if err != nil {
		return "", err
	}
	return string(v.(Str)), nil
}

// Bool — разрешает логическое значение.
func (r *Resolver) Bool(source, name string, o Options) (bool, error) {
	v, err := r.Get(source, name, KindBool, o)
	if err != nil {
		return false, err
	}
	return bool(v.(Bool)), nil
}

// Number — разрешает целое значение.
func (r *Resolver) Number(source, name string, o Options) (int64, error) {
	v, err := r.Get(source, name, KindNumber, o)
	if err != nil {
		return 0, err
	}
	return int64(v.(Num)), nil
}

// trace — строка STARTUP о разрешённом значении; молчит, пока логгер не запущен.
func (r *Resolver) trace(source string, o Options, format string, key string, v any) {
	if o.Silent {
		return
	}

	r.mu.RLock()
	l := r.log
	r.mu.RUnlock()

	if l == nil || !l.Started() {
		return
	}
	if o.Redact {
		v = redacted
	}
	l.Startupf(source, format, key, v)
}
