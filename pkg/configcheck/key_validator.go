package configcheck

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/Gunvolt24/cnshell/pkg/configman"
)

// ErrInvalidKey — базовая (sentinel error) ошибка описания ключа.
var ErrInvalidKey = errors.New("key spec validation failed")

// KeySpec — описание ключа конфигурации в манифесте.
type KeySpec struct {
	Name     string  `json:"name"`
	Kind     string  `json:"kind,omitempty"`   // string|bool|number, пусто — string
	Prefix   *string `json:"prefix,omitempty"` // nil — префикс по умолчанию
	Required bool    `json:"required,omitempty"`
	Redact   bool    `json:"redact,omitempty"`
	Default  any     `json:"default,omitempty"`
}

var keyNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// KeyValidator — проверка описаний ключей.
type KeyValidator struct{}

// NewKeyValidator — конструктор KeyValidator.
// Возвращает ErrInvalidKey (с обёрнутой причиной) при любой проблеме.
func NewKeyValidator() *KeyValidator { return &KeyValidator{} }

// Validate — проверяет имя, тип и значение по умолчанию.
func (v *KeyValidator) Validate(_ context.Context, spec *KeySpec) error {
	if spec == nil {
		return fmt.Errorf("%w: описание не может быть nil", ErrInvalidKey)
	}
	if !keyNameRe.MatchString(spec.Name) {
		return fmt.Errorf("%w: name %q некорректен", ErrInvalidKey, spec.Name)
	}
	kind, err := parseKind(spec.Kind)
	if err != nil {
		return err
	}
	if _, err := defaultValue(spec.Default, kind); err != nil {
		return err
	}
	return nil
}

// Options — тип и параметры разрешения для configman.
func (s *KeySpec) Options(defaultPrefix string) (configman.Kind, configman.Options, error) {
	kind, err := parseKind(s.Kind)
	if err != nil {
		return 0, configman.Options{}, err
	}
	def, err := defaultValue(s.Default, kind)
	if err != nil {
		return 0, configman.Options{}, err
	}

	prefix := defaultPrefix
	if s.Prefix != nil {
		prefix = *s.Prefix
	}

	return kind, configman.Options{
		Default:      def,
		Required:     s.Required,
		Redact:       s.Redact,
		Silent:       true,
		EnvVarPrefix: prefix,
	}, nil
}

func parseKind(s string) (configman.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "string":
		return configman.KindString, nil
	case "bool", "boolean":
		return configman.KindBool, nil
	case "number", "int":
		return configman.KindNumber, nil
	default:
		return 0, fmt.Errorf("%w: kind %q не поддерживается", ErrInvalidKey, s)
	}
}

// defaultValue — значение по умолчанию из JSON; тип должен совпадать с kind.
func defaultValue(raw any, kind configman.Kind) (configman.Value, error) {
	if raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case string:
		if kind == configman.KindString {
			return configman.Str(v), nil
		}
	case bool:
		if kind == configman.KindBool {
			return configman.Bool(v), nil
		}
	case float64:
		if kind == configman.KindNumber {
			if v != math.Trunc(v) || math.Abs(v) > math.MaxInt64 {
				return nil, fmt.Errorf("%w: default %v не целое", ErrInvalidKey, v)
			}
			return configman.Num(int64(v)), nil
		}
	}
	return nil, fmt.Errorf("%w: default %v не является %s", ErrInvalidKey, raw, kind)
}
