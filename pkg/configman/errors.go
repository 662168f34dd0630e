package configman

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRequiredConfig — значение не найдено ни в одном слое, а оно обязательно.
	ErrMissingRequiredConfig = errors.New("missing required config")
	// ErrInvalidConfigType — значение найдено, но не приводится к запрошенному типу.
	ErrInvalidConfigType = errors.New("invalid config type")
)

// Error — ошибка разрешения конкретного ключа.
type Error struct {
	Name  string
	Kind  Kind
	Layer Layer
	Err   error
}

func (e *Error) Error() string {
	if e.Layer == LayerNone {
		return fmt.Sprintf("config (%s): %v: not set on the CLI or as an env var", e.Name, e.Err)
	}
	return fmt.Sprintf("config (%s) from %s: %v: should be a %s", e.Name, e.Layer, e.Err, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }
