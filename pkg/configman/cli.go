package configman

import (
	"errors"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

// cliValue — ищет --flag в аргументах командной строки.
// Каждый вызов разбирает аргументы заново: чужие флаги пропускаются,
// "--flag" без значения (в конце или перед другим флагом) означает true.
func (r *Resolver) cliValue(flag string) (Value, bool) {
	fs := pflag.NewFlagSet("configman", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	fs.ParseErrorsAllowlist.UnknownFlags = true

	raw := fs.String(flag, "", "")

	err := fs.Parse(r.args)

	var noValue *pflag.ValueRequiredError
	switch {
	case errors.As(err, &noValue):
		return Bool(true), true
	case err != nil:
		return nil, false
	case !fs.Changed(flag):
		return nil, false
	}

	v := inferCLI(*raw)
	if s, ok := v.(Str); ok && strings.HasPrefix(string(s), "-") {
		// значение "съело" следующий флаг
		return Bool(true), true
	}
	return v, true
}
