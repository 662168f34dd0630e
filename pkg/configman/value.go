package configman

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind — запрошенный тип значения.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	default:
		return "unknown"
	}
}

// Value — разрешённое значение: Str, Bool или Num.
type Value interface {
	Kind() Kind
	String() string
	isValue()
}

type (
	Str  string
	Bool bool
	Num  int64
)

func (Str) Kind() Kind  { return KindString }
func (Bool) Kind() Kind { return KindBool }
func (Num) Kind() Kind  { return KindNumber }

func (v Str) String() string  { return string(v) }
func (v Bool) String() string { return strconv.FormatBool(bool(v)) }
func (v Num) String() string  { return strconv.FormatInt(int64(v), 10) }

func (Str) isValue()  {}
func (Bool) isValue() {}
func (Num) isValue()  {}

// zero — нулевое значение для kind.
func zero(kind Kind) Value {
	switch kind {
	case KindBool:
		return Bool(false)
	case KindNumber:
		return Num(0)
	default:
		return Str("")
	}
}

var leadingInt = regexp.MustCompile(`^\s*[+-]?\d+`)

// fromEnv — приведение строки из переменной окружения к kind.
// Bool: истина только "Y"/"y". Number: ведущая десятичная часть строки,
// без цифр в начале — ошибка.
func fromEnv(raw string, kind Kind) (Value, bool) {
	switch kind {
	case KindBool:
		return Bool(strings.EqualFold(raw, "Y")), true
	case KindNumber:
		m := leadingInt.FindString(raw)
		if m == "" {
			return nil, false
		}
		n, err := strconv.ParseInt(strings.TrimSpace(m), 10, 64)
		if err != nil {
			return nil, false
		}
		return Num(n), true
	default:
		return Str(raw), true
	}
}

// fromCLI — приведение значения из командной строки. Тип значения уже выведен
// парсером; строку получаем из числа, остальные несовпадения — ошибка.
func fromCLI(v Value, kind Kind) (Value, bool) {
	switch got := v.(type) {
	case Str:
		return got, kind == KindString
	case Num:
		switch kind {
		case KindNumber:
			return got, true
		case KindString:
			return Str(got.String()), true
		}
		return nil, false
	case Bool:
		return got, kind == KindBool
	default:
		return nil, false
	}
}

// inferCLI — вывод типа по тексту аргумента: true/false, целое число или строка.
func inferCLI(raw string) Value {
	switch raw {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return Num(n)
	}
	return Str(raw)
}
