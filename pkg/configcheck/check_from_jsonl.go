package configcheck

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Gunvolt24/cnshell/pkg/configman"
)

// Source — имя источника при разрешении ключей.
const Source = "config-check"

// Result — статистика проверки.
type Result struct {
	Resolved int
	Failed   int
}

// Report — строка отчёта по одному ключу.
type Report struct {
	Name  string `json:"name"`
	Key   string `json:"key,omitempty"` // флаг или переменная окружения, давшие значение
	Layer string `json:"layer,omitempty"`
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Checker — разрешает описанные ключи и пишет отчёт в формате JSONL.
type Checker struct {
	validator *KeyValidator
	resolver  *configman.Resolver
	prefix    string
}

// NewChecker — prefix используется для описаний без явного префикса.
func NewChecker(validator *KeyValidator, resolver *configman.Resolver, prefix string) *Checker {
	return &Checker{validator: validator, resolver: resolver, prefix: prefix}
}

// Check — разрешает один ключ.
func (c *Checker) Check(spec *KeySpec) Report {
	rep := Report{Name: spec.Name}

	kind, opts, err := spec.Options(c.prefix)
	if err != nil {
		rep.Error = err.Error()
		return rep
	}

	res, err := c.resolver.Lookup(Source, spec.Name, kind, opts)
	if err != nil {
		rep.Error = err.Error()
		return rep
	}

	rep.Key = res.Key
	rep.Layer = res.Layer.String()
	rep.Value = res.Value.String()
	if spec.Redact {
		rep.Value = "redacted"
	}
	return rep
}

// CheckSpecs — разрешает ключи и пишет по строке отчёта на каждый.
func (c *Checker) CheckSpecs(specs []KeySpec, ow io.Writer) (Result, error) {
	var res Result
	for i := range specs {
		if err := c.emit(c.Check(&specs[i]), &res, ow); err != nil {
			return res, err
		}
	}
	return res, nil
}

// CheckJSONLStream — читает описания ключей построчно из reader’а, разрешает их и пишет отчёт.
// Невалидная строка попадает в отчёт с ошибкой и считается неуспешной.
// Пустые строки пропускаются.
func (c *Checker) CheckJSONLStream(ctx context.Context, ir io.Reader, ow io.Writer) (Result, error) {
	var res Result

	scanner := bufio.NewScanner(ir)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		lineBytes := scanner.Bytes()
		if len(strings.TrimSpace(string(lineBytes))) == 0 {
			continue
		}

		var rep Report
		spec, err := KeySpecFromJSON(ctx, c.validator, lineBytes)
		if err != nil {
			rep = Report{Name: fmt.Sprintf("line %d", line), Error: err.Error()}
		} else {
			rep = c.Check(spec)
		}

		if err := c.emit(rep, &res, ow); err != nil {
			return res, err
		}
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("scan: %w", err)
	}
	return res, nil
}

func (c *Checker) emit(rep Report, res *Result, ow io.Writer) error {
	if rep.Error != "" {
		res.Failed++
	} else {
		res.Resolved++
	}

	line, _ := json.Marshal(rep)
	line = append(line, '\n')
	if _, err := ow.Write(line); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
