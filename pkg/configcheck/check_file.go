// Package configcheck — диагностика конфигурации: для каждого ключа из манифеста
// показывает, какой слой (CLI, окружение, значение по умолчанию) дал значение.
package configcheck

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// InputFormat допустимые значения.
type InputFormat string

const (
	FormatAuto  InputFormat = "auto"
	FormatJSON  InputFormat = "json"
	FormatJSONL InputFormat = "jsonl"
)

// Summary — итог проверки одной строкой.
func (r Result) Summary() string {
	return fmt.Sprintf("%d resolved / %d failed", r.Resolved, r.Failed)
}

// CheckFile — читает манифест (JSON-массив или JSONL) и пишет отчёт в writer.
func (c *Checker) CheckFile(ctx context.Context, filePath string, format InputFormat, ow io.Writer) (Result, error) {
	// auto по расширению
	if format == FormatAuto {
		switch strings.ToLower(filepath.Ext(filePath)) {
		case ".json":
			format = FormatJSON
		default:
			format = FormatJSONL
		}
	}

	file, err := os.Open(filePath)
	if err != nil {
		return Result{}, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return c.CheckReader(ctx, file, format, ow)
}

// CheckReader — как CheckFile, но читает манифест из reader’а; FormatAuto — JSONL.
func (c *Checker) CheckReader(ctx context.Context, ir io.Reader, format InputFormat, ow io.Writer) (Result, error) {
	switch format {
	case FormatJSON:
		raw, err := io.ReadAll(ir)
		if err != nil {
			return Result{}, fmt.Errorf("read manifest: %w", err)
		}
		specs, err := KeySpecsFromJSON(ctx, c.validator, raw)
		if err != nil {
			return Result{}, err
		}
		return c.CheckSpecs(specs, ow)

	case FormatJSONL, FormatAuto:
		return c.CheckJSONLStream(ctx, ir, ow)

	default:
		return Result{}, fmt.Errorf("unsupported format: %s", format)
	}
}
