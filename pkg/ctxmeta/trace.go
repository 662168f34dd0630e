package ctxmeta

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// TraceIDFromContext — trace_id активного спана; без спана — "", false.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", false
	}
	return sc.TraceID().String(), true
}

// SpanIDFromContext — span_id активного спана.
func SpanIDFromContext(ctx context.Context) (string, bool) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", false
	}
	return sc.SpanID().String(), true
}

// LogPrefix — "src=... rid=... trace=..." для строк лога; пустые части опускаются.
func LogPrefix(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	var parts []string
	if src, ok := SourceFromContext(ctx); ok {
		parts = append(parts, "src="+src)
	}
	if rid, ok := RequestIDFromContext(ctx); ok {
		parts = append(parts, "rid="+rid)
	}
	if tid, ok := TraceIDFromContext(ctx); ok {
		parts = append(parts, "trace="+tid)
	}
	return strings.Join(parts, " ")
}
