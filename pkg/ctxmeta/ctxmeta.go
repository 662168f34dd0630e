// Package ctxmeta — метаданные вызова в context.Context: request_id запроса к
// healthcheck, имя источника (приложение или расширение), чей хук вызывается,
// и идентификаторы трейса. HTTP-слой, оболочка и логгер зависят от этого пакета,
// но не друг от друга.
package ctxmeta

import "context"

type ctxKey int

const (
	keyRequestID ctxKey = iota
	keySource
)

// MaxRequestIDLen — предельная длина принимаемого от клиента X-Request-ID.
const MaxRequestIDLen = 128

// WithRequestID кладёт request_id в контекст (если пусто — ничего не делает).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, keyRequestID, requestID)
}

// RequestIDFromContext достаёт request_id из контекста.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, keyRequestID)
}

// ValidRequestID — непустой, не длиннее MaxRequestIDLen, только видимые ASCII-символы.
func ValidRequestID(id string) bool {
	if id == "" || len(id) > MaxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// WithSource — имя источника для логов вызываемого хука.
func WithSource(ctx context.Context, source string) context.Context {
	if ctx == nil || source == "" {
		return ctx
	}
	return context.WithValue(ctx, keySource, source)
}

// SourceFromContext достаёт имя источника из контекста.
func SourceFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, keySource)
}

func stringValue(ctx context.Context, key ctxKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
