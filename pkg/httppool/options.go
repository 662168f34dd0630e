package httppool

import (
	"net/http"
	"net/url"
	"time"
)

// PoolOptions — параметры пула соединений к одному origin.
type PoolOptions struct {
	MaxConnsPerHost       int           // 0 — без ограничения
	MaxIdleConnsPerHost   int           // простаивающих соединений на хост
	IdleConnTimeout       time.Duration // время жизни простаивающего соединения
	DialTimeout           time.Duration
	KeepAlive             time.Duration // TCP keep-alive
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration // 0 — без ограничения
}

// DefaultPoolOptions — значения для пулов, создаваемых лениво.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         30 * time.Second,
		KeepAlive:           30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// withDefaults — нулевые поля, кроме «без ограничения», берутся из DefaultPoolOptions.
func (o PoolOptions) withDefaults() PoolOptions {
	d := DefaultPoolOptions()
	if o.MaxIdleConnsPerHost <= 0 {
		o.MaxIdleConnsPerHost = d.MaxIdleConnsPerHost
	}
	if o.IdleConnTimeout <= 0 {
		o.IdleConnTimeout = d.IdleConnTimeout
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = d.DialTimeout
	}
	if o.KeepAlive <= 0 {
		o.KeepAlive = d.KeepAlive
	}
	if o.TLSHandshakeTimeout <= 0 {
		o.TLSHandshakeTimeout = d.TLSHandshakeTimeout
	}
	if o.MaxConnsPerHost < 0 {
		o.MaxConnsPerHost = 0
	}
	if o.ResponseHeaderTimeout < 0 {
		o.ResponseHeaderTimeout = 0
	}
	return o
}

// BasicAuth — учётные данные для заголовка Authorization: Basic.
type BasicAuth struct {
	Username string
	Password string
}

// RequestOptions — параметры одного запроса.
type RequestOptions struct {
	Method      string            // GET по умолчанию; GET, PUT, POST, DELETE, PATCH
	Query       url.Values        // параметры строки запроса
	Headers     map[string]string // заголовки запроса
	Body        any               // string/[]byte — как есть, иное — JSON
	BasicAuth   *BasicAuth
	BearerToken string
}

var allowedMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPut:    {},
	http.MethodPost:   {},
	http.MethodDelete: {},
	http.MethodPatch:  {},
}
