// Package httppool — исходящие HTTP-запросы через пулы соединений, по одному пулу
// на origin (scheme+host+port), с автоматической авторизацией и JSON-кодированием тела.
package httppool

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Pool — пул соединений к одному origin.
type Pool struct {
	origin    string
	base      *url.URL
	opts      PoolOptions
	transport *http.Transport
	client    *http.Client

	ctx    context.Context // отменяется при уничтожении пула
	cancel context.CancelFunc
}

func newPool(origin string, base *url.URL, opts PoolOptions) *Pool {
	dialer := &net.Dialer{
		Timeout:   opts.DialTimeout,
		KeepAlive: opts.KeepAlive,
	}

	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxConnsPerHost:       opts.MaxConnsPerHost,
		MaxIdleConns:          opts.MaxIdleConnsPerHost,
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		IdleConnTimeout:       opts.IdleConnTimeout,
		TLSHandshakeTimeout:   opts.TLSHandshakeTimeout,
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		origin:    origin,
		base:      base,
		opts:      opts,
		transport: tr,
		client:    &http.Client{Transport: otelhttp.NewTransport(tr)},
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Origin — нормализованный origin пула.
func (p *Pool) Origin() string { return p.origin }

// Options — параметры, с которыми создан пул.
func (p *Pool) Options() PoolOptions { return p.opts }

// destroy — отменяет запросы в полёте и закрывает простаивающие соединения.
func (p *Pool) destroy() {
	p.cancel()
	p.transport.CloseIdleConnections()
}

func (p *Pool) closed() bool { return p.ctx.Err() != nil }

// resolve — полный URL запроса: origin пула + path + query.
func (p *Pool) resolve(path string, query url.Values) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return nil, fmt.Errorf("%w: path %q must not carry its own origin", ErrInvalidOrigin, path)
	}
	if ref.Path != "" && !strings.HasPrefix(ref.Path, "/") {
		ref.Path = "/" + ref.Path
	}

	u := p.base.ResolveReference(ref)
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// normalizeOrigin — ключ пула вида scheme://host:port; порт по умолчанию подставляется.
func normalizeOrigin(origin string) (string, *url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return "", nil, fmt.Errorf("%w: %q: %v", ErrInvalidOrigin, origin, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Hostname() == "" {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidOrigin, origin)
	}
	if strings.Trim(u.Path, "/") != "" || u.RawQuery != "" || u.Fragment != "" {
		return "", nil, fmt.Errorf("%w: %q has a path or query", ErrInvalidOrigin, origin)
	}

	port := u.Port()
	if port == "" {
		port = "80"
		if scheme == "https" {
			port = "443"
		}
	}

	host := net.JoinHostPort(strings.ToLower(u.Hostname()), port)
	return scheme + "://" + host, &url.URL{Scheme: scheme, Host: host}, nil
}
