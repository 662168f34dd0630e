package httppool

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Gunvolt24/cnshell/pkg/logger"
	"github.com/Gunvolt24/cnshell/pkg/metrics"
)

// Manager — реестр пулов по origin. Не больше одного пула на origin.
type Manager struct {
	mu     sync.Mutex
	pools  map[string]*Pool
	closed bool

	defaults PoolOptions
	log      logger.Logger
	source   string
	metrics  *metrics.Metrics
}

// ManagerOption — настройка Manager.
type ManagerOption func(*Manager)

// WithDefaults — параметры для лениво создаваемых пулов.
func WithDefaults(o PoolOptions) ManagerOption {
	return func(m *Manager) { m.defaults = o.withDefaults() }
}

// WithLogger — логгер и имя источника для трассировки запросов.
func WithLogger(l logger.Logger, source string) ManagerOption {
	return func(m *Manager) {
		m.log = l
		m.source = source
	}
}

// WithMetrics — коллекторы для запросов и числа пулов.
func WithMetrics(mt *metrics.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = mt }
}

func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		pools:    make(map[string]*Pool),
		defaults: DefaultPoolOptions(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreatePool — создаёт пул для origin с заданными параметрами.
// Повторное создание для того же origin — ErrDuplicatePool, прежний пул остаётся рабочим.
func (m *Manager) CreatePool(origin string, opts PoolOptions) error {
	key, base, err := normalizeOrigin(origin)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, err = m.createLocked(key, base, opts.withDefaults())
	return err
}

func (m *Manager) createLocked(key string, base *url.URL, opts PoolOptions) (*Pool, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if _, ok := m.pools[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePool, key)
	}

	m.tracef("Creating new HTTP pool for (%s) with options (%+v)", key, opts)

	p := newPool(key, base, opts)
	m.pools[key] = p
	m.metrics.SetPools(len(m.pools))
	return p, nil
}

// Pool — пул для origin, если он создан.
func (m *Manager) Pool(origin string) (*Pool, bool) {
	key, _, err := normalizeOrigin(origin)
	if err != nil {
		return nil, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pools[key]
	return p, ok
}

// Origins — отсортированный список origin с пулами.
func (m *Manager) Origins() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.pools))
	for k := range m.pools {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// pool — существующий пул или новый с параметрами по умолчанию.
func (m *Manager) pool(origin string) (*Pool, error) {
	key, base, err := normalizeOrigin(origin)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if p, ok := m.pools[key]; ok {
		return p, nil
	}
	return m.createLocked(key, base, m.defaults)
}

// Request — выполняет запрос к origin+path. Пул создаётся при первом обращении.
func (m *Manager) Request(ctx context.Context, origin, path string, opts RequestOptions) (*Response, error) {
	m.tracef("httpReq for origin (%s) path (%s)", origin, path)

	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = http.MethodGet
	}
	if _, ok := allowedMethods[method]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, opts.Method)
	}
	if opts.BearerToken != "" && opts.BasicAuth != nil {
		return nil, ErrConflictingAuth
	}

	p, err := m.pool(origin)
	if err != nil {
		return nil, err
	}
	if p.closed() {
		return nil, ErrClosed
	}

	u, err := p.resolve(path, opts.Query)
	if err != nil {
		return nil, err
	}

	header := make(http.Header, len(opts.Headers)+2)
	for k, v := range opts.Headers {
		header.Set(k, v)
	}
	switch {
	case opts.BearerToken != "":
		header.Set("Authorization", "Bearer "+opts.BearerToken)
	case opts.BasicAuth != nil:
		token := base64.StdEncoding.EncodeToString([]byte(opts.BasicAuth.Username + ":" + opts.BasicAuth.Password))
		header.Set("Authorization", "Basic "+token)
	}

	body, err := encodeBody(method, opts.Body, header)
	if err != nil {
		return nil, err
	}

	// уничтожение пула отменяет запрос
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(p.ctx, cancel)
	defer stop()

	req, err := http.NewRequestWithContext(reqCtx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header = header

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		m.metrics.ObserveRequest(p.origin, method, 0, time.Since(start))
		return nil, fmt.Errorf("http %s %s%s: %w", method, p.origin, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	m.metrics.ObserveRequest(p.origin, method, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("read body %s %s%s: %w", method, p.origin, path, err)
	}

	decoded, err := decodeBody(resp.Header, resp.ContentLength, raw)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Trailer:    resp.Trailer,
		Body:       decoded,
		Raw:        raw,
	}, nil
}

// Close — уничтожает все пулы; запросы в полёте завершаются с context.Canceled.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true

	for key, p := range m.pools {
		m.tracef("Destroying HTTP pool for (%s)", key)
		p.destroy()
	}
	m.pools = make(map[string]*Pool)
	m.metrics.SetPools(0)
}

func (m *Manager) tracef(format string, args ...any) {
	if m.log == nil {
		return
	}
	m.log.Tracef(m.source, format, args...)
}
