// Package probe — расширение оболочки, периодически опрашивающее upstream-сервис
// через пул исходящих соединений. Результат последнего опроса отдаётся в HealthCheck.
package probe

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/Gunvolt24/cnshell/pkg/configman"
	"github.com/Gunvolt24/cnshell/pkg/httppool"
	"github.com/Gunvolt24/cnshell/pkg/shell"
)

// Name — имя расширения в логах и конфигурации.
const Name = "Probe"

// Ключи конфигурации (префикс CNE_).
const (
	CfgOrigin   = "PROBE_ORIGIN"
	CfgPath     = "PROBE_PATH"
	CfgInterval = "PROBE_INTERVAL"
	CfgTimeout  = "PROBE_TIMEOUT"
	CfgToken    = "PROBE_TOKEN"
	CfgMaxConns = "PROBE_MAX_CONNS"
)

// Settings — параметры опроса.
type Settings struct {
	Origin   string // пусто — опрос выключен, расширение всегда здорово
	Path     string
	Interval time.Duration // пауза между успешными опросами
	Timeout  time.Duration // таймаут одного запроса
	Token    string        // bearer-токен
	MaxConns int
}

// Result — итог одного опроса.
type Result struct {
	Healthy    bool
	StatusCode int
	Err        error
	Latency    time.Duration
	At         time.Time
}

// Probe — расширение-опросчик.
type Probe struct {
	*shell.Ext

	settings   Settings
	retryMin   time.Duration
	jitterRand *rand.Rand

	mu     sync.Mutex
	last   Result
	cancel context.CancelFunc
	done   chan struct{}
}

// New — создаёт расширение и подключает его к оболочке.
func New(sh *shell.Shell) (*Probe, error) {
	p := &Probe{
		Ext:      shell.NewExt(sh, Name),
		retryMin: time.Second,
		// jitterRand — рассинхронизирует повторы нескольких экземпляров
		jitterRand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := sh.Attach(p); err != nil {
		return nil, err
	}
	return p, nil
}

// loadSettings — значения из CLI/окружения (CNE_PROBE_*).
func (p *Probe) loadSettings() (Settings, error) {
	var s Settings
	var err error

	if s.Origin, err = p.ConfigString(CfgOrigin, configman.Options{}); err != nil {
		return s, err
	}
	if s.Path, err = p.ConfigString(CfgPath, configman.Options{Default: configman.Str("/")}); err != nil {
		return s, err
	}
	if s.Token, err = p.ConfigString(CfgToken, configman.Options{Redact: true}); err != nil {
		return s, err
	}

	interval, err := p.ConfigNumber(CfgInterval, configman.Options{Default: configman.Num(10000)})
	if err != nil {
		return s, err
	}
	timeout, err := p.ConfigNumber(CfgTimeout, configman.Options{Default: configman.Num(2000)})
	if err != nil {
		return s, err
	}
	maxConns, err := p.ConfigNumber(CfgMaxConns, configman.Options{Default: configman.Num(4)})
	if err != nil {
		return s, err
	}

	s.Interval = time.Duration(interval) * time.Millisecond
	s.Timeout = time.Duration(timeout) * time.Millisecond
	s.MaxConns = int(maxConns)

	if s.Interval <= 0 || s.Timeout <= 0 {
		return s, fmt.Errorf("probe interval and timeout must be positive (interval=%s timeout=%s)", s.Interval, s.Timeout)
	}
	return s, nil
}

// Start — читает настройки, создаёт пул для origin, выполняет первый опрос
// синхронно и запускает фоновый цикл. Недоступный upstream не мешает старту.
func (p *Probe) Start(ctx context.Context) error {
	s, err := p.loadSettings()
	if err != nil {
		return err
	}

	if s.Origin == "" {
		p.Startupf("No origin configured - probe disabled")
		p.setResult(Result{Healthy: true, At: time.Now()})
		return nil
	}

	if err := p.CreateHTTPPool(s.Origin, httppool.PoolOptions{
		MaxConnsPerHost: s.MaxConns,
		// ответ дольше таймаута опроса бессмысленно ждать
		ResponseHeaderTimeout: s.Timeout,
	}); err != nil {
		return err
	}

	p.settings = s
	p.retryMin = min(p.retryMin, s.Interval)

	res := p.check(ctx)
	if !res.Healthy {
		p.Warnf("Initial probe of %s%s failed: %s", s.Origin, s.Path, describe(res))
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	p.mu.Lock()
	p.cancel, p.done = cancel, done
	p.mu.Unlock()

	go func() {
		defer close(done)
		p.run(loopCtx, res.Healthy)
	}()

	p.Startupf("Started! Probing %s%s every %s", s.Origin, s.Path, s.Interval)
	return nil
}

// Stop — останавливает фоновый цикл и ждёт его завершения.
func (p *Probe) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		p.Startupf("Stopped!")
		return nil
	}

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("probe loop did not stop: %w", ctx.Err())
	}

	p.Startupf("Stopped!")
	return nil
}

// HealthCheck — результат последнего опроса.
func (p *Probe) HealthCheck(context.Context) (bool, error) {
	last := p.Last()
	p.Debugf("Health check called: %s", describe(last))
	return last.Healthy, nil
}

// Last — результат последнего опроса.
func (p *Probe) Last() Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// run — цикл опроса:
// 1) успех → пауза Interval;
// 2) ошибка → экспоненциальный backoff с equal-jitter, не больше Interval;
// 3) отмена контекста → выход.
func (p *Probe) run(ctx context.Context, healthy bool) {
	retry := p.retryMin
	wait := p.settings.Interval
	if !healthy {
		wait = p.withJitterEqual(retry)
	}

	for {
		if !sleepCtx(ctx, wait) {
			return
		}

		res := p.check(ctx)
		if ctx.Err() != nil {
			return
		}

		if res.Healthy {
			if !healthy {
				p.Infof("Upstream %s recovered", p.settings.Origin)
			}
			retry = p.retryMin
			wait = p.settings.Interval
		} else {
			wait = p.withJitterEqual(retry)
			p.Warnf("Probe failed: %s (will retry in %s)", describe(res), wait)
			retry = p.nextBackoff(retry)
		}
		healthy = res.Healthy
	}
}

// check — один запрос к upstream с таймаутом.
func (p *Probe) check(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, p.settings.Timeout)
	defer cancel()

	start := time.Now()
	res, err := p.HTTPRequest(ctx, p.settings.Origin, p.settings.Path, httppool.RequestOptions{
		Method:      http.MethodGet,
		Headers:     map[string]string{"Accept": "application/json, text/plain"},
		BearerToken: p.settings.Token,
	})

	r := Result{Err: err, Latency: time.Since(start), At: time.Now()}
	if err == nil {
		r.StatusCode = res.StatusCode
		r.Healthy = res.StatusCode >= 200 && res.StatusCode < 300
	}

	p.Tracef("Probe %s%s: %s", p.settings.Origin, p.settings.Path, describe(r))
	p.setResult(r)
	return r
}

func (p *Probe) setResult(r Result) {
	p.mu.Lock()
	p.last = r
	p.mu.Unlock()
}

// nextBackoff — следующее время ожидания повтора, не больше Interval.
func (p *Probe) nextBackoff(current time.Duration) time.Duration {
	return min(current*2, p.settings.Interval)
}

// withJitterEqual — половина задержки фиксирована, вторая половина случайная.
func (p *Probe) withJitterEqual(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	jitter := time.Duration(p.jitterRand.Int63n(int64(d-half) + 1))
	return half + jitter
}

// sleepCtx ждёт d или останавливается по контексту.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func describe(r Result) string {
	switch {
	case r.Err != nil:
		return fmt.Sprintf("error=%v latency=%s", r.Err, r.Latency)
	case r.StatusCode == 0:
		return fmt.Sprintf("healthy=%t", r.Healthy)
	default:
		return fmt.Sprintf("status=%d healthy=%t latency=%s", r.StatusCode, r.Healthy, r.Latency)
	}
}
