package rest

import (
	"context"
	"net/http"

	"github.com/Gunvolt24/cnshell/pkg/ctxmeta"
	"github.com/Gunvolt24/cnshell/pkg/httpx"
	"github.com/Gunvolt24/cnshell/pkg/logger"
	"github.com/Gunvolt24/cnshell/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// HealthChecker — синхронная проверка здоровья на один запрос.
type HealthChecker func(ctx context.Context) bool

// HealthOptions — параметры роутера healthcheck.
type HealthOptions struct {
	Path       string
	GoodStatus int
	BadStatus  int
	Check      HealthChecker

	Log             logger.Logger    // nil — без логирования запросов
	Source          string           // имя источника в логе
	Metrics         *metrics.Metrics // nil — без метрик
	OtelServiceName string           // пусто — без otelgin
}

// NewHealthRouter — роутер с единственным маршрутом GET <Path>.
// Любой другой метод или путь — 404 с пустым телом.
func NewHealthRouter(o HealthOptions) *gin.Engine {
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.HandleMethodNotAllowed = false

	if o.OtelServiceName != "" {
		r.Use(otelgin.Middleware(o.OtelServiceName))
	}
	r.Use(gin.Recovery())
	r.Use(httpx.RequestIDMiddleware())
	r.Use(httpx.RequestLogger(o.Log, o.Source))

	r.GET(o.Path, healthHandler(o))

	notFound := func(c *gin.Context) { c.AbortWithStatus(http.StatusNotFound) }
	r.NoRoute(notFound)
	r.NoMethod(notFound)

	return r
}

func healthHandler(o HealthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		healthy := runCheck(c.Request.Context(), o)
		o.Metrics.ObserveHealthCheck(healthy)

		code := o.BadStatus
		if healthy {
			code = o.GoodStatus
		}
		c.Status(code)
		c.Writer.WriteHeaderNow()
	}
}

// runCheck — паника в проверке означает «нездоров» и пишется в ERROR.
func runCheck(ctx context.Context, o HealthOptions) (healthy bool) {
	if o.Check == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			healthy = false
			if o.Log != nil {
				o.Log.Errorf(o.Source, "Health check panicked (%s): %v", ctxmeta.LogPrefix(ctx), r)
			}
		}
	}()
	return o.Check(ctx)
}

// NewMetricsRouter — /ping и экспозиция метрик реестра g по пути path.
func NewMetricsRouter(g prometheus.Gatherer, path string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET(path, gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))

	return r
}
