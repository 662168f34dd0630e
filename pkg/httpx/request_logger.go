package httpx

import (
	"time"

	"github.com/Gunvolt24/cnshell/pkg/ctxmeta"
	"github.com/Gunvolt24/cnshell/pkg/logger"
	"github.com/gin-gonic/gin"
)

// RequestLogger — строка TRACE на каждый запрос слушателя source.
// Маршрут берётся из шаблона Gin, для несопоставленных запросов — из URL.
func RequestLogger(log logger.Logger, source string) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		line := "method=" + c.Request.Method + " path=" + route
		if meta := ctxmeta.LogPrefix(c.Request.Context()); meta != "" {
			line = meta + " " + line
		}

		log.Tracef(source, "%s status=%d size=%d ip=%s took=%s",
			line,
			c.Writer.Status(),
			max(c.Writer.Size(), 0),
			c.ClientIP(),
			time.Since(start).Round(time.Microsecond),
		)
	}
}
