package httpx_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gunvolt24/cnshell/internal/mocks"
	"github.com/Gunvolt24/cnshell/pkg/httpx"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
)

func TestRequestLogger_TracesRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)

	log := mocks.NewMockLogger(ctrl)

	var line string
	log.EXPECT().
		Tracef("App", gomock.Any(), gomock.Any()).
		Do(func(_ string, format string, args ...any) {
			line = fmt.Sprintf(format, args...)
		})

	r := gin.New()
	r.Use(httpx.RequestIDMiddleware(), httpx.RequestLogger(log, "App"))
	r.GET("/healthcheck", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })

	req := httptest.NewRequest(http.MethodGet, "/healthcheck", http.NoBody)
	req.Header.Set("X-Request-ID", "rid-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	for _, want := range []string{"rid=rid-1", "method=GET", "path=/healthcheck", "status=503"} {
		if !strings.Contains(line, want) {
			t.Fatalf("в строке лога нет %q: %s", want, line)
		}
	}
}

func TestRequestLogger_UnmatchedPathUsesURL(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)

	log := mocks.NewMockLogger(ctrl)

	var line string
	log.EXPECT().
		Tracef("http", gomock.Any(), gomock.Any()).
		Do(func(_ string, format string, args ...any) {
			line = fmt.Sprintf(format, args...)
		})

	r := gin.New()
	r.Use(httpx.RequestLogger(log, "http"))
	r.NoRoute(func(c *gin.Context) { c.AbortWithStatus(http.StatusNotFound) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/nope", http.NoBody))

	if !strings.Contains(line, "path=/nope") || !strings.Contains(line, "status=404") {
		t.Fatalf("неожиданная строка лога: %s", line)
	}
}

func TestRequestLogger_NilLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(httpx.RequestLogger(nil, "App"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status: got %d want %d", w.Code, http.StatusNoContent)
	}
}
