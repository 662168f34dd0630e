package httppool_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gunvolt24/cnshell/pkg/httppool"
	"github.com/Gunvolt24/cnshell/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echo — отвечает JSON с методом, заголовками, query и телом запроса.
func echo(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"method":        r.Method,
			"path":          r.URL.Path,
			"query":         r.URL.RawQuery,
			"contentType":   r.Header.Get("Content-Type"),
			"authorization": r.Header.Get("Authorization"),
			"custom":        r.Header.Get("X-Custom"),
			"body":          string(body),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func field(t *testing.T, res *httppool.Response, key string) string {
	t.Helper()
	m, ok := res.Body.(map[string]any)
	require.True(t, ok, "body is %T", res.Body)
	s, _ := m[key].(string)
	return s
}

func TestRequest_JSONBody_SetsContentType(t *testing.T) {
	srv := echo(t)
	m := httppool.NewManager()
	defer m.Close()

	res, err := m.Request(context.Background(), srv.URL, "/issues", httppool.RequestOptions{
		Method: "POST",
		Body:   map[string]any{"id": 7},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "POST", field(t, res, "method"))
	assert.Equal(t, "/issues", field(t, res, "path"))
	assert.Equal(t, "application/json; charset=utf-8", field(t, res, "contentType"))
	assert.JSONEq(t, `{"id":7}`, field(t, res, "body"))
}

func TestRequest_TextBody_PassThrough(t *testing.T) {
	srv := echo(t)
	m := httppool.NewManager()
	defer m.Close()

	res, err := m.Request(context.Background(), srv.URL, "/raw", httppool.RequestOptions{
		Method:  "PUT",
		Headers: map[string]string{"Content-Type": "text/plain", "X-Custom": "yes"},
		Body:    "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "text/plain", field(t, res, "contentType"))
	assert.Equal(t, "hello", field(t, res, "body"))
	assert.Equal(t, "yes", field(t, res, "custom"))
}

func TestRequest_StringBodyWithoutContentType_IsJSON(t *testing.T) {
	srv := echo(t)
	m := httppool.NewManager()
	defer m.Close()

	res, err := m.Request(context.Background(), srv.URL, "/", httppool.RequestOptions{Method: "POST", Body: "hi"})
	require.NoError(t, err)
	assert.Equal(t, `"hi"`, field(t, res, "body"))
}

func TestRequest_GetDropsBody_AndMergesQuery(t *testing.T) {
	srv := echo(t)
	m := httppool.NewManager()
	defer m.Close()

	res, err := m.Request(context.Background(), srv.URL, "/search?a=1", httppool.RequestOptions{
		Query: url.Values{"b": {"2"}},
		Body:  map[string]any{"ignored": true},
	})
	require.NoError(t, err)
	assert.Equal(t, "GET", field(t, res, "method"))
	assert.Equal(t, "a=1&b=2", field(t, res, "query"))
	assert.Empty(t, field(t, res, "body"))
}

func TestRequest_Auth(t *testing.T) {
	srv := echo(t)
	m := httppool.NewManager()
	defer m.Close()

	res, err := m.Request(context.Background(), srv.URL, "/", httppool.RequestOptions{BearerToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", field(t, res, "authorization"))

	res, err = m.Request(context.Background(), srv.URL, "/", httppool.RequestOptions{
		BasicAuth: &httppool.BasicAuth{Username: "u", Password: "p"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Basic dTpw", field(t, res, "authorization"))
}

func TestRequest_ConflictingAuth_NotSent(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits.Add(1) }))
	defer srv.Close()

	m := httppool.NewManager()
	defer m.Close()

	_, err := m.Request(context.Background(), srv.URL, "/", httppool.RequestOptions{
		BearerToken: "tok",
		BasicAuth:   &httppool.BasicAuth{Username: "u"},
	})
	require.ErrorIs(t, err, httppool.ErrConflictingAuth)
	assert.Zero(t, hits.Load())
}

func TestRequest_UnsupportedMethod(t *testing.T) {
	m := httppool.NewManager()
	defer m.Close()

	_, err := m.Request(context.Background(), "http://localhost:1", "/", httppool.RequestOptions{Method: "TRACE"})
	require.ErrorIs(t, err, httppool.ErrUnsupportedMethod)
}

func TestRequest_EmptyJSONBody_NotParsed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := httppool.NewManager()
	defer m.Close()

	res, err := m.Request(context.Background(), srv.URL, "/", httppool.RequestOptions{Method: "DELETE"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "", res.Body)
}

func TestRequest_ChunkedJSON_Parsed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":`))
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte(`true}`))
	}))
	defer srv.Close()

	m := httppool.NewManager()
	defer m.Close()

	res, err := m.Request(context.Background(), srv.URL, "/", httppool.RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, res.Body)

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, res.DecodeJSON(&out))
	assert.True(t, out.OK)
}

func TestRequest_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{nope`))
	}))
	defer srv.Close()

	m := httppool.NewManager()
	defer m.Close()

	_, err := m.Request(context.Background(), srv.URL, "/", httppool.RequestOptions{})
	require.ErrorIs(t, err, httppool.ErrDecodeBody)
}

func TestRequest_PlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(`{"looks":"like json"}`))
	}))
	defer srv.Close()

	m := httppool.NewManager()
	defer m.Close()

	res, err := m.Request(context.Background(), srv.URL, "/", httppool.RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, `{"looks":"like json"}`, res.Body)
	assert.Equal(t, res.Body, res.Text())
}

func TestCreatePool_Duplicate(t *testing.T) {
	srv := echo(t)
	m := httppool.NewManager()
	defer m.Close()

	opts := httppool.PoolOptions{MaxConnsPerHost: 2}
	require.NoError(t, m.CreatePool(srv.URL, opts))

	err := m.CreatePool(srv.URL+"/", httppool.PoolOptions{})
	require.ErrorIs(t, err, httppool.ErrDuplicatePool)

	p, ok := m.Pool(srv.URL)
	require.True(t, ok)
	assert.Equal(t, 2, p.Options().MaxConnsPerHost)

	_, err = m.Request(context.Background(), srv.URL, "/", httppool.RequestOptions{})
	require.NoError(t, err)
	assert.Len(t, m.Origins(), 1)
}

func TestCreatePool_OriginNormalisation(t *testing.T) {
	m := httppool.NewManager()
	defer m.Close()

	require.NoError(t, m.CreatePool("http://Example.com", httppool.PoolOptions{}))
	require.ErrorIs(t, m.CreatePool("http://example.com:80", httppool.PoolOptions{}), httppool.ErrDuplicatePool)
	require.NoError(t, m.CreatePool("https://example.com", httppool.PoolOptions{}))

	assert.Equal(t, []string{"http://example.com:80", "https://example.com:443"}, m.Origins())
}

func TestCreatePool_InvalidOrigin(t *testing.T) {
	m := httppool.NewManager()
	defer m.Close()

	for _, origin := range []string{"", "ftp://x", "http://", "http://x/path", "not a url"} {
		require.ErrorIs(t, m.CreatePool(origin, httppool.PoolOptions{}), httppool.ErrInvalidOrigin, origin)
	}
}

func TestRequest_AbsolutePathRejected(t *testing.T) {
	m := httppool.NewManager()
	defer m.Close()

	_, err := m.Request(context.Background(), "http://localhost:1", "http://other/x", httppool.RequestOptions{})
	require.ErrorIs(t, err, httppool.ErrInvalidOrigin)
}

func TestClose_CancelsInFlight(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	m := httppool.NewManager()

	errc := make(chan error, 1)
	go func() {
		_, err := m.Request(context.Background(), srv.URL, "/slow", httppool.RequestOptions{})
		errc <- err
	}()

	<-started
	m.Close()

	select {
	case err := <-errc:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("request was not cancelled by Close")
	}

	_, err := m.Request(context.Background(), srv.URL, "/", httppool.RequestOptions{})
	require.ErrorIs(t, err, httppool.ErrClosed)
	require.ErrorIs(t, m.CreatePool(srv.URL, httppool.PoolOptions{}), httppool.ErrClosed)
}

func TestRequest_Metrics(t *testing.T) {
	srv := echo(t)
	mt := metrics.New()
	m := httppool.NewManager(httppool.WithMetrics(mt))

	_, err := m.Request(context.Background(), srv.URL, "/", httppool.RequestOptions{})
	require.NoError(t, err)

	origins := m.Origins()
	require.Len(t, origins, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.HTTPPools))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.HTTPRequests.WithLabelValues(origins[0], "GET", "200")))

	m.Close()
	assert.Equal(t, 0.0, testutil.ToFloat64(mt.HTTPPools))
}

func TestRequest_ContextCancelled(t *testing.T) {
	srv := echo(t)
	m := httppool.NewManager()
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Request(ctx, srv.URL, "/", httppool.RequestOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
