package middlewares_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/campaigner/middlewares"
	"github.com/dmitrymomot/campaigner/pkg/id"
	"github.com/dmitrymomot/campaigner/pkg/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	t.Run("generates ulid", func(t *testing.T) {
		t.Parallel()

		var seen string
		h := middlewares.RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			seen = logger.RequestID(r.Context())
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		got := rec.Header().Get("X-Request-ID")
		require.True(t, id.IsULID(got))
		require.Equal(t, got, seen)
	})

	t.Run("reuses incoming header", func(t *testing.T) {
		t.Parallel()

		h := middlewares.RequestID()(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Correlation-ID", "corr-1")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, "corr-1", rec.Header().Get("X-Request-ID"))
	})

	t.Run("custom generator", func(t *testing.T) {
		t.Parallel()

		h := middlewares.RequestID(middlewares.WithRequestIDGenerator(func() string { return "fixed" }))(okHandler())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, "fixed", rec.Header().Get("X-Request-ID"))
	})
}

func TestRecover(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	h := middlewares.Recover(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
	require.Contains(t, buf.String(), "panic: boom")
}

func TestRecover_AbortHandler(t *testing.T) {
	t.Parallel()

	h := middlewares.Recover(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	require.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestPanicError(t *testing.T) {
	t.Parallel()

	require.True(t, middlewares.IsPanicError(&middlewares.PanicError{Value: 1}))
	require.False(t, middlewares.IsPanicError(context.Canceled))
}

func TestLogging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	h := middlewares.Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/campaigns/x", nil))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, "WARN", got["level"])
	require.Equal(t, "/api/campaigns/x", got["path"])
	require.InDelta(t, 404, got["status"], 0)
	require.InDelta(t, 4, got["bytes"], 0)
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()

	rl := middlewares.NewRateLimiter(2)
	t.Cleanup(rl.Stop)
	h := rl.Middleware(okHandler())

	call := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/credentials/verify", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, call("10.0.0.1").Code)
	require.Equal(t, http.StatusOK, call("10.0.0.1").Code)

	rec := call("10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "30", rec.Header().Get("Retry-After"))

	require.Equal(t, http.StatusOK, call("10.0.0.2").Code)
	rl.Stop()
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	proxies := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		trusted []netip.Prefix
		want    string
	}{
		{name: "forwarded for from untrusted peer", headers: map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2"}, remote: "9.9.9.9:1", want: "9.9.9.9"},
		{name: "real ip from untrusted peer", headers: map[string]string{"X-Real-IP": "3.3.3.3"}, remote: "9.9.9.9:1", want: "9.9.9.9"},
		{name: "forwarded for outside trusted proxies", headers: map[string]string{"X-Forwarded-For": "1.1.1.1"}, remote: "9.9.9.9:1", trusted: proxies, want: "9.9.9.9"},
		{name: "forwarded for from trusted proxy", headers: map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2"}, remote: "10.0.0.5:1", trusted: proxies, want: "2.2.2.2"},
		{name: "skips trusted hops", headers: map[string]string{"X-Forwarded-For": "1.1.1.1, 10.0.0.7"}, remote: "10.0.0.5:1", trusted: proxies, want: "1.1.1.1"},
		{name: "real ip from trusted proxy", headers: map[string]string{"X-Real-IP": "3.3.3.3"}, remote: "10.0.0.5:1", trusted: proxies, want: "3.3.3.3"},
		{name: "trusted proxy without headers", remote: "10.0.0.5:1", trusted: proxies, want: "10.0.0.5"},
		{name: "remote addr", remote: "9.9.9.9:1", want: "9.9.9.9"},
		{name: "remote without port", remote: "9.9.9.9", want: "9.9.9.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tt.want, middlewares.ClientIP(req, tt.trusted...))
		})
	}
}

func TestRateLimiter_IgnoresSpoofedForwardedFor(t *testing.T) {
	t.Parallel()

	rl := middlewares.NewRateLimiter(1)
	t.Cleanup(rl.Stop)
	h := rl.Middleware(okHandler())

	call := func(xff string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/credentials/verify", nil)
		req.RemoteAddr = "9.9.9.9:1234"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, call("1.1.1.1"))
	require.Equal(t, http.StatusTooManyRequests, call("2.2.2.2"))
}

func TestRateLimiter_TrustedProxy(t *testing.T) {
	t.Parallel()

	rl := middlewares.NewRateLimiter(1, middlewares.WithTrustedProxies(netip.MustParsePrefix("10.0.0.0/8")))
	t.Cleanup(rl.Stop)
	h := rl.Middleware(okHandler())

	call := func(xff string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/credentials/verify", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, call("1.1.1.1"))
	require.Equal(t, http.StatusOK, call("2.2.2.2"))
	require.Equal(t, http.StatusTooManyRequests, call("1.1.1.1"))
}

func TestCORS(t *testing.T) {
	t.Parallel()

	t.Run("preflight", func(t *testing.T) {
		t.Parallel()

		h := middlewares.CORS(middlewares.CORSConfig{AllowOrigins: []string{"https://app.example.com"}})(okHandler())
		req := httptest.NewRequest(http.MethodOptions, "/api/campaigns", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
		require.Equal(t, "43200", rec.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("disallowed origin passes through untouched", func(t *testing.T) {
		t.Parallel()

		h := middlewares.CORS(middlewares.CORSConfig{AllowOrigins: []string{"https://app.example.com"}})(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard", func(t *testing.T) {
		t.Parallel()

		h := middlewares.CORS(middlewares.CORSConfig{AllowOrigins: []string{"*"}})(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://any.example.com")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("disabled without origins", func(t *testing.T) {
		t.Parallel()

		h := middlewares.CORS(middlewares.CORSConfig{})(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://any.example.com")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
