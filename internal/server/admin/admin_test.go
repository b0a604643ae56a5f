package admin

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

var _ Pinger = fakePinger{}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	log := zaptest.NewLogger(t)

	code, body := get(t, NewRouter(fakePinger{}, reg, log), "/healthz")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body)

	code, _ = get(t, NewRouter(fakePinger{err: errors.New("down")}, reg, log), "/healthz")
	require.Equal(t, http.StatusServiceUnavailable, code)

	code, _ = get(t, NewRouter(nil, reg, nil), "/healthz")
	require.Equal(t, http.StatusOK, code)
}

func TestMetrics(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "subtrack_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	code, body := get(t, NewRouter(nil, reg, nil), "/metrics")
	require.Equal(t, http.StatusOK, code)
	require.True(t, strings.Contains(body, "subtrack_test_total 1"), body)
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()
	code, _ := get(t, NewRouter(nil, prometheus.NewRegistry(), nil), "/nope")
	require.Equal(t, http.StatusNotFound, code)
}
