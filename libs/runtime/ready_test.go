package runtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminMuxHealthz(t *testing.T) {
	mux := NewAdminMux(nil)

	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, "ok", rw.Body.String())
}

func TestAdminMuxReadyzReportsFailures(t *testing.T) {
	mux := NewAdminMux([]ReadyCheck{
		{Name: "kafka", Check: func(context.Context) error { return errors.New("dial refused") }},
		{Name: "redis", Check: func(context.Context) error { return nil }},
		{Check: func(context.Context) error { return errors.New("boom") }},
	})

	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rw.Code)
	assert.Equal(t, "kafka: dial refused; dependency: boom", rw.Body.String())
}

func TestAdminMuxExtraRoute(t *testing.T) {
	mux := NewAdminMux(nil, Route{
		Pattern: "/metrics",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("metrics"))
		}),
	})

	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, "metrics", rw.Body.String())
}
