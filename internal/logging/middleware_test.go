package logging

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareLogsRequests(t *testing.T) {
	var buf bytes.Buffer
	logger := New(DebugLevel, &buf)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(Middleware(logger))
	r.Get("/ping", func(w http.ResponseWriter, req *http.Request) {
		FromContext(req.Context()).Info("handling ping")
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 3)

	assert.Equal(t, "Request started", entries[0]["message"])
	assert.NotEmpty(t, entries[0]["request_id"])
	assert.Equal(t, "GET", entries[0]["method"])
	assert.Equal(t, "/ping", entries[0]["path"])

	// The handler's context logger carries the same request fields.
	assert.Equal(t, "handling ping", entries[1]["message"])
	assert.Equal(t, entries[0]["request_id"], entries[1]["request_id"])

	assert.Equal(t, "Request completed", entries[2]["message"])
	assert.EqualValues(t, http.StatusNoContent, entries[2]["status"])
}

func TestMiddlewareFlagsErrorResponses(t *testing.T) {
	var buf bytes.Buffer
	logger := New(InfoLevel, &buf)

	r := chi.NewRouter()
	r.Use(Middleware(logger))
	r.Get("/boom", func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.EqualValues(t, http.StatusBadRequest, entries[1]["status"])
	assert.Equal(t, http.StatusText(http.StatusBadRequest), entries[1]["error"])
}

func TestFromContextFallback(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
	require.NotNil(t, logger.Logger)
}
