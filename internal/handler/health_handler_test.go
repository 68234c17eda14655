package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/crams-api/internal/service"
)

type pingerStub struct {
	err error
}

func (p pingerStub) PingContext(ctx context.Context) error {
	return p.err
}

func TestHealthHandlerEndpoints(t *testing.T) {
	metrics := service.NewMetricsService()
	r := newTestRouter(nil)
	healthy := NewHealthHandler(pingerStub{}, metrics)
	r.GET("/health", healthy.Health)
	r.GET("/ready", healthy.Ready)
	r.GET("/ready-down", NewHealthHandler(pingerStub{err: errors.New("connection refused")}, metrics).Ready)
	r.GET("/metrics", healthy.Prometheus)

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/ready", nil).Code)

	rec := perform(r, http.MethodGet, "/ready-down", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"down"`)

	metrics.RecordBulkSkip("COURSE_FULL")
	rec = perform(r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "crams_")
}
