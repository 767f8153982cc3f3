package health_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-checkout/internal/health"
)

func TestReadyReportsShutdownBeforeProbing(t *testing.T) {
	probed := false
	handler := health.Handler{Probes: map[string]health.Probe{
		"redis": func(context.Context) error {
			probed = true
			return nil
		},
	}}
	t.Cleanup(func() { health.SetReady(true) })

	health.SetReady(false)
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.False(t, probed, "draining instances skip dependency probes")
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "shutting_down", body["status"])

	// liveness is unaffected while draining
	rr = httptest.NewRecorder()
	handler.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	health.SetReady(true)
	rr = httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, probed)
}
