package server

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/config"
	"github.com/BaSui01/tripflow/internal/metrics"
)

// --- DefaultConfig ---

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Nil(t, cfg.TLS)
}

func TestConfigFromMetrics(t *testing.T) {
	cfg, err := ConfigFromMetrics(config.MetricsConfig{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", cfg.Addr)
	assert.Equal(t, time.Second, cfg.ShutdownTimeout)
	assert.Nil(t, cfg.TLS)

	_, err = ConfigFromMetrics(config.MetricsConfig{
		Addr:        ":0",
		TLSCertFile: "/nonexistent/metrics.crt",
		TLSKeyFile:  "/nonexistent/metrics.key",
	})
	assert.Error(t, err)
}

// --- Start / Shutdown lifecycle ---

func newLocalManager(t *testing.T, handler http.Handler) *Manager {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	return NewManager(handler, cfg, zap.NewNop())
}

func TestManager_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollectorWithRegistry("tripflow_test", reg, nil)
	collector.ObserveTurn("flight_agent", "completed", 20*time.Millisecond)

	m := newLocalManager(t, MetricsHandler(reg))
	require.NoError(t, m.Start())
	t.Cleanup(func() { m.Shutdown(context.Background()) })

	resp, err := http.Get("http://" + m.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `tripflow_test_turns_total{agent="flight_agent",status="completed"} 1`)

	health, err := http.Get("http://" + m.Addr() + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestManager_StartAndShutdown(t *testing.T) {
	m := newLocalManager(t, http.NewServeMux())
	assert.False(t, m.IsRunning())

	require.NoError(t, m.Start())
	assert.NotEqual(t, "127.0.0.1:0", m.Addr(), "bound port is reported")
	assert.True(t, m.IsRunning())

	require.NoError(t, m.Shutdown(context.Background()))
	assert.False(t, m.IsRunning())

	// idempotent
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestManager_DoubleStart(t *testing.T) {
	m := newLocalManager(t, http.NewServeMux())

	require.NoError(t, m.Start())
	t.Cleanup(func() { m.Shutdown(context.Background()) })

	err := m.Start()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already started")
}

func TestManager_StartAfterShutdown(t *testing.T) {
	m := newLocalManager(t, http.NewServeMux())

	require.NoError(t, m.Start())
	require.NoError(t, m.Shutdown(context.Background()))

	err := m.Start()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestManager_Errors(t *testing.T) {
	m := newLocalManager(t, http.NewServeMux())

	select {
	case <-m.Errors():
		t.Fatal("should not have received an error")
	default:
	}
}

func TestManager_AddrBeforeStart(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = ":9999"
	m := NewManager(http.NewServeMux(), cfg, nil)

	assert.Equal(t, ":9999", m.Addr())
}
