package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/internal/version"
)

func testVersion() version.Info {
	return version.Info{Version: "v0.0.0-test", GitCommit: "deadbeef", BuildDate: "2026-01-01T00:00:00Z", InstanceID: "test-instance", Hostname: "test-host"}
}

func TestSetup_AllDisabled(t *testing.T) {
	p, err := Setup(
		models.MetricsConfig{Enabled: false},
		models.ObservabilityConfig{ServiceName: "storefront-test"},
		testVersion(),
	)
	require.NoError(t, err)
	assert.Nil(t, p.PrometheusExporter())
	assert.Nil(t, p.Registry())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetup_MetricsEnabled(t *testing.T) {
	p, err := Setup(
		models.MetricsConfig{Enabled: true, Path: "/metrics", Port: 9090},
		models.ObservabilityConfig{ServiceName: "storefront-test"},
		testVersion(),
	)
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	assert.NotNil(t, p.PrometheusExporter())
	assert.NotNil(t, p.Registry())
}

func TestSetup_TwiceDoesNotCollide(t *testing.T) {
	cfg := models.MetricsConfig{Enabled: true, Path: "/metrics", Port: 9090}
	obs := models.ObservabilityConfig{ServiceName: "storefront-test"}

	p1, err := Setup(cfg, obs, testVersion())
	require.NoError(t, err)
	defer p1.Shutdown(context.Background())

	p2, err := Setup(cfg, obs, testVersion())
	require.NoError(t, err)
	defer p2.Shutdown(context.Background())
}

func TestSetup_StdoutTracing(t *testing.T) {
	p, err := Setup(
		models.MetricsConfig{Enabled: false},
		models.ObservabilityConfig{
			ServiceName: "storefront-test",
			Tracing:     models.TracingConfig{Enabled: true, Exporter: "stdout", SampleRate: 0.5},
		},
		testVersion(),
	)
	require.NoError(t, err)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetup_UnsupportedExporter(t *testing.T) {
	_, err := Setup(
		models.MetricsConfig{Enabled: false},
		models.ObservabilityConfig{
			ServiceName: "storefront-test",
			Tracing:     models.TracingConfig{Enabled: true, Exporter: "zipkin"},
		},
		testVersion(),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported trace exporter")
}

func TestGetEnvironment(t *testing.T) {
	t.Setenv("STOREFRONT_ENVIRONMENT", "")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("DEPLOYMENT_ENV", "")
	assert.Equal(t, "development", getEnvironment())

	t.Setenv("DEPLOYMENT_ENV", "staging")
	assert.Equal(t, "staging", getEnvironment())

	t.Setenv("STOREFRONT_ENVIRONMENT", "production")
	assert.Equal(t, "production", getEnvironment())
}

func TestMetricsServer_ServesRegistry(t *testing.T) {
	p, err := Setup(
		models.MetricsConfig{Enabled: true, Path: "/metrics", Port: 9090},
		models.ObservabilityConfig{ServiceName: "storefront-test"},
		testVersion(),
	)
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	ms := NewMetricsServer(0, "/metrics", p)
	rec := httptest.NewRecorder()
	ms.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestMetricsServer_NoProvider(t *testing.T) {
	ms := NewMetricsServer(0, "/metrics", nil)
	rec := httptest.NewRecorder()
	ms.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsServer_Index(t *testing.T) {
	ms := NewMetricsServer(0, "/metrics", nil)
	rec := httptest.NewRecorder()
	ms.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "disabled")
}
