package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/lnmu-portal/internal/config"
	"github.com/garyellow/lnmu-portal/internal/logger"
	"github.com/garyellow/lnmu-portal/internal/metrics"
)

func testConfig(t *testing.T, backendURL string) *config.Config {
	t.Helper()
	return &config.Config{
		BackendURL:         backendURL,
		BackendTimeout:     5 * time.Second,
		UserAgent:          "portal-test",
		PageSize:           20,
		ImageOrigin:        "https://lnmuniversity.com",
		QRServiceURL:       "https://api.qrserver.com/v1",
		AssetCacheSize:     4,
		ExportDir:          t.TempDir(),
		PixelRatio:         1,
		Port:               "0",
		LogLevel:           "error",
		ShutdownTimeout:    time.Second,
		SessionIdleTimeout: time.Minute,
	}
}

func TestInitialize(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`["2024"]`))
	}))
	t.Cleanup(backend.Close)

	cfg := testConfig(t, backend.URL)
	cfg.AccessPassword = "pw"
	app, err := Initialize(context.Background(), cfg)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	app.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	app.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/years", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/years", nil)
	req.SetBasicAuth("", "pw")
	w = httptest.NewRecorder()
	app.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"years":["2024"]}`, w.Body.String())
}

func TestNewComponents_InvalidBackend(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	_, err := NewComponents(testConfig(t, "not a url"), logger.Discard(), m)
	assert.Error(t, err)

	_, err = NewComponents(testConfig(t, "http://localhost"), logger.Discard(), nil)
	assert.Error(t, err)
}

func TestComponentsNewSession(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c, err := NewComponents(testConfig(t, "http://localhost"), logger.Discard(), m)
	require.NoError(t, err)

	s, err := c.NewSession("abc", nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", s.ID())
	assert.False(t, s.Loading())
}

func TestLoadingTotals(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	totals := &loadingTotals{metrics: m, perSession: make(map[string]int)}

	a := sessionRecorder{Metrics: m, id: "a", totals: totals}
	b := sessionRecorder{Metrics: m, id: "b", totals: totals}

	a.SetLoadingOperations(2)
	b.SetLoadingOperations(1)
	assert.InDelta(t, 3, testutil.ToFloat64(m.LoadingOperations), 0)

	a.SetLoadingOperations(0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.LoadingOperations), 0)
	assert.NotContains(t, totals.perSession, "a")

	b.SetLoadingOperations(0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.LoadingOperations), 0)
	assert.Empty(t, totals.perSession)
}
