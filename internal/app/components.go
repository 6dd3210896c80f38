package app

import (
	"fmt"
	"sync"

	"github.com/garyellow/lnmu-portal/internal/backend"
	"github.com/garyellow/lnmu-portal/internal/config"
	"github.com/garyellow/lnmu-portal/internal/export"
	"github.com/garyellow/lnmu-portal/internal/logger"
	"github.com/garyellow/lnmu-portal/internal/metrics"
	"github.com/garyellow/lnmu-portal/internal/portal"
	"github.com/garyellow/lnmu-portal/internal/report"
)

// Components are the collaborators shared by every session: one backend
// client, one asset cache and one export pipeline.
type Components struct {
	Config   *config.Config
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
	Backend  *backend.Client
	Exporter *export.Pipeline

	loading *loadingTotals
}

// NewComponents wires the backend client and export pipeline from cfg.
func NewComponents(cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (*Components, error) {
	if m == nil {
		return nil, fmt.Errorf("components need metrics")
	}

	client, err := backend.NewClient(backend.Options{
		BaseURL:   cfg.BackendURL,
		Timeout:   cfg.BackendTimeout,
		UserAgent: cfg.UserAgent,
		Recorder:  m,
	})
	if err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}

	assets, err := report.NewAssetLoader(report.AssetOptions{
		CacheSize: cfg.AssetCacheSize,
		Timeout:   config.AssetRequest,
		UserAgent: cfg.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}

	renderer, err := report.NewRenderer(cfg.PixelRatio)
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}

	pipeline, err := export.New(export.Options{
		Dir: cfg.ExportDir,
		Links: report.Links{
			ImageOrigin:  cfg.ImageOrigin,
			ImageProxy:   cfg.ImageProxy,
			QRServiceURL: cfg.QRServiceURL,
		},
		Assets:   assets,
		Renderer: renderer,
		Logger:   log,
		Recorder: m,
	})
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	return &Components{
		Config:   cfg,
		Logger:   log,
		Metrics:  m,
		Backend:  client,
		Exporter: pipeline,
		loading:  &loadingTotals{metrics: m, perSession: make(map[string]int)},
	}, nil
}

// NewSession creates a session backed by the shared components. onLoading
// may be nil.
func (c *Components) NewSession(id string, onLoading func(visible bool)) (*portal.Session, error) {
	return portal.NewSession(id, portal.Options{
		Backend:         c.Backend,
		Exporter:        c.Exporter,
		PageSize:        c.Config.PageSize,
		Logger:          c.Logger,
		Recorder:        sessionRecorder{Metrics: c.Metrics, id: id, totals: c.loading},
		OnLoadingChange: onLoading,
	})
}

// sessionRecorder forwards session metrics, folding the per-session loading
// count into the process-wide gauge.
type sessionRecorder struct {
	*metrics.Metrics
	id     string
	totals *loadingTotals
}

func (r sessionRecorder) SetLoadingOperations(n int) {
	r.totals.set(r.id, n)
}

// loadingTotals sums the in-flight operations of every session.
type loadingTotals struct {
	metrics *metrics.Metrics

	mu         sync.Mutex
	perSession map[string]int
	total      int
}

func (t *loadingTotals) set(id string, n int) {
	t.mu.Lock()
	t.total += n - t.perSession[id]
	if n == 0 {
		delete(t.perSession, id)
	} else {
		t.perSession[id] = n
	}
	total := t.total
	t.mu.Unlock()

	t.metrics.SetLoadingOperations(total)
}
