// Package httpapi exposes portal sessions over a JSON HTTP API.
package httpapi

import (
	"context"
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyellow/lnmu-portal/internal/logger"
	"github.com/garyellow/lnmu-portal/internal/portal"
	"github.com/garyellow/lnmu-portal/internal/ratelimit"
)

// YearSource lists enrollment years outside of any session.
type YearSource interface {
	Years(ctx context.Context) ([]string, error)
}

// ErrorRecorder counts rejected requests.
type ErrorRecorder interface {
	RecordHTTPError(errorType, route string)
}

// Options configures the router.
type Options struct {
	Store    *portal.Store
	Years    YearSource
	Logger   *logger.Logger
	Recorder ErrorRecorder
	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer
	// AccessPassword guards /api and /metrics; empty disables the gate.
	AccessPassword string
	// Limiter throttles /api per client address when set.
	Limiter *ratelimit.KeyedLimiter
	// Sentry enables the panic-reporting middleware.
	Sentry bool
}

// Server holds the API handlers.
type Server struct {
	store    *portal.Store
	years    YearSource
	log      *logger.Logger
	recorder ErrorRecorder
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	s := &Server{
		store:    opts.Store,
		years:    opts.Years,
		log:      log.WithModule("httpapi"),
		recorder: opts.Recorder,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if opts.Sentry {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(s.log))

	router.GET("/healthz", s.health)
	router.HEAD("/healthz", s.health)

	gate := accessGateMiddleware(opts.AccessPassword)
	if opts.Gatherer != nil {
		router.GET("/metrics", gate, gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api", gate)
	if opts.Limiter != nil {
		api.Use(s.rateLimitMiddleware(opts.Limiter))
	}
	api.GET("/years", s.listYears)
	api.POST("/sessions", s.createSession)

	sess := api.Group("/sessions/:id", s.sessionMiddleware())
	sess.GET("", s.getSession)
	sess.DELETE("", s.deleteSession)
	sess.POST("/tab", s.switchTab)
	sess.POST("/search", s.search)
	sess.POST("/filter", s.filter)
	sess.POST("/page", s.page)
	sess.POST("/profile", s.openProfile)
	sess.DELETE("/profile", s.closeProfile)
	sess.GET("/export", s.export)

	return router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": s.store.Len(),
	})
}
