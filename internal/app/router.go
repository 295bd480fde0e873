package app

import (
	"context"
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyellow/classroom-planner/internal/appreciation"
	"github.com/garyellow/classroom-planner/internal/config"
	"github.com/garyellow/classroom-planner/internal/logger"
	"github.com/garyellow/classroom-planner/internal/metrics"
	"github.com/garyellow/classroom-planner/internal/planner"
)

// RouterConfig holds the dependencies of the HTTP API.
type RouterConfig struct {
	Planner       *planner.Service
	Appreciations *appreciation.Service
	Metrics       *metrics.Metrics
	Registry      *prometheus.Registry
	Logger        *logger.Logger

	MetricsUsername string
	MetricsPassword string

	// Now decides "this week" when a request omits the date. Defaults to time.Now.
	Now func() time.Time
}

// NewRouter builds the gin engine serving the API and the operational endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	h := &api{planner: cfg.Planner, appreciations: cfg.Appreciations, now: cfg.Now}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	router.Use(requestIDMiddleware())
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(cfg.Logger, cfg.Metrics))

	router.GET("/livez", livenessCheck)
	router.HEAD("/livez", livenessCheck)
	router.GET("/readyz", readinessCheck(cfg.Planner, cfg.Logger))
	router.HEAD("/readyz", readinessCheck(cfg.Planner, cfg.Logger))
	if cfg.Registry != nil {
		router.GET("/metrics",
			metricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword),
			gin.WrapH(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1", teacherMiddleware())

	v1.POST("/school-years", h.createSchoolYear)
	v1.GET("/school-years/:id", h.getSchoolYear)
	v1.POST("/school-years/:id/validate", h.validateStructure)
	v1.POST("/school-years/:id/periods", h.planPeriods)
	v1.GET("/school-years/:id/periods", h.listPeriods)
	v1.GET("/school-years/:id/stats", h.periodStats)
	v1.GET("/school-years/:id/current", h.currentPeriod)
	v1.POST("/school-years/:id/sessions", h.materializeSessions)
	v1.GET("/school-years/:id/sessions", h.listSessions)

	v1.POST("/structures", h.createStructure)
	v1.GET("/structures/presets/:model", h.presetStructure)
	v1.GET("/structures/:id", h.getStructure)

	v1.POST("/templates", h.createTemplate)
	v1.GET("/templates", h.listTemplates)
	v1.DELETE("/templates/:id", h.deleteTemplate)

	v1.POST("/exceptions/cancel", h.cancelOccurrence)
	v1.POST("/exceptions/move", h.moveOccurrence)
	v1.POST("/exceptions/add", h.addSession)
	v1.DELETE("/exceptions/:id", h.deleteException)

	v1.GET("/sessions/week", h.weekSessions)

	v1.GET("/notation/systems", h.notationSystems)
	v1.POST("/notation/format", h.formatGrade)
	v1.POST("/notation/average", h.averageGrades)

	v1.POST("/appreciations", h.generateAppreciation)

	return router
}

func livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func readinessCheck(p *planner.Service, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheckTimeout)
		defer cancel()

		if err := p.Ping(ctx); err != nil {
			log.WarnContext(ctx, "Readiness check failed: database unavailable", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": "database unavailable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "ready",
			"database": "connected",
		})
	}
}
