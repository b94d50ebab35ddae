// Package handlers implements the HTTP surface (spec.md §6): resolve,
// describe, catalog browsing, governance lanes, telemetry ingestion, and
// operational endpoints, grounded on the teacher's pkg/server.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/monikerhub/resolver/internal/auth"
	"github.com/monikerhub/resolver/internal/catalog"
	"github.com/monikerhub/resolver/internal/governance"
	"github.com/monikerhub/resolver/internal/service"
	"github.com/monikerhub/resolver/internal/telemetry"
)

// Server holds the state for the resolver's REST API.
type Server struct {
	svc         *service.Service
	registry    *catalog.Registry
	controller  *governance.Controller
	emitter     *telemetry.Emitter
	gate        *auth.Gate
	metrics     *prometheus.Registry
	router      *gin.Engine
	catalogPath string
	loadCatalog func(string) ([]*catalog.CatalogNode, error)
}

// NewServer wires every component into a gin router. catalogPath and
// loadCatalog back the admin reload endpoint; loadCatalog may be nil when
// the catalog was seeded some other way, in which case the endpoint
// responds 503.
func NewServer(svc *service.Service, registry *catalog.Registry, controller *governance.Controller, emitter *telemetry.Emitter, gate *auth.Gate, metricsRegistry *prometheus.Registry, catalogPath string, loadCatalog func(string) ([]*catalog.CatalogNode, error)) *Server {
	r := gin.Default()
	s := &Server{
		svc:         svc,
		registry:    registry,
		controller:  controller,
		emitter:     emitter,
		gate:        gate,
		metrics:     metricsRegistry,
		router:      r,
		catalogPath: catalogPath,
		loadCatalog: loadCatalog,
	}
	s.setupRoutes()
	return s
}

// Run starts the HTTP server on addr.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler returns the underlying gin engine as an http.Handler, for callers
// that manage their own *http.Server (e.g. for graceful shutdown).
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{})))

	s.router.GET("/resolve/*path", s.handleResolve)
	s.router.POST("/resolve/batch", s.handleResolveBatch)
	s.router.GET("/describe/*path", s.handleDescribe)
	s.router.GET("/list/*path", s.handleList)
	s.router.GET("/lineage/*path", s.handleLineage)
	s.router.GET("/tree", s.handleTree)

	s.router.GET("/catalog", s.handleCatalog)
	s.router.GET("/catalog/*path", s.handleCatalogDispatch)
	s.router.PUT("/catalog/*path", s.requireRole(approverRole, s.handleUpdateStatus))

	s.router.POST("/requests", s.requireRole(submitterRole, s.handleSubmitRequest))
	s.router.GET("/requests", s.handleListRequests)
	s.router.POST("/requests/:id/approve", s.requireRole(approverRole, s.handleApproveRequest))
	s.router.POST("/requests/:id/reject", s.requireRole(approverRole, s.handleRejectRequest))

	s.router.POST("/telemetry/access", s.handleTelemetryAccess)

	s.router.POST("/admin/reload", s.requireRole(approverRole, s.handleReload))
}

type requiredRole int

const (
	submitterRole requiredRole = iota
	approverRole
)

// requireRole wraps a handler with bearer-token role enforcement. Approver
// tokens also satisfy submitter-only endpoints since RoleApprover > RoleSubmitter.
func (s *Server) requireRole(required requiredRole, next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := s.gate.RoleFor(c.GetHeader("Authorization"))
		min := auth.RoleSubmitter
		if required == approverRole {
			min = auth.RoleApprover
		}
		if role < min {
			status := http.StatusUnauthorized
			if role != auth.RoleAnonymous {
				status = http.StatusForbidden
			}
			c.JSON(status, gin.H{"error": "insufficient role for this operation"})
			c.Abort()
			return
		}
		next(c)
	}
}
