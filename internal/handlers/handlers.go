package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/monikerhub/resolver/internal/apierr"
	"github.com/monikerhub/resolver/internal/catalog"
	"github.com/monikerhub/resolver/internal/governance"
	"github.com/monikerhub/resolver/internal/service"
	"github.com/monikerhub/resolver/internal/telemetry"
)

func trimPath(raw string) string {
	return strings.TrimPrefix(raw, "/")
}

func handleError(c *gin.Context, err error) {
	appErr := apierr.MapError(err)
	c.JSON(appErr.Code, gin.H{"error": appErr.Message})
}

func callerFromHeaders(c *gin.Context) service.Caller {
	return service.Caller{
		AppID: c.GetHeader("X-App-ID"),
		Team:  c.GetHeader("X-App-Team"),
	}
}

func applyDeprecationHeaders(c *gin.Context, result service.ResolveResult) {
	if result.Status == catalog.StatusDeprecated {
		c.Header("X-Moniker-Deprecated", "true")
	}
	if result.Successor != "" {
		c.Header("X-Moniker-Successor", result.Successor)
	}
	if result.RedirectedFrom != "" {
		c.Header("X-Moniker-Redirected-From", result.RedirectedFrom)
	}
}

// handleResolve implements GET /resolve/{path}.
func (s *Server) handleResolve(c *gin.Context) {
	path := trimPath(c.Param("path"))
	result, err := s.svc.Resolve(c.Request.Context(), path, callerFromHeaders(c))
	if err != nil {
		handleError(c, err)
		return
	}
	applyDeprecationHeaders(c, result)
	c.JSON(http.StatusOK, result)
}

// handleResolveBatch implements POST /resolve/batch.
func (s *Server) handleResolveBatch(c *gin.Context) {
	var req struct {
		Monikers []string `json:"monikers"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, apierr.NewAppError(http.StatusBadRequest, "invalid request body", err))
		return
	}

	caller := callerFromHeaders(c)
	type batchEntry struct {
		Moniker string                 `json:"moniker"`
		Result  *service.ResolveResult `json:"result,omitempty"`
		Error   string                 `json:"error,omitempty"`
	}

	entries := make([]batchEntry, 0, len(req.Monikers))
	for _, m := range req.Monikers {
		result, err := s.svc.Resolve(c.Request.Context(), m, caller)
		if err != nil {
			entries = append(entries, batchEntry{Moniker: m, Error: apierr.MapError(err).Message})
			continue
		}
		entries = append(entries, batchEntry{Moniker: m, Result: &result})
	}

	c.JSON(http.StatusOK, gin.H{"results": entries})
}

// handleDescribe implements GET /describe/{path}: the node plus its
// resolved ownership and lineage.
func (s *Server) handleDescribe(c *gin.Context) {
	path := trimPath(c.Param("path"))
	node := s.registry.Get(path)
	if node == nil {
		handleError(c, apierr.NewAppError(http.StatusNotFound, "unknown moniker path", nil))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"node":      node,
		"ownership": s.registry.OwnershipOf(path),
		"lineage":   s.registry.Lineage(path),
		"children":  s.registry.ListChildren(path),
	})
}

// handleList implements GET /list/{path}: immediate children.
func (s *Server) handleList(c *gin.Context) {
	path := trimPath(c.Param("path"))
	c.JSON(http.StatusOK, gin.H{"path": path, "children": s.registry.ListChildren(path)})
}

// handleLineage implements GET /lineage/{path}: ancestor chain root to node.
func (s *Server) handleLineage(c *gin.Context) {
	path := trimPath(c.Param("path"))
	chain := s.registry.Lineage(path)
	nodes := make([]*catalog.CatalogNode, 0, len(chain))
	for _, p := range chain {
		if n := s.registry.Get(p); n != nil {
			nodes = append(nodes, n)
		}
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "lineage": nodes})
}

// handleTree implements GET /tree: the full catalog as a flat, sorted path
// list annotated with child counts (the registry holds no nested tree
// structure of its own — AllPaths/ListChildren already give callers
// everything needed to render one).
func (s *Server) handleTree(c *gin.Context) {
	paths := s.registry.AllPaths()
	type treeEntry struct {
		Path     string   `json:"path"`
		Status   string   `json:"status"`
		Children []string `json:"children"`
	}
	entries := make([]treeEntry, 0, len(paths))
	for _, p := range paths {
		node := s.registry.Get(p)
		entries = append(entries, treeEntry{
			Path:     p,
			Status:   string(node.EffectiveStatus()),
			Children: s.registry.ListChildren(p),
		})
	}
	c.JSON(http.StatusOK, gin.H{"nodes": entries})
}

// handleCatalog implements GET /catalog: every node.
func (s *Server) handleCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"nodes": s.registry.AllNodes()})
}

// handleCatalogDispatch serves GET /catalog/search, GET /catalog/stats,
// GET /catalog/{path}/audit, and GET /catalog/{path}, all registered under
// the single "/catalog/*path" wildcard route since gin's router cannot mix
// static siblings with a wildcard at the same path depth.
func (s *Server) handleCatalogDispatch(c *gin.Context) {
	suffix := trimPath(c.Param("path"))
	switch {
	case suffix == "search":
		s.handleCatalogSearch(c)
	case suffix == "stats":
		s.handleCatalogStats(c)
	case strings.HasSuffix(suffix, "/audit"):
		s.handleCatalogAudit(c, strings.TrimSuffix(suffix, "/audit"))
	default:
		s.handleCatalogNode(c, suffix)
	}
}

func (s *Server) handleCatalogNode(c *gin.Context, path string) {
	node := s.registry.Get(path)
	if node == nil {
		handleError(c, apierr.NewAppError(http.StatusNotFound, "unknown moniker path", nil))
		return
	}
	c.JSON(http.StatusOK, node)
}

func (s *Server) handleCatalogAudit(c *gin.Context, path string) {
	c.JSON(http.StatusOK, gin.H{"path": path, "audit": s.registry.AuditLog(path, 100)})
}

func (s *Server) handleCatalogSearch(c *gin.Context) {
	query := c.Query("q")
	status := catalog.NodeStatus(c.Query("status"))
	results := s.registry.Search(query, status, 100)
	c.JSON(http.StatusOK, gin.H{"query": query, "results": results})
}

func (s *Server) handleCatalogStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"counts": s.registry.Counts(), "requests": s.controller.ListRequests("")})
}

// handleUpdateStatus implements PUT /catalog/{path}/status.
func (s *Server) handleUpdateStatus(c *gin.Context) {
	suffix := trimPath(c.Param("path"))
	path := strings.TrimSuffix(suffix, "/status")
	if path == suffix {
		handleError(c, apierr.NewAppError(http.StatusNotFound, "unknown route", nil))
		return
	}

	var req struct {
		Status             catalog.NodeStatus `json:"status"`
		Actor              string             `json:"actor"`
		Reason             string             `json:"reason"`
		DeprecationMessage string             `json:"deprecation_message"`
		Successor          string             `json:"successor"`
		SunsetDeadline     string             `json:"sunset_deadline"`
		MigrationGuideURL  string             `json:"migration_guide_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, apierr.NewAppError(http.StatusBadRequest, "invalid request body", err))
		return
	}

	var deprecation *catalog.DeprecationFields
	if req.Status == catalog.StatusDeprecated {
		deprecation = &catalog.DeprecationFields{
			DeprecationMessage: req.DeprecationMessage,
			Successor:          req.Successor,
			SunsetDeadline:     req.SunsetDeadline,
			MigrationGuideURL:  req.MigrationGuideURL,
		}
	}

	node, err := s.controller.UpdateNodeStatus(path, req.Status, req.Actor, req.Reason, deprecation)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, node)
}

// handleSubmitRequest implements POST /requests.
func (s *Server) handleSubmitRequest(c *gin.Context) {
	var req struct {
		Path        string              `json:"path"`
		Node        catalog.CatalogNode `json:"node"`
		SubmittedBy string              `json:"submitted_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, apierr.NewAppError(http.StatusBadRequest, "invalid request body", err))
		return
	}

	submitted, err := s.controller.Submit(req.Path, req.Node, req.SubmittedBy)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, submitted)
}

// handleListRequests implements GET /requests?status=....
func (s *Server) handleListRequests(c *gin.Context) {
	status := governance.RequestStatus(c.Query("status"))
	c.JSON(http.StatusOK, gin.H{"requests": s.controller.ListRequests(status)})
}

// handleApproveRequest implements POST /requests/{id}/approve.
func (s *Server) handleApproveRequest(c *gin.Context) {
	var req struct {
		Actor string `json:"actor"`
	}
	_ = c.ShouldBindJSON(&req)

	node, err := s.controller.Approve(c.Param("id"), req.Actor)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

// handleRejectRequest implements POST /requests/{id}/reject.
func (s *Server) handleRejectRequest(c *gin.Context) {
	var req struct {
		Actor  string `json:"actor"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, apierr.NewAppError(http.StatusBadRequest, "invalid request body", err))
		return
	}

	rejected, err := s.controller.Reject(c.Param("id"), req.Actor, req.Reason)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rejected)
}

// handleTelemetryAccess implements POST /telemetry/access: a client-reported
// usage event, folded onto the same non-blocking emitter as server-side
// resolves.
func (s *Server) handleTelemetryAccess(c *gin.Context) {
	var event telemetry.UsageEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		handleError(c, apierr.NewAppError(http.StatusBadRequest, "invalid request body", err))
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	accepted := s.emitter.Emit(event)
	c.JSON(http.StatusAccepted, gin.H{"accepted": accepted})
}

// handleReload implements POST /admin/reload: an operator-triggered
// validated_replace against the catalog file on disk, the same path fsnotify
// drives automatically when watch mode is on. Collapsed with any in-flight
// watch-triggered reload via Controller.ReloadFromFile's singleflight group.
func (s *Server) handleReload(c *gin.Context) {
	if s.loadCatalog == nil {
		handleError(c, apierr.NewAppError(http.StatusServiceUnavailable, "no catalog file configured for this instance", nil))
		return
	}

	var req struct {
		BlockBreaking *bool  `json:"block_breaking"`
		Actor         string `json:"actor"`
	}
	_ = c.ShouldBindJSON(&req)

	blockBreaking := true
	if req.BlockBreaking != nil {
		blockBreaking = *req.BlockBreaking
	}
	actor := req.Actor
	if actor == "" {
		actor = "admin-reload"
	}

	result, err := s.controller.ReloadFromFile(s.catalogPath, s.loadCatalog, blockBreaking, actor)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleHealth implements GET /health: catalog counts, cache size, and
// telemetry counters.
func (s *Server) handleHealth(c *gin.Context) {
	stats := s.emitter.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"catalog_counts": s.registry.Counts(),
		"requests":       s.controller.ListRequests(""),
		"cache_size":     s.svc.CacheSize(),
		"telemetry": gin.H{
			"emitted":     stats.Emitted,
			"dropped":     stats.Dropped,
			"errors":      stats.Errors,
			"queue_depth": stats.QueueDepth,
		},
	})
}
