package governance

import (
	"fmt"
	"log"

	"golang.org/x/sync/singleflight"

	"github.com/monikerhub/resolver/internal/apierr"
	"github.com/monikerhub/resolver/internal/catalog"
)

// ReloadResult is the response shape for a reload_catalog call.
type ReloadResult struct {
	Applied             bool     `json:"applied"`
	DiffSummary         string   `json:"diff_summary"`
	AddedCount          int      `json:"added_count"`
	RemovedCount        int      `json:"removed_count"`
	BindingChangedCount int      `json:"binding_changed_count"`
	StatusChangedCount  int      `json:"status_changed_count"`
	HasBreakingChanges  bool     `json:"has_breaking_changes"`
	SuccessorErrors     []string `json:"successor_errors,omitempty"`
}

// Controller wires the registry, request registry, and audit rendering
// together behind the submit/approve lanes and the validated reload path.
type Controller struct {
	registry        *catalog.Registry
	requests        *RequestRegistry
	deprecationOn   bool
	logger          *log.Logger
	onReloadApplied func()
	reloadGroup     singleflight.Group
}

// NewController builds a governance Controller. onReloadApplied, if set,
// is invoked after every applied reload (used to purge the resolution
// cache).
func NewController(registry *catalog.Registry, requests *RequestRegistry, deprecationEnabled bool, logger *log.Logger, onReloadApplied func()) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	registry.SetBindingDiffRenderer(RenderBindingDiff)
	return &Controller{
		registry:        registry,
		requests:        requests,
		deprecationOn:   deprecationEnabled,
		logger:          logger,
		onReloadApplied: onReloadApplied,
	}
}

// Submit creates a request object for a proposed new moniker path and
// enqueues it for review.
func (c *Controller) Submit(path string, node catalog.CatalogNode, submittedBy string) (*MonikerRequest, error) {
	if c.registry.Get(path) != nil {
		return nil, fmt.Errorf("%w: path %q already exists in the catalog", apierr.ErrInvalidRequest, path)
	}
	if c.requests.PathHasPendingRequest(path) {
		return nil, fmt.Errorf("%w: path %q already has a pending request", apierr.ErrInvalidRequest, path)
	}
	node.Path = path
	node.Status = catalog.StatusDraft
	return c.requests.Submit(path, node, submittedBy), nil
}

// ListRequests returns requests filtered by status ("" for all).
func (c *Controller) ListRequests(status RequestStatus) []*MonikerRequest {
	return c.requests.ListByStatus(status)
}

// Approve materializes the moniker as a new ACTIVE CatalogNode.
func (c *Controller) Approve(requestID, actor string) (*catalog.CatalogNode, error) {
	req, err := c.requests.Approve(requestID, actor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apierr.ErrRequestNotFound, err)
	}

	node := req.ProposedNode
	node.Status = catalog.StatusActive

	nodes := c.registry.AllNodes()
	nodes = append(nodes, &node)
	c.registry.AtomicReplace(nodes)

	return &node, nil
}

// Reject marks a request rejected with a reason.
func (c *Controller) Reject(requestID, actor, reason string) (*MonikerRequest, error) {
	req, err := c.requests.Reject(requestID, actor, reason)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apierr.ErrRequestNotFound, err)
	}
	return req, nil
}

// UpdateNodeStatus drives the state machine for an existing node.
// deprecation carries the optional metadata for a transition to DEPRECATED
// and is folded atomically into the same snapshot as the status change.
func (c *Controller) UpdateNodeStatus(path string, newStatus catalog.NodeStatus, actor, reason string, deprecation *catalog.DeprecationFields) (*catalog.CatalogNode, error) {
	node, err := c.registry.UpdateStatus(path, newStatus, actor, reason, deprecation)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apierr.ErrBadNodeStatus, err)
	}
	if c.onReloadApplied != nil {
		c.onReloadApplied()
	}
	return node, nil
}

// ReloadCatalog validates and applies an already-parsed candidate node set,
// and — if the deprecation feature is off — falls back to an
// unconditional atomic_replace with no diff.
func (c *Controller) ReloadCatalog(candidates []*catalog.CatalogNode, blockBreaking bool, actor string) ReloadResult {
	if !c.deprecationOn {
		c.registry.AtomicReplace(candidates)
		if c.onReloadApplied != nil {
			c.onReloadApplied()
		}
		return ReloadResult{Applied: true, DiffSummary: "deprecation feature disabled: unconditional replace"}
	}

	diff, applied := c.registry.ValidatedReplace(candidates, blockBreaking, actor)

	result := ReloadResult{
		Applied:             applied,
		AddedCount:          len(diff.AddedPaths),
		RemovedCount:        len(diff.RemovedPaths),
		BindingChangedCount: len(diff.BindingChangedPaths),
		StatusChangedCount:  len(diff.StatusChangedPaths),
		HasBreakingChanges:  diff.HasBreakingChanges(),
		DiffSummary:         summarize(diff),
	}

	if applied {
		result.SuccessorErrors = c.registry.ValidateSuccessors()
		if c.onReloadApplied != nil {
			c.onReloadApplied()
		}
	}

	return result
}

// ReloadFromFile loads candidate nodes via load and applies ReloadCatalog,
// collapsing concurrent reloads of the same path into a single
// validated_replace via singleflight — a burst of fsnotify events and an
// operator-triggered CLI reload racing each other produce one reload, not
// two.
func (c *Controller) ReloadFromFile(path string, load func(string) ([]*catalog.CatalogNode, error), blockBreaking bool, actor string) (ReloadResult, error) {
	v, err, _ := c.reloadGroup.Do(path, func() (interface{}, error) {
		nodes, err := load(path)
		if err != nil {
			return ReloadResult{}, fmt.Errorf("governance: load catalog %s: %w", path, err)
		}
		return c.ReloadCatalog(nodes, blockBreaking, actor), nil
	})
	if err != nil {
		return ReloadResult{}, err
	}
	return v.(ReloadResult), nil
}

func summarize(diff catalog.CatalogDiff) string {
	if len(diff.AddedPaths) == 0 && len(diff.RemovedPaths) == 0 && len(diff.BindingChangedPaths) == 0 && len(diff.StatusChangedPaths) == 0 {
		return "no changes"
	}
	return fmt.Sprintf("%d added, %d removed, %d binding changed, %d status changed",
		len(diff.AddedPaths), len(diff.RemovedPaths), len(diff.BindingChangedPaths), len(diff.StatusChangedPaths))
}
