package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/monikerhub/resolver/internal/moniker"
)

// MaxSuccessorDepth bounds successor-chain traversal (spec invariant: no
// chain deeper than 5 hops).
const MaxSuccessorDepth = 5

// snapshot is an immutable view of the catalog tree. Readers copy the
// pointer at request entry and never observe a partially applied reload.
type snapshot struct {
	nodes    map[string]*CatalogNode
	children map[string][]string // parent path -> sorted child paths
}

func newSnapshot(nodes []*CatalogNode) *snapshot {
	s := &snapshot{
		nodes:    make(map[string]*CatalogNode, len(nodes)),
		children: make(map[string][]string),
	}
	for _, n := range nodes {
		s.nodes[n.Path] = n
		if parent, ok := parentPath(n.Path); ok {
			s.children[parent] = append(s.children[parent], n.Path)
		}
	}
	for parent := range s.children {
		sort.Strings(s.children[parent])
	}
	return s
}

// Registry owns the authoritative mapping path -> CatalogNode. Reads are
// lock-free against an atomic snapshot pointer; writes are serialized
// through writeMu and publish a new snapshot atomically.
type Registry struct {
	current  atomic.Pointer[snapshot]
	writeMu  sync.Mutex
	auditMu  sync.Mutex
	auditLog []AuditEntry
	clock    func() int64

	bindingDiffRenderer BindingDiffRenderer
}

// BindingDiffRenderer renders a human-readable diff between a SourceBinding's
// old and new state for an audit entry. Defined here but implemented by the
// governance package (which owns the ytbx/dyff dependency) and wired in via
// SetBindingDiffRenderer, avoiding a governance -> catalog -> governance
// import cycle.
type BindingDiffRenderer func(path string, before, after *SourceBinding) (string, error)

// SetBindingDiffRenderer installs the renderer ValidatedReplace uses to
// populate binding_changed audit entries. Safe to leave unset: entries then
// fall back to a static reason with no rendered diff.
func (r *Registry) SetBindingDiffRenderer(renderer BindingDiffRenderer) {
	r.bindingDiffRenderer = renderer
}

// NewRegistry builds a registry seeded with the given nodes.
func NewRegistry(nodes []*CatalogNode, clock func() int64) *Registry {
	r := &Registry{clock: clock}
	if r.clock == nil {
		r.clock = func() int64 { return 0 }
	}
	r.current.Store(newSnapshot(nodes))
	return r
}

func (r *Registry) snap() *snapshot {
	return r.current.Load()
}

// Get returns a node by path, or nil if absent.
func (r *Registry) Get(path string) *CatalogNode {
	return r.snap().nodes[path]
}

// ListChildren returns the sorted set of immediate child path suffixes.
func (r *Registry) ListChildren(path string) []string {
	children := r.snap().children[path]
	out := make([]string, len(children))
	copy(out, children)
	return out
}

// AllPaths returns every registered path.
func (r *Registry) AllPaths() []string {
	s := r.snap()
	out := make([]string, 0, len(s.nodes))
	for p := range s.nodes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// AllNodes returns every registered node.
func (r *Registry) AllNodes() []*CatalogNode {
	s := r.snap()
	out := make([]*CatalogNode, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	return out
}

// OwnershipOf resolves effective ownership after an inheritance walk from
// the node up to the root, field-by-field: each field takes the value of the
// nearest node (the node itself first) that sets it.
func (r *Registry) OwnershipOf(path string) Ownership {
	s := r.snap()
	var resolved Ownership
	chain := append(ancestorChain(path), path)
	for i := len(chain) - 1; i >= 0; i-- {
		if node, ok := s.nodes[chain[i]]; ok {
			resolved = overlay(resolved, node.Ownership)
		}
	}
	return resolved
}

// overlay fills resolved's nil fields from node's ownership, preferring
// values already set deeper in the walk (resolved wins on conflict).
func overlay(resolved, node Ownership) Ownership {
	return resolved.mergeFrom(node)
}

// SourceBindingOf finds the nearest ancestor binding (including self),
// skipping nodes whose status makes them non-resolvable (DRAFT, ARCHIVED).
// Returns the binding and the path where it was defined.
func (r *Registry) SourceBindingOf(path string) (*SourceBinding, string, bool) {
	s := r.snap()
	chain := append(ancestorChain(path), path)
	for i := len(chain) - 1; i >= 0; i-- {
		node, ok := s.nodes[chain[i]]
		if !ok || node.SourceBinding == nil {
			continue
		}
		switch node.EffectiveStatus() {
		case StatusArchived, StatusDraft:
			continue
		}
		return node.SourceBinding, chain[i], true
	}
	return nil, "", false
}

// Lineage returns the ancestor chain from root to path inclusive, the
// order describe/lineage endpoints render top-down.
func (r *Registry) Lineage(path string) []string {
	return append(ancestorChain(path), path)
}

// AtomicReplace publishes a new snapshot in a single step, visible
// immediately to concurrent readers.
func (r *Registry) AtomicReplace(nodes []*CatalogNode) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	r.current.Store(newSnapshot(nodes))
}

// Diff computes added/removed/binding-changed/status-changed paths between
// the current snapshot and a proposed new node set.
func (r *Registry) Diff(nodes []*CatalogNode) CatalogDiff {
	s := r.snap()
	newMap := make(map[string]*CatalogNode, len(nodes))
	for _, n := range nodes {
		newMap[n.Path] = n
	}

	var diff CatalogDiff
	for p := range newMap {
		if _, ok := s.nodes[p]; !ok {
			diff.AddedPaths = append(diff.AddedPaths, p)
		}
	}
	for p := range s.nodes {
		if _, ok := newMap[p]; !ok {
			diff.RemovedPaths = append(diff.RemovedPaths, p)
		}
	}
	for p, oldNode := range s.nodes {
		newNode, ok := newMap[p]
		if !ok {
			continue
		}
		if fingerprintOf(oldNode) != fingerprintOf(newNode) {
			diff.BindingChangedPaths = append(diff.BindingChangedPaths, p)
		}
		if oldNode.EffectiveStatus() != newNode.EffectiveStatus() {
			diff.StatusChangedPaths = append(diff.StatusChangedPaths, p)
		}
	}

	sort.Strings(diff.AddedPaths)
	sort.Strings(diff.RemovedPaths)
	sort.Strings(diff.BindingChangedPaths)
	sort.Strings(diff.StatusChangedPaths)
	return diff
}

// bindingChangedEntry builds the audit entry for a path whose SourceBinding
// fingerprint changed, rendering a before/after diff when a renderer is
// wired in.
func (r *Registry) bindingChangedEntry(s *snapshot, newMap map[string]*CatalogNode, now int64, actor, path string) AuditEntry {
	entry := AuditEntry{Timestamp: now, Actor: actor, Path: path, Kind: "binding_changed", Reason: "source binding changed during catalog reload"}

	var before, after *SourceBinding
	if oldNode, ok := s.nodes[path]; ok {
		before = oldNode.SourceBinding
	}
	if newNode, ok := newMap[path]; ok {
		after = newNode.SourceBinding
	}
	entry.Before = before
	entry.After = after

	if r.bindingDiffRenderer == nil {
		return entry
	}
	rendered, err := r.bindingDiffRenderer(path, before, after)
	if err == nil && rendered != "" {
		entry.Reason = rendered
	}
	return entry
}

func fingerprintOf(n *CatalogNode) string {
	if n.SourceBinding == nil {
		return ""
	}
	return n.SourceBinding.Fingerprint()
}

// ValidatedReplace diffs, audits, and optionally applies a new node set.
// Returns the diff and whether it was applied.
func (r *Registry) ValidatedReplace(nodes []*CatalogNode, blockBreaking bool, actor string) (CatalogDiff, bool) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	s := r.snap()
	diff := r.Diff(nodes)
	now := r.clock()

	newMap := make(map[string]*CatalogNode, len(nodes))
	for _, n := range nodes {
		newMap[n.Path] = n
	}

	for _, p := range diff.RemovedPaths {
		r.appendAudit(AuditEntry{Timestamp: now, Actor: actor, Path: p, Kind: "node_removed", Reason: "removed during catalog reload"})
	}
	for _, p := range diff.BindingChangedPaths {
		r.appendAudit(r.bindingChangedEntry(s, newMap, now, actor, p))
	}
	for _, p := range diff.AddedPaths {
		r.appendAudit(AuditEntry{Timestamp: now, Actor: actor, Path: p, Kind: "node_added", Reason: "added during catalog reload"})
	}

	if blockBreaking && diff.HasBreakingChanges() {
		return diff, false
	}

	r.current.Store(newSnapshot(nodes))
	return diff, true
}

// ValidateSuccessors returns an error string for any node whose successor
// is missing, self-referential, or produces a chain deeper than
// MaxSuccessorDepth.
func (r *Registry) ValidateSuccessors() []string {
	s := r.snap()
	var errs []string
	for path, node := range s.nodes {
		if node.Successor == "" {
			continue
		}
		if node.Successor == path {
			errs = append(errs, fmt.Sprintf("%s: successor points to itself", path))
			continue
		}
		if _, ok := s.nodes[node.Successor]; !ok {
			errs = append(errs, fmt.Sprintf("%s: successor %q does not exist", path, node.Successor))
			continue
		}
		if depth, ok := successorChainDepth(s, path); !ok {
			errs = append(errs, fmt.Sprintf("%s: successor chain exceeds max depth %d", path, MaxSuccessorDepth))
		} else if depth > MaxSuccessorDepth {
			errs = append(errs, fmt.Sprintf("%s: successor chain depth %d exceeds max %d", path, depth, MaxSuccessorDepth))
		}
	}
	sort.Strings(errs)
	return errs
}

// successorChainDepth walks the successor chain from path, returning the
// number of hops and false if it cycles or exceeds MaxSuccessorDepth.
func successorChainDepth(s *snapshot, path string) (int, bool) {
	seen := map[string]bool{path: true}
	current := path
	depth := 0
	for {
		node, ok := s.nodes[current]
		if !ok || node.Successor == "" {
			return depth, true
		}
		if seen[node.Successor] {
			return depth, false
		}
		seen[node.Successor] = true
		current = node.Successor
		depth++
		if depth > MaxSuccessorDepth {
			return depth, false
		}
	}
}

// UpdateStatus enforces the node status state machine and writes an audit
// entry. deprecation, when non-nil, is folded into the same copy as the
// status change so the new snapshot is published as one atomic swap — callers
// must not mutate the returned node afterward.
func (r *Registry) UpdateStatus(path string, newStatus NodeStatus, actor string, reason string, deprecation *DeprecationFields) (*CatalogNode, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	s := r.snap()
	node, ok := s.nodes[path]
	if !ok {
		return nil, fmt.Errorf("catalog: node %q not found", path)
	}

	oldStatus := node.EffectiveStatus()
	if !CanTransition(oldStatus, newStatus) {
		return nil, fmt.Errorf("catalog: illegal transition %s -> %s for %q", oldStatus, newStatus, path)
	}

	updated := *node
	updated.Status = newStatus
	if deprecation != nil {
		updated.DeprecationMessage = deprecation.DeprecationMessage
		updated.Successor = deprecation.Successor
		updated.SunsetDeadline = deprecation.SunsetDeadline
		updated.MigrationGuideURL = deprecation.MigrationGuideURL
	}

	nodes := make([]*CatalogNode, 0, len(s.nodes))
	for p, n := range s.nodes {
		if p == path {
			nodes = append(nodes, &updated)
			continue
		}
		nodes = append(nodes, n)
	}
	r.current.Store(newSnapshot(nodes))

	r.appendAudit(AuditEntry{
		Timestamp: r.clock(),
		Actor:     actor,
		Path:      path,
		Kind:      "status_changed",
		Before:    oldStatus,
		After:     newStatus,
		Reason:    reason,
	})

	return &updated, nil
}

func (r *Registry) appendAudit(entry AuditEntry) {
	r.auditMu.Lock()
	defer r.auditMu.Unlock()
	r.auditLog = append(r.auditLog, entry)
}

// AuditLog returns append-only audit entries, optionally filtered by path
// and limited to the most recent `limit` entries.
func (r *Registry) AuditLog(path string, limit int) []AuditEntry {
	r.auditMu.Lock()
	defer r.auditMu.Unlock()

	var entries []AuditEntry
	if path == "" {
		entries = append(entries, r.auditLog...)
	} else {
		for _, e := range r.auditLog {
			if e.Path == path {
				entries = append(entries, e)
			}
		}
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries
}

// Search finds nodes whose path, display name, description, or tags
// contain query (case-insensitive), optionally filtered by status.
func (r *Registry) Search(query string, status NodeStatus, limit int) []*CatalogNode {
	s := r.snap()
	q := strings.ToLower(query)
	var out []*CatalogNode
	for _, path := range sortedNodeKeys(s) {
		node := s.nodes[path]
		if status != "" && node.EffectiveStatus() != status {
			continue
		}
		if matchesQuery(node, q) {
			out = append(out, node)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}

func matchesQuery(node *CatalogNode, q string) bool {
	if strings.Contains(strings.ToLower(node.Path), q) ||
		strings.Contains(strings.ToLower(node.DisplayName), q) ||
		strings.Contains(strings.ToLower(node.Description), q) {
		return true
	}
	for _, t := range node.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

func sortedNodeKeys(s *snapshot) []string {
	keys := make([]string, 0, len(s.nodes))
	for k := range s.nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Counts returns node counts by effective status plus a "total" entry.
func (r *Registry) Counts() map[string]int {
	s := r.snap()
	counts := make(map[string]int)
	for _, n := range s.nodes {
		counts[string(n.EffectiveStatus())]++
	}
	counts["total"] = len(s.nodes)
	return counts
}

// parentPath derives the parent of path using moniker.Path's key-hierarchy
// walk. Returns ok=false only for an empty path; an empty parent with
// ok=true means the parent is the catalog root.
func parentPath(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	p, err := moniker.Parse(path)
	if err != nil {
		return "", true
	}
	parent, ok := p.Parent()
	if !ok {
		return "", true
	}
	return parent.Key(), true
}

// ancestorChain returns all ancestor paths from root to (not including)
// path itself, ordered root-first, via moniker.Path.Ancestors.
func ancestorChain(path string) []string {
	if path == "" {
		return nil
	}
	p, err := moniker.Parse(path)
	if err != nil {
		return nil
	}
	ancestors := p.Ancestors()
	out := make([]string, len(ancestors))
	for i, a := range ancestors {
		out[i] = a.Key()
	}
	return out
}
