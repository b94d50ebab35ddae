// Package governance implements the submit/approve request lanes and the
// validated catalog reload path (spec.md §4.F), grounded on
// original_source/requests/registry.py's RequestRegistry.
package governance

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/monikerhub/resolver/internal/catalog"
)

// RequestStatus is the lifecycle state of a submitted moniker request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING_REVIEW"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
)

// MonikerRequest is a proposed new moniker awaiting governance review.
type MonikerRequest struct {
	ID               string        `json:"id"`
	Label            string        `json:"label"`
	Path             string        `json:"path"`
	ProposedNode     catalog.CatalogNode `json:"proposed_node"`
	Status           RequestStatus `json:"status"`
	SubmittedBy      string        `json:"submitted_by"`
	CreatedAt        int64         `json:"created_at"`
	UpdatedAt        int64         `json:"updated_at"`
	ReviewedBy       string        `json:"reviewed_by,omitempty"`
	ReviewedAt       int64         `json:"reviewed_at,omitempty"`
	RejectionReason  string        `json:"rejection_reason,omitempty"`
}

// RequestRegistry is a thread-safe in-memory store of moniker requests.
// The HTTP-facing ID is a uuid so concurrent instances never collide; the
// counter only feeds the human-readable audit label.
type RequestRegistry struct {
	mu       sync.RWMutex
	requests map[string]*MonikerRequest
	byPath   map[string]string
	counter  int
	clock    func() int64
	newID    func() string
}

// NewRequestRegistry builds an empty registry.
func NewRequestRegistry(clock func() int64) *RequestRegistry {
	if clock == nil {
		clock = func() int64 { return 0 }
	}
	return &RequestRegistry{
		requests: make(map[string]*MonikerRequest),
		byPath:   make(map[string]string),
		clock:    clock,
		newID:    func() string { return uuid.NewString() },
	}
}

// Submit records a new request, returning it with ID/label/timestamps
// filled in.
func (r *RequestRegistry) Submit(path string, node catalog.CatalogNode, submittedBy string) *MonikerRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counter++
	now := r.clock()
	req := &MonikerRequest{
		ID:           r.newID(),
		Label:        fmt.Sprintf("REQ-%04d", r.counter),
		Path:         path,
		ProposedNode: node,
		Status:       RequestPending,
		SubmittedBy:  submittedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.requests[req.ID] = req
	r.byPath[path] = req.ID
	return req
}

// Get returns a request by ID.
func (r *RequestRegistry) Get(id string) (*MonikerRequest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	return req, ok
}

// PathHasPendingRequest reports whether path already has a pending request.
func (r *RequestRegistry) PathHasPendingRequest(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPath[path]
	if !ok {
		return false
	}
	return r.requests[id].Status == RequestPending
}

// ListByStatus returns all requests with the given status, or all requests
// if status is empty.
func (r *RequestRegistry) ListByStatus(status RequestStatus) []*MonikerRequest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*MonikerRequest
	for _, req := range r.requests {
		if status == "" || req.Status == status {
			out = append(out, req)
		}
	}
	return out
}

// Approve transitions a request to APPROVED.
func (r *RequestRegistry) Approve(id, actor string) (*MonikerRequest, error) {
	return r.updateStatus(id, RequestApproved, actor, "")
}

// Reject transitions a request to REJECTED with a reason.
func (r *RequestRegistry) Reject(id, actor, reason string) (*MonikerRequest, error) {
	return r.updateStatus(id, RequestRejected, actor, reason)
}

func (r *RequestRegistry) updateStatus(id string, status RequestStatus, actor, reason string) (*MonikerRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, fmt.Errorf("governance: request %q not found", id)
	}
	if req.Status != RequestPending {
		return nil, fmt.Errorf("governance: request %q already resolved (%s)", id, req.Status)
	}

	req.Status = status
	req.ReviewedBy = actor
	req.ReviewedAt = r.clock()
	req.UpdatedAt = req.ReviewedAt
	if status == RequestRejected {
		req.RejectionReason = reason
	}
	return req, nil
}

// CountByStatus returns request counts grouped by status plus a "total"
// entry.
func (r *RequestRegistry) CountByStatus() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, req := range r.requests {
		counts[string(req.Status)]++
	}
	counts["total"] = len(r.requests)
	return counts
}
