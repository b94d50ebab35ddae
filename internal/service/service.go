// Package service implements the resolver: parse -> lookup -> successor
// redirect -> template expansion -> ownership rollup -> telemetry emit
// (spec.md §4.E), grounded on original_source/service.py's resolve().
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/monikerhub/resolver/internal/apierr"
	"github.com/monikerhub/resolver/internal/cache"
	"github.com/monikerhub/resolver/internal/catalog"
	"github.com/monikerhub/resolver/internal/moniker"
	"github.com/monikerhub/resolver/internal/telemetry"
	tmpl "github.com/monikerhub/resolver/internal/template"
)

// Caller identifies who is making a resolve request.
type Caller struct {
	AppID string
	Team  string
}

// ResolveResult is the assembled response to a resolve call.
type ResolveResult struct {
	Path               string            `json:"path"`
	SourceType         catalog.SourceType `json:"source_type"`
	Connection         map[string]any    `json:"connection"`
	Query              string            `json:"query"`
	Ownership          catalog.Ownership `json:"ownership"`
	Status             catalog.NodeStatus `json:"status"`
	DeprecationMessage string            `json:"deprecation_message,omitempty"`
	Successor          string            `json:"successor,omitempty"`
	SunsetDeadline     string            `json:"sunset_deadline,omitempty"`
	MigrationGuideURL  string            `json:"migration_guide_url,omitempty"`
	RedirectedFrom     string            `json:"redirected_from,omitempty"`
	ReadOnly           bool              `json:"read_only"`
}

// DeprecationConfig toggles successor-redirect behavior.
type DeprecationConfig struct {
	Enabled           bool
	RedirectOnResolve bool
}

// Service orchestrates moniker resolution.
type Service struct {
	registry    *catalog.Registry
	cache       *cache.Cache[ResolveResult]
	emitter     *telemetry.Emitter
	deprecation DeprecationConfig
}

// New builds a Service.
func New(registry *catalog.Registry, resultCache *cache.Cache[ResolveResult], emitter *telemetry.Emitter, deprecation DeprecationConfig) *Service {
	return &Service{registry: registry, cache: resultCache, emitter: emitter, deprecation: deprecation}
}

// Resolve implements the 8-step resolution sequence.
func (s *Service) Resolve(ctx context.Context, rawMoniker string, caller Caller) (ResolveResult, error) {
	start := time.Now()
	requestID := uuid.NewString()

	outcome := telemetry.OutcomeSuccess
	var result ResolveResult
	var successorPath, redirectedFrom string
	var deprecated bool

	defer func() {
		s.emitter.Emit(telemetry.UsageEvent{
			Timestamp:      time.Now().Unix(),
			RequestID:      requestID,
			Caller:         telemetry.Caller{AppID: caller.AppID, Team: caller.Team},
			Moniker:        rawMoniker,
			Operation:      telemetry.OpResolve,
			Outcome:        outcome,
			SourceType:     string(result.SourceType),
			LatencyMS:      time.Since(start).Milliseconds(),
			OwnerAtAccess:  ownerAtAccess(result.Ownership),
			Deprecated:     deprecated,
			Successor:      successorPath,
			RedirectedFrom: redirectedFrom,
		})
	}()

	// 1. Parse the moniker.
	p, err := moniker.Parse(rawMoniker)
	if err != nil {
		outcome = telemetry.OutcomeError
		return ResolveResult{}, err
	}

	if ctx.Err() != nil {
		outcome = telemetry.OutcomeError
		return ResolveResult{}, ctx.Err()
	}

	// 2. Compute the lookup key.
	key := p.Key()

	// Cached fast path.
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			result = cached
			return result, nil
		}
	}

	// 3. Walk the registry upward for a source binding.
	binding, _, ok := s.registry.SourceBindingOf(key)
	if !ok {
		outcome = telemetry.OutcomeNotFound
		if s.registry.Get(key) == nil {
			return ResolveResult{}, fmt.Errorf("%w: %s", apierr.ErrUnknownMoniker, key)
		}
		return ResolveResult{}, fmt.Errorf("%w: %s", apierr.ErrNoBinding, key)
	}

	node := s.registry.Get(key)
	reportedPath := key

	// 4. Successor redirect while deprecated, bounded by MaxSuccessorDepth.
	// binding/query come from the final (redirected) source, but the
	// deprecation metadata reported back (Status, Successor, etc.) always
	// describes the originally requested node, not where it was redirected to.
	if s.deprecation.Enabled && s.deprecation.RedirectOnResolve && node != nil && node.EffectiveStatus() == catalog.StatusDeprecated && node.Successor != "" {
		redirectedFrom = key
		current := node.Successor
		for depth := 0; depth < catalog.MaxSuccessorDepth; depth++ {
			nextBinding, _, hasBinding := s.registry.SourceBindingOf(current)
			if !hasBinding {
				break
			}
			binding = nextBinding
			successorNode := s.registry.Get(current)
			if successorNode != nil && successorNode.EffectiveStatus() == catalog.StatusDeprecated && successorNode.Successor != "" {
				current = successorNode.Successor
				continue
			}
			break
		}
	}

	if ctx.Err() != nil {
		outcome = telemetry.OutcomeError
		return ResolveResult{}, ctx.Err()
	}

	// 5. Expand the template.
	query := ""
	if binding != nil {
		if rawQuery, ok := binding.Config["query"].(string); ok {
			expanded, err := tmpl.Expand(rawQuery, p)
			if err != nil {
				outcome = telemetry.OutcomeError
				return ResolveResult{}, err
			}
			query = expanded
		}
	}

	// 6. Assemble the result.
	ownership := s.registry.OwnershipOf(reportedPath)
	result = ResolveResult{
		Path:       reportedPath,
		SourceType: binding.SourceType,
		Connection: binding.Config,
		Query:      query,
		Ownership:  ownership,
		ReadOnly:   binding.ReadOnly,
	}
	if node != nil {
		result.Status = node.EffectiveStatus()
		result.DeprecationMessage = node.DeprecationMessage
		result.Successor = node.Successor
		result.SunsetDeadline = node.SunsetDeadline
		result.MigrationGuideURL = node.MigrationGuideURL
	}
	result.RedirectedFrom = redirectedFrom

	successorPath = result.Successor
	deprecated = result.Status == catalog.StatusDeprecated

	// 8. Cache the result.
	if s.cache != nil {
		s.cache.Set(key, result)
	}

	return result, nil
}

// CacheSize reports the current resolution-cache entry count, surfaced via
// /health.
func (s *Service) CacheSize() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.Len()
}

func ownerAtAccess(o catalog.Ownership) string {
	if o.AccountableOwner != nil {
		return *o.AccountableOwner
	}
	return ""
}
