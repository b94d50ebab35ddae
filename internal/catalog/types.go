// Package catalog holds the immutable data shapes for the moniker registry
// tree: source bindings, ownership, node status, and the catalog node itself.
package catalog

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
)

// SourceType identifies the kind of system a SourceBinding connects to.
type SourceType string

const (
	SourceSnowflake  SourceType = "snowflake"
	SourceOracle     SourceType = "oracle"
	SourceREST       SourceType = "rest"
	SourceStatic     SourceType = "static"
	SourceExcel      SourceType = "excel"
	SourceOpenSearch SourceType = "opensearch"
	SourceBloomberg  SourceType = "bloomberg"
	SourceRefinitiv  SourceType = "refinitiv"
	SourceFile       SourceType = "file"
)

// SourceBinding is the contract describing where and how to fetch data for
// a catalog node.
type SourceBinding struct {
	SourceType        SourceType     `yaml:"type" json:"source_type"`
	Config            map[string]any `yaml:"config" json:"config"`
	AllowedOperations []string       `yaml:"allowed_operations" json:"allowed_operations"`
	Schema            []SchemaField  `yaml:"schema,omitempty" json:"schema,omitempty"`
	ReadOnly          bool           `yaml:"read_only" json:"read_only"`
}

// SchemaField is an optional column descriptor on a SourceBinding.
type SchemaField struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
}

// Fingerprint is a 16-hex-char prefix of SHA-256 over the canonical JSON of
// SourceType, Config, AllowedOperations, Schema and ReadOnly, keys sorted.
// Two bindings with equal fingerprint are contract-equivalent; any field
// change flips it.
func (b SourceBinding) Fingerprint() string {
	ops := append([]string(nil), b.AllowedOperations...)
	sort.Strings(ops)

	canonical := struct {
		SourceType SourceType    `json:"source_type"`
		Config     map[string]any `json:"config"`
		Operations []string      `json:"allowed_operations"`
		Schema     []SchemaField `json:"schema"`
		ReadOnly   bool          `json:"read_only"`
	}{
		SourceType: b.SourceType,
		Config:     sortedMap(b.Config),
		Operations: ops,
		Schema:     b.Schema,
		ReadOnly:   b.ReadOnly,
	}

	// json.Marshal sorts map keys alphabetically already, but sortedMap
	// makes the intent explicit and stable across nested maps too.
	data, err := json.Marshal(canonical)
	if err != nil {
		// Config must be JSON-serializable; a binding that fails here is a
		// catalog authoring bug, not a runtime condition to recover from.
		panic(fmt.Sprintf("catalog: binding config not serializable: %v", err))
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)[:16]
}

func sortedMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = sortedMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}

// Ownership is the per-node governance triple plus the adop/ads roles. Any
// field may be nil and is then inherited from the nearest ancestor that
// sets it, field-by-field independently.
type Ownership struct {
	AccountableOwner *string `yaml:"accountable_owner,omitempty" json:"accountable_owner"`
	DataSpecialist   *string `yaml:"data_specialist,omitempty" json:"data_specialist"`
	SupportChannel   *string `yaml:"support_channel,omitempty" json:"support_channel"`
	ADOP             *string `yaml:"adop,omitempty" json:"adop"`
	ADS              *string `yaml:"ads,omitempty" json:"ads"`
}

// mergeFrom fills any nil field in o from ancestor, leaving set fields
// untouched. Used while walking the tree from the node up to the root.
func (o Ownership) mergeFrom(ancestor Ownership) Ownership {
	if o.AccountableOwner == nil {
		o.AccountableOwner = ancestor.AccountableOwner
	}
	if o.DataSpecialist == nil {
		o.DataSpecialist = ancestor.DataSpecialist
	}
	if o.SupportChannel == nil {
		o.SupportChannel = ancestor.SupportChannel
	}
	if o.ADOP == nil {
		o.ADOP = ancestor.ADOP
	}
	if o.ADS == nil {
		o.ADS = ancestor.ADS
	}
	return o
}

// NodeStatus is the lifecycle state of a CatalogNode.
type NodeStatus string

const (
	StatusDraft      NodeStatus = "DRAFT"
	StatusActive     NodeStatus = "ACTIVE"
	StatusDeprecated NodeStatus = "DEPRECATED"
	StatusArchived   NodeStatus = "ARCHIVED"
)

// allowedTransitions is the state machine from spec: DRAFT→ACTIVE,
// ACTIVE→DEPRECATED, DEPRECATED→ARCHIVED, and ACTIVE→ARCHIVED for
// emergency retirement. Any other transition is rejected.
var allowedTransitions = map[NodeStatus]map[NodeStatus]bool{
	StatusDraft:      {StatusActive: true},
	StatusActive:     {StatusDeprecated: true, StatusArchived: true},
	StatusDeprecated: {StatusArchived: true},
	StatusArchived:   {},
}

// CanTransition reports whether moving from `from` to `to` is legal.
func CanTransition(from, to NodeStatus) bool {
	return allowedTransitions[from][to]
}

// DeprecationFields carries the optional metadata that accompanies a
// transition to DEPRECATED. Registry.UpdateStatus folds these into the same
// copy-on-write snapshot as the status change itself, so the publish stays
// a single atomic swap.
type DeprecationFields struct {
	DeprecationMessage string
	Successor          string
	SunsetDeadline     string
	MigrationGuideURL  string
}

// Documentation holds glossary/runbook links for a node.
type Documentation struct {
	GlossaryURL string `yaml:"glossary_url,omitempty" json:"glossary_url,omitempty"`
	RunbookURL  string `yaml:"runbook_url,omitempty" json:"runbook_url,omitempty"`
}

// CatalogNode is a unit of the catalog tree.
type CatalogNode struct {
	Path                string         `yaml:"-" json:"path"`
	DisplayName         string         `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	Description         string         `yaml:"description,omitempty" json:"description,omitempty"`
	Tags                []string       `yaml:"tags,omitempty" json:"tags,omitempty"`
	SemanticTags        []string       `yaml:"semantic_tags,omitempty" json:"semantic_tags,omitempty"`
	Status              NodeStatus     `yaml:"status,omitempty" json:"status"`
	DeprecationMessage  string         `yaml:"deprecation_message,omitempty" json:"deprecation_message,omitempty"`
	Successor           string         `yaml:"successor,omitempty" json:"successor,omitempty"`
	SunsetDeadline       string        `yaml:"sunset_deadline,omitempty" json:"sunset_deadline,omitempty"`
	MigrationGuideURL   string         `yaml:"migration_guide_url,omitempty" json:"migration_guide_url,omitempty"`
	Ownership           Ownership      `yaml:"ownership,omitempty" json:"ownership"`
	SourceBinding       *SourceBinding `yaml:"source_binding,omitempty" json:"source_binding,omitempty"`
	Documentation       Documentation  `yaml:"documentation,omitempty" json:"documentation,omitempty"`
	Children            []string       `yaml:"-" json:"children,omitempty"`
}

// EffectiveStatus returns StatusActive when Status is unset, matching the
// catalog-load default (initial state is ACTIVE unless explicitly DRAFT).
func (n *CatalogNode) EffectiveStatus() NodeStatus {
	if n.Status == "" {
		return StatusActive
	}
	return n.Status
}

// AuditEntry is one append-only record of a mutating registry operation.
type AuditEntry struct {
	Timestamp int64      `json:"timestamp"`
	Actor     string     `json:"actor"`
	Path      string     `json:"path"`
	Kind      string     `json:"kind"`
	Before    any        `json:"before,omitempty"`
	After     any        `json:"after,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// CatalogDiff summarizes the differences between two catalog snapshots.
type CatalogDiff struct {
	AddedPaths          []string `json:"added_paths"`
	RemovedPaths        []string `json:"removed_paths"`
	BindingChangedPaths []string `json:"binding_changed_paths"`
	StatusChangedPaths  []string `json:"status_changed_paths"`
}

// HasBreakingChanges reports whether removed or binding-changed paths are
// non-empty.
func (d CatalogDiff) HasBreakingChanges() bool {
	return len(d.RemovedPaths) > 0 || len(d.BindingChangedPaths) > 0
}
