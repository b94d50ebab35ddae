// Package moniker implements the moniker path grammar: parsing a raw
// moniker string into its structured parts and rendering it back to
// canonical form.
package moniker

import (
	"sort"
	"strings"
)

// Path is the parsed form of a moniker string.
//
//	[namespace@]domain[/segments...][@version][/vRevision][?params]
type Path struct {
	Namespace string
	Domain    string
	Segments  []string
	Version   string
	Revision  string
	Params    map[string]string
}

// Key is the registry lookup key: domain + "/" + segments, joined by "/".
// The namespace is preserved on the Path but is not part of the key unless
// the catalog explicitly namespaces entries (spec.md §4.E, step 2).
func (p Path) Key() string {
	if len(p.Segments) == 0 {
		return p.Domain
	}
	return p.Domain + "/" + strings.Join(p.Segments, "/")
}

// String renders the canonical form of the path. Canonical form always
// round-trips: Parse(p.String()) produces an equal Path.
func (p Path) String() string {
	var b strings.Builder
	if p.Namespace != "" {
		b.WriteString(p.Namespace)
		b.WriteByte('@')
	}
	b.WriteString(p.Domain)
	for _, seg := range p.Segments {
		b.WriteByte('/')
		b.WriteString(seg)
	}
	if p.Version != "" {
		b.WriteByte('@')
		b.WriteString(p.Version)
	}
	if p.Revision != "" {
		b.WriteString("/v")
		b.WriteString(p.Revision)
	}
	if len(p.Params) > 0 {
		b.WriteByte('?')
		first := true
		for _, k := range sortedKeys(p.Params) {
			if !first {
				b.WriteByte('&')
			}
			first = false
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(p.Params[k])
		}
	}
	return b.String()
}

// IsLatest reports whether the version suffix is the literal "latest".
func (p Path) IsLatest() bool {
	return p.Version == "latest"
}

// IsAllSegment reports whether segment n is the literal "ALL".
func (p Path) IsAllSegment(n int) bool {
	return n >= 0 && n < len(p.Segments) && p.Segments[n] == "ALL"
}

// Parent returns the immediate parent of p in the catalog key hierarchy, or
// false if p is already at the root. The hierarchy walks segments right to
// left first, then the dotted domain components, mirroring the moniker
// grammar's mixed dotted-domain-plus-slash-segment structure. Version,
// revision, and params are not part of the key hierarchy and are dropped.
func (p Path) Parent() (Path, bool) {
	key := p.Key()
	parentKey, ok := parentKeyOf(key)
	if !ok {
		return Path{}, false
	}
	parent, err := Parse(parentKey)
	if err != nil {
		return Path{}, false
	}
	return parent, true
}

// Ancestors returns every ancestor of p from root to immediate parent,
// root-first, not including p itself. Useful for the registry's ownership
// and source-binding inheritance walks.
func (p Path) Ancestors() []Path {
	var chain []Path
	current := p
	for {
		parent, ok := current.Parent()
		if !ok {
			break
		}
		chain = append([]Path{parent}, chain...)
		current = parent
	}
	return chain
}

// IsAncestorOf reports whether p is a strict ancestor of other in the
// catalog key hierarchy.
func (p Path) IsAncestorOf(other Path) bool {
	for _, a := range other.Ancestors() {
		if a.Key() == p.Key() {
			return true
		}
	}
	return false
}

// IsDescendantOf reports whether p is a strict descendant of other.
func (p Path) IsDescendantOf(other Path) bool {
	return other.IsAncestorOf(p)
}

// parentKeyOf derives the parent key of a registry key, supporting both "."
// and "/" as hierarchy separators. Returns ok=false only for an empty key;
// an empty parent string with ok=true means the parent is the catalog root.
func parentKeyOf(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		return key[:idx], true
	}
	if idx := strings.LastIndex(key, "."); idx >= 0 {
		return key[:idx], true
	}
	return "", true
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
