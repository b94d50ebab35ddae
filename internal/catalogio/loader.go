// Package catalogio loads the catalog definition file (spec.md §6) from
// YAML into catalog.CatalogNode values, grounded on
// original_source/resolver-go/cmd/resolver/main.go's catalog.LoadCatalog
// call and the field list spec.md documents for the file format.
package catalogio

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/monikerhub/resolver/internal/catalog"
)

// rawNode mirrors one entry of the path -> attributes YAML mapping.
type rawNode struct {
	DisplayName        string                `yaml:"display_name"`
	Description        string                `yaml:"description"`
	Tags               []string              `yaml:"tags"`
	SemanticTags       []string              `yaml:"semantic_tags"`
	Status             catalog.NodeStatus    `yaml:"status"`
	DeprecationMessage string                `yaml:"deprecation_message"`
	Successor          string                `yaml:"successor"`
	SunsetDeadline     string                `yaml:"sunset_deadline"`
	MigrationGuideURL  string                `yaml:"migration_guide_url"`
	Ownership          rawOwnership          `yaml:"ownership"`
	ADOP               string                `yaml:"adop"`
	ADS                string                `yaml:"ads"`
	SourceBinding      *catalog.SourceBinding `yaml:"source_binding"`
	Documentation      catalog.Documentation `yaml:"documentation"`
}

type rawOwnership struct {
	AccountableOwner string `yaml:"accountable_owner"`
	DataSpecialist   string `yaml:"data_specialist"`
	SupportChannel   string `yaml:"support_channel"`
}

// Load reads path as a YAML mapping of moniker path -> node attributes and
// returns the corresponding catalog nodes, sorted for deterministic
// startup logging.
func Load(path string) ([]*catalog.CatalogNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalogio: read %s: %w", path, err)
	}

	var raw map[string]rawNode
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("catalogio: parse %s: %w", path, err)
	}

	paths := make([]string, 0, len(raw))
	for p := range raw {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	nodes := make([]*catalog.CatalogNode, 0, len(paths))
	for _, p := range paths {
		r := raw[p]
		node := &catalog.CatalogNode{
			Path:               p,
			DisplayName:        r.DisplayName,
			Description:        r.Description,
			Tags:               r.Tags,
			SemanticTags:       r.SemanticTags,
			Status:             r.Status,
			DeprecationMessage: r.DeprecationMessage,
			Successor:          r.Successor,
			SunsetDeadline:     r.SunsetDeadline,
			MigrationGuideURL:  r.MigrationGuideURL,
			SourceBinding:      r.SourceBinding,
			Documentation:      r.Documentation,
			Ownership:          toOwnership(r.Ownership, r.ADOP, r.ADS),
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func toOwnership(raw rawOwnership, adop, ads string) catalog.Ownership {
	var o catalog.Ownership
	if raw.AccountableOwner != "" {
		o.AccountableOwner = &raw.AccountableOwner
	}
	if raw.DataSpecialist != "" {
		o.DataSpecialist = &raw.DataSpecialist
	}
	if raw.SupportChannel != "" {
		o.SupportChannel = &raw.SupportChannel
	}
	if adop != "" {
		o.ADOP = &adop
	}
	if ads != "" {
		o.ADS = &ads
	}
	return o
}
