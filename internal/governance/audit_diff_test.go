package governance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monikerhub/resolver/internal/catalog"
)

func TestRenderBindingDiffShowsChange(t *testing.T) {
	before := &catalog.SourceBinding{SourceType: catalog.SourceSnowflake, Config: map[string]any{"query": "SELECT 1"}}
	after := &catalog.SourceBinding{SourceType: catalog.SourceSnowflake, Config: map[string]any{"query": "SELECT 2"}}

	diff, err := RenderBindingDiff("prices.equity", before, after)
	require.NoError(t, err)
	assert.NotEmpty(t, diff)
}

func TestRenderBindingDiffNoChange(t *testing.T) {
	binding := &catalog.SourceBinding{SourceType: catalog.SourceSnowflake, Config: map[string]any{"query": "SELECT 1"}}

	diff, err := RenderBindingDiff("prices.equity", binding, binding)
	require.NoError(t, err)
	assert.Empty(t, diff)
}
