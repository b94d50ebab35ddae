package governance

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monikerhub/resolver/internal/catalog"
)

func clock() int64 { return 1700000000 }

func newController() *Controller {
	reg := catalog.NewRegistry([]*catalog.CatalogNode{
		{Path: "prices", Status: catalog.StatusActive},
	}, clock)
	return NewController(reg, NewRequestRegistry(clock), true, nil, nil)
}

func TestSubmitAndApprove(t *testing.T) {
	c := newController()

	req, err := c.Submit("foo.bar/baz", catalog.CatalogNode{
		DisplayName:   "Foo Bar Baz",
		SourceBinding: &catalog.SourceBinding{SourceType: catalog.SourceStatic},
	}, "alice")
	require.NoError(t, err)
	assert.Equal(t, RequestPending, req.Status)

	node, err := c.Approve(req.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusActive, node.Status)
	assert.NotNil(t, c.registry.Get("foo.bar/baz"))
}

func TestSubmitRejectsExistingPath(t *testing.T) {
	c := newController()
	_, err := c.Submit("prices", catalog.CatalogNode{}, "alice")
	assert.Error(t, err)
}

func TestSubmitRejectsDuplicatePending(t *testing.T) {
	c := newController()
	_, err := c.Submit("foo.bar", catalog.CatalogNode{}, "alice")
	require.NoError(t, err)
	_, err = c.Submit("foo.bar", catalog.CatalogNode{}, "alice")
	assert.Error(t, err)
}

func TestReject(t *testing.T) {
	c := newController()
	req, err := c.Submit("foo.bar", catalog.CatalogNode{}, "alice")
	require.NoError(t, err)

	rejected, err := c.Reject(req.ID, "bob", "not needed")
	require.NoError(t, err)
	assert.Equal(t, RequestRejected, rejected.Status)
	assert.Equal(t, "not needed", rejected.RejectionReason)
}

func TestReloadCatalogBlocksBreakingChange(t *testing.T) {
	c := newController()

	result := c.ReloadCatalog([]*catalog.CatalogNode{}, true, "ops")
	assert.False(t, result.Applied)
	assert.True(t, result.HasBreakingChanges)
	assert.Equal(t, 1, result.RemovedCount)
}

func TestReloadCatalogDeprecationDisabled(t *testing.T) {
	reg := catalog.NewRegistry([]*catalog.CatalogNode{{Path: "prices", Status: catalog.StatusActive}}, clock)
	c := NewController(reg, NewRequestRegistry(clock), false, nil, nil)

	result := c.ReloadCatalog([]*catalog.CatalogNode{}, true, "ops")
	assert.True(t, result.Applied)
	assert.Nil(t, reg.Get("prices"))
}

func TestReloadCatalogRendersBindingDiffOnAudit(t *testing.T) {
	reg := catalog.NewRegistry([]*catalog.CatalogNode{
		{Path: "prices.equity", Status: catalog.StatusActive,
			SourceBinding: &catalog.SourceBinding{SourceType: catalog.SourceSnowflake, Config: map[string]any{"query": "SELECT 1"}}},
	}, clock)
	c := NewController(reg, NewRequestRegistry(clock), true, nil, nil)

	result := c.ReloadCatalog([]*catalog.CatalogNode{
		{Path: "prices.equity", Status: catalog.StatusActive,
			SourceBinding: &catalog.SourceBinding{SourceType: catalog.SourceSnowflake, Config: map[string]any{"query": "SELECT 2"}}},
	}, false, "ops")
	require.True(t, result.Applied)

	log := reg.AuditLog("prices.equity", 10)
	require.Len(t, log, 1)
	assert.Equal(t, "binding_changed", log[0].Kind)
	assert.NotEqual(t, "source binding changed during catalog reload", log[0].Reason)
	assert.NotNil(t, log[0].Before)
	assert.NotNil(t, log[0].After)
}

func TestReloadFromFileCollapsesConcurrentCalls(t *testing.T) {
	c := newController()

	var loadCount int32
	load := func(path string) ([]*catalog.CatalogNode, error) {
		atomic.AddInt32(&loadCount, 1)
		time.Sleep(20 * time.Millisecond)
		return []*catalog.CatalogNode{{Path: "prices", Status: catalog.StatusActive}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.ReloadFromFile("catalog.yaml", load, false, "ops")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), loadCount)
}
