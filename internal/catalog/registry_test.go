package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func clock() int64 { return 1700000000 }

func seedNodes() []*CatalogNode {
	return []*CatalogNode{
		{Path: "prices", Status: StatusActive, Ownership: Ownership{AccountableOwner: strp("A")}},
		{Path: "prices.equity", Status: StatusActive, Ownership: Ownership{SupportChannel: strp("#x")},
			SourceBinding: &SourceBinding{SourceType: SourceSnowflake, Config: map[string]any{"query": "SELECT 1"}, AllowedOperations: []string{"READ"}}},
		{Path: "prices.equity/AAPL", Status: StatusActive},
		{Path: "rates.libor/usd", Status: StatusDeprecated, Successor: "rates.sofr/usd",
			SourceBinding: &SourceBinding{SourceType: SourceREST, Config: map[string]any{"query": "old"}}},
		{Path: "rates.sofr/usd", Status: StatusActive,
			SourceBinding: &SourceBinding{SourceType: SourceREST, Config: map[string]any{"query": "new"}}},
	}
}

func TestOwnershipInheritance(t *testing.T) {
	r := NewRegistry(seedNodes(), clock)
	o := r.OwnershipOf("prices.equity/AAPL")
	require.NotNil(t, o.AccountableOwner)
	assert.Equal(t, "A", *o.AccountableOwner)
	require.NotNil(t, o.SupportChannel)
	assert.Equal(t, "#x", *o.SupportChannel)
	assert.Nil(t, o.DataSpecialist)
}

func TestSourceBindingInheritance(t *testing.T) {
	r := NewRegistry(seedNodes(), clock)
	binding, definedAt, ok := r.SourceBindingOf("prices.equity/AAPL")
	require.True(t, ok)
	assert.Equal(t, "prices.equity", definedAt)
	assert.Equal(t, SourceSnowflake, binding.SourceType)
}

func TestSourceBindingNoneFound(t *testing.T) {
	r := NewRegistry(seedNodes(), clock)
	_, _, ok := r.SourceBindingOf("prices")
	assert.False(t, ok)
}

func TestListChildren(t *testing.T) {
	r := NewRegistry(seedNodes(), clock)
	children := r.ListChildren("prices.equity")
	assert.Equal(t, []string{"prices.equity/AAPL"}, children)
}

func TestDiffAndValidatedReplace(t *testing.T) {
	r := NewRegistry(seedNodes(), clock)

	newNodes := []*CatalogNode{
		{Path: "prices", Status: StatusActive, Ownership: Ownership{AccountableOwner: strp("A")}},
		{Path: "prices.equity", Status: StatusActive,
			SourceBinding: &SourceBinding{SourceType: SourceSnowflake, Config: map[string]any{"query": "SELECT 2"}, AllowedOperations: []string{"READ"}}},
		{Path: "rates.sofr/usd", Status: StatusActive,
			SourceBinding: &SourceBinding{SourceType: SourceREST, Config: map[string]any{"query": "new"}}},
	}

	diff, applied := r.ValidatedReplace(newNodes, true, "tester")
	assert.False(t, applied)
	assert.True(t, diff.HasBreakingChanges())
	assert.Contains(t, diff.RemovedPaths, "prices.equity/AAPL")
	assert.Contains(t, diff.RemovedPaths, "rates.libor/usd")
	assert.Contains(t, diff.BindingChangedPaths, "prices.equity")

	// Registry remains on the old snapshot.
	assert.NotNil(t, r.Get("prices.equity/AAPL"))

	diff2, applied2 := r.ValidatedReplace(newNodes, false, "tester")
	assert.True(t, applied2)
	assert.True(t, diff2.HasBreakingChanges())
	assert.Nil(t, r.Get("prices.equity/AAPL"))
}

func TestIdempotentAtomicReplace(t *testing.T) {
	r := NewRegistry(seedNodes(), clock)
	nodes := r.AllNodes()
	diff := r.Diff(nodes)
	assert.Empty(t, diff.AddedPaths)
	assert.Empty(t, diff.RemovedPaths)
	assert.Empty(t, diff.BindingChangedPaths)
}

func TestValidateSuccessors(t *testing.T) {
	r := NewRegistry(seedNodes(), clock)
	errs := r.ValidateSuccessors()
	assert.Empty(t, errs)

	broken := append(seedNodes(), &CatalogNode{Path: "x.y", Successor: "x.y"})
	r2 := NewRegistry(broken, clock)
	errs2 := r2.ValidateSuccessors()
	require.Len(t, errs2, 1)
	assert.Contains(t, errs2[0], "points to itself")
}

func TestUpdateStatusTransitions(t *testing.T) {
	r := NewRegistry(seedNodes(), clock)

	_, err := r.UpdateStatus("prices.equity", StatusDeprecated, "ops", "winding down", &DeprecationFields{Successor: "prices.equity.v2"})
	require.NoError(t, err)
	assert.Equal(t, StatusDeprecated, r.Get("prices.equity").Status)
	assert.Equal(t, "prices.equity.v2", r.Get("prices.equity").Successor)

	_, err = r.UpdateStatus("prices.equity", StatusActive, "ops", "", nil)
	require.Error(t, err)

	log := r.AuditLog("prices.equity", 10)
	require.Len(t, log, 1)
	assert.Equal(t, "status_changed", log[0].Kind)
}
