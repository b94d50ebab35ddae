package moniker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBasic(t *testing.T) {
	p, err := Parse("prices.equity/AAPL@20260115")
	require.NoError(t, err)
	assert.Equal(t, "prices.equity", p.Domain)
	assert.Equal(t, []string{"AAPL"}, p.Segments)
	assert.Equal(t, "20260115", p.Version)
	assert.Empty(t, p.Namespace)
	assert.Empty(t, p.Revision)
}

func TestParseAllSegmentLatest(t *testing.T) {
	p, err := Parse("prices.equity/ALL@latest")
	require.NoError(t, err)
	assert.True(t, p.IsAllSegment(0))
	assert.True(t, p.IsLatest())
}

func TestParseNamespace(t *testing.T) {
	p, err := Parse("user@prices.equity/AAPL")
	require.NoError(t, err)
	assert.Equal(t, "user", p.Namespace)
	assert.Equal(t, "prices.equity", p.Domain)
}

func TestParseRevision(t *testing.T) {
	p, err := Parse("prices.equity/AAPL/v2")
	require.NoError(t, err)
	assert.Equal(t, "2", p.Revision)
	n, err := p.RevisionInt()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestParseParams(t *testing.T) {
	p, err := Parse("prices.equity/AAPL?format=json&raw=true")
	require.NoError(t, err)
	assert.Equal(t, "json", p.Params["format"])
	assert.Equal(t, "true", p.Params["raw"])
}

func TestParseLeadingTrailingSlash(t *testing.T) {
	p, err := Parse("/prices.equity/AAPL/")
	require.NoError(t, err)
	assert.Equal(t, "prices.equity", p.Domain)
	assert.Equal(t, []string{"AAPL"}, p.Segments)
}

func TestParseBadDomain(t *testing.T) {
	_, err := Parse("Prices/AAPL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidMoniker))
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ReasonBadDomain, pe.Reason)
}

func TestParseBadSegmentEmpty(t *testing.T) {
	_, err := Parse("prices.equity//AAPL")
	require.Error(t, err)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ReasonBadSegment, pe.Reason)
}

func TestParseBadVersion(t *testing.T) {
	_, err := Parse("prices.equity/AAPL@2026011")
	require.Error(t, err)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ReasonBadVersion, pe.Reason)
}

func TestParseBadVersionInvalidCalendarDate(t *testing.T) {
	_, err := Parse("prices.equity/AAPL@20261345")
	require.Error(t, err)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ReasonBadVersion, pe.Reason)
}

func TestRoundTrip(t *testing.T) {
	cases := []string{
		"prices.equity/AAPL",
		"prices.equity/AAPL@20260115",
		"prices.equity/ALL@latest",
		"user@prices.equity/AAPL/v2",
		"prices.equity/AAPL@20260115/v3",
	}
	for _, s := range cases {
		p, err := Parse(s)
		require.NoError(t, err, s)
		p2, err := Parse(p.String())
		require.NoError(t, err, s)
		assert.Equal(t, p, p2, "round trip for %q", s)
	}
}

func TestKey(t *testing.T) {
	p, err := Parse("prices.equity/AAPL@20260115")
	require.NoError(t, err)
	assert.Equal(t, "prices.equity/AAPL", p.Key())
}

func TestParentWalksSegmentsThenDomain(t *testing.T) {
	leaf, err := Parse("prices.equity/AAPL")
	require.NoError(t, err)

	segmentParent, ok := leaf.Parent()
	require.True(t, ok)
	assert.Equal(t, "prices.equity", segmentParent.Key())

	domainParent, ok := segmentParent.Parent()
	require.True(t, ok)
	assert.Equal(t, "prices", domainParent.Key())

	_, ok = domainParent.Parent()
	assert.False(t, ok, "top-level domain has no parent")
}

func TestAncestorsRootFirst(t *testing.T) {
	leaf, err := Parse("prices.equity/AAPL")
	require.NoError(t, err)

	ancestors := leaf.Ancestors()
	require.Len(t, ancestors, 2)
	assert.Equal(t, "prices", ancestors[0].Key())
	assert.Equal(t, "prices.equity", ancestors[1].Key())
}

func TestIsAncestorOfAndIsDescendantOf(t *testing.T) {
	root, err := Parse("prices")
	require.NoError(t, err)
	mid, err := Parse("prices.equity")
	require.NoError(t, err)
	leaf, err := Parse("prices.equity/AAPL")
	require.NoError(t, err)

	assert.True(t, root.IsAncestorOf(leaf))
	assert.True(t, mid.IsAncestorOf(leaf))
	assert.False(t, leaf.IsAncestorOf(root))
	assert.False(t, root.IsAncestorOf(root))

	assert.True(t, leaf.IsDescendantOf(root))
	assert.True(t, leaf.IsDescendantOf(mid))
	assert.False(t, root.IsDescendantOf(leaf))
}
