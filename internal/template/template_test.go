package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monikerhub/resolver/internal/moniker"
)

func TestExpandScenarioS1(t *testing.T) {
	p, err := moniker.Parse("prices.equity/AAPL@20260115")
	require.NoError(t, err)

	query, err := Expand("SELECT s,p FROM E WHERE {filter[0]:symbol} AND trade_date = {version_date}", p)
	require.NoError(t, err)
	assert.Equal(t, "SELECT s,p FROM E WHERE symbol = 'AAPL' AND trade_date = TO_DATE('20260115','YYYYMMDD')", query)
}

func TestExpandScenarioS2(t *testing.T) {
	p, err := moniker.Parse("prices.equity/ALL@latest")
	require.NoError(t, err)

	query, err := Expand("SELECT s,p FROM E WHERE {filter[0]:symbol} AND trade_date = {version_date} AND latest={is_latest}", p)
	require.NoError(t, err)
	assert.Contains(t, query, "1=1")
	assert.Contains(t, query, "'__LATEST__'")
	assert.Contains(t, query, "latest='true'")
}

func TestExpandRawPlaceholders(t *testing.T) {
	p, err := moniker.Parse("user@prices.equity/AAPL/US/v2")
	require.NoError(t, err)

	query, err := Expand("{namespace}:{path}:{segments[1]}:{revision}", p)
	require.NoError(t, err)
	assert.Equal(t, "user:AAPL/US:US:2", query)
}

func TestExpandMissingPlaceholder(t *testing.T) {
	p, err := moniker.Parse("prices.equity/AAPL")
	require.NoError(t, err)

	_, err = Expand("{bogus}", p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTemplateMissing))
}

func TestExpandSegmentOutOfRange(t *testing.T) {
	p, err := moniker.Parse("prices.equity/AAPL")
	require.NoError(t, err)

	_, err = Expand("{segments[5]}", p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTemplateMissing))
}

func TestSQLQuoteEscaping(t *testing.T) {
	p, err := moniker.Parse("prices.equity/O_Reilly")
	require.NoError(t, err)
	// The segment grammar admits no quote, so place one in the parsed path.
	p.Segments[0] = "O'Reilly"
	query, err := Expand("{filter[0]:symbol}", p)
	require.NoError(t, err)
	assert.Equal(t, "symbol = 'O''Reilly'", query)
}
