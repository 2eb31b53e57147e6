package httpapi

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/filter"
	"github.com/roach88/tally/internal/paging"
)

func TestQueryRoundTrip(t *testing.T) {
	fc := filter.Context{TableType: "sales"}.
		WithSearch("Lamp").
		WithToggle("show_archived", true).
		WithToggle("bulk", false).
		WithPeriod(filter.Period{From: "2024-01-01", To: "2024-03-31"}).
		WithMarketplace("etsy").
		WithSort(filter.Sort{Field: "amount_minor", Descending: true})

	got, offset, limit, err := DecodeQuery("sales", EncodeQuery(fc, 30, 15))
	require.NoError(t, err)
	assert.Equal(t, 30, offset)
	assert.Equal(t, 15, limit)
	assert.Equal(t, fc.Key(), got.Key())
}

func TestDecodeQueryDefaults(t *testing.T) {
	fc, offset, limit, err := DecodeQuery("inventory", url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 0, offset)
	assert.Equal(t, paging.DefaultPageSize, limit)
	assert.True(t, fc.Equal(filter.Context{TableType: "inventory"}))
}

func TestDecodeQueryRejectsBadDesc(t *testing.T) {
	_, _, _, err := DecodeQuery("inventory", url.Values{"sort": {"name"}, "desc": {"maybe"}})
	assert.Error(t, err)
}

func TestDecodeQueryAcceptsLargestScreenPage(t *testing.T) {
	_, _, limit, err := DecodeQuery("inventory", EncodeQuery(filter.Context{}, 0, paging.MaxPageSize))
	require.NoError(t, err)
	assert.Equal(t, paging.MaxPageSize, limit)

	_, _, _, err = DecodeQuery("inventory", EncodeQuery(filter.Context{}, 0, paging.MaxPageSize+1))
	assert.ErrorContains(t, err, "limit must be between")
}
