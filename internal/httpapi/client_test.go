package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/collection"
	"github.com/roach88/tally/internal/filter"
	"github.com/roach88/tally/internal/record"
	"github.com/roach88/tally/internal/store"
	"github.com/roach88/tally/internal/value"
)

var (
	_ collection.Fetcher         = (*Client)(nil)
	_ collection.Saver           = (*Client)(nil)
	_ collection.ReferenceLookup = (*Client)(nil)
	_ Backend                    = (*store.Store)(nil)
)

func newTestClient(t *testing.T) (*Client, *store.Store) {
	t.Helper()
	srv, st := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	c, err := NewClient(ts.URL + "/")
	require.NoError(t, err)
	return c, st
}

func TestClientFetchMatchesStore(t *testing.T) {
	c, st := newTestClient(t)
	ctx := context.Background()
	fc := filter.Context{TableType: "inventory"}.WithSearch("lamp")

	remote, err := c.Fetch(ctx, fc, 0, 3)
	require.NoError(t, err)
	local, err := st.Fetch(ctx, fc, 0, 3)
	require.NoError(t, err)

	assert.Equal(t, local.TotalCount, remote.TotalCount)
	require.Len(t, remote.Items, len(local.Items))
	for i := range local.Items {
		assert.True(t, local.Items[i].Equal(remote.Items[i]), "item %d", i)
	}
}

func TestClientFetchEmptyPage(t *testing.T) {
	c, _ := newTestClient(t)

	page, err := c.Fetch(context.Background(), filter.Context{TableType: "nothing"}, 0, 15)
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.TotalCount)
}

func TestClientFetchError(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Fetch(context.Background(), filter.Context{TableType: "inventory"}.WithToggle("nope", true), 0, 15)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

func TestClientSave(t *testing.T) {
	c, st := newTestClient(t)
	ctx := context.Background()

	rec := record.New("new-1", value.Object{
		"table_type":   value.String("expenses"),
		"name":         value.String("Rent"),
		"amount_minor": value.Int(120000),
	})
	require.NoError(t, c.Save(ctx, []record.Record{rec}))

	got, err := st.Get(ctx, "new-1")
	require.NoError(t, err)
	assert.Equal(t, value.Int(120000), got.Get("amount_minor"))
}

func TestClientLookup(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	ref, err := c.Lookup(ctx, "cat-games")
	require.NoError(t, err)
	assert.Equal(t, record.Reference{ID: "cat-games", Name: "Games"}, ref)

	_, err = c.Lookup(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestClientCancelledContext(t *testing.T) {
	c, _ := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Fetch(ctx, filter.Context{TableType: "inventory"}, 0, 15)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientHealth(t *testing.T) {
	c, _ := newTestClient(t)
	assert.NoError(t, c.Health(context.Background()))
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	_, err := NewClient("localhost:8080")
	assert.Error(t, err)
}
