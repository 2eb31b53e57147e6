package testutil

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/filter"
	"github.com/roach88/tally/internal/record"
	"github.com/roach88/tally/internal/value"
)

func items(n int) []record.Record {
	out := make([]record.Record, n)
	for i := range out {
		out[i] = record.New(strconv.Itoa(i+1), value.Object{
			"name": value.String(fmt.Sprintf("item %d", i+1)),
		})
	}
	return out
}

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator("")
	assert.Equal(t, "tok-1", g.Generate())
	assert.Equal(t, "tok-2", g.Generate())
	g.Reset()
	assert.Equal(t, "tok-1", g.Generate())
}

func TestMemoryFetcherPages(t *testing.T) {
	m := NewMemoryFetcher(items(40)...)
	ctx := context.Background()

	page, err := m.Fetch(ctx, filter.Context{}, 30, 15)
	require.NoError(t, err)
	assert.Equal(t, 40, page.TotalCount)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, "31", page.Items[0].ID)
	assert.False(t, page.HasMore())

	page, err = m.Fetch(ctx, filter.Context{}, 45, 15)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestMemoryFetcherSearch(t *testing.T) {
	m := NewMemoryFetcher(items(12)...)
	page, err := m.Fetch(context.Background(), filter.Context{SearchText: " ITEM 1"}, 0, 15)
	require.NoError(t, err)
	assert.Equal(t, 4, page.TotalCount, "item 1, 10, 11, 12")
}

func TestGatedFetcherHoldRelease(t *testing.T) {
	g := NewGatedFetcher(NewMemoryFetcher(items(3)...))
	g.Hold()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result := make(chan record.Page, 1)
	go func() {
		page, _ := g.Fetch(ctx, filter.Context{}, 0, 15)
		result <- page
	}()

	require.NoError(t, g.WaitHeld(ctx, 1))
	select {
	case <-result:
		t.Fatal("held call returned early")
	default:
	}

	call, ok := g.Release()
	require.True(t, ok)
	assert.Equal(t, 0, call.Offset)
	page := <-result
	assert.Len(t, page.Items, 3)
	assert.Equal(t, []int{0}, g.Offsets())
}

func TestGatedFetcherHeldCallIgnoresCancellation(t *testing.T) {
	g := NewGatedFetcher(NewMemoryFetcher(items(3)...))
	g.Hold()

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		_, err := g.Fetch(ctx, filter.Context{}, 0, 15)
		result <- err
	}()

	wait, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	require.NoError(t, g.WaitHeld(wait, 1))
	cancel()
	g.ReleaseAll()
	assert.NoError(t, <-result)
}

func TestGatedFetcherFailNext(t *testing.T) {
	g := NewGatedFetcher(NewMemoryFetcher(items(3)...))
	boom := errors.New("503")
	g.FailNext(boom)

	_, err := g.Fetch(context.Background(), filter.Context{}, 0, 15)
	assert.ErrorIs(t, err, boom)

	_, err = g.Fetch(context.Background(), filter.Context{}, 0, 15)
	assert.NoError(t, err)
}

func TestGatedSaverHoldRelease(t *testing.T) {
	g := NewGatedSaver()
	g.Hold()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Save(ctx, items(2))
	}()
	require.NoError(t, g.WaitHeld(ctx, 1))
	assert.Empty(t, g.Saves())

	assert.True(t, g.Release())
	require.NoError(t, <-done)
	assert.Equal(t, 0, g.Held())
	require.Len(t, g.Saves(), 1)
	assert.Len(t, g.Saves()[0], 2)

	assert.False(t, g.Release())
}

func TestFakeReferences(t *testing.T) {
	refs := NewFakeReferences(record.Reference{ID: "1", Name: "Food"})
	ref, err := refs.Lookup(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Food", ref.Name)

	_, err = refs.Lookup(context.Background(), "2")
	assert.Error(t, err)
	assert.Equal(t, 1, refs.Calls("1"))
}

func TestFakeSaver(t *testing.T) {
	s := NewFakeSaver()
	s.FailNext(errors.New("conflict"))
	assert.Error(t, s.Save(context.Background(), items(2)))
	assert.NoError(t, s.Save(context.Background(), items(1)))
	require.Len(t, s.Saves(), 2)
	assert.Len(t, s.Saves()[1], 1)
}
