package paging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGate struct{ busy bool }

func (g *fakeGate) Busy() bool { return g.busy }

func TestCursorScenarioFifteenOfForty(t *testing.T) {
	c := NewCursor(15, nil)

	var offsets []int
	for i := 0; i < 5; i++ {
		off, ok := c.Advance()
		if !ok {
			break
		}
		require.NoError(t, c.Commit(off, 40))
		offsets = append(offsets, off)
	}

	assert.Equal(t, []int{0, 15, 30}, offsets)
	assert.True(t, c.Exhausted())

	_, ok := c.Advance()
	assert.False(t, ok, "no page starts at or beyond the total")
}

func TestCursorMonotonicUntilTotal(t *testing.T) {
	for _, tc := range []struct {
		pageSize, total int
		want            []int
	}{
		{10, 0, []int{0}},
		{10, 10, []int{0}},
		{10, 11, []int{0, 10}},
		{5, 12, []int{0, 5, 10}},
		{20, 100, []int{0, 20, 40, 60, 80}},
	} {
		c := NewCursor(tc.pageSize, nil)
		var got []int
		for {
			off, ok := c.Advance()
			if !ok {
				break
			}
			require.NoError(t, c.Commit(off, tc.total))
			got = append(got, off)
		}
		assert.Equal(t, tc.want, got, "pageSize=%d total=%d", tc.pageSize, tc.total)
		for i := 1; i < len(got); i++ {
			assert.Equal(t, tc.pageSize, got[i]-got[i-1])
		}
	}
}

func TestCursorAdvanceIsNoOpWhileBusy(t *testing.T) {
	gate := &fakeGate{busy: true}
	c := NewCursor(15, gate)

	_, ok := c.Advance()
	assert.False(t, ok)

	gate.busy = false
	off, ok := c.Advance()
	assert.True(t, ok)
	assert.Equal(t, 0, off)
}

func TestCursorAdvanceWithoutCommitRepeatsProposal(t *testing.T) {
	c := NewCursor(15, nil)
	require.NoError(t, c.Commit(0, 40))

	a, _ := c.Advance()
	b, _ := c.Advance()
	assert.Equal(t, 15, a)
	assert.Equal(t, a, b, "a failed fetch retries the same offset")
}

func TestCursorReset(t *testing.T) {
	c := NewCursor(15, nil)
	require.NoError(t, c.Commit(0, 40))
	require.NoError(t, c.Commit(15, 40))

	c.Reset()
	_, ok := c.Current()
	assert.False(t, ok)
	_, ok = c.Total()
	assert.False(t, ok)

	off, ok := c.Advance()
	assert.True(t, ok)
	assert.Equal(t, 0, off)
}

func TestCursorCommitRejectsNonIncreasing(t *testing.T) {
	c := NewCursor(15, nil)
	require.NoError(t, c.Commit(15, 40))
	assert.Error(t, c.Commit(15, 40))
	assert.Error(t, c.Commit(0, 40))
	assert.Error(t, c.Commit(-1, 40))
}

func TestCursorDefaultPageSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, NewCursor(0, nil).PageSize())
}
