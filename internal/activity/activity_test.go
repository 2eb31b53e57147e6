package activity

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateTracksNestedOperations(t *testing.T) {
	g := NewGate()
	var transitions []bool
	g.Subscribe(func(busy bool) { transitions = append(transitions, busy) })

	doneA := g.Track("fetch")
	doneB := g.Track("save")
	assert.True(t, g.Busy())
	assert.True(t, g.Active("fetch"))

	doneA()
	assert.True(t, g.Busy())
	assert.False(t, g.Active("fetch"))

	doneB()
	assert.False(t, g.Busy())
	assert.Equal(t, []bool{true, false}, transitions)
}

func TestGateDoneIsIdempotent(t *testing.T) {
	g := NewGate()
	done := g.Track("fetch")
	other := g.Track("fetch")

	done()
	done()
	assert.True(t, g.Busy(), "second done must not release the other tracker")

	other()
	assert.False(t, g.Busy())
}

func TestGateUnsubscribe(t *testing.T) {
	g := NewGate()
	calls := 0
	cancel := g.Subscribe(func(bool) { calls++ })
	cancel()

	g.Track("x")()
	assert.Zero(t, calls)
}

type codedErr struct{ code string }

func (e *codedErr) Error() string     { return "coded: " + e.code }
func (e *codedErr) ErrorCode() string { return e.code }

func TestBannerErrorCarriesCode(t *testing.T) {
	b := NewBanner(slog.New(slog.NewTextHandler(io.Discard, nil)))
	var got []Message
	b.Subscribe(func(m Message) { got = append(got, m) })

	b.Error(fmt.Errorf("load page: %w", &codedErr{code: "FETCH_FAILED"}))
	b.Error(nil)
	b.Success("Saved")

	require.Len(t, got, 2)
	assert.Equal(t, KindError, got[0].Kind)
	assert.Equal(t, "FETCH_FAILED", got[0].Code)
	assert.Contains(t, got[0].Text, "load page")
	assert.Equal(t, KindSuccess, got[1].Kind)
	assert.Equal(t, "Saved", got[1].Text)
	assert.Equal(t, got, b.Recent())
}

func TestBannerRecentIsBounded(t *testing.T) {
	b := NewBanner(slog.New(slog.NewTextHandler(io.Discard, nil)))
	for i := 0; i < recentLimit+5; i++ {
		b.Error(errors.New("boom"))
	}
	assert.Len(t, b.Recent(), recentLimit)
}
