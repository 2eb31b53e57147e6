package arbiter

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettleCurrentTicket(t *testing.T) {
	a := New(NewFixedGenerator("t1"))
	a.Mint("ctx-a")

	ticket := a.Tag(context.Background())
	assert.Equal(t, Token("t1"), ticket.Token)
	assert.Equal(t, "ctx-a", ticket.ContextKey)
	assert.Equal(t, Apply, a.Settle(ticket, nil))
}

func TestSettleFailureOfCurrentTicket(t *testing.T) {
	a := New(NewFixedGenerator("t1"))
	a.Mint("ctx-a")

	ticket := a.Tag(context.Background())
	assert.Equal(t, Fail, a.Settle(ticket, errors.New("503")))
}

func TestSupersededResultAndErrorAreDropped(t *testing.T) {
	a := New(NewFixedGenerator("t1", "t2"))
	a.Mint("ctx-a")
	okTicket := a.Tag(context.Background())
	errTicket := a.Tag(context.Background())

	a.Mint("ctx-b")

	assert.Equal(t, Drop, a.Settle(okTicket, nil))
	assert.Equal(t, Drop, a.Settle(errTicket, errors.New("timeout")))
}

func TestMintCancelsOutstandingRequests(t *testing.T) {
	a := New(NewFixedGenerator("t1", "t2"))
	a.Mint("ctx-a")
	ticket := a.Tag(context.Background())
	require.NoError(t, ticket.Context().Err())

	a.Mint("ctx-b")

	<-ticket.Context().Done()
	assert.ErrorIs(t, ticket.Context().Err(), context.Canceled)

	fresh := a.Tag(context.Background())
	assert.NoError(t, fresh.Context().Err(), "new tickets are not affected")
	fresh.Release()
}

func TestTicketBeforeFirstMintIsInvalid(t *testing.T) {
	a := New(NewFixedGenerator("t1"))
	ticket := a.Tag(context.Background())
	assert.False(t, a.Valid(ticket))
	assert.Equal(t, Drop, a.Settle(ticket, nil))
}

func TestOnSupersedeSignal(t *testing.T) {
	a := New(NewFixedGenerator("t1", "t2"))
	var got [][2]Token
	a.OnSupersede(func(old, next Token) { got = append(got, [2]Token{old, next}) })

	a.Mint("a")
	a.Mint("b")

	assert.Equal(t, [][2]Token{{"", "t1"}, {"t1", "t2"}}, got)
}

func TestTicketSeqIsMonotonic(t *testing.T) {
	a := New(nil)
	a.Mint("a")
	first := a.Tag(context.Background())
	second := a.Tag(context.Background())
	assert.Less(t, first.Seq, second.Seq)
	assert.Len(t, string(first.Token), 36)
}

func TestValidConcurrentWithMint(t *testing.T) {
	a := New(nil)
	a.Mint("a")
	ticket := a.Tag(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); a.Valid(ticket) }()
		go func() { defer wg.Done(); a.Mint("b") }()
	}
	wg.Wait()
	assert.False(t, a.Valid(ticket))
}

func TestCloseCancelsTickets(t *testing.T) {
	a := New(NewFixedGenerator("t1"))
	a.Mint("a")
	ticket := a.Tag(context.Background())

	a.Close()
	<-ticket.Context().Done()
	assert.False(t, a.Valid(ticket))
}

func TestFixedGeneratorPanicsWhenExhausted(t *testing.T) {
	g := NewFixedGenerator("only")
	assert.Equal(t, "only", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestClock(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}
