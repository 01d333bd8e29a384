package auction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/veilberry/execution"
	"github.com/blockberries/veilberry/ledger"
	"github.com/blockberries/veilberry/mappingstore"
	"github.com/blockberries/veilberry/recordstore"
	"github.com/blockberries/veilberry/types"
)

const (
	auctioneer = types.Identity("aleo1auctioneer")
	bidderA    = types.Identity("aleo1bidder_a")
	bidderB    = types.Identity("aleo1bidder_b")
)

func newAuctionLedger(t *testing.T) *ledger.Ledger {
	l := ledger.New(recordstore.NewMemoryStore(), mappingstore.NewMemoryStore())
	t.Cleanup(func() { _ = l.Close() })
	require.NoError(t, l.RegisterProgram(New(auctioneer)))
	return l
}

func placeBid(t *testing.T, l *ledger.Ledger, bidder types.Identity, amount uint64) *types.Record {
	result, err := l.Execute(context.Background(), &execution.Request{
		Program:    ProgramID,
		Transition: TransitionPlaceBid,
		Caller:     bidder,
		Args:       []types.Value{types.Address(bidder), types.U64(amount)},
	})
	require.NoError(t, err)
	require.Len(t, result.Outputs, 1)
	return result.Outputs[0]
}

func resolve(t *testing.T, l *ledger.Ledger, first, second types.RecordRef) *types.Record {
	result, err := l.Execute(context.Background(), &execution.Request{
		Program:    ProgramID,
		Transition: TransitionResolve,
		Caller:     auctioneer,
		Inputs:     []types.RecordRef{first, second},
	})
	require.NoError(t, err)
	require.Len(t, result.Outputs, 1)
	return result.Outputs[0]
}

func TestPlaceBid(t *testing.T) {
	l := newAuctionLedger(t)

	bid := placeBid(t, l, bidderA, 100)
	assert.Equal(t, auctioneer, bid.Owner, "bids belong to the auctioneer, not the bidder")

	bidder, _ := bid.Field(FieldBidder)
	assert.Equal(t, bidderA, bidder.Addr)

	isWinner, _ := bid.Field(FieldIsWinner)
	assert.False(t, isWinner.Flag)
}

func TestPlaceBid_CallerMustBeBidder(t *testing.T) {
	l := newAuctionLedger(t)

	_, err := l.Execute(context.Background(), &execution.Request{
		Program:    ProgramID,
		Transition: TransitionPlaceBid,
		Caller:     bidderB,
		Args:       []types.Value{types.Address(bidderA), types.U64(100)},
	})
	assert.ErrorIs(t, err, types.ErrUnauthorizedCaller)
}

func TestResolve_HigherBidWins(t *testing.T) {
	l := newAuctionLedger(t)

	low := placeBid(t, l, bidderA, 100)
	high := placeBid(t, l, bidderB, 150)

	winner := resolve(t, l, low.Ref, high.Ref)
	bidder, _ := winner.Field(FieldBidder)
	assert.Equal(t, bidderB, bidder.Addr)

	// Both inputs are gone; the loser cannot be resurrected.
	for _, ref := range []types.RecordRef{low.Ref, high.Ref} {
		spent, err := l.IsSpent(ref)
		require.NoError(t, err)
		assert.True(t, spent)
	}
}

func TestResolve_FirstWinsTies(t *testing.T) {
	l := newAuctionLedger(t)

	first := placeBid(t, l, bidderA, 100)
	second := placeBid(t, l, bidderB, 100)

	winner := resolve(t, l, first.Ref, second.Ref)
	bidder, _ := winner.Field(FieldBidder)
	assert.Equal(t, bidderA, bidder.Addr)
}

func TestResolve_OnlyAuctioneer(t *testing.T) {
	l := newAuctionLedger(t)

	a := placeBid(t, l, bidderA, 100)
	b := placeBid(t, l, bidderB, 150)

	_, err := l.Execute(context.Background(), &execution.Request{
		Program:    ProgramID,
		Transition: TransitionResolve,
		Caller:     bidderB,
		Inputs:     []types.RecordRef{a.Ref, b.Ref},
	})
	require.Error(t, err)

	// Bids are owned by the auctioneer, so a non-auctioneer caller
	// fails ownership before reaching the auctioneer check. Either
	// way nothing is consumed.
	for _, ref := range []types.RecordRef{a.Ref, b.Ref} {
		spent, err := l.IsSpent(ref)
		require.NoError(t, err)
		assert.False(t, spent)
	}
}

func TestAuction_EndToEnd(t *testing.T) {
	l := newAuctionLedger(t)
	ctx := context.Background()

	bidA := placeBid(t, l, bidderA, 100)
	bidB := placeBid(t, l, bidderB, 150)

	surviving := resolve(t, l, bidA.Ref, bidB.Ref)

	result, err := l.Execute(ctx, &execution.Request{
		Program:    ProgramID,
		Transition: TransitionFinish,
		Caller:     auctioneer,
		Inputs:     []types.RecordRef{surviving.Ref},
	})
	require.NoError(t, err)
	require.Len(t, result.Outputs, 1)

	won := result.Outputs[0]
	assert.Equal(t, bidderB, won.Owner, "the winning bid is re-issued to its bidder")

	amount, _ := won.Field(FieldAmount)
	assert.Equal(t, uint64(150), amount.Uint)

	isWinner, _ := won.Field(FieldIsWinner)
	assert.True(t, isWinner.Flag)

	// Every intermediate record is permanently consumed.
	for _, ref := range []types.RecordRef{bidA.Ref, bidB.Ref, surviving.Ref} {
		spent, err := l.IsSpent(ref)
		require.NoError(t, err)
		assert.True(t, spent)
	}

	// Finishing the same bid twice is impossible.
	_, err = l.Execute(ctx, &execution.Request{
		Program:    ProgramID,
		Transition: TransitionFinish,
		Caller:     auctioneer,
		Inputs:     []types.RecordRef{surviving.Ref},
	})
	assert.ErrorIs(t, err, types.ErrAlreadySpent)
}

func TestResolve_ConcurrentSameLoser(t *testing.T) {
	l := newAuctionLedger(t)
	ctx := context.Background()

	shared := placeBid(t, l, bidderA, 100)
	b := placeBid(t, l, bidderB, 150)
	c := placeBid(t, l, bidderB, 160)

	// Two resolves race for the same first input; exactly one wins.
	type outcome struct{ err error }
	results := make(chan outcome, 2)
	for _, other := range []types.RecordRef{b.Ref, c.Ref} {
		go func(other types.RecordRef) {
			_, err := l.Execute(ctx, &execution.Request{
				Program:    ProgramID,
				Transition: TransitionResolve,
				Caller:     auctioneer,
				Inputs:     []types.RecordRef{shared.Ref, other},
			})
			results <- outcome{err}
		}(other)
	}

	var failures int
	for i := 0; i < 2; i++ {
		if r := <-results; r.err != nil {
			assert.ErrorIs(t, r.err, types.ErrAlreadySpent)
			failures++
		}
	}
	assert.Equal(t, 1, failures, "exactly one of the racing resolves must fail")
}
