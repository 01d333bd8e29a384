package recordstore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/veilberry/types"
)

const (
	auctioneer = types.Identity("aleo1auctioneer")
	bidder     = types.Identity("aleo1bidder")
)

func newBid(owner types.Identity, amount uint64) *types.Record {
	return &types.Record{
		Program: "auction.aleo",
		Type:    "Bid",
		Owner:   owner,
		Fields: []types.NamedValue{
			{Name: "bidder", Value: types.Address(bidder)},
			{Name: "amount", Value: types.U64(amount)},
			{Name: "is_winner", Value: types.Bool(false)},
		},
	}
}

// runStoreTests exercises the Store contract against any backend.
func runStoreTests(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAssignsUniqueRefs", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		a := newBid(auctioneer, 100)
		b := newBid(auctioneer, 100) // identical contents

		require.NoError(t, store.Create(a))
		require.NoError(t, store.Create(b))
		assert.False(t, a.Ref.IsZero())
		assert.NotEqual(t, a.Ref, b.Ref, "identical records must get distinct refs")
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		rec := newBid(auctioneer, 100)
		require.NoError(t, store.Create(rec))

		got, err := store.Get(rec.Ref)
		require.NoError(t, err)
		got.Fields[1].Value = types.U64(999)

		again, err := store.Get(rec.Ref)
		require.NoError(t, err)
		amount, _ := again.Field("amount")
		assert.Equal(t, uint64(100), amount.Uint)
	})

	t.Run("GetUnknownRef", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		_, err := store.Get(types.RecordRef{1})
		assert.ErrorIs(t, err, types.ErrRecordNotFound)
	})

	t.Run("SpendOnce", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		rec := newBid(auctioneer, 100)
		require.NoError(t, store.Create(rec))

		spend, err := store.Spend(rec.Ref, auctioneer)
		require.NoError(t, err)
		require.NoError(t, spend.Commit())

		spent, err := store.IsSpent(rec.Ref)
		require.NoError(t, err)
		assert.True(t, spent)

		// A second consume always fails with ErrAlreadySpent.
		_, err = store.Spend(rec.Ref, auctioneer)
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrAlreadySpent)
	})

	t.Run("SpendNotOwner", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		rec := newBid(auctioneer, 100)
		require.NoError(t, store.Create(rec))

		_, err := store.Spend(rec.Ref, bidder)
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrNotOwner)

		spent, err := store.IsSpent(rec.Ref)
		require.NoError(t, err)
		assert.False(t, spent, "failed spend must leave the record unspent")
	})

	t.Run("PendingBlocksSecondSpend", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		rec := newBid(auctioneer, 100)
		require.NoError(t, store.Create(rec))

		first, err := store.Spend(rec.Ref, auctioneer)
		require.NoError(t, err)

		_, err = store.Spend(rec.Ref, auctioneer)
		assert.ErrorIs(t, err, types.ErrAlreadySpent)

		// Release rolls back; the record is spendable again.
		require.NoError(t, first.Release())
		second, err := store.Spend(rec.Ref, auctioneer)
		require.NoError(t, err)
		require.NoError(t, second.Commit())
	})

	t.Run("SpendSettledTwice", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		rec := newBid(auctioneer, 100)
		require.NoError(t, store.Create(rec))

		spend, err := store.Spend(rec.Ref, auctioneer)
		require.NoError(t, err)
		require.NoError(t, spend.Commit())
		assert.ErrorIs(t, spend.Commit(), ErrSpendSettled)
		assert.ErrorIs(t, spend.Release(), ErrSpendSettled)
	})

	t.Run("ConcurrentSpendExactlyOneWins", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		rec := newBid(auctioneer, 100)
		require.NoError(t, store.Create(rec))

		const attempts = 16
		var wg sync.WaitGroup
		results := make(chan error, attempts)

		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				spend, err := store.Spend(rec.Ref, auctioneer)
				if err == nil {
					err = spend.Commit()
				}
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var wins, spentErrs int
		for err := range results {
			switch {
			case err == nil:
				wins++
			default:
				require.ErrorIs(t, err, types.ErrAlreadySpent)
				spentErrs++
			}
		}
		assert.Equal(t, 1, wins)
		assert.Equal(t, attempts-1, spentErrs)
	})

	t.Run("CreateInvalidRecord", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		assert.Error(t, store.Create(&types.Record{Type: "Bid", Owner: auctioneer}))
		assert.Error(t, store.Create(nil))
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestMemoryStore_Closed(t *testing.T) {
	store := NewMemoryStore()
	rec := newBid(auctioneer, 100)
	require.NoError(t, store.Create(rec))
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.Create(newBid(auctioneer, 1)), types.ErrStoreClosed)
	_, err := store.Get(rec.Ref)
	assert.ErrorIs(t, err, types.ErrStoreClosed)
	_, err = store.Spend(rec.Ref, auctioneer)
	assert.ErrorIs(t, err, types.ErrStoreClosed)
}

func TestDeriveRef_SequenceDisambiguates(t *testing.T) {
	rec := newBid(auctioneer, 100)
	a := deriveRef(rec, 1)
	b := deriveRef(rec, 2)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, deriveRef(rec, 1), "derivation must be deterministic")
}
