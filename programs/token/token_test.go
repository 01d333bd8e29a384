package token

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
	admin = types.Identity("aleo1tokenadmin")
	alice = types.Identity("aleo1alice")
	bob   = types.Identity("aleo1bob")
)

func newTokenLedger(t *testing.T) *ledger.Ledger {
	l := ledger.New(recordstore.NewMemoryStore(), mappingstore.NewMemoryStore())
	t.Cleanup(func() { _ = l.Close() })
	require.NoError(t, l.RegisterProgram(New(admin)))
	return l
}

func execute(t *testing.T, l *ledger.Ledger, caller types.Identity, transition string, args []types.Value, inputs ...types.RecordRef) *execution.Result {
	result, err := l.Execute(context.Background(), &execution.Request{
		Program:    ProgramID,
		Transition: transition,
		Caller:     caller,
		Args:       args,
		Inputs:     inputs,
	})
	require.NoError(t, err)
	return result
}

func publicBalance(t *testing.T, l *ledger.Ledger, who types.Identity) uint64 {
	v, ok, err := l.GetMapping(ProgramID, MappingAccount, types.Address(who))
	require.NoError(t, err)
	if !ok {
		return 0
	}
	return v.Uint
}

func tokenAmount(t *testing.T, rec *types.Record) uint64 {
	v, ok := rec.Field(FieldAmount)
	require.True(t, ok)
	return v.Uint
}

func TestMintPublic(t *testing.T) {
	l := newTokenLedger(t)

	result := execute(t, l, admin, TransitionMintPublic,
		[]types.Value{types.Address(alice), types.U64(1000)})
	require.NotNil(t, result.PublicReturn)
	assert.Equal(t, uint64(1000), result.PublicReturn.Uint)
	assert.Equal(t, uint64(1000), publicBalance(t, l, alice))
}

func TestMint_AdminOnly(t *testing.T) {
	l := newTokenLedger(t)

	for _, transition := range []string{TransitionMintPublic, TransitionMintPrivate} {
		_, err := l.Execute(context.Background(), &execution.Request{
			Program:    ProgramID,
			Transition: transition,
			Caller:     alice,
			Args:       []types.Value{types.Address(alice), types.U64(1000)},
		})
		assert.ErrorIs(t, err, types.ErrUnauthorizedCaller, transition)
	}
	assert.Equal(t, uint64(0), publicBalance(t, l, alice))
}

func TestTransferPublic(t *testing.T) {
	l := newTokenLedger(t)
	execute(t, l, admin, TransitionMintPublic, []types.Value{types.Address(alice), types.U64(1000)})

	execute(t, l, alice, TransitionTransferPublic,
		[]types.Value{types.Address(bob), types.U64(300)})

	assert.Equal(t, uint64(700), publicBalance(t, l, alice))
	assert.Equal(t, uint64(300), publicBalance(t, l, bob))
}

func TestTransferPublic_InsufficientBalance(t *testing.T) {
	l := newTokenLedger(t)
	execute(t, l, admin, TransitionMintPublic, []types.Value{types.Address(alice), types.U64(100)})

	_, err := l.Execute(context.Background(), &execution.Request{
		Program:    ProgramID,
		Transition: TransitionTransferPublic,
		Caller:     alice,
		Args:       []types.Value{types.Address(bob), types.U64(200)},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrArithmeticOverflow)

	// The failed transfer touched neither balance.
	assert.Equal(t, uint64(100), publicBalance(t, l, alice))
	assert.Equal(t, uint64(0), publicBalance(t, l, bob))
}

func TestMintPublic_OverflowFatal(t *testing.T) {
	l := newTokenLedger(t)
	execute(t, l, admin, TransitionMintPublic,
		[]types.Value{types.Address(alice), types.U64(types.KindU64.MaxUint())})

	_, err := l.Execute(context.Background(), &execution.Request{
		Program:    ProgramID,
		Transition: TransitionMintPublic,
		Caller:     admin,
		Args:       []types.Value{types.Address(alice), types.U64(1)},
	})
	assert.ErrorIs(t, err, types.ErrArithmeticOverflow)
	assert.Equal(t, types.KindU64.MaxUint(), publicBalance(t, l, alice))
}

func TestTransferPrivate(t *testing.T) {
	l := newTokenLedger(t)

	minted := execute(t, l, admin, TransitionMintPrivate,
		[]types.Value{types.Address(alice), types.U64(1000)})
	token := minted.Outputs[0]
	assert.Equal(t, alice, token.Owner)

	result := execute(t, l, alice, TransitionTransferPrivate,
		[]types.Value{types.Address(bob), types.U64(300)}, token.Ref)
	require.Len(t, result.Outputs, 2)

	sent, change := result.Outputs[0], result.Outputs[1]
	assert.Equal(t, bob, sent.Owner)
	assert.Equal(t, uint64(300), tokenAmount(t, sent))
	assert.Equal(t, alice, change.Owner)
	assert.Equal(t, uint64(700), tokenAmount(t, change))

	spent, err := l.IsSpent(token.Ref)
	require.NoError(t, err)
	assert.True(t, spent)
}

func TestTransferPrivate_InsufficientBalance(t *testing.T) {
	l := newTokenLedger(t)

	minted := execute(t, l, admin, TransitionMintPrivate,
		[]types.Value{types.Address(alice), types.U64(100)})
	token := minted.Outputs[0]

	_, err := l.Execute(context.Background(), &execution.Request{
		Program:    ProgramID,
		Transition: TransitionTransferPrivate,
		Caller:     alice,
		Args:       []types.Value{types.Address(bob), types.U64(200)},
		Inputs:     []types.RecordRef{token.Ref},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrArithmeticOverflow)

	// The input survives a failed transfer.
	spent, err := l.IsSpent(token.Ref)
	require.NoError(t, err)
	assert.False(t, spent)
}

func TestTransferPrivate_NotOwner(t *testing.T) {
	l := newTokenLedger(t)

	minted := execute(t, l, admin, TransitionMintPrivate,
		[]types.Value{types.Address(alice), types.U64(100)})

	_, err := l.Execute(context.Background(), &execution.Request{
		Program:    ProgramID,
		Transition: TransitionTransferPrivate,
		Caller:     bob,
		Args:       []types.Value{types.Address(bob), types.U64(100)},
		Inputs:     []types.RecordRef{minted.Outputs[0].Ref},
	})
	assert.ErrorIs(t, err, types.ErrNotOwner)
}

func TestPrivateToPublic(t *testing.T) {
	l := newTokenLedger(t)

	minted := execute(t, l, admin, TransitionMintPrivate,
		[]types.Value{types.Address(alice), types.U64(1000)})

	result := execute(t, l, alice, TransitionPrivateToPublic,
		[]types.Value{types.Address(bob), types.U64(400)}, minted.Outputs[0].Ref)
	require.Len(t, result.Outputs, 1)

	assert.Equal(t, uint64(600), tokenAmount(t, result.Outputs[0]))
	assert.Equal(t, alice, result.Outputs[0].Owner)
	assert.Equal(t, uint64(400), publicBalance(t, l, bob))
}

func TestPublicToPrivate(t *testing.T) {
	l := newTokenLedger(t)
	execute(t, l, admin, TransitionMintPublic, []types.Value{types.Address(alice), types.U64(1000)})

	result := execute(t, l, alice, TransitionPublicToPrivate,
		[]types.Value{types.Address(bob), types.U64(400)})
	require.Len(t, result.Outputs, 1)

	assert.Equal(t, bob, result.Outputs[0].Owner)
	assert.Equal(t, uint64(400), tokenAmount(t, result.Outputs[0]))
	assert.Equal(t, uint64(600), publicBalance(t, l, alice))
}

func TestPublicToPrivate_InsufficientBalanceRollsBackRecord(t *testing.T) {
	l := newTokenLedger(t)
	execute(t, l, admin, TransitionMintPublic, []types.Value{types.Address(alice), types.U64(100)})

	_, err := l.Execute(context.Background(), &execution.Request{
		Program:    ProgramID,
		Transition: TransitionPublicToPrivate,
		Caller:     alice,
		Args:       []types.Value{types.Address(bob), types.U64(200)},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrArithmeticOverflow)

	// Balance untouched and no record was created anywhere.
	assert.Equal(t, uint64(100), publicBalance(t, l, alice))
}

func TestTransferPublic_ConcurrentNoLostUpdates(t *testing.T) {
	l := newTokenLedger(t)
	ctx := context.Background()
	execute(t, l, admin, TransitionMintPublic, []types.Value{types.Address(alice), types.U64(1000)})

	const transfers = 10
	done := make(chan error, transfers)
	for i := 0; i < transfers; i++ {
		go func() {
			_, err := l.Execute(ctx, &execution.Request{
				Program:    ProgramID,
				Transition: TransitionTransferPublic,
				Caller:     alice,
				Args:       []types.Value{types.Address(bob), types.U64(10)},
			})
			done <- err
		}()
	}
	for i := 0; i < transfers; i++ {
		require.NoError(t, <-done)
	}

	assert.Equal(t, uint64(900), publicBalance(t, l, alice))
	assert.Equal(t, uint64(100), publicBalance(t, l, bob))
}
