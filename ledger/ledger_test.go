package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/veilberry/execution"
	"github.com/blockberries/veilberry/mappingstore"
	"github.com/blockberries/veilberry/programs/token"
	"github.com/blockberries/veilberry/recordstore"
	"github.com/blockberries/veilberry/types"
)

const (
	admin = types.Identity("aleo1tokenadmin")
	alice = types.Identity("aleo1alice")
)

func newLedger(t *testing.T) *Ledger {
	l := New(recordstore.NewMemoryStore(), mappingstore.NewMemoryStore())
	t.Cleanup(func() { _ = l.Close() })
	require.NoError(t, l.RegisterProgram(token.New(admin)))
	return l
}

func TestRegisterProgram(t *testing.T) {
	l := newLedger(t)

	assert.Equal(t, []types.ProgramID{token.ProgramID}, l.Programs())
	assert.ErrorIs(t, l.RegisterProgram(token.New(admin)), types.ErrProgramExists)
}

func TestQueries(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	result, err := l.Execute(ctx, &execution.Request{
		Program:    token.ProgramID,
		Transition: token.TransitionMintPrivate,
		Caller:     admin,
		Args:       []types.Value{types.Address(alice), types.U64(500)},
	})
	require.NoError(t, err)
	minted := result.Outputs[0]

	got, err := l.GetRecord(minted.Ref)
	require.NoError(t, err)
	assert.Equal(t, minted, got)

	spent, err := l.IsSpent(minted.Ref)
	require.NoError(t, err)
	assert.False(t, spent)

	_, err = l.GetRecord(types.RecordRef{1})
	assert.ErrorIs(t, err, types.ErrRecordNotFound)

	_, ok, err := l.GetMapping(token.ProgramID, token.MappingAccount, types.Address(alice))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommitVersions(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	assert.Equal(t, int64(0), l.Version())

	_, err := l.Execute(ctx, &execution.Request{
		Program:    token.ProgramID,
		Transition: token.TransitionMintPublic,
		Caller:     admin,
		Args:       []types.Value{types.Address(alice), types.U64(500)},
	})
	require.NoError(t, err)

	hash1, version1, err := l.Commit()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version1)
	assert.NotEmpty(t, hash1)
	assert.Equal(t, hash1, l.RootHash())

	_, err = l.Execute(ctx, &execution.Request{
		Program:    token.ProgramID,
		Transition: token.TransitionMintPublic,
		Caller:     admin,
		Args:       []types.Value{types.Address(alice), types.U64(1)},
	})
	require.NoError(t, err)

	hash2, version2, err := l.Commit()
	require.NoError(t, err)
	assert.Equal(t, int64(2), version2)
	assert.NotEqual(t, hash1, hash2)
}

func TestPrepareBoundary(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	unit, err := l.Prepare(ctx, &execution.Request{
		Program:    token.ProgramID,
		Transition: token.TransitionMintPrivate,
		Caller:     admin,
		Args:       []types.Value{types.Address(alice), types.U64(500)},
	})
	require.NoError(t, err)

	// Nothing exists until commit.
	result, err := unit.Commit(ctx)
	require.NoError(t, err)

	spent, err := l.IsSpent(result.Outputs[0].Ref)
	require.NoError(t, err)
	assert.False(t, spent)
}

func TestCloseIdempotent(t *testing.T) {
	l := New(recordstore.NewMemoryStore(), mappingstore.NewMemoryStore())
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
}
