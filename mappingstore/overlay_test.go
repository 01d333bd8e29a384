package mappingstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/veilberry/schema"
	"github.com/blockberries/veilberry/types"
)

func tokenSchema() *schema.Program {
	return &schema.Program{
		ID: tokenProgram,
		Mappings: []schema.MappingDef{
			{Name: "account", KeyKind: types.KindAddress, ValueKind: types.KindU64},
		},
	}
}

func TestOverlay_StagesUntilApply(t *testing.T) {
	base := NewMemoryStore()
	o := NewOverlay(base, tokenSchema())

	require.NoError(t, o.Set("account", alice, types.U64(100)))

	// Visible through the overlay, invisible in the base.
	v, ok, err := o.Get("account", alice)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(100), v.Uint)

	_, ok, err = base.Get(tokenProgram, "account", alice)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, o.Apply())

	v, ok, err = base.Get(tokenProgram, "account", alice)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(100), v.Uint)
}

func TestOverlay_IncrementInitializesAbsentToZero(t *testing.T) {
	o := NewOverlay(NewMemoryStore(), tokenSchema())

	v, err := o.Increment("account", alice, types.U64(5))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), v.Uint)

	v, err = o.Increment("account", alice, types.U64(5))
	require.NoError(t, err)
	assert.Equal(t, uint64(10), v.Uint)
}

func TestOverlay_IncrementSeesBaseState(t *testing.T) {
	base := NewMemoryStore()
	require.NoError(t, base.Set(tokenProgram, "account", alice, types.U64(100)))

	o := NewOverlay(base, tokenSchema())
	v, err := o.Increment("account", alice, types.U64(50))
	require.NoError(t, err)
	assert.Equal(t, uint64(150), v.Uint)
}

func TestOverlay_IncrementOverflowIsFatal(t *testing.T) {
	base := NewMemoryStore()
	require.NoError(t, base.Set(tokenProgram, "account", alice, types.U64(types.KindU64.MaxUint())))

	o := NewOverlay(base, tokenSchema())
	_, err := o.Increment("account", alice, types.U64(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrArithmeticOverflow)

	// Nothing staged: the base value is untouched after Apply.
	assert.Equal(t, 0, o.Len())
	require.NoError(t, o.Apply())
	v, _, err := base.Get(tokenProgram, "account", alice)
	require.NoError(t, err)
	assert.Equal(t, types.KindU64.MaxUint(), v.Uint)
}

func TestOverlay_DecrementUnderflowIsFatal(t *testing.T) {
	o := NewOverlay(NewMemoryStore(), tokenSchema())

	// Absent entry initializes to zero; any decrement underflows.
	_, err := o.Decrement("account", alice, types.U64(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrArithmeticOverflow)
}

func TestOverlay_Remove(t *testing.T) {
	base := NewMemoryStore()
	require.NoError(t, base.Set(tokenProgram, "account", alice, types.U64(100)))

	o := NewOverlay(base, tokenSchema())
	require.NoError(t, o.Remove("account", alice))

	_, ok, err := o.Get("account", alice)
	require.NoError(t, err)
	assert.False(t, ok, "overlay must see the staged removal")

	require.NoError(t, o.Apply())
	_, ok, err = base.Get(tokenProgram, "account", alice)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOverlay_UndeclaredMapping(t *testing.T) {
	o := NewOverlay(NewMemoryStore(), tokenSchema())

	_, _, err := o.Get("nope", alice)
	assert.ErrorIs(t, err, types.ErrUnknownMapping)

	err = o.Set("nope", alice, types.U64(1))
	assert.ErrorIs(t, err, types.ErrUnknownMapping)
}

func TestOverlay_KindChecks(t *testing.T) {
	o := NewOverlay(NewMemoryStore(), tokenSchema())

	// Integer key where an address is declared.
	_, _, err := o.Get("account", types.U64(1))
	assert.ErrorIs(t, err, types.ErrTypeMismatch)

	// Address value where an integer is declared.
	err = o.Set("account", alice, types.Address("aleo1x"))
	assert.ErrorIs(t, err, types.ErrTypeMismatch)

	// Delta kind must match the declared value kind exactly.
	_, err = o.Increment("account", alice, types.U32(1))
	assert.ErrorIs(t, err, types.ErrTypeMismatch)
}

func TestOverlay_SameKeyTwiceNoLostUpdates(t *testing.T) {
	base := NewMemoryStore()
	sch := tokenSchema()

	// Two independent finalize executions incrementing the same key are
	// serialized; each sees the other's applied state.
	for i := 0; i < 2; i++ {
		o := NewOverlay(base, sch)
		_, err := o.Increment("account", alice, types.U64(5))
		require.NoError(t, err)
		require.NoError(t, o.Apply())
	}

	v, ok, err := base.Get(tokenProgram, "account", alice)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(10), v.Uint, "two +5 increments must yield exactly +10")
}
