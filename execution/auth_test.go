package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blockberries/veilberry/types"
)

func TestPredicates(t *testing.T) {
	isAlice := IsIdentity(alice)
	isBob := IsIdentity(bob)

	assert.True(t, isAlice(alice))
	assert.False(t, isAlice(bob))

	either := AnyOf(isAlice, isBob)
	assert.True(t, either(alice))
	assert.True(t, either(bob))
	assert.False(t, either(admin))

	both := AllOf(isAlice, either)
	assert.True(t, both(alice))
	assert.False(t, both(bob))

	assert.False(t, AnyOf()(alice))
	assert.True(t, AllOf()(alice))
}
