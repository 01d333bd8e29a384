package execution

import "github.com/blockberries/veilberry/types"

// Predicate is an authorization check over the caller identity.
// Transitions gate state mutation on predicates evaluated before any
// record is consumed beyond the staged reservation; a failing predicate
// aborts the invocation with ErrUnauthorizedCaller.
type Predicate func(types.Identity) bool

// IsIdentity authorizes exactly one identity.
func IsIdentity(want types.Identity) Predicate {
	return func(caller types.Identity) bool {
		return caller.Equal(want)
	}
}

// AnyOf authorizes a caller that satisfies at least one predicate.
func AnyOf(preds ...Predicate) Predicate {
	return func(caller types.Identity) bool {
		for _, p := range preds {
			if p(caller) {
				return true
			}
		}
		return false
	}
}

// AllOf authorizes a caller that satisfies every predicate.
func AllOf(preds ...Predicate) Predicate {
	return func(caller types.Identity) bool {
		for _, p := range preds {
			if !p(caller) {
				return false
			}
		}
		return true
	}
}
