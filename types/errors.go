package types

import "errors"

// Execution error taxonomy. Every failure aborts the whole
// transition+finalize unit with no partial effects; callers must
// resubmit with corrected arguments.
var (
	// ErrUnauthorizedCaller indicates a caller identity check failed.
	ErrUnauthorizedCaller = errors.New("unauthorized caller")

	// ErrAlreadySpent indicates a record was already consumed.
	ErrAlreadySpent = errors.New("record already spent")

	// ErrNotOwner indicates a record was presented by a non-owner.
	ErrNotOwner = errors.New("caller does not own record")

	// ErrArithmeticOverflow indicates a mapping update or checked
	// arithmetic operation left the declared domain. Overflow is fatal,
	// never wrapped: public balances must not corrupt silently.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrTypeMismatch indicates an argument or field value does not
	// match its declared schema type.
	ErrTypeMismatch = errors.New("type mismatch")
)

// Store and registry errors.
var (
	// ErrRecordNotFound indicates an unknown record reference.
	ErrRecordNotFound = errors.New("record not found")

	// ErrRecordExists indicates a record reference collision.
	// References are never reused, so this should not occur in practice.
	ErrRecordExists = errors.New("record already exists")

	// ErrInvalidRef indicates a malformed record reference.
	ErrInvalidRef = errors.New("invalid record reference")

	// ErrUnknownProgram indicates the program ID is not registered.
	ErrUnknownProgram = errors.New("unknown program")

	// ErrUnknownTransition indicates the transition name is not declared.
	ErrUnknownTransition = errors.New("unknown transition")

	// ErrUnknownMapping indicates the mapping name is not declared.
	ErrUnknownMapping = errors.New("unknown mapping")

	// ErrProgramExists indicates a duplicate program registration.
	ErrProgramExists = errors.New("program already registered")

	// ErrEmptyData indicates required data is missing.
	ErrEmptyData = errors.New("empty data")

	// ErrStoreClosed indicates an operation on a closed store.
	ErrStoreClosed = errors.New("store closed")
)

// ErrorKind returns a stable short name for the error's taxonomy class,
// suitable for metric labels and log fields.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrUnauthorizedCaller):
		return "unauthorized_caller"
	case errors.Is(err, ErrAlreadySpent):
		return "already_spent"
	case errors.Is(err, ErrNotOwner):
		return "not_owner"
	case errors.Is(err, ErrArithmeticOverflow):
		return "arithmetic_overflow"
	case errors.Is(err, ErrTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, ErrRecordNotFound):
		return "record_not_found"
	case errors.Is(err, ErrUnknownProgram):
		return "unknown_program"
	case errors.Is(err, ErrUnknownTransition):
		return "unknown_transition"
	case errors.Is(err, ErrUnknownMapping):
		return "unknown_mapping"
	default:
		return "internal"
	}
}
