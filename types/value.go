package types

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the declared type of a Value.
type Kind uint8

// Value kinds. The unsigned integer kinds share a uint64 representation
// but carry distinct domains; arithmetic is checked against the kind's
// domain and never wraps.
const (
	KindInvalid Kind = iota
	KindBool
	KindU8
	KindU16
	KindU32
	KindU64
	KindAddress
	KindStruct
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindAddress:
		return "address"
	case KindStruct:
		return "struct"
	default:
		return "invalid"
	}
}

// IsUint returns true for the unsigned integer kinds.
func (k Kind) IsUint() bool {
	switch k {
	case KindU8, KindU16, KindU32, KindU64:
		return true
	default:
		return false
	}
}

// MaxUint returns the largest value in the kind's domain.
// Only meaningful for unsigned integer kinds.
func (k Kind) MaxUint() uint64 {
	switch k {
	case KindU8:
		return math.MaxUint8
	case KindU16:
		return math.MaxUint16
	case KindU32:
		return math.MaxUint32
	case KindU64:
		return math.MaxUint64
	default:
		return 0
	}
}

// Value is a typed ledger value: a transition argument, a record field,
// or a mapping key or entry. The zero Value has KindInvalid.
type Value struct {
	// Kind is the declared type tag.
	Kind Kind

	// Uint holds the payload for unsigned integer kinds.
	Uint uint64

	// Flag holds the payload for KindBool.
	Flag bool

	// Addr holds the payload for KindAddress.
	Addr Identity

	// Fields holds the payload for KindStruct, in declaration order.
	Fields []NamedValue
}

// NamedValue is a named struct field or record field.
type NamedValue struct {
	Name  string
	Value Value
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{Kind: KindBool, Flag: b}
}

// U8 returns a u8 value.
func U8(v uint8) Value {
	return Value{Kind: KindU8, Uint: uint64(v)}
}

// U16 returns a u16 value.
func U16(v uint16) Value {
	return Value{Kind: KindU16, Uint: uint64(v)}
}

// U32 returns a u32 value.
func U32(v uint32) Value {
	return Value{Kind: KindU32, Uint: uint64(v)}
}

// U64 returns a u64 value.
func U64(v uint64) Value {
	return Value{Kind: KindU64, Uint: v}
}

// Address returns an address value.
func Address(id Identity) Value {
	return Value{Kind: KindAddress, Addr: id}
}

// Struct returns a struct value with the given fields.
func Struct(fields ...NamedValue) Value {
	return Value{Kind: KindStruct, Fields: fields}
}

// NewUint returns an unsigned integer value of the given kind.
// Fails with ErrTypeMismatch if the kind is not an unsigned integer kind
// or the literal is outside the kind's domain.
func NewUint(kind Kind, v uint64) (Value, error) {
	if !kind.IsUint() {
		return Value{}, fmt.Errorf("%s is not an unsigned integer kind: %w", kind, ErrTypeMismatch)
	}
	if v > kind.MaxUint() {
		return Value{}, fmt.Errorf("literal %d out of %s domain: %w", v, kind, ErrTypeMismatch)
	}
	return Value{Kind: kind, Uint: v}, nil
}

// Zero returns the zero value of the given kind.
func Zero(kind Kind) Value {
	return Value{Kind: kind}
}

// IsZeroValue returns true for the invalid zero Value.
func (v Value) IsZeroValue() bool {
	return v.Kind == KindInvalid
}

// AsUint returns the unsigned integer payload.
func (v Value) AsUint() (uint64, error) {
	if !v.Kind.IsUint() {
		return 0, fmt.Errorf("value is %s, not an unsigned integer: %w", v.Kind, ErrTypeMismatch)
	}
	return v.Uint, nil
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, error) {
	if v.Kind != KindBool {
		return false, fmt.Errorf("value is %s, not bool: %w", v.Kind, ErrTypeMismatch)
	}
	return v.Flag, nil
}

// AsAddress returns the address payload.
func (v Value) AsAddress() (Identity, error) {
	if v.Kind != KindAddress {
		return "", fmt.Errorf("value is %s, not address: %w", v.Kind, ErrTypeMismatch)
	}
	return v.Addr, nil
}

// Equal returns true if the values have the same kind and payload.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.Flag == other.Flag
	case KindU8, KindU16, KindU32, KindU64:
		return v.Uint == other.Uint
	case KindAddress:
		return v.Addr == other.Addr
	case KindStruct:
		if len(v.Fields) != len(other.Fields) {
			return false
		}
		for i := range v.Fields {
			if v.Fields[i].Name != other.Fields[i].Name {
				return false
			}
			if !v.Fields[i].Value.Equal(other.Fields[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	out := v
	out.Fields = cloneNamedValues(v.Fields)
	return out
}

// CheckedAdd returns v + other. Both operands must be unsigned integers
// of the same kind. A result outside the kind's domain fails with
// ErrArithmeticOverflow; the result never wraps.
func (v Value) CheckedAdd(other Value) (Value, error) {
	if err := checkUintOperands(v, other); err != nil {
		return Value{}, err
	}
	sum := v.Uint + other.Uint
	if sum < v.Uint || sum > v.Kind.MaxUint() {
		return Value{}, fmt.Errorf("%d + %d out of %s domain: %w", v.Uint, other.Uint, v.Kind, ErrArithmeticOverflow)
	}
	return Value{Kind: v.Kind, Uint: sum}, nil
}

// CheckedSub returns v - other. Both operands must be unsigned integers
// of the same kind. Underflow fails with ErrArithmeticOverflow.
func (v Value) CheckedSub(other Value) (Value, error) {
	if err := checkUintOperands(v, other); err != nil {
		return Value{}, err
	}
	if other.Uint > v.Uint {
		return Value{}, fmt.Errorf("%d - %d underflows %s: %w", v.Uint, other.Uint, v.Kind, ErrArithmeticOverflow)
	}
	return Value{Kind: v.Kind, Uint: v.Uint - other.Uint}, nil
}

func checkUintOperands(a, b Value) error {
	if !a.Kind.IsUint() {
		return fmt.Errorf("operand is %s, not an unsigned integer: %w", a.Kind, ErrTypeMismatch)
	}
	if a.Kind != b.Kind {
		return fmt.Errorf("operand kinds %s and %s differ: %w", a.Kind, b.Kind, ErrTypeMismatch)
	}
	return nil
}

// String renders the value as a literal.
func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Flag)
	case KindU8, KindU16, KindU32, KindU64:
		return strconv.FormatUint(v.Uint, 10) + v.Kind.String()
	case KindAddress:
		return string(v.Addr)
	case KindStruct:
		var sb strings.Builder
		sb.WriteByte('{')
		for i, f := range v.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Name)
			sb.WriteString(": ")
			sb.WriteString(f.Value.String())
		}
		sb.WriteByte('}')
		return sb.String()
	default:
		return "invalid"
	}
}

// Encode appends a canonical binary encoding of the value to buf and
// returns the extended buffer. The encoding is stable across processes
// and is used for store keys, so it must never depend on map iteration
// order or other nondeterminism.
func (v Value) Encode(buf []byte) []byte {
	buf = append(buf, byte(v.Kind))
	switch v.Kind {
	case KindBool:
		if v.Flag {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case KindU8, KindU16, KindU32, KindU64:
		buf = binary.BigEndian.AppendUint64(buf, v.Uint)
	case KindAddress:
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(v.Addr)))
		buf = append(buf, v.Addr...)
	case KindStruct:
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(v.Fields)))
		for _, f := range v.Fields {
			buf = binary.BigEndian.AppendUint32(buf, uint32(len(f.Name)))
			buf = append(buf, f.Name...)
			buf = f.Value.Encode(buf)
		}
	}
	return buf
}
