package types

import (
	"fmt"
	"math/big"

	ethmath "github.com/ethereum/go-ethereum/common/math"
)

// AbiKind enumerates the ABI type families accepted in interfaces and
// storage declarations.
type AbiKind int

const (
	AbiUInt AbiKind = iota
	AbiInt
	AbiAddress
	AbiBool
	AbiBytes // fixed width
	AbiBytesDyn
	AbiString
)

// AbiType is a concrete ABI type. Size is the bit width for uint/int and
// the byte width for fixed bytes; zero otherwise.
type AbiType struct {
	Kind AbiKind
	Size int
}

func UIntType(bits int) AbiType  { return AbiType{Kind: AbiUInt, Size: bits} }
func IntType(bits int) AbiType   { return AbiType{Kind: AbiInt, Size: bits} }
func AddressType() AbiType       { return AbiType{Kind: AbiAddress} }
func BoolType() AbiType          { return AbiType{Kind: AbiBool} }
func BytesType(width int) AbiType { return AbiType{Kind: AbiBytes, Size: width} }
func BytesDynType() AbiType      { return AbiType{Kind: AbiBytesDyn} }
func StringType() AbiType        { return AbiType{Kind: AbiString} }

func (t AbiType) String() string {
	switch t.Kind {
	case AbiUInt:
		return fmt.Sprintf("uint%d", t.Size)
	case AbiInt:
		return fmt.Sprintf("int%d", t.Size)
	case AbiAddress:
		return "address"
	case AbiBool:
		return "bool"
	case AbiBytes:
		return fmt.Sprintf("bytes%d", t.Size)
	case AbiBytesDyn:
		return "bytes"
	case AbiString:
		return "string"
	}
	return "unknown"
}

// ActType gives the mathematical sort an ABI type elaborates to. Integers
// of every width, and addresses, are modelled as unbounded integers with
// explicit in-range predicates.
func (t AbiType) ActType() ActType {
	switch t.Kind {
	case AbiUInt, AbiInt, AbiAddress:
		return AInteger
	case AbiBool:
		return ABoolean
	case AbiBytes, AbiBytesDyn, AbiString:
		return AByteStr
	}
	return AInteger
}

// Bounds returns the inclusive [min, max] range of an integral ABI type,
// or ok=false for non-integral types.
func (t AbiType) Bounds() (min, max *big.Int, ok bool) {
	one := big.NewInt(1)
	switch t.Kind {
	case AbiUInt:
		max = new(big.Int).Sub(ethmath.BigPow(2, int64(t.Size)), one)
		return big.NewInt(0), max, true
	case AbiInt:
		half := ethmath.BigPow(2, int64(t.Size-1))
		min = new(big.Int).Neg(half)
		max = new(big.Int).Sub(half, one)
		return min, max, true
	case AbiAddress:
		max = new(big.Int).Sub(ethmath.BigPow(2, 160), one)
		return big.NewInt(0), max, true
	}
	return nil, nil, false
}

// SlotType is the declared type of a storage slot: a plain value, or a
// mapping from one or more keys to a value.
type SlotType struct {
	Keys  []AbiType
	Value AbiType
}

func (s SlotType) IsMapping() bool {
	return len(s.Keys) > 0
}

func (s SlotType) String() string {
	if !s.IsMapping() {
		return s.Value.String()
	}
	inner := s.Value.String()
	for i := len(s.Keys) - 1; i >= 0; i-- {
		inner = fmt.Sprintf("mapping(%s => %s)", s.Keys[i], inner)
	}
	return inner
}
