package smt

import (
	"math/big"
	"testing"

	"act/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intLit(n int64) *types.IntLit {
	return &types.IntLit{Val: big.NewInt(n)}
}

func slotEntry(t types.Timing, contract, name string) *types.TEntry {
	return &types.TEntry{Time: t, Item: types.StorageItem{
		Type: types.AInteger,
		Abi:  types.UIntType(256),
		Ref:  &types.StorageRef{Kind: types.RefVar, Contract: contract, Name: name},
	}}
}

func Test_EncodeLiterals(t *testing.T) {
	enc := &encoder{iface: "f"}

	out, err := enc.exp(intLit(42))
	require.Nil(t, err)
	assert.Equal(t, "42", out)

	// negative constants are parenthesized for solver portability
	out, err = enc.exp(intLit(-5))
	require.Nil(t, err)
	assert.Equal(t, "(- 5)", out)

	out, err = enc.exp(&types.BoolLit{Val: true})
	require.Nil(t, err)
	assert.Equal(t, "true", out)
}

func Test_EncodeArith(t *testing.T) {
	enc := &encoder{iface: "f"}
	v := &types.Var{Type: types.AInteger, Abi: types.UIntType(256), Name: "n"}

	out, err := enc.exp(&types.Arith{Op: types.OpAdd, L: v, R: intLit(1)})
	require.Nil(t, err)
	assert.Equal(t, "(+ f_n 1)", out)

	out, err = enc.exp(&types.Arith{Op: types.OpDiv, L: v, R: intLit(2)})
	require.Nil(t, err)
	assert.Equal(t, "(div f_n 2)", out)
}

func Test_EncodeStorage(t *testing.T) {
	enc := &encoder{iface: "transfer"}

	out, err := enc.exp(slotEntry(types.Pre, "Token", "totalSupply"))
	require.Nil(t, err)
	assert.Equal(t, "Token_totalSupply_Pre", out)

	out, err = enc.exp(slotEntry(types.Post, "Token", "totalSupply"))
	require.Nil(t, err)
	assert.Equal(t, "Token_totalSupply_Post", out)

	base := &types.StorageRef{Kind: types.RefVar, Contract: "Token", Name: "balanceOf"}
	entry := &types.TEntry{Time: types.Pre, Item: types.StorageItem{
		Type: types.AInteger, Abi: types.UIntType(256),
		Ref: &types.StorageRef{
			Kind: types.RefMapping, Base: base,
			Indexes: []types.Exp{&types.EnvRead{Env: types.Caller}},
		},
	}}
	out, err = enc.exp(entry)
	require.Nil(t, err)
	assert.Equal(t, "(select Token_balanceOf_Pre caller)", out)
}

func Test_EncodeUntimedEntryRejected(t *testing.T) {
	enc := &encoder{iface: "f"}
	_, err := enc.exp(slotEntry(types.Neither, "Token", "totalSupply"))
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "internal error")
}

func Test_ExponentExpansion(t *testing.T) {
	enc := &encoder{iface: "f"}

	// fully concrete folds to a literal
	out, err := enc.exp(&types.Arith{Op: types.OpExp, L: intLit(2), R: intLit(8)})
	require.Nil(t, err)
	assert.Equal(t, "256", out)

	// concrete exponent expands into a multiplication chain
	v := &types.Var{Type: types.AInteger, Abi: types.UIntType(256), Name: "x"}
	out, err = enc.exp(&types.Arith{Op: types.OpExp, L: v, R: intLit(3)})
	require.Nil(t, err)
	assert.Equal(t, "(* f_x f_x f_x)", out)

	out, err = enc.exp(&types.Arith{Op: types.OpExp, L: v, R: intLit(0)})
	require.Nil(t, err)
	assert.Equal(t, "1", out)

	out, err = enc.exp(&types.Arith{Op: types.OpExp, L: v, R: intLit(1)})
	require.Nil(t, err)
	assert.Equal(t, "f_x", out)

	// symbolic exponent is an internal error
	_, err = enc.exp(&types.Arith{Op: types.OpExp, L: intLit(2), R: v})
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "symbolic exponentiation")
}

func Test_EncodeBoolAndCmp(t *testing.T) {
	enc := &encoder{iface: "f"}
	a := slotEntry(types.Pre, "C", "x")
	b := slotEntry(types.Post, "C", "x")

	eq, err := types.NewEq(a.P, false, a, b)
	require.Nil(t, err)
	out, err := enc.exp(eq)
	require.Nil(t, err)
	assert.Equal(t, "(= C_x_Pre C_x_Post)", out)

	neq, err := types.NewEq(a.P, true, a, b)
	require.Nil(t, err)
	out, err = enc.exp(neq)
	require.Nil(t, err)
	assert.Equal(t, "(not (= C_x_Pre C_x_Post))", out)

	out, err = enc.exp(&types.BoolConn{Op: types.OpImpl, L: &types.BoolLit{Val: true}, R: &types.BoolLit{Val: false}})
	require.Nil(t, err)
	assert.Equal(t, "(=> true false)", out)

	out, err = enc.exp(&types.Cmp{Op: types.OpLEQ, L: a, R: b})
	require.Nil(t, err)
	assert.Equal(t, "(<= C_x_Pre C_x_Post)", out)
}

func Test_EncodeCreateRejected(t *testing.T) {
	enc := &encoder{iface: "f"}
	_, err := enc.exp(&types.Create{Contract: "D"})
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "internal error")
}

func Test_DeclareItem(t *testing.T) {
	value := types.StorageItem{
		Type: types.AInteger, Abi: types.UIntType(256),
		Ref: &types.StorageRef{Kind: types.RefVar, Contract: "Token", Name: "totalSupply"},
	}
	assert.Equal(t, "(declare-const Token_totalSupply_Pre Int)", declareItem(value, types.Pre))

	base := &types.StorageRef{Kind: types.RefVar, Contract: "Token", Name: "allowance"}
	mapping := types.StorageItem{
		Type: types.AInteger, Abi: types.UIntType(256),
		Ref: &types.StorageRef{
			Kind: types.RefMapping, Base: base,
			Indexes: []types.Exp{
				&types.EnvRead{Env: types.Caller},
				&types.Var{Type: types.AInteger, Abi: types.AddressType(), Name: "to"},
			},
		},
	}
	assert.Equal(t,
		"(declare-const Token_allowance_Post (Array Int (Array Int Int)))",
		declareItem(mapping, types.Post))
}

func Test_SortMapping(t *testing.T) {
	assert.Equal(t, "Int", smtSort(types.AInteger))
	assert.Equal(t, "Bool", smtSort(types.ABoolean))
	assert.Equal(t, "String", smtSort(types.AByteStr))
}
