package types

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intLit(n int64) *IntLit {
	return &IntLit{Val: big.NewInt(n)}
}

func Test_EvalArith(t *testing.T) {
	e := &Arith{Op: OpAdd, L: intLit(2), R: &Arith{Op: OpMul, L: intLit(3), R: intLit(4)}}
	v, ok := Eval(e)
	require.True(t, ok)
	assert.Equal(t, int64(14), v.Int.Int64())

	exp := &Arith{Op: OpExp, L: intLit(2), R: intLit(10)}
	v, ok = Eval(exp)
	require.True(t, ok)
	assert.Equal(t, int64(1024), v.Int.Int64())

	_, ok = Eval(&Arith{Op: OpDiv, L: intLit(1), R: intLit(0)})
	assert.False(t, ok)
}

func Test_EvalBool(t *testing.T) {
	e := &BoolConn{Op: OpImpl, L: &BoolLit{Val: false}, R: &BoolLit{Val: false}}
	v, ok := Eval(e)
	require.True(t, ok)
	assert.True(t, v.Bool)

	eq, err := NewEq(e.P, false, intLit(3), intLit(3))
	require.Nil(t, err)
	v, ok = Eval(eq)
	require.True(t, ok)
	assert.True(t, v.Bool)
}

func Test_EvalBytes(t *testing.T) {
	cat := &Cat{L: &ByLit{Val: []byte("ab")}, R: &ByLit{Val: []byte("cd")}}
	v, ok := Eval(cat)
	require.True(t, ok)
	assert.Equal(t, []byte("abcd"), v.Bytes)

	slice := &Slice{Bytes: cat, From: intLit(1), To: intLit(3)}
	v, ok = Eval(slice)
	require.True(t, ok)
	assert.Equal(t, []byte("bc"), v.Bytes)
}

func Test_EvalSymbolicLeaves(t *testing.T) {
	// storage entries, calldata and environment reads are never evaluable
	entry := &TEntry{Time: Pre, Item: StorageItem{
		Type: AInteger, Abi: UIntType(256),
		Ref:  &StorageRef{Kind: RefVar, Contract: "C", Name: "x"},
	}}
	_, ok := Eval(&Arith{Op: OpAdd, L: entry, R: intLit(1)})
	assert.False(t, ok)

	_, ok = Eval(&Var{Type: AInteger, Abi: UIntType(256), Name: "n"})
	assert.False(t, ok)

	_, ok = Eval(&EnvRead{Env: Caller})
	assert.False(t, ok)

	_, ok = Eval(&Create{Contract: "D"})
	assert.False(t, ok)
}

func Test_EvalITE(t *testing.T) {
	ite, err := NewITE(span0(), &BoolLit{Val: true}, intLit(1), intLit(2))
	require.Nil(t, err)
	v, ok := Eval(ite)
	require.True(t, ok)
	assert.Equal(t, int64(1), v.Int.Int64())
}
