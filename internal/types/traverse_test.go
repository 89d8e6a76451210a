package types

import (
	"math/big"
	"testing"

	"act/internal/span"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func span0() span.Pos {
	return span.Pos{Line: 1, Col: 1}
}

func slotItem(contract, name string) StorageItem {
	return StorageItem{
		Type: AInteger,
		Abi:  UIntType(256),
		Ref:  &StorageRef{Kind: RefVar, Contract: contract, Name: name},
	}
}

func mapItem(contract, name string, index Exp) StorageItem {
	base := &StorageRef{Kind: RefVar, Contract: contract, Name: name}
	return StorageItem{
		Type: AInteger,
		Abi:  UIntType(256),
		Ref:  &StorageRef{Kind: RefMapping, Base: base, Indexes: []Exp{index}},
	}
}

func Test_LocsFromExp(t *testing.T) {
	caller := &EnvRead{Env: Caller}
	a := &TEntry{Time: Neither, Item: mapItem("Token", "balanceOf", caller)}
	b := &TEntry{Time: Neither, Item: slotItem("Token", "totalSupply")}
	e := &Cmp{Op: OpLEQ, L: &Arith{Op: OpAdd, L: a, R: b}, R: b}

	locs := LocsFromExp(e)
	// duplicates collapse, first occurrence order preserved
	require.Equal(t, 2, len(locs))
	assert.Equal(t, "Token.balanceOf[CALLER]", RefKey(locs[0].Ref))
	assert.Equal(t, "Token.totalSupply", RefKey(locs[1].Ref))
}

func Test_LocsDistinguishIndexes(t *testing.T) {
	a := &TEntry{Item: mapItem("Token", "balanceOf", &EnvRead{Env: Caller})}
	b := &TEntry{Item: mapItem("Token", "balanceOf", &Var{Type: AInteger, Abi: AddressType(), Name: "to"})}
	e := &Arith{Op: OpAdd, L: a, R: b}
	locs := LocsFromExp(e)
	assert.Equal(t, 2, len(locs))
}

func Test_EthEnvFromExp(t *testing.T) {
	e := &Arith{
		Op: OpAdd,
		L:  &EnvRead{Env: Callvalue},
		R:  &Arith{Op: OpAdd, L: &EnvRead{Env: Caller}, R: &EnvRead{Env: Callvalue}},
	}
	envs := EthEnvFromExp(e)
	require.Equal(t, 2, len(envs))
	assert.Equal(t, Callvalue, envs[0])
	assert.Equal(t, Caller, envs[1])
}

func Test_CreatesFromExp(t *testing.T) {
	e := &Create{Contract: "Pool", Args: []Exp{&Create{Contract: "Pair"}}}
	assert.Equal(t, []string{"Pool", "Pair"}, CreatesFromExp(e))
}

func Test_SetTimeCoverage(t *testing.T) {
	// after SetTime, no entry is left untimed, including entries nested
	// in mapping indexes
	inner := &TEntry{Time: Neither, Item: slotItem("C", "owner")}
	outer := &TEntry{Time: Neither, Item: mapItem("C", "balanceOf", inner)}
	e := &Cmp{Op: OpLT, L: outer, R: &IntLit{Val: big.NewInt(10)}}

	timed := SetTime(e, Post)
	WalkExp(timed, func(x Exp) {
		if entry, ok := x.(*TEntry); ok {
			assert.Equal(t, Post, entry.Time)
		}
	})

	// already-timed entries are untouched
	pinned := &TEntry{Time: Pre, Item: slotItem("C", "owner")}
	result := SetTime(pinned, Post).(*TEntry)
	assert.Equal(t, Pre, result.Time)

	// the original expression is not mutated
	assert.Equal(t, Neither, outer.Time)
	assert.Equal(t, Neither, inner.Time)
}

func Test_InRange(t *testing.T) {
	v := &Var{Type: AInteger, Abi: UIntType(8), Name: "n"}
	e := InRange(span0(), UIntType(8), v)
	conn, ok := e.(*BoolConn)
	require.True(t, ok)
	assert.Equal(t, OpAnd, conn.Op)

	upper := conn.R.(*Cmp)
	max := upper.R.(*IntLit)
	assert.Equal(t, int64(255), max.Val.Int64())

	lower := conn.L.(*Cmp)
	min := lower.L.(*IntLit)
	assert.Equal(t, int64(0), min.Val.Int64())
}

func Test_IntBounds(t *testing.T) {
	min, max, ok := IntType(8).Bounds()
	require.True(t, ok)
	assert.Equal(t, int64(-128), min.Int64())
	assert.Equal(t, int64(127), max.Int64())

	_, _, ok = StringType().Bounds()
	assert.False(t, ok)
}
