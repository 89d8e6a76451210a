package parser

import (
	"testing"

	"act/internal/ast"
	"act/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenSpec = `
constructor of Token
interface constructor(string _name, string _symbol, uint256 _totalSupply)

creates

    string name := _name
    string symbol := _symbol
    uint256 totalSupply := _totalSupply
    mapping(address => uint256) balanceOf := [CALLER := _totalSupply]
    mapping(address => mapping(address => uint256)) allowance := []

invariants

    totalSupply < 2^256

behaviour transfer of Token
interface transfer(uint256 value, address to)

iff

    CALLVALUE == 0
    value <= balanceOf[CALLER]
    CALLER =/= to => balanceOf[to] + value < 2^256

case CALLER =/= to:

    storage

        balanceOf[CALLER] => balanceOf[CALLER] - value
        balanceOf[to] => balanceOf[to] + value

    returns 1

case CALLER == to:

    returns 1
`

const ammSpec = `
behaviour swap0 of Amm
interface swap0(uint256 amt)

iff

    amt <= x

storage

    x => x + amt
    y => y - (y * amt) / (x + amt)

ensures

    pre(x) * pre(y) <= post(x) * post(y)
`

const rangeSpec = `
behaviour add of Counter
interface add(uint256 n)

iff in range uint256

    count + n

storage

    count => count + n
`

const wildcardSpec = `
behaviour f of C
interface f(uint256 n)

case n == 0:

    returns 0

case _:

    returns 1
`

func Test_ParseToken(t *testing.T) {
	f, err := Parse(tokenSpec)
	require.Nil(t, err)
	require.Equal(t, 2, len(f.Behaviours))

	def, ok := f.Behaviours[0].(*ast.Definition)
	require.True(t, ok)
	assert.Equal(t, "Token", def.Contract)
	assert.Equal(t, "constructor", def.Iface.Name)
	require.Equal(t, 3, len(def.Iface.Args))
	assert.Equal(t, types.StringType(), def.Iface.Args[0].Type)
	assert.Equal(t, types.UIntType(256), def.Iface.Args[2].Type)
	require.Equal(t, 5, len(def.Creates))
	require.Equal(t, 1, len(def.Invariants))

	balances, ok := def.Creates[3].(*ast.AssignMapping)
	require.True(t, ok)
	assert.Equal(t, "balanceOf", balances.Name)
	require.Equal(t, 1, len(balances.Keys))
	assert.Equal(t, types.AddressType(), balances.Keys[0])
	assert.Equal(t, types.UIntType(256), balances.Value)
	require.Equal(t, 1, len(balances.Init))

	allowance, ok := def.Creates[4].(*ast.AssignMapping)
	require.True(t, ok)
	require.Equal(t, 2, len(allowance.Keys))
	assert.Equal(t, 0, len(allowance.Init))

	tr, ok := f.Behaviours[1].(*ast.Transition)
	require.True(t, ok)
	assert.Equal(t, "transfer", tr.Name)
	assert.Equal(t, "Token", tr.Contract)
	require.Equal(t, 1, len(tr.Iffs))
	assert.Equal(t, 3, len(tr.Iffs[0].Exprs))
	require.Equal(t, 2, len(tr.Cases.Branches))
	assert.Nil(t, tr.Cases.Direct)

	first := tr.Cases.Branches[0]
	require.NotNil(t, first.Post)
	assert.Equal(t, 2, len(first.Post.Storage))
	require.NotNil(t, first.Post.Returns)
}

func Test_ParseDirectPost(t *testing.T) {
	f, err := Parse(ammSpec)
	require.Nil(t, err)
	tr, ok := f.Behaviours[0].(*ast.Transition)
	require.True(t, ok)
	require.NotNil(t, tr.Cases.Direct)
	assert.Equal(t, 2, len(tr.Cases.Direct.Storage))
	require.Equal(t, 1, len(tr.Ensures))

	cmp, ok := tr.Ensures[0].(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpLeq, cmp.Op)
	mul, ok := cmp.L.(*ast.Binary)
	require.True(t, ok)
	pre, ok := mul.L.(*ast.Entry)
	require.True(t, ok)
	assert.Equal(t, ast.TimePre, pre.Tag)
}

func Test_ParseIffInRange(t *testing.T) {
	f, err := Parse(rangeSpec)
	require.Nil(t, err)
	tr := f.Behaviours[0].(*ast.Transition)
	require.Equal(t, 1, len(tr.Iffs))
	require.NotNil(t, tr.Iffs[0].Range)
	assert.Equal(t, types.UIntType(256), *tr.Iffs[0].Range)
	assert.Equal(t, 1, len(tr.Iffs[0].Exprs))
}

func Test_ParseWildcardCase(t *testing.T) {
	f, err := Parse(wildcardSpec)
	require.Nil(t, err)
	tr := f.Behaviours[0].(*ast.Transition)
	require.Equal(t, 2, len(tr.Cases.Branches))
	assert.False(t, tr.Cases.Branches[0].Wildcard)
	assert.True(t, tr.Cases.Branches[1].Wildcard)
}

func Test_Precedence(t *testing.T) {
	src := `
behaviour f of C
interface f(uint256 a, uint256 b)

iff

    a + b * 2 == a + (b * 2)
    a == 0 and b == 1 or a == 1

storage

    x => a
`
	f, err := Parse(src)
	require.Nil(t, err)
	tr := f.Behaviours[0].(*ast.Transition)

	eq := tr.Iffs[0].Exprs[0].(*ast.Binary)
	require.Equal(t, ast.OpEq, eq.Op)
	add := eq.L.(*ast.Binary)
	assert.Equal(t, ast.OpAdd, add.Op)
	mul := add.R.(*ast.Binary)
	assert.Equal(t, ast.OpMul, mul.Op)

	or := tr.Iffs[0].Exprs[1].(*ast.Binary)
	require.Equal(t, ast.OpOr, or.Op)
	and := or.L.(*ast.Binary)
	assert.Equal(t, ast.OpAnd, and.Op)
}

func Test_SyntaxErrorPosition(t *testing.T) {
	_, err := Parse("behaviour of Token")
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "1:11")
}

// parsing and pretty-printing yields an AST equal to parsing the original
// source, modulo positions
func Test_RoundTrip(t *testing.T) {
	fixtures := map[string]string{
		"token":    tokenSpec,
		"amm":      ammSpec,
		"range":    rangeSpec,
		"wildcard": wildcardSpec,
	}
	for name, src := range fixtures {
		f1, err := Parse(src)
		require.Nil(t, err, name)
		printed := ast.Print(f1)
		f2, err := Parse(printed)
		require.Nil(t, err, "reparse of %s failed:\n%s", name, printed)
		assert.True(t, eqFile(f1, f2), "%s: reparsed AST differs from the original:\n%s", name, printed)
		// the canonical form is also a fixed point
		assert.Equal(t, printed, ast.Print(f2), name)
	}
}

// ---- position-insensitive structural equality over the untyped AST ----

func eqFile(a, b *ast.File) bool {
	if len(a.Behaviours) != len(b.Behaviours) {
		return false
	}
	for i := range a.Behaviours {
		if !eqRaw(a.Behaviours[i], b.Behaviours[i]) {
			return false
		}
	}
	return true
}

func eqRaw(a, b ast.RawBehaviour) bool {
	switch x := a.(type) {
	case *ast.Transition:
		y, ok := b.(*ast.Transition)
		return ok && x.Name == y.Name && x.Contract == y.Contract &&
			eqIface(x.Iface, y.Iface) && eqIffs(x.Iffs, y.Iffs) &&
			eqCases(x.Cases, y.Cases) && eqExprs(x.Ensures, y.Ensures)
	case *ast.Definition:
		y, ok := b.(*ast.Definition)
		return ok && x.Contract == y.Contract &&
			eqIface(x.Iface, y.Iface) && eqIffs(x.Iffs, y.Iffs) &&
			eqAssigns(x.Creates, y.Creates) &&
			eqExprs(x.Ensures, y.Ensures) && eqExprs(x.Invariants, y.Invariants)
	}
	return false
}

func eqIface(a, b ast.Interface) bool {
	if a.Name != b.Name || len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if a.Args[i].Type != b.Args[i].Type || a.Args[i].Name != b.Args[i].Name {
			return false
		}
	}
	return true
}

func eqIffs(a, b []ast.IffClause) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if (a[i].Range == nil) != (b[i].Range == nil) {
			return false
		}
		if a[i].Range != nil && *a[i].Range != *b[i].Range {
			return false
		}
		if !eqExprs(a[i].Exprs, b[i].Exprs) {
			return false
		}
	}
	return true
}

func eqCases(a, b ast.Cases) bool {
	if (a.Direct == nil) != (b.Direct == nil) {
		return false
	}
	if a.Direct != nil && !eqPost(a.Direct, b.Direct) {
		return false
	}
	if len(a.Branches) != len(b.Branches) {
		return false
	}
	for i := range a.Branches {
		if !eqBranch(a.Branches[i], b.Branches[i]) {
			return false
		}
	}
	return true
}

func eqBranch(a, b ast.Branch) bool {
	if a.Wildcard != b.Wildcard || !eqExpr(a.Guard, b.Guard) {
		return false
	}
	if len(a.Sub) != len(b.Sub) {
		return false
	}
	for i := range a.Sub {
		if !eqBranch(a.Sub[i], b.Sub[i]) {
			return false
		}
	}
	if (a.Post == nil) != (b.Post == nil) {
		return false
	}
	return a.Post == nil || eqPost(a.Post, b.Post)
}

func eqPost(a, b *ast.Post) bool {
	if len(a.Storage) != len(b.Storage) {
		return false
	}
	for i := range a.Storage {
		if !eqRef(a.Storage[i].Ref, b.Storage[i].Ref) ||
			!eqExpr(a.Storage[i].Value, b.Storage[i].Value) {
			return false
		}
	}
	return eqExpr(a.Returns, b.Returns)
}

func eqAssigns(a, b []ast.Assign) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !eqAssign(a[i], b[i]) {
			return false
		}
	}
	return true
}

func eqAssign(a, b ast.Assign) bool {
	switch x := a.(type) {
	case *ast.AssignVal:
		y, ok := b.(*ast.AssignVal)
		return ok && x.Type == y.Type && x.Name == y.Name && eqExpr(x.Value, y.Value)
	case *ast.AssignMapping:
		y, ok := b.(*ast.AssignMapping)
		if !ok || x.Name != y.Name || x.Value != y.Value ||
			len(x.Keys) != len(y.Keys) || len(x.Init) != len(y.Init) {
			return false
		}
		for i := range x.Keys {
			if x.Keys[i] != y.Keys[i] {
				return false
			}
		}
		for i := range x.Init {
			if !eqExpr(x.Init[i].Key, y.Init[i].Key) ||
				!eqExpr(x.Init[i].Value, y.Init[i].Value) {
				return false
			}
		}
		return true
	case *ast.AssignStruct:
		y, ok := b.(*ast.AssignStruct)
		return ok && x.Name == y.Name && len(x.Fields) == len(y.Fields)
	}
	return false
}

func eqExprs(a, b []ast.Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !eqExpr(a[i], b[i]) {
			return false
		}
	}
	return true
}

func eqExpr(a, b ast.Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *ast.Binary:
		y, ok := b.(*ast.Binary)
		return ok && x.Op == y.Op && eqExpr(x.L, y.L) && eqExpr(x.R, y.R)
	case *ast.Not:
		y, ok := b.(*ast.Not)
		return ok && eqExpr(x.E, y.E)
	case *ast.ITE:
		y, ok := b.(*ast.ITE)
		return ok && eqExpr(x.Cond, y.Cond) && eqExpr(x.Then, y.Then) && eqExpr(x.Else, y.Else)
	case *ast.IntLit:
		y, ok := b.(*ast.IntLit)
		return ok && x.Lit == y.Lit
	case *ast.BoolLit:
		y, ok := b.(*ast.BoolLit)
		return ok && x.Val == y.Val
	case *ast.EnvRef:
		y, ok := b.(*ast.EnvRef)
		return ok && x.Name == y.Name
	case *ast.Entry:
		y, ok := b.(*ast.Entry)
		return ok && x.Tag == y.Tag && eqRef(x.Ref, y.Ref)
	case *ast.SliceExpr:
		y, ok := b.(*ast.SliceExpr)
		return ok && eqExpr(x.Bytes, y.Bytes) && eqExpr(x.From, y.From) && eqExpr(x.To, y.To)
	}
	return false
}

func eqRef(a, b ast.Ref) bool {
	switch x := a.(type) {
	case *ast.VarRef:
		y, ok := b.(*ast.VarRef)
		return ok && x.Name == y.Name
	case *ast.MapRef:
		y, ok := b.(*ast.MapRef)
		if !ok || !eqRef(x.Base, y.Base) || len(x.Indexes) != len(y.Indexes) {
			return false
		}
		for i := range x.Indexes {
			if !eqExpr(x.Indexes[i], y.Indexes[i]) {
				return false
			}
		}
		return true
	case *ast.FieldRef:
		y, ok := b.(*ast.FieldRef)
		return ok && x.Field == y.Field && eqRef(x.Base, y.Base)
	}
	return false
}
