package smt

import (
	"fmt"
	"math/big"
	"strings"

	"act/internal/types"
)

// encoder turns typed expressions into SMT-LIB2 terms. Failures here are
// internal errors: a type-incorrect expression can never reach this layer,
// so the only rejections are features the backend does not model.
type encoder struct {
	iface string // interface name prefixing calldata constants
}

func (enc *encoder) exp(e types.Exp) (string, error) {
	switch x := e.(type) {
	case *types.IntLit:
		return intLiteral(x), nil

	case *types.BoolLit:
		if x.Val {
			return "true", nil
		}
		return "false", nil

	case *types.ByLit:
		return fmt.Sprintf("%q", string(x.Val)), nil

	case *types.Arith:
		if x.Op == types.OpExp {
			return enc.exponent(x)
		}
		ops := map[types.ArithOp]string{
			types.OpAdd: "+", types.OpSub: "-", types.OpMul: "*",
			types.OpDiv: "div", types.OpMod: "mod",
		}
		return enc.binary(ops[x.Op], x.L, x.R)

	case *types.Cmp:
		ops := map[types.CmpOp]string{
			types.OpLT: "<", types.OpLEQ: "<=",
			types.OpGT: ">", types.OpGEQ: ">=",
		}
		return enc.binary(ops[x.Op], x.L, x.R)

	case *types.BoolConn:
		ops := map[types.BoolOp]string{
			types.OpAnd: "and", types.OpOr: "or", types.OpImpl: "=>",
		}
		return enc.binary(ops[x.Op], x.L, x.R)

	case *types.Not:
		inner, err := enc.exp(x.E)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(not %s)", inner), nil

	case *types.Eq:
		eq, err := enc.binary("=", x.L, x.R)
		if err != nil {
			return "", err
		}
		if x.Neg {
			return fmt.Sprintf("(not %s)", eq), nil
		}
		return eq, nil

	case *types.Cat:
		return enc.binary("str.++", x.L, x.R)

	case *types.Slice:
		b, err := enc.exp(x.Bytes)
		if err != nil {
			return "", err
		}
		from, err := enc.exp(x.From)
		if err != nil {
			return "", err
		}
		to, err := enc.exp(x.To)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(str.substr %s %s (- %s %s))", b, from, to, from), nil

	case *types.ITE:
		cond, err := enc.exp(x.Cond)
		if err != nil {
			return "", err
		}
		then, err := enc.exp(x.Then)
		if err != nil {
			return "", err
		}
		els, err := enc.exp(x.Else)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(ite %s %s %s)", cond, then, els), nil

	case *types.Var:
		return calldataName(enc.iface, x.Name), nil

	case *types.EnvRead:
		return x.Env.SMTName(), nil

	case *types.TEntry:
		if x.Time == types.Neither {
			return "", fmt.Errorf("internal error: untimed storage reference reached the SMT encoder")
		}
		return enc.ref(x.Item.Ref, x.Time)

	case *types.Create:
		return "", fmt.Errorf("internal error: contract creation is not supported by the SMT backend")
	}
	return "", fmt.Errorf("internal error: cannot encode expression")
}

func (enc *encoder) binary(op string, l, r types.Exp) (string, error) {
	ls, err := enc.exp(l)
	if err != nil {
		return "", err
	}
	rs, err := enc.exp(r)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s %s %s)", op, ls, rs), nil
}

// ref encodes a storage reference as a constant or a nested select chain.
func (enc *encoder) ref(r *types.StorageRef, t types.Timing) (string, error) {
	switch r.Kind {
	case types.RefVar:
		return itemName(r, t), nil
	case types.RefMapping:
		term, err := enc.ref(r.Base, t)
		if err != nil {
			return "", err
		}
		for _, ix := range r.Indexes {
			ixs, err := enc.exp(ix)
			if err != nil {
				return "", err
			}
			term = fmt.Sprintf("(select %s %s)", term, ixs)
		}
		return term, nil
	case types.RefField:
		return "", fmt.Errorf("internal error: cross-contract storage is not supported by the SMT backend")
	}
	return "", fmt.Errorf("internal error: malformed storage reference")
}

// exponent eliminates ^, which solvers do not support symbolically. A
// fully concrete expression folds to its value; a concrete exponent
// expands into a multiplication chain; anything else is an internal
// error surfaced during query generation.
func (enc *encoder) exponent(x *types.Arith) (string, error) {
	if v, ok := types.Eval(x); ok {
		return intLiteral(&types.IntLit{Val: v.Int}), nil
	}
	ev, ok := types.Eval(x.R)
	if !ok || !ev.Int.IsInt64() || ev.Int.Sign() < 0 {
		return "", fmt.Errorf("internal error: cannot encode symbolic exponentiation")
	}
	n := ev.Int.Int64()
	if n == 0 {
		return "1", nil
	}
	base, err := enc.exp(x.L)
	if err != nil {
		return "", err
	}
	if n == 1 {
		return base, nil
	}
	factors := make([]string, n)
	for i := range factors {
		factors[i] = base
	}
	return fmt.Sprintf("(* %s)", strings.Join(factors, " ")), nil
}

// intLiteral renders an integer, parenthesizing negatives as (- N) for
// solver portability.
func intLiteral(x *types.IntLit) string {
	if x.Val.Sign() < 0 {
		return fmt.Sprintf("(- %s)", new(big.Int).Neg(x.Val))
	}
	return x.Val.String()
}
