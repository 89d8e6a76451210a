package types

import "math/big"

// Value is the result of evaluating a concrete expression.
type Value struct {
	Type  ActType
	Int   *big.Int
	Bool  bool
	Bytes []byte
}

func IntValue(v *big.Int) Value  { return Value{Type: AInteger, Int: v} }
func BoolValue(v bool) Value     { return Value{Type: ABoolean, Bool: v} }
func BytesValue(v []byte) Value  { return Value{Type: AByteStr, Bytes: v} }

// Eval constant-folds an expression. It succeeds only when every leaf is a
// literal: storage entries, calldata variables, environment reads and
// Create are never evaluable. Arithmetic is over unbounded integers;
// division and modulo by zero fail.
func Eval(e Exp) (Value, bool) {
	switch x := e.(type) {
	case *IntLit:
		return IntValue(x.Val), true
	case *BoolLit:
		return BoolValue(x.Val), true
	case *ByLit:
		return BytesValue(x.Val), true

	case *Arith:
		l, ok := Eval(x.L)
		if !ok {
			return Value{}, false
		}
		r, ok := Eval(x.R)
		if !ok {
			return Value{}, false
		}
		out := new(big.Int)
		switch x.Op {
		case OpAdd:
			out.Add(l.Int, r.Int)
		case OpSub:
			out.Sub(l.Int, r.Int)
		case OpMul:
			out.Mul(l.Int, r.Int)
		case OpDiv:
			if r.Int.Sign() == 0 {
				return Value{}, false
			}
			out.Quo(l.Int, r.Int)
		case OpMod:
			if r.Int.Sign() == 0 {
				return Value{}, false
			}
			out.Rem(l.Int, r.Int)
		case OpExp:
			if r.Int.Sign() < 0 || !r.Int.IsInt64() {
				return Value{}, false
			}
			out.Exp(l.Int, r.Int, nil)
		}
		return IntValue(out), true

	case *Cmp:
		l, ok := Eval(x.L)
		if !ok {
			return Value{}, false
		}
		r, ok := Eval(x.R)
		if !ok {
			return Value{}, false
		}
		c := l.Int.Cmp(r.Int)
		switch x.Op {
		case OpLT:
			return BoolValue(c < 0), true
		case OpLEQ:
			return BoolValue(c <= 0), true
		case OpGT:
			return BoolValue(c > 0), true
		case OpGEQ:
			return BoolValue(c >= 0), true
		}

	case *BoolConn:
		l, ok := Eval(x.L)
		if !ok {
			return Value{}, false
		}
		r, ok := Eval(x.R)
		if !ok {
			return Value{}, false
		}
		switch x.Op {
		case OpAnd:
			return BoolValue(l.Bool && r.Bool), true
		case OpOr:
			return BoolValue(l.Bool || r.Bool), true
		case OpImpl:
			return BoolValue(!l.Bool || r.Bool), true
		}

	case *Not:
		v, ok := Eval(x.E)
		if !ok {
			return Value{}, false
		}
		return BoolValue(!v.Bool), true

	case *Eq:
		l, ok := Eval(x.L)
		if !ok {
			return Value{}, false
		}
		r, ok := Eval(x.R)
		if !ok {
			return Value{}, false
		}
		var eq bool
		switch x.ArgType {
		case AInteger:
			eq = l.Int.Cmp(r.Int) == 0
		case ABoolean:
			eq = l.Bool == r.Bool
		case AByteStr:
			eq = string(l.Bytes) == string(r.Bytes)
		default:
			return Value{}, false
		}
		if x.Neg {
			eq = !eq
		}
		return BoolValue(eq), true

	case *Cat:
		l, ok := Eval(x.L)
		if !ok {
			return Value{}, false
		}
		r, ok := Eval(x.R)
		if !ok {
			return Value{}, false
		}
		return BytesValue(append(append([]byte{}, l.Bytes...), r.Bytes...)), true

	case *Slice:
		b, ok := Eval(x.Bytes)
		if !ok {
			return Value{}, false
		}
		from, ok := Eval(x.From)
		if !ok {
			return Value{}, false
		}
		to, ok := Eval(x.To)
		if !ok {
			return Value{}, false
		}
		if !from.Int.IsInt64() || !to.Int.IsInt64() {
			return Value{}, false
		}
		lo, hi := from.Int.Int64(), to.Int.Int64()
		if lo < 0 || hi < lo || hi > int64(len(b.Bytes)) {
			return Value{}, false
		}
		return BytesValue(b.Bytes[lo:hi]), true

	case *ITE:
		c, ok := Eval(x.Cond)
		if !ok {
			return Value{}, false
		}
		if c.Bool {
			return Eval(x.Then)
		}
		return Eval(x.Else)
	}
	return Value{}, false
}
