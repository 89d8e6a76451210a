package types

import "act/internal/span"

// The folds below collect facts from typed expressions and claims. They
// preserve first-occurrence order and de-duplicate.

// LocsFromExp collects every storage item referenced in e, including items
// buried in mapping indexes.
func LocsFromExp(e Exp) []StorageItem {
	var out []StorageItem
	walkExp(e, func(x Exp) {
		if entry, ok := x.(*TEntry); ok {
			out = append(out, entry.Item)
		}
	})
	return dedupItems(out)
}

// LocsFromRewrites collects the locations of a state-update list together
// with every location read by the update right-hand sides and indexes.
func LocsFromRewrites(rs []Rewrite) []StorageItem {
	var out []StorageItem
	for _, r := range rs {
		out = append(out, r.Loc())
		out = append(out, locsFromRef(r.Loc().Ref)...)
		if r.Update != nil {
			out = append(out, LocsFromExp(r.Update.Expr)...)
		}
	}
	return dedupItems(out)
}

func locsFromRef(r *StorageRef) []StorageItem {
	var out []StorageItem
	for _, ix := range r.Indexes {
		out = append(out, LocsFromExp(ix)...)
	}
	if r.Base != nil {
		out = append(out, locsFromRef(r.Base)...)
	}
	return out
}

// EthEnvFromExp collects the environment values read by e.
func EthEnvFromExp(e Exp) []EthEnv {
	var out []EthEnv
	walkExp(e, func(x Exp) {
		if env, ok := x.(*EnvRead); ok {
			out = append(out, env.Env)
		}
	})
	return dedupEnvs(out)
}

// EthEnvFromExps folds EthEnvFromExp over a list.
func EthEnvFromExps(es []Exp) []EthEnv {
	var out []EthEnv
	for _, e := range es {
		out = append(out, EthEnvFromExp(e)...)
	}
	return dedupEnvs(out)
}

// Ident is an identifier occurrence with its position.
type Ident struct {
	Name string
	Pos  span.Pos
}

// IdentsFromExp collects calldata identifiers with their positions.
func IdentsFromExp(e Exp) []Ident {
	var out []Ident
	walkExp(e, func(x Exp) {
		if v, ok := x.(*Var); ok {
			out = append(out, Ident{Name: v.Name, Pos: v.P})
		}
	})
	return out
}

// CreatesFromExp collects the contract names mentioned by Create nodes.
func CreatesFromExp(e Exp) []string {
	var out []string
	seen := map[string]bool{}
	walkExp(e, func(x Exp) {
		if c, ok := x.(*Create); ok && !seen[c.Contract] {
			seen[c.Contract] = true
			out = append(out, c.Contract)
		}
	})
	return out
}

// WalkExp applies f to e and every sub-expression, pre-order, including
// expressions nested in mapping indexes.
func WalkExp(e Exp, f func(Exp)) {
	walkExp(e, f)
}

// walkExp applies f to e and every sub-expression, pre-order.
func walkExp(e Exp, f func(Exp)) {
	if e == nil {
		return
	}
	f(e)
	switch x := e.(type) {
	case *Arith:
		walkExp(x.L, f)
		walkExp(x.R, f)
	case *Cmp:
		walkExp(x.L, f)
		walkExp(x.R, f)
	case *BoolConn:
		walkExp(x.L, f)
		walkExp(x.R, f)
	case *Not:
		walkExp(x.E, f)
	case *Eq:
		walkExp(x.L, f)
		walkExp(x.R, f)
	case *Cat:
		walkExp(x.L, f)
		walkExp(x.R, f)
	case *Slice:
		walkExp(x.Bytes, f)
		walkExp(x.From, f)
		walkExp(x.To, f)
	case *ITE:
		walkExp(x.Cond, f)
		walkExp(x.Then, f)
		walkExp(x.Else, f)
	case *TEntry:
		walkRef(x.Item.Ref, f)
	case *Create:
		for _, a := range x.Args {
			walkExp(a, f)
		}
	}
}

func walkRef(r *StorageRef, f func(Exp)) {
	if r == nil {
		return
	}
	for _, ix := range r.Indexes {
		walkExp(ix, f)
	}
	walkRef(r.Base, f)
}

func dedupItems(items []StorageItem) []StorageItem {
	seen := map[string]bool{}
	var out []StorageItem
	for _, it := range items {
		key := RefKey(it.Ref)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}

// RefKey is a canonical spelling of a reference, distinguishing mapping
// accesses by their index expressions.
func RefKey(r *StorageRef) string {
	switch r.Kind {
	case RefVar:
		return r.Contract + "." + r.Name
	case RefMapping:
		key := RefKey(r.Base) + "["
		for i, ix := range r.Indexes {
			if i > 0 {
				key += ","
			}
			key += ExpKey(ix)
		}
		return key + "]"
	case RefField:
		return RefKey(r.Base) + "." + r.Name
	}
	return "?"
}

// ExpKey is a canonical spelling of an expression, used for structural
// de-duplication.
func ExpKey(e Exp) string {
	switch x := e.(type) {
	case *IntLit:
		return x.Val.String()
	case *BoolLit:
		if x.Val {
			return "true"
		}
		return "false"
	case *ByLit:
		return string(x.Val)
	case *Arith:
		return "(" + x.Op.String() + " " + ExpKey(x.L) + " " + ExpKey(x.R) + ")"
	case *Cmp:
		return "(" + x.Op.String() + " " + ExpKey(x.L) + " " + ExpKey(x.R) + ")"
	case *BoolConn:
		return "(" + x.Op.String() + " " + ExpKey(x.L) + " " + ExpKey(x.R) + ")"
	case *Not:
		return "(not " + ExpKey(x.E) + ")"
	case *Eq:
		op := "=="
		if x.Neg {
			op = "=/="
		}
		return "(" + op + " " + ExpKey(x.L) + " " + ExpKey(x.R) + ")"
	case *Cat:
		return "(++ " + ExpKey(x.L) + " " + ExpKey(x.R) + ")"
	case *Slice:
		return "(slice " + ExpKey(x.Bytes) + " " + ExpKey(x.From) + " " + ExpKey(x.To) + ")"
	case *ITE:
		return "(ite " + ExpKey(x.Cond) + " " + ExpKey(x.Then) + " " + ExpKey(x.Else) + ")"
	case *Var:
		return x.Name
	case *EnvRead:
		return x.Env.SourceName()
	case *TEntry:
		return x.Time.String() + ":" + RefKey(x.Item.Ref)
	case *Create:
		key := "(create " + x.Contract
		for _, a := range x.Args {
			key += " " + ExpKey(a)
		}
		return key + ")"
	}
	return "?"
}

func dedupEnvs(envs []EthEnv) []EthEnv {
	seen := map[EthEnv]bool{}
	var out []EthEnv
	for _, e := range envs {
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}
