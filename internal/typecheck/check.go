package typecheck

import (
	"fmt"
	"math/big"

	"act/internal/ast"
	"act/internal/span"
	"act/internal/types"

	log "github.com/sirupsen/logrus"
)

// env is the checking context of one behaviour or constructor: the current
// contract, its slot map, the global store, and the calldata of the
// interface being checked.
type env struct {
	contract  string
	store     types.Store
	slots     map[string]types.SlotType
	calldata  map[string]types.AbiType
	inCreates bool
}

// timeMode is the timing discipline demanded by the surrounding context.
type timeMode int

const (
	untimed timeMode = iota // preconditions, case guards, invariants
	timed                   // postconditions
)

// Program typechecks a parsed file into the timing-annotated typed AST.
// User errors accumulate in the returned list; the error return is
// reserved for internal errors (reserved syntax reaching the checker).
func Program(f *ast.File) (*types.Act, *span.ErrorList, error) {
	errs := &span.ErrorList{}
	store, storeErrs := DiscoverStore(f)
	errs.Merge(storeErrs)

	// group transitions under their contract, preserving source order
	type group struct {
		def         *ast.Definition
		transitions []*ast.Transition
	}
	var order []string
	groups := map[string]*group{}
	for _, raw := range f.Behaviours {
		switch x := raw.(type) {
		case *ast.Definition:
			if g, ok := groups[x.Contract]; ok {
				if g.def != nil {
					// duplicate contract, already reported by discovery
					continue
				}
				g.def = x
				continue
			}
			groups[x.Contract] = &group{def: x}
			order = append(order, x.Contract)
		case *ast.Transition:
			g, ok := groups[x.Contract]
			if !ok {
				g = &group{}
				groups[x.Contract] = g
				order = append(order, x.Contract)
			}
			g.transitions = append(g.transitions, x)
		}
	}

	act := &types.Act{Store: store}
	for _, name := range order {
		g := groups[name]
		if g.def == nil {
			for _, tr := range g.transitions {
				errs.Addf(tr.P, "unknown contract %s", tr.Contract)
			}
			continue
		}
		ctors, err := checkDefinition(store, g.def, errs)
		if err != nil {
			return nil, errs, err
		}
		contract := &types.Contract{Constructors: ctors}
		seen := map[string]span.Pos{}
		for _, tr := range g.transitions {
			behvs := checkTransition(store, tr, errs)
			if len(behvs) > 0 {
				key := behvs[0].Name + "/" + behvs[0].Interface.String()
				if _, dup := seen[key]; dup {
					errs.Addf(tr.P, "duplicate definition of %s", key)
					continue
				}
				seen[key] = tr.P
			}
			contract.Behaviours = append(contract.Behaviours, behvs...)
		}
		act.Contracts = append(act.Contracts, contract)
	}

	if !errs.Empty() {
		return nil, errs, nil
	}
	log.Debugf("typechecked %d contracts", len(act.Contracts))
	return act, errs, nil
}

func newEnv(store types.Store, contract string, iface ast.Interface, errs *span.ErrorList) (*env, types.Interface) {
	calldata := map[string]types.AbiType{}
	typedIface := types.Interface{Name: iface.Name}
	for _, arg := range iface.Args {
		if _, dup := calldata[arg.Name]; dup {
			errs.Addf(arg.P, "duplicate argument %s", arg.Name)
			continue
		}
		calldata[arg.Name] = arg.Type
		typedIface.Args = append(typedIface.Args, types.Decl{P: arg.P, Abi: arg.Type, Name: arg.Name})
	}
	return &env{
		contract: contract,
		store:    store,
		slots:    store[contract],
		calldata: calldata,
	}, typedIface
}

// checkIffs elaborates the iff blocks of a behaviour or constructor into
// untimed boolean preconditions. `iff in range` clauses become in-range
// fences over their integer expressions.
func checkIffs(e *env, iffs []ast.IffClause, errs *span.ErrorList) []types.Exp {
	var out []types.Exp
	for _, clause := range iffs {
		if clause.Range != nil {
			if _, _, ok := clause.Range.Bounds(); !ok {
				errs.Addf(clause.P, "iff in range requires an integral type, got %s", clause.Range)
				continue
			}
			for _, x := range clause.Exprs {
				typed := checkExpr(e, x, types.AInteger, untimed, errs)
				if typed != nil {
					out = append(out, types.InRange(x.ExprPos(), *clause.Range, typed))
				}
			}
			continue
		}
		for _, x := range clause.Exprs {
			typed := checkExpr(e, x, types.ABoolean, untimed, errs)
			if typed != nil {
				out = append(out, typed)
			}
		}
	}
	return out
}

func checkDefinition(store types.Store, def *ast.Definition, errs *span.ErrorList) ([]*types.Constructor, error) {
	e, iface := newEnv(store, def.Contract, def.Iface, errs)
	preconds := checkIffs(e, def.Iffs, errs)

	e.inCreates = true
	var initial []types.StorageUpdate
	for _, a := range def.Creates {
		switch x := a.(type) {
		case *ast.AssignVal:
			rhs := checkExpr(e, x.Value, x.Type.ActType(), untimed, errs)
			if rhs == nil {
				continue
			}
			item := types.StorageItem{
				Type: x.Type.ActType(),
				Abi:  x.Type,
				Ref: &types.StorageRef{
					Kind: types.RefVar, P: x.P,
					Contract: def.Contract, Name: x.Name,
				},
			}
			initial = append(initial, types.StorageUpdate{Item: item, Expr: rhs})

		case *ast.AssignMapping:
			if len(x.Keys) > 1 && len(x.Init) > 0 {
				errs.Addf(x.P, "initialiser for nested mapping %s is not supported", x.Name)
				continue
			}
			base := &types.StorageRef{
				Kind: types.RefVar, P: x.P,
				Contract: def.Contract, Name: x.Name,
			}
			for _, pair := range x.Init {
				key := checkExpr(e, pair.Key, x.Keys[0].ActType(), untimed, errs)
				val := checkExpr(e, pair.Value, x.Value.ActType(), untimed, errs)
				if key == nil || val == nil {
					continue
				}
				item := types.StorageItem{
					Type: x.Value.ActType(),
					Abi:  x.Value,
					Ref: &types.StorageRef{
						Kind: types.RefMapping, P: pair.P,
						Base: base, Indexes: []types.Exp{key},
					},
				}
				initial = append(initial, types.StorageUpdate{Item: item, Expr: val})
			}

		case *ast.AssignStruct:
			return nil, fmt.Errorf("internal error: struct assignment for %s is not supported", x.Name)
		}
	}
	e.inCreates = false

	postconds := checkExprs(e, def.Ensures, types.ABoolean, timed, errs)

	var invariants []*types.Invariant
	for _, x := range def.Invariants {
		pred := checkExpr(e, x, types.ABoolean, untimed, errs)
		if pred == nil {
			continue
		}
		inv := &types.Invariant{
			Contract:      def.Contract,
			Preconditions: append(append([]types.Exp{}, preconds...), calldataBounds(iface)...),
			StorageBounds: storageBounds(pred),
			Predicate:     pred,
		}
		invariants = append(invariants, inv)
	}

	pass := &types.Constructor{
		Contract:       def.Contract,
		Kind:           types.Pass,
		Interface:      iface,
		Preconditions:  preconds,
		Postconditions: postconds,
		Invariants:     invariants,
		Initial:        initial,
	}
	ctors := []*types.Constructor{pass}
	if hasIffExprs(def.Iffs) {
		neg := &types.Not{P: def.P, E: types.And(def.P, preconds)}
		ctors = append(ctors, &types.Constructor{
			Contract:      def.Contract,
			Kind:          types.Fail,
			Interface:     iface,
			Preconditions: []types.Exp{neg},
		})
	}
	return ctors, nil
}

func hasIffExprs(iffs []ast.IffClause) bool {
	for _, c := range iffs {
		if len(c.Exprs) > 0 {
			return true
		}
	}
	return false
}

// calldataBounds builds the implicit in-range preconditions of an
// interface's integral arguments.
func calldataBounds(iface types.Interface) []types.Exp {
	var out []types.Exp
	for _, arg := range iface.Args {
		if _, _, ok := arg.Abi.Bounds(); !ok {
			continue
		}
		v := &types.Var{P: arg.P, Type: arg.Abi.ActType(), Abi: arg.Abi, Name: arg.Name}
		out = append(out, types.InRange(arg.P, arg.Abi, v))
	}
	return out
}

// storageBounds builds in-range fences for every integral storage
// location referenced by an invariant predicate.
func storageBounds(pred types.Exp) []types.Exp {
	var out []types.Exp
	for _, item := range types.LocsFromExp(pred) {
		if _, _, ok := item.Abi.Bounds(); !ok {
			continue
		}
		entry := &types.TEntry{P: item.Ref.Pos(), Time: types.Neither, Item: item}
		out = append(out, types.InRange(item.Ref.Pos(), item.Abi, entry))
	}
	return out
}

// flatCase is one normalized case: the conjunction of guards along its
// branch path, and its effect.
type flatCase struct {
	pos    span.Pos
	guards []types.Exp
	post   *ast.Post
}

// normalizeCases flattens a case tree. A direct post becomes a single
// unguarded case. Within each branch list a wildcard may appear only in
// the last position; its guard becomes the negation of the disjunction of
// the preceding guards.
func normalizeCases(e *env, cases ast.Cases, errs *span.ErrorList) []flatCase {
	if cases.Direct != nil {
		return []flatCase{{pos: cases.Direct.P, post: cases.Direct}}
	}
	return normalizeBranches(e, cases.Branches, nil, errs)
}

func normalizeBranches(e *env, branches []ast.Branch, outer []types.Exp, errs *span.ErrorList) []flatCase {
	var out []flatCase
	var priors []types.Exp
	for i, br := range branches {
		var guard types.Exp
		if br.Wildcard {
			if i != len(branches)-1 {
				errs.Addf(br.P, "wildcard case must be the last case")
				continue
			}
			guard = &types.Not{P: br.P, E: types.Or(br.P, priors)}
		} else {
			guard = checkExpr(e, br.Guard, types.ABoolean, untimed, errs)
			if guard == nil {
				continue
			}
			priors = append(priors, guard)
		}
		path := append(append([]types.Exp{}, outer...), guard)
		if len(br.Sub) > 0 {
			out = append(out, normalizeBranches(e, br.Sub, path, errs)...)
			continue
		}
		if br.Post == nil {
			errs.Addf(br.P, "case without a body")
			continue
		}
		out = append(out, flatCase{pos: br.P, guards: path, post: br.Post})
	}
	return out
}

func checkTransition(store types.Store, tr *ast.Transition, errs *span.ErrorList) []*types.Behaviour {
	e, iface := newEnv(store, tr.Contract, tr.Iface, errs)
	preconds := checkIffs(e, tr.Iffs, errs)
	postconds := checkExprs(e, tr.Ensures, types.ABoolean, timed, errs)
	flat := normalizeCases(e, tr.Cases, errs)

	var out []*types.Behaviour
	for _, c := range flat {
		updates := checkUpdates(e, c.post.Storage, errs)
		var returns types.Exp
		if c.post.Returns != nil {
			returns = inferExpr(e, c.post.Returns, untimed, errs)
			if returns != nil {
				returns = types.SetTime(returns, types.Pre)
			}
		}
		pass := &types.Behaviour{
			Name:           tr.Name,
			Contract:       tr.Contract,
			Kind:           types.Pass,
			Interface:      iface,
			Preconditions:  preconds,
			CaseConditions: c.guards,
			Postconditions: postconds,
			Updates:        updates,
			Returns:        returns,
		}
		out = append(out, pass)

		if hasIffExprs(tr.Iffs) {
			var constants []types.Rewrite
			for _, r := range updates {
				constants = append(constants, types.RewriteConstant(r.Loc()))
			}
			neg := &types.Not{P: tr.P, E: types.And(tr.P, preconds)}
			out = append(out, &types.Behaviour{
				Name:           tr.Name,
				Contract:       tr.Contract,
				Kind:           types.Fail,
				Interface:      iface,
				Preconditions:  []types.Exp{neg},
				CaseConditions: c.guards,
				Updates:        constants,
			})
		}
	}
	return out
}

// checkUpdates elaborates the `ref => expr` lines of a storage section.
// Right-hand sides are untimed in source and read the pre-state.
func checkUpdates(e *env, lines []ast.UpdateLine, errs *span.ErrorList) []types.Rewrite {
	var out []types.Rewrite
	for _, line := range lines {
		item, ok := resolveSlotRef(e, line.Ref, errs)
		if !ok {
			continue
		}
		rhs := checkExpr(e, line.Value, item.Type, untimed, errs)
		if rhs == nil {
			continue
		}
		out = append(out, types.RewriteUpdate(types.StorageUpdate{
			Item: item,
			Expr: types.SetTime(rhs, types.Pre),
		}))
	}
	return out
}

func checkExprs(e *env, xs []ast.Expr, expected types.ActType, mode timeMode, errs *span.ErrorList) []types.Exp {
	var out []types.Exp
	for _, x := range xs {
		typed := checkExpr(e, x, expected, mode, errs)
		if typed != nil {
			out = append(out, typed)
		}
	}
	return out
}

// checkExpr is the bidirectional expression checker: it elaborates x at
// the expected act type under the given timing discipline, accumulating
// diagnostics and returning nil on failure.
func checkExpr(e *env, x ast.Expr, expected types.ActType, mode timeMode, errs *span.ErrorList) types.Exp {
	switch n := x.(type) {
	case *ast.IntLit:
		if expected != types.AInteger {
			errs.Addf(n.P, "type mismatch: expected %s, got integer literal", expected)
			return nil
		}
		val, ok := new(big.Int).SetString(n.Lit, 10)
		if !ok {
			errs.Addf(n.P, "invalid integer literal %s", n.Lit)
			return nil
		}
		return &types.IntLit{P: n.P, Val: val}

	case *ast.BoolLit:
		if expected != types.ABoolean {
			errs.Addf(n.P, "type mismatch: expected %s, got boolean literal", expected)
			return nil
		}
		return &types.BoolLit{P: n.P, Val: n.Val}

	case *ast.EnvRef:
		env, typ, ok := types.LookupEnv(n.Name)
		if !ok {
			errs.Addf(n.P, "unknown environment variable %s", n.Name)
			return nil
		}
		if typ != expected {
			errs.Addf(n.P, "type mismatch: %s is %s, expected %s", n.Name, typ, expected)
			return nil
		}
		return &types.EnvRead{P: n.P, Env: env}

	case *ast.Not:
		if expected != types.ABoolean {
			errs.Addf(n.P, "type mismatch: expected %s, got boolean expression", expected)
			return nil
		}
		inner := checkExpr(e, n.E, types.ABoolean, mode, errs)
		if inner == nil {
			return nil
		}
		return &types.Not{P: n.P, E: inner}

	case *ast.ITE:
		cond := checkExpr(e, n.Cond, types.ABoolean, mode, errs)
		then := checkExpr(e, n.Then, expected, mode, errs)
		els := checkExpr(e, n.Else, expected, mode, errs)
		if cond == nil || then == nil || els == nil {
			return nil
		}
		ite, err := types.NewITE(n.P, cond, then, els)
		if err != nil {
			errs.Addf(n.P, "%v", err)
			return nil
		}
		return ite

	case *ast.SliceExpr:
		if expected != types.AByteStr {
			errs.Addf(n.P, "type mismatch: expected %s, got bytestring slice", expected)
			return nil
		}
		bytes := checkExpr(e, n.Bytes, types.AByteStr, mode, errs)
		from := checkExpr(e, n.From, types.AInteger, mode, errs)
		to := checkExpr(e, n.To, types.AInteger, mode, errs)
		if bytes == nil || from == nil || to == nil {
			return nil
		}
		return &types.Slice{P: n.P, Bytes: bytes, From: from, To: to}

	case *ast.Entry:
		return resolveEntry(e, n, expected, mode, errs)

	case *ast.Binary:
		return checkBinary(e, n, expected, mode, errs)
	}
	errs.Addf(x.ExprPos(), "unsupported expression")
	return nil
}

func checkBinary(e *env, n *ast.Binary, expected types.ActType, mode timeMode, errs *span.ErrorList) types.Exp {
	switch n.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod, ast.OpExp:
		if expected != types.AInteger {
			errs.Addf(n.P, "type mismatch: expected %s, got arithmetic expression", expected)
			return nil
		}
		l := checkExpr(e, n.L, types.AInteger, mode, errs)
		r := checkExpr(e, n.R, types.AInteger, mode, errs)
		if l == nil || r == nil {
			return nil
		}
		ops := map[ast.BinOp]types.ArithOp{
			ast.OpAdd: types.OpAdd, ast.OpSub: types.OpSub,
			ast.OpMul: types.OpMul, ast.OpDiv: types.OpDiv,
			ast.OpMod: types.OpMod, ast.OpExp: types.OpExp,
		}
		return &types.Arith{P: n.P, Op: ops[n.Op], L: l, R: r}

	case ast.OpLt, ast.OpLeq, ast.OpGt, ast.OpGeq:
		if expected != types.ABoolean {
			errs.Addf(n.P, "type mismatch: expected %s, got comparison", expected)
			return nil
		}
		l := checkExpr(e, n.L, types.AInteger, mode, errs)
		r := checkExpr(e, n.R, types.AInteger, mode, errs)
		if l == nil || r == nil {
			return nil
		}
		ops := map[ast.BinOp]types.CmpOp{
			ast.OpLt: types.OpLT, ast.OpLeq: types.OpLEQ,
			ast.OpGt: types.OpGT, ast.OpGeq: types.OpGEQ,
		}
		return &types.Cmp{P: n.P, Op: ops[n.Op], L: l, R: r}

	case ast.OpAnd, ast.OpOr, ast.OpImpl:
		if expected != types.ABoolean {
			errs.Addf(n.P, "type mismatch: expected %s, got boolean expression", expected)
			return nil
		}
		l := checkExpr(e, n.L, types.ABoolean, mode, errs)
		r := checkExpr(e, n.R, types.ABoolean, mode, errs)
		if l == nil || r == nil {
			return nil
		}
		ops := map[ast.BinOp]types.BoolOp{
			ast.OpAnd: types.OpAnd, ast.OpOr: types.OpOr, ast.OpImpl: types.OpImpl,
		}
		return &types.BoolConn{P: n.P, Op: ops[n.Op], L: l, R: r}

	case ast.OpCat:
		if expected != types.AByteStr {
			errs.Addf(n.P, "type mismatch: expected %s, got bytestring expression", expected)
			return nil
		}
		l := checkExpr(e, n.L, types.AByteStr, mode, errs)
		r := checkExpr(e, n.R, types.AByteStr, mode, errs)
		if l == nil || r == nil {
			return nil
		}
		return &types.Cat{P: n.P, L: l, R: r}

	case ast.OpEq, ast.OpNeq:
		if expected != types.ABoolean {
			errs.Addf(n.P, "type mismatch: expected %s, got equality", expected)
			return nil
		}
		// polymorphic equality: try integer, then boolean, then
		// bytestring; first harmonization wins
		for _, attempt := range []types.ActType{types.AInteger, types.ABoolean, types.AByteStr} {
			trial := &span.ErrorList{}
			l := checkExpr(e, n.L, attempt, mode, trial)
			r := checkExpr(e, n.R, attempt, mode, trial)
			if l == nil || r == nil || !trial.Empty() {
				continue
			}
			eq, err := types.NewEq(n.P, n.Op == ast.OpNeq, l, r)
			if err != nil {
				continue
			}
			return eq
		}
		errs.Addf(n.L.ExprPos(), "cannot harmonize the types of the equality operands")
		return nil
	}
	errs.Addf(n.P, "unsupported operator %s", n.Op)
	return nil
}

// inferExpr elaborates an expression with no demanded type by trying each
// act type in turn, as used for return expressions.
func inferExpr(e *env, x ast.Expr, mode timeMode, errs *span.ErrorList) types.Exp {
	for _, attempt := range []types.ActType{types.AInteger, types.ABoolean, types.AByteStr} {
		trial := &span.ErrorList{}
		typed := checkExpr(e, x, attempt, mode, trial)
		if typed != nil && trial.Empty() {
			return typed
		}
	}
	errs.Addf(x.ExprPos(), "cannot determine the type of this expression")
	return nil
}

// flattenRef splits a reference chain into its root name and the
// concatenated index groups. Field references are cross-contract accesses,
// which the checker does not support.
func flattenRef(r ast.Ref) (name string, pos span.Pos, indexes []ast.Expr, field bool) {
	switch x := r.(type) {
	case *ast.VarRef:
		return x.Name, x.P, nil, false
	case *ast.MapRef:
		name, pos, indexes, field = flattenRef(x.Base)
		indexes = append(indexes, x.Indexes...)
		return name, pos, indexes, field
	case *ast.FieldRef:
		return "", x.P, nil, true
	}
	return "", span.Pos{}, nil, true
}

// resolveSlotRef resolves the left-hand side of a storage update line.
// It must name a slot of the current contract with fully applied indexes.
func resolveSlotRef(e *env, r ast.Ref, errs *span.ErrorList) (types.StorageItem, bool) {
	name, pos, indexes, field := flattenRef(r)
	if field {
		errs.Addf(r.RefPos(), "cross-contract storage access is not supported")
		return types.StorageItem{}, false
	}
	slot, inSlots := e.slots[name]
	if !inSlots {
		if _, inCalldata := e.calldata[name]; inCalldata {
			errs.Addf(pos, "cannot update calldata argument %s", name)
		} else {
			errs.Addf(pos, "unknown name %s", name)
		}
		return types.StorageItem{}, false
	}
	if len(indexes) != len(slot.Keys) {
		errs.Addf(pos, "%s expects %d indexes, got %d", name, len(slot.Keys), len(indexes))
		return types.StorageItem{}, false
	}
	ref := &types.StorageRef{
		Kind: types.RefVar, P: pos,
		Contract: e.contract, Name: name,
	}
	if len(indexes) > 0 {
		typed := make([]types.Exp, 0, len(indexes))
		for i, ix := range indexes {
			t := checkExpr(e, ix, slot.Keys[i].ActType(), untimed, errs)
			if t == nil {
				return types.StorageItem{}, false
			}
			typed = append(typed, t)
		}
		ref = &types.StorageRef{
			Kind: types.RefMapping, P: pos,
			Base: ref, Indexes: typed,
		}
	}
	return types.StorageItem{Type: slot.Value.ActType(), Abi: slot.Value, Ref: ref}, true
}

// resolveEntry resolves a storage-or-calldata reference per the name
// resolution pipeline: ambiguity, calldata timing rules, slot arity and
// key types, and the timing coercion demanded by the caller.
func resolveEntry(e *env, entry *ast.Entry, expected types.ActType, mode timeMode, errs *span.ErrorList) types.Exp {
	name, pos, indexes, field := flattenRef(entry.Ref)
	if field {
		errs.Addf(entry.Ref.RefPos(), "cross-contract storage access is not supported")
		return nil
	}

	slot, inSlots := e.slots[name]
	abi, inCalldata := e.calldata[name]

	switch {
	case inSlots && inCalldata:
		errs.Addf(pos, "ambiguous name %s", name)
		return nil

	case inCalldata:
		if entry.Tag != ast.TimeNone {
			errs.Addf(entry.TagPos, "calldata reference %s cannot be timed", name)
			return nil
		}
		if len(indexes) > 0 {
			errs.Addf(pos, "%s is not a mapping", name)
			return nil
		}
		if abi.ActType() != expected {
			errs.Addf(pos, "type mismatch: %s is %s, expected %s", name, abi.ActType(), expected)
			return nil
		}
		return &types.Var{P: pos, Type: abi.ActType(), Abi: abi, Name: name}

	case inSlots:
		if e.inCreates {
			errs.Addf(pos, "cannot read storage in a creates block")
			return nil
		}
		var timing types.Timing
		switch entry.Tag {
		case ast.TimePre:
			timing = types.Pre
		case ast.TimePost:
			timing = types.Post
		}
		if mode == untimed && entry.Tag != ast.TimeNone {
			errs.Addf(entry.TagPos, "Neither variable needed here")
			return nil
		}
		if mode == timed && entry.Tag == ast.TimeNone {
			errs.Addf(pos, "Pre or Post variable needed here")
			return nil
		}

		if len(indexes) != len(slot.Keys) {
			errs.Addf(pos, "%s expects %d indexes, got %d", name, len(slot.Keys), len(indexes))
			return nil
		}
		ref := &types.StorageRef{
			Kind: types.RefVar, P: pos,
			Contract: e.contract, Name: name,
		}
		if len(indexes) > 0 {
			typed := make([]types.Exp, 0, len(indexes))
			for i, ix := range indexes {
				t := checkExpr(e, ix, slot.Keys[i].ActType(), untimed, errs)
				if t == nil {
					return nil
				}
				typed = append(typed, t)
			}
			ref = &types.StorageRef{
				Kind: types.RefMapping, P: pos,
				Base: ref, Indexes: typed,
			}
		}
		if slot.Value.ActType() != expected {
			errs.Addf(pos, "type mismatch: %s is %s, expected %s", name, slot.Value.ActType(), expected)
			return nil
		}
		item := types.StorageItem{Type: slot.Value.ActType(), Abi: slot.Value, Ref: ref}
		if timing != types.Neither {
			item = types.SetItemTime(item, timing)
		}
		return &types.TEntry{P: entry.P, Time: timing, Item: item}

	default:
		errs.Addf(pos, "unknown name %s", name)
		return nil
	}
}
