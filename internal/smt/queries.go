package smt

import (
	"fmt"

	"act/internal/types"
)

// QueryKind separates plain postcondition obligations from the two halves
// of an inductive invariant proof.
type QueryKind int

const (
	QPostcondition QueryKind = iota
	QInvariantCtor
	QInvariantStep
)

// LocModel records which timed forms of a storage location a query
// mentions, for model extraction.
type LocModel struct {
	Item    types.StorageItem
	HasPre  bool
	HasPost bool
}

// ModelCtx is everything needed to read a counter-model back out of the
// solver after a sat result.
type ModelCtx struct {
	Iface    string
	Calldata []types.Decl
	Envs     []types.EthEnv
	Locs     []LocModel
}

// Query is one proof obligation: an SMT script whose unsatisfiability
// implies the property.
type Query struct {
	Kind     QueryKind
	Contract string
	Name     string // behaviour name, or "constructor"
	Mode     types.ClaimKind
	InvIndex int // groups the sub-queries of one invariant
	Prop     types.Exp
	Script   *SMTExp
	Model    ModelCtx
}

// Title is the human identifier of the obligation.
func (q *Query) Title() string {
	switch q.Kind {
	case QInvariantCtor:
		return fmt.Sprintf("invariant %d of %s (constructor)", q.InvIndex, q.Contract)
	case QInvariantStep:
		return fmt.Sprintf("invariant %d of %s (behaviour %s)", q.InvIndex, q.Contract, q.Name)
	}
	return fmt.Sprintf("postcondition of %s.%s (%s)", q.Contract, q.Name, q.Mode)
}

// builder accumulates one query script together with its model context.
type builder struct {
	script  *SMTExp
	model   ModelCtx
	locs    map[string]*LocModel
	locKeys []string
	envs    map[types.EthEnv]bool
}

func newBuilder() *builder {
	return &builder{
		script: &SMTExp{},
		locs:   map[string]*LocModel{},
		envs:   map[types.EthEnv]bool{},
	}
}

// scan registers the declarations needed by an expression: every timed
// storage access, and every environment read.
func (b *builder) scan(e types.Exp) {
	types.WalkExp(e, func(x types.Exp) {
		switch n := x.(type) {
		case *types.TEntry:
			b.noteLoc(n.Item, n.Time)
		case *types.EnvRead:
			if !b.envs[n.Env] {
				b.envs[n.Env] = true
				b.model.Envs = append(b.model.Envs, n.Env)
				b.script.Environment = append(b.script.Environment, declareEnv(n.Env))
			}
		}
	})
}

func (b *builder) noteLoc(item types.StorageItem, t types.Timing) {
	key := types.RefKey(item.Ref)
	lm, ok := b.locs[key]
	if !ok {
		lm = &LocModel{Item: item}
		b.locs[key] = lm
		b.locKeys = append(b.locKeys, key)
	}
	switch t {
	case types.Pre:
		if !lm.HasPre {
			lm.HasPre = true
			b.script.Storage = append(b.script.Storage, declareItem(item, types.Pre))
		}
	case types.Post:
		if !lm.HasPost {
			lm.HasPost = true
			b.script.Storage = append(b.script.Storage, declareItem(item, types.Post))
		}
	}
}

func (b *builder) addCalldata(iface types.Interface) {
	for _, arg := range iface.Args {
		b.script.Calldata = append(b.script.Calldata, declareCalldata(iface.Name, arg))
	}
}

// assertExp encodes e under the given interface prefix, registers its
// declarations, and appends the assertion.
func (b *builder) assertExp(e types.Exp, iface string) error {
	b.scan(e)
	enc := &encoder{iface: iface}
	term, err := enc.exp(e)
	if err != nil {
		return err
	}
	b.script.assert(term)
	return nil
}

func (b *builder) assertAll(es []types.Exp, t types.Timing, iface string) error {
	for _, e := range es {
		if err := b.assertExp(types.SetTime(e, t), iface); err != nil {
			return err
		}
	}
	return nil
}

// assertUpdate encodes one rewrite: an update pins the post-state form to
// its right-hand side; a constant pins pre to post.
func (b *builder) assertUpdate(r types.Rewrite, iface string) error {
	enc := &encoder{iface: iface}
	if r.Update != nil {
		item := types.SetItemTime(r.Update.Item, types.Pre)
		b.noteLoc(item, types.Post)
		b.scanRefIndexes(item)
		lhs, err := enc.ref(item.Ref, types.Post)
		if err != nil {
			return err
		}
		if err := b.scanAndEncodeRhs(r.Update.Expr, iface, lhs); err != nil {
			return err
		}
		return nil
	}
	return b.assertConstant(*r.Constant, iface)
}

func (b *builder) scanAndEncodeRhs(rhs types.Exp, iface, lhs string) error {
	b.scan(rhs)
	enc := &encoder{iface: iface}
	term, err := enc.exp(rhs)
	if err != nil {
		return err
	}
	b.script.assert(fmt.Sprintf("(= %s %s)", lhs, term))
	return nil
}

// assertConstant pins a location to its pre-state value.
func (b *builder) assertConstant(item types.StorageItem, iface string) error {
	item = types.SetItemTime(item, types.Pre)
	b.noteLoc(item, types.Pre)
	b.noteLoc(item, types.Post)
	b.scanRefIndexes(item)
	enc := &encoder{iface: iface}
	pre, err := enc.ref(item.Ref, types.Pre)
	if err != nil {
		return err
	}
	post, err := enc.ref(item.Ref, types.Post)
	if err != nil {
		return err
	}
	b.script.assert(fmt.Sprintf("(= %s %s)", pre, post))
	return nil
}

// assertInitial encodes one creates-block assignment. Created locations
// have no pre-state form.
func (b *builder) assertInitial(u types.StorageUpdate, iface string) error {
	b.noteLoc(u.Item, types.Post)
	b.scanRefIndexes(u.Item)
	enc := &encoder{iface: iface}
	lhs, err := enc.ref(u.Item.Ref, types.Post)
	if err != nil {
		return err
	}
	return b.scanAndEncodeRhs(u.Expr, iface, lhs)
}

func (b *builder) scanRefIndexes(item types.StorageItem) {
	ref := item.Ref
	for ref != nil {
		for _, ix := range ref.Indexes {
			b.scan(ix)
		}
		ref = ref.Base
	}
}

func (b *builder) finish(iface string, calldata []types.Decl) (*SMTExp, ModelCtx) {
	b.model.Iface = iface
	b.model.Calldata = calldata
	for _, key := range b.locKeys {
		b.model.Locs = append(b.model.Locs, *b.locs[key])
	}
	return b.script, b.model
}

// MkPostconditionQueries synthesizes one query per postcondition of every
// pass claim: assert the preconditions and state updates, then the
// negation of the postcondition.
func MkPostconditionQueries(act *types.Act) ([]*Query, error) {
	var out []*Query
	for _, c := range act.Contracts {
		ctor := c.Constructors[0]
		for _, prop := range ctor.Postconditions {
			q, err := mkCtorPostQuery(ctor, prop)
			if err != nil {
				return nil, err
			}
			out = append(out, q)
		}
		for _, bh := range c.Behaviours {
			if bh.Kind != types.Pass {
				continue
			}
			for _, prop := range bh.Postconditions {
				q, err := mkBehvPostQuery(bh, prop)
				if err != nil {
					return nil, err
				}
				out = append(out, q)
			}
		}
	}
	return out, nil
}

func mkBehvPostQuery(bh *types.Behaviour, prop types.Exp) (*Query, error) {
	b := newBuilder()
	iface := bh.Interface.Name
	b.addCalldata(bh.Interface)
	if err := b.assertAll(bh.Preconditions, types.Pre, iface); err != nil {
		return nil, err
	}
	if err := b.assertAll(bh.CaseConditions, types.Pre, iface); err != nil {
		return nil, err
	}
	if err := b.assertAll(interfaceBounds(bh.Interface), types.Pre, iface); err != nil {
		return nil, err
	}
	for _, r := range bh.Updates {
		if err := b.assertUpdate(r, iface); err != nil {
			return nil, err
		}
	}
	if err := b.assertExp(&types.Not{E: prop}, iface); err != nil {
		return nil, err
	}
	script, model := b.finish(iface, bh.Interface.Args)
	return &Query{
		Kind:     QPostcondition,
		Contract: bh.Contract,
		Name:     bh.Name,
		Mode:     bh.Kind,
		Prop:     prop,
		Script:   script,
		Model:    model,
	}, nil
}

func mkCtorPostQuery(ctor *types.Constructor, prop types.Exp) (*Query, error) {
	b := newBuilder()
	iface := ctor.Interface.Name
	b.addCalldata(ctor.Interface)
	if err := b.assertAll(ctor.Preconditions, types.Pre, iface); err != nil {
		return nil, err
	}
	if err := b.assertAll(interfaceBounds(ctor.Interface), types.Pre, iface); err != nil {
		return nil, err
	}
	for _, u := range ctor.Initial {
		if err := b.assertInitial(u, iface); err != nil {
			return nil, err
		}
	}
	if err := b.assertExp(&types.Not{E: prop}, iface); err != nil {
		return nil, err
	}
	script, model := b.finish(iface, ctor.Interface.Args)
	return &Query{
		Kind:     QPostcondition,
		Contract: ctor.Contract,
		Name:     "constructor",
		Mode:     ctor.Kind,
		Prop:     prop,
		Script:   script,
		Model:    model,
	}, nil
}

// interfaceBounds is the implicit in-range precondition set of an
// interface's integral calldata arguments.
func interfaceBounds(iface types.Interface) []types.Exp {
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

// MkInvariantQueries synthesizes, per invariant, one constructor query
// and one query per pass behaviour. Unsat across the whole group means
// the invariant holds inductively.
func MkInvariantQueries(act *types.Act) ([]*Query, error) {
	var out []*Query
	for _, c := range act.Contracts {
		ctor := c.Constructors[0]
		for i, inv := range ctor.Invariants {
			q, err := mkInvCtorQuery(ctor, inv, i)
			if err != nil {
				return nil, err
			}
			out = append(out, q)
			for _, bh := range c.Behaviours {
				if bh.Kind != types.Pass {
					continue
				}
				sq, err := mkInvStepQuery(bh, ctor, inv, i)
				if err != nil {
					return nil, err
				}
				out = append(out, sq)
			}
		}
	}
	return out, nil
}

func mkInvCtorQuery(ctor *types.Constructor, inv *types.Invariant, index int) (*Query, error) {
	b := newBuilder()
	iface := ctor.Interface.Name
	b.addCalldata(ctor.Interface)
	_, predPost := inv.PredicatePair()
	if err := b.assertAll(inv.Preconditions, types.Pre, iface); err != nil {
		return nil, err
	}
	for _, u := range ctor.Initial {
		if err := b.assertInitial(u, iface); err != nil {
			return nil, err
		}
	}
	if err := b.assertAll(inv.StorageBounds, types.Post, iface); err != nil {
		return nil, err
	}
	if err := b.assertExp(&types.Not{E: predPost}, iface); err != nil {
		return nil, err
	}
	script, model := b.finish(iface, ctor.Interface.Args)
	return &Query{
		Kind:     QInvariantCtor,
		Contract: ctor.Contract,
		Name:     "constructor",
		Mode:     ctor.Kind,
		InvIndex: index,
		Prop:     inv.Predicate,
		Script:   script,
		Model:    model,
	}, nil
}

func mkInvStepQuery(bh *types.Behaviour, ctor *types.Constructor, inv *types.Invariant, index int) (*Query, error) {
	b := newBuilder()
	iface := bh.Interface.Name
	b.addCalldata(bh.Interface)
	// calldata referenced by the invariant belongs to the constructor's
	// interface and must be declared under its own prefix
	b.addCalldata(ctor.Interface)

	predPre, predPost := inv.PredicatePair()
	ctorIface := ctor.Interface.Name
	if err := b.assertExp(predPre, ctorIface); err != nil {
		return nil, err
	}
	if err := b.assertAll(inv.StorageBounds, types.Pre, ctorIface); err != nil {
		return nil, err
	}
	if err := b.assertAll(bh.Preconditions, types.Pre, iface); err != nil {
		return nil, err
	}
	if err := b.assertAll(bh.CaseConditions, types.Pre, iface); err != nil {
		return nil, err
	}
	if err := b.assertAll(interfaceBounds(bh.Interface), types.Pre, iface); err != nil {
		return nil, err
	}
	updated := map[string]bool{}
	for _, r := range bh.Updates {
		if err := b.assertUpdate(r, iface); err != nil {
			return nil, err
		}
		updated[types.RefKey(types.SetItemTime(r.Loc(), types.Pre).Ref)] = true
	}
	// locations the invariant mentions but the behaviour does not touch
	// stay constant across the transition
	for _, item := range types.LocsFromExp(types.SetTime(inv.Predicate, types.Pre)) {
		if !updated[types.RefKey(item.Ref)] {
			if err := b.assertConstant(item, ctorIface); err != nil {
				return nil, err
			}
		}
	}
	if err := b.assertExp(&types.Not{E: predPost}, ctorIface); err != nil {
		return nil, err
	}
	script, model := b.finish(iface, bh.Interface.Args)
	return &Query{
		Kind:     QInvariantStep,
		Contract: bh.Contract,
		Name:     bh.Name,
		Mode:     bh.Kind,
		InvIndex: index,
		Prop:     inv.Predicate,
		Script:   script,
		Model:    model,
	}, nil
}
