package types

import (
	"strings"

	"act/internal/span"
)

// RefKind discriminates the three storage reference forms.
type RefKind int

const (
	RefVar     RefKind = iota // top-level slot of a contract
	RefMapping                // parent indexed by one or more keys
	RefField                  // field of a contract-typed slot
)

// StorageRef is a (possibly nested) reference to a storage slot. Refs form
// a DAG and are never mutated after construction (retiming copies the
// chain), so a sub-reference may be shared by several refs.
type StorageRef struct {
	Kind     RefKind
	P        span.Pos
	Contract string      // RefVar
	Name     string      // RefVar slot name, RefField field name
	Base     *StorageRef // RefMapping, RefField
	Indexes  []Exp       // RefMapping
}

func (r *StorageRef) Pos() span.Pos { return r.P }

// Root returns the underlying RefVar of a reference chain.
func (r *StorageRef) Root() *StorageRef {
	for r.Kind != RefVar {
		r = r.Base
	}
	return r
}

func (r *StorageRef) String() string {
	switch r.Kind {
	case RefVar:
		return r.Contract + "." + r.Name
	case RefMapping:
		var sb strings.Builder
		sb.WriteString(r.Base.String())
		sb.WriteByte('[')
		for i := range r.Indexes {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("_")
		}
		sb.WriteByte(']')
		return sb.String()
	case RefField:
		return r.Base.String() + "." + r.Name
	}
	return "?"
}

func (r *StorageRef) setTime(t Timing) *StorageRef {
	out := *r
	if r.Base != nil {
		out.Base = r.Base.setTime(t)
	}
	if len(r.Indexes) > 0 {
		out.Indexes = make([]Exp, len(r.Indexes))
		for i, ix := range r.Indexes {
			out.Indexes[i] = SetTime(ix, t)
		}
	}
	return &out
}

// StorageItem is a storage reference together with its precise type: the
// act type it elaborates to and the declared ABI value type.
type StorageItem struct {
	Type ActType
	Abi  AbiType
	Ref  *StorageRef
}

func (it StorageItem) setTime(t Timing) StorageItem {
	return StorageItem{Type: it.Type, Abi: it.Abi, Ref: it.Ref.setTime(t)}
}

// SetItemTime rewrites every untimed storage access inside the item's
// mapping indexes to the given timing.
func SetItemTime(it StorageItem, t Timing) StorageItem {
	return it.setTime(t)
}

// StorageUpdate assigns a new value to a storage item. The rhs carries the
// same act type as the item.
type StorageUpdate struct {
	Item StorageItem
	Expr Exp
}

// Rewrite is an entry of a state-update list: either a full update, or a
// location that is not mutated but still constrained to keep its value.
type Rewrite struct {
	Update   *StorageUpdate // nil for constants
	Constant *StorageItem   // nil for updates
}

func RewriteUpdate(u StorageUpdate) Rewrite   { return Rewrite{Update: &u} }
func RewriteConstant(it StorageItem) Rewrite  { return Rewrite{Constant: &it} }

// Loc returns the storage item the rewrite touches.
func (r Rewrite) Loc() StorageItem {
	if r.Update != nil {
		return r.Update.Item
	}
	return *r.Constant
}

// Decl is one calldata argument of an interface.
type Decl struct {
	P    span.Pos
	Abi  AbiType
	Name string
}

// Interface is a behaviour or constructor signature.
type Interface struct {
	Name string
	Args []Decl
}

func (i Interface) String() string {
	var sb strings.Builder
	sb.WriteString(i.Name)
	sb.WriteByte('(')
	for n, a := range i.Args {
		if n > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.Abi.String())
		sb.WriteByte(' ')
		sb.WriteString(a.Name)
	}
	sb.WriteByte(')')
	return sb.String()
}

// ClaimKind separates the obligation generated for the passing path of a
// guarded transition from the one generated for its failing path.
type ClaimKind int

const (
	Pass ClaimKind = iota
	Fail
)

func (k ClaimKind) String() string {
	if k == Fail {
		return "fail"
	}
	return "pass"
}

// Invariant is a contract-level inductive property. The predicate is
// untimed; PredicatePair derives its pre- and post-state forms.
type Invariant struct {
	Contract      string
	Preconditions []Exp // extra untimed preconditions
	StorageBounds []Exp // in-range fences for referenced storage
	Predicate     Exp
}

// PredicatePair is the timed form of the predicate.
func (inv *Invariant) PredicatePair() (pre, post Exp) {
	return SetTime(inv.Predicate, Pre), SetTime(inv.Predicate, Post)
}

// Constructor is the typed claim for a contract's creation path.
type Constructor struct {
	Contract       string
	Kind           ClaimKind
	Interface      Interface
	Preconditions  []Exp
	Postconditions []Exp
	Invariants     []*Invariant
	Initial        []StorageUpdate // creates block, post-state only
	External       []Rewrite       // external storage, unsupported downstream
}

// Behaviour is the typed claim for one pass/fail path of a transition.
type Behaviour struct {
	Name           string
	Contract       string
	Kind           ClaimKind
	Interface      Interface
	Preconditions  []Exp // iff conditions (untimed)
	CaseConditions []Exp // normalized case guard (untimed)
	Postconditions []Exp // timed
	Updates        []Rewrite
	Returns        Exp // nil when absent
}

// Contract pairs the constructor claims of a contract with its behaviour
// claims. Constructors[0] is always the pass claim; a fail claim follows
// when the constructor carries iff conditions.
type Contract struct {
	Constructors []*Constructor
	Behaviours   []*Behaviour
}

func (c *Contract) Name() string {
	return c.Constructors[0].Contract
}

// Invariants returns the invariant claims of the contract, which live on
// the pass constructor.
func (c *Contract) Invariants() []*Invariant {
	return c.Constructors[0].Invariants
}

// Act is the result of typechecking: the global store plus all contracts.
type Act struct {
	Store     Store
	Contracts []*Contract
}
