// Package smt turns typed claims into SMT-LIB2 proof obligations and
// drives an external solver process to discharge them.
package smt

import (
	"fmt"
	"strings"

	"act/internal/types"

	"golang.org/x/exp/slices"
)

// SMTExp is one query body: declaration sections for storage, calldata
// and environment, followed by assertions. Unsatisfiability of the body
// implies the property under test.
type SMTExp struct {
	Storage     []string
	Calldata    []string
	Environment []string
	Assertions  []string
}

func (q *SMTExp) assert(s string) {
	q.Assertions = append(q.Assertions, fmt.Sprintf("(assert %s)", s))
}

// Lines returns the query as individual SMT-LIB2 lines, declarations
// first. Duplicate declarations are collapsed.
func (q *SMTExp) Lines() []string {
	var out []string
	out = append(out, dedupLines(q.Storage)...)
	out = append(out, dedupLines(q.Calldata)...)
	out = append(out, dedupLines(q.Environment)...)
	out = append(out, q.Assertions...)
	return out
}

func (q *SMTExp) String() string {
	return strings.Join(q.Lines(), "\n")
}

func dedupLines(lines []string) []string {
	var out []string
	for _, l := range lines {
		if !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	return out
}

// smtSort maps an act type to its SMT sort. AContract has no sort; the
// encoder rejects contract-valued expressions before this is reached.
func smtSort(t types.ActType) string {
	switch t {
	case types.AInteger:
		return "Int"
	case types.ABoolean:
		return "Bool"
	case types.AByteStr:
		return "String"
	}
	return "Int"
}

func timingSuffix(t types.Timing) string {
	switch t {
	case types.Pre:
		return "_Pre"
	case types.Post:
		return "_Post"
	}
	return ""
}

// itemName is the symbolic constant (or array) name of a storage item at
// the given timing: <contract>_<slot>_Pre or <contract>_<slot>_Post.
func itemName(ref *types.StorageRef, t types.Timing) string {
	root := ref.Root()
	return root.Contract + "_" + root.Name + timingSuffix(t)
}

func calldataName(iface, arg string) string {
	return iface + "_" + arg
}

// declareItem produces the declaration of a storage item at one timing.
// Mappings become nested arrays, one dimension per key, indexed by the
// key's act-type sort.
func declareItem(item types.StorageItem, t types.Timing) string {
	sort := smtSort(item.Type)
	ref := item.Ref
	if ref.Kind == types.RefMapping {
		for i := len(ref.Indexes) - 1; i >= 0; i-- {
			sort = fmt.Sprintf("(Array %s %s)", smtSort(ref.Indexes[i].ActType()), sort)
		}
	}
	return fmt.Sprintf("(declare-const %s %s)", itemName(ref, t), sort)
}

func declareCalldata(iface string, arg types.Decl) string {
	return fmt.Sprintf("(declare-const %s %s)", calldataName(iface, arg.Name), smtSort(arg.Abi.ActType()))
}

func declareEnv(e types.EthEnv) string {
	return fmt.Sprintf("(declare-const %s %s)", e.SMTName(), smtSort(e.Type()))
}
