package ast

import (
	"fmt"
	"strings"
)

// Print renders a file back to canonical Act source. Parsing the result
// yields the same AST modulo positions.
func Print(f *File) string {
	var sb strings.Builder
	for i, b := range f.Behaviours {
		if i > 0 {
			sb.WriteString("\n")
		}
		switch x := b.(type) {
		case *Transition:
			printTransition(&sb, x)
		case *Definition:
			printDefinition(&sb, x)
		}
	}
	return sb.String()
}

func printTransition(sb *strings.Builder, t *Transition) {
	fmt.Fprintf(sb, "behaviour %s of %s\n", t.Name, t.Contract)
	printInterface(sb, t.Iface)
	printIffs(sb, t.Iffs)
	if t.Cases.Direct != nil {
		printPost(sb, t.Cases.Direct, "")
	}
	for _, br := range t.Cases.Branches {
		printBranch(sb, br, "")
	}
	if len(t.Ensures) > 0 {
		sb.WriteString("\nensures\n\n")
		for _, e := range t.Ensures {
			fmt.Fprintf(sb, "    %s\n", PrintExpr(e))
		}
	}
}

func printDefinition(sb *strings.Builder, d *Definition) {
	fmt.Fprintf(sb, "constructor of %s\n", d.Contract)
	printInterface(sb, d.Iface)
	printIffs(sb, d.Iffs)
	sb.WriteString("\ncreates\n\n")
	for _, a := range d.Creates {
		fmt.Fprintf(sb, "    %s\n", printAssign(a))
	}
	if len(d.Ensures) > 0 {
		sb.WriteString("\nensures\n\n")
		for _, e := range d.Ensures {
			fmt.Fprintf(sb, "    %s\n", PrintExpr(e))
		}
	}
	if len(d.Invariants) > 0 {
		sb.WriteString("\ninvariants\n\n")
		for _, e := range d.Invariants {
			fmt.Fprintf(sb, "    %s\n", PrintExpr(e))
		}
	}
}

func printInterface(sb *strings.Builder, i Interface) {
	args := make([]string, len(i.Args))
	for n, a := range i.Args {
		args[n] = fmt.Sprintf("%s %s", a.Type, a.Name)
	}
	fmt.Fprintf(sb, "interface %s(%s)\n", i.Name, strings.Join(args, ", "))
}

func printIffs(sb *strings.Builder, iffs []IffClause) {
	for _, clause := range iffs {
		if clause.Range != nil {
			fmt.Fprintf(sb, "\niff in range %s\n\n", clause.Range)
		} else {
			sb.WriteString("\niff\n\n")
		}
		for _, e := range clause.Exprs {
			fmt.Fprintf(sb, "    %s\n", PrintExpr(e))
		}
	}
}

func printBranch(sb *strings.Builder, br Branch, indent string) {
	guard := "_"
	if !br.Wildcard {
		guard = PrintExpr(br.Guard)
	}
	fmt.Fprintf(sb, "\n%scase %s:\n", indent, guard)
	for _, sub := range br.Sub {
		printBranch(sb, sub, indent+"    ")
	}
	if br.Post != nil {
		printPost(sb, br.Post, indent+"    ")
	}
}

func printPost(sb *strings.Builder, p *Post, indent string) {
	if len(p.Storage) == 0 && p.Returns == nil {
		fmt.Fprintf(sb, "\n%snoop\n", indent)
		return
	}
	if len(p.Storage) > 0 {
		fmt.Fprintf(sb, "\n%sstorage\n\n", indent)
		for _, u := range p.Storage {
			fmt.Fprintf(sb, "%s    %s => %s\n", indent, PrintRef(u.Ref), PrintExpr(u.Value))
		}
	}
	if p.Returns != nil {
		fmt.Fprintf(sb, "\n%sreturns %s\n", indent, PrintExpr(p.Returns))
	}
}

func printAssign(a Assign) string {
	switch x := a.(type) {
	case *AssignVal:
		return fmt.Sprintf("%s %s := %s", x.Type, x.Name, PrintExpr(x.Value))
	case *AssignMapping:
		typ := x.Value.String()
		for i := len(x.Keys) - 1; i >= 0; i-- {
			typ = fmt.Sprintf("mapping(%s => %s)", x.Keys[i], typ)
		}
		pairs := make([]string, len(x.Init))
		for n, p := range x.Init {
			pairs[n] = fmt.Sprintf("%s := %s", PrintExpr(p.Key), PrintExpr(p.Value))
		}
		return fmt.Sprintf("%s %s := [%s]", typ, x.Name, strings.Join(pairs, ", "))
	case *AssignStruct:
		pairs := make([]string, len(x.Fields))
		for n, p := range x.Fields {
			pairs[n] = fmt.Sprintf("%s := %s", PrintExpr(p.Key), PrintExpr(p.Value))
		}
		return fmt.Sprintf("%s := {%s}", x.Name, strings.Join(pairs, ", "))
	}
	return ""
}

// binding strength per operator, loosest first
var precedence = map[BinOp]int{
	OpImpl: 1,
	OpOr:   2,
	OpAnd:  3,
	OpEq:   4, OpNeq: 4,
	OpLt: 5, OpLeq: 5, OpGt: 5, OpGeq: 5,
	OpCat: 6,
	OpAdd: 7, OpSub: 7,
	OpMul: 8, OpDiv: 8, OpMod: 8,
	OpExp: 9,
}

// PrintExpr renders an expression with minimal parentheses.
func PrintExpr(e Expr) string {
	return printExpr(e, 0)
}

func printExpr(e Expr, outer int) string {
	switch x := e.(type) {
	case *Binary:
		prec := precedence[x.Op]
		lp, rp := prec, prec+1
		if x.Op == OpImpl || x.Op == OpExp {
			lp, rp = prec+1, prec
		}
		s := fmt.Sprintf("%s %s %s", printExpr(x.L, lp), x.Op, printExpr(x.R, rp))
		if prec < outer {
			return "(" + s + ")"
		}
		return s
	case *Not:
		s := "not " + printExpr(x.E, 10)
		if outer > 9 {
			return "(" + s + ")"
		}
		return s
	case *ITE:
		s := fmt.Sprintf("if %s then %s else %s",
			printExpr(x.Cond, 0), printExpr(x.Then, 0), printExpr(x.Else, 0))
		if outer > 0 {
			return "(" + s + ")"
		}
		return s
	case *IntLit:
		return x.Lit
	case *BoolLit:
		if x.Val {
			return "true"
		}
		return "false"
	case *EnvRef:
		return x.Name
	case *Entry:
		switch x.Tag {
		case TimePre:
			return "pre(" + PrintRef(x.Ref) + ")"
		case TimePost:
			return "post(" + PrintRef(x.Ref) + ")"
		}
		return PrintRef(x.Ref)
	case *SliceExpr:
		return fmt.Sprintf("%s[%s..%s]",
			printExpr(x.Bytes, 10), printExpr(x.From, 0), printExpr(x.To, 0))
	}
	return ""
}

// PrintRef renders a storage reference.
func PrintRef(r Ref) string {
	switch x := r.(type) {
	case *VarRef:
		return x.Name
	case *MapRef:
		ixs := make([]string, len(x.Indexes))
		for n, ix := range x.Indexes {
			ixs[n] = PrintExpr(ix)
		}
		return PrintRef(x.Base) + "[" + strings.Join(ixs, ", ") + "]"
	case *FieldRef:
		return PrintRef(x.Base) + "." + x.Field
	}
	return ""
}
