package types

import "encoding/json"

// JSON serialisation of the typed AST, consumed by the `type` subcommand.
// Operators serialise as {symbol, arity, args}; storage references as
// lookup/select trees.

func (a *Act) MarshalJSON() ([]byte, error) {
	contracts := make([]interface{}, 0, len(a.Contracts))
	for _, c := range a.Contracts {
		contracts = append(contracts, contractJSON(c))
	}
	return json.Marshal(map[string]interface{}{
		"kind":      "Program",
		"store":     storeJSON(a.Store),
		"contracts": contracts,
	})
}

func storeJSON(s Store) map[string]interface{} {
	out := map[string]interface{}{}
	for _, contract := range s.Contracts() {
		slots := map[string]interface{}{}
		for _, name := range s.Slots(contract) {
			slots[name] = s[contract][name].String()
		}
		out[contract] = slots
	}
	return out
}

func contractJSON(c *Contract) map[string]interface{} {
	behaviours := make([]interface{}, 0, len(c.Behaviours))
	for _, b := range c.Behaviours {
		behaviours = append(behaviours, behaviourJSON(b))
	}
	constructors := make([]interface{}, 0, len(c.Constructors))
	for _, ctor := range c.Constructors {
		constructors = append(constructors, constructorJSON(ctor))
	}
	out := map[string]interface{}{
		"kind":        "Contract",
		"name":        c.Name(),
		"constructor": constructors[0],
		"behaviors":   behaviours,
	}
	if len(constructors) > 1 {
		out["constructorFail"] = constructors[1]
	}
	return out
}

func constructorJSON(ctor *Constructor) map[string]interface{} {
	invariants := make([]interface{}, 0, len(ctor.Invariants))
	for _, inv := range ctor.Invariants {
		invariants = append(invariants, map[string]interface{}{
			"kind":          "Invariant",
			"contract":      inv.Contract,
			"preconditions": expsJSON(inv.Preconditions),
			"storagebounds": expsJSON(inv.StorageBounds),
			"predicate":     expJSON(inv.Predicate),
		})
	}
	return map[string]interface{}{
		"kind":           "Constructor",
		"contract":       ctor.Contract,
		"mode":           ctor.Kind.String(),
		"interface":      ctor.Interface.String(),
		"preconditions":  expsJSON(ctor.Preconditions),
		"postconditions": expsJSON(ctor.Postconditions),
		"invariants":     invariants,
		"initialStorage": updatesJSON(ctor.Initial),
	}
}

func behaviourJSON(b *Behaviour) map[string]interface{} {
	out := map[string]interface{}{
		"kind":           "Behaviour",
		"name":           b.Name,
		"contract":       b.Contract,
		"mode":           b.Kind.String(),
		"interface":      b.Interface.String(),
		"preconditions":  expsJSON(b.Preconditions),
		"case":           expsJSON(b.CaseConditions),
		"postconditions": expsJSON(b.Postconditions),
		"stateUpdates":   rewritesJSON(b.Updates),
	}
	if b.Returns != nil {
		out["returns"] = expJSON(b.Returns)
	}
	return out
}

func updatesJSON(us []StorageUpdate) []interface{} {
	out := make([]interface{}, 0, len(us))
	for _, u := range us {
		out = append(out, map[string]interface{}{
			"location": refJSON(u.Item.Ref),
			"value":    expJSON(u.Expr),
			"sort":     u.Item.Type.String(),
		})
	}
	return out
}

func rewritesJSON(rs []Rewrite) []interface{} {
	out := make([]interface{}, 0, len(rs))
	for _, r := range rs {
		if r.Update != nil {
			out = append(out, map[string]interface{}{
				"kind":     "Rewrite",
				"location": refJSON(r.Update.Item.Ref),
				"value":    expJSON(r.Update.Expr),
				"sort":     r.Update.Item.Type.String(),
			})
		} else {
			out = append(out, map[string]interface{}{
				"kind":     "Constant",
				"location": refJSON(r.Constant.Ref),
				"sort":     r.Constant.Type.String(),
			})
		}
	}
	return out
}

func expsJSON(es []Exp) []interface{} {
	out := make([]interface{}, 0, len(es))
	for _, e := range es {
		out = append(out, expJSON(e))
	}
	return out
}

func op(symbol string, args ...interface{}) map[string]interface{} {
	return map[string]interface{}{
		"symbol": symbol,
		"arity":  len(args),
		"args":   args,
	}
}

func expJSON(e Exp) interface{} {
	switch x := e.(type) {
	case *IntLit:
		return map[string]interface{}{"literal": x.Val.String(), "sort": "AInteger"}
	case *BoolLit:
		lit := "false"
		if x.Val {
			lit = "true"
		}
		return map[string]interface{}{"literal": lit, "sort": "ABoolean"}
	case *ByLit:
		return map[string]interface{}{"literal": string(x.Val), "sort": "AByteStr"}
	case *Arith:
		return op(x.Op.String(), expJSON(x.L), expJSON(x.R))
	case *Cmp:
		return op(x.Op.String(), expJSON(x.L), expJSON(x.R))
	case *BoolConn:
		return op(x.Op.String(), expJSON(x.L), expJSON(x.R))
	case *Not:
		return op("not", expJSON(x.E))
	case *Eq:
		sym := "=="
		if x.Neg {
			sym = "=/="
		}
		return op(sym, expJSON(x.L), expJSON(x.R))
	case *Cat:
		return op("++", expJSON(x.L), expJSON(x.R))
	case *Slice:
		return op("slice", expJSON(x.Bytes), expJSON(x.From), expJSON(x.To))
	case *ITE:
		return op("ite", expJSON(x.Cond), expJSON(x.Then), expJSON(x.Else))
	case *Var:
		return map[string]interface{}{"var": x.Name, "sort": x.Type.String()}
	case *EnvRead:
		return map[string]interface{}{"env": x.Env.SourceName(), "sort": x.Env.Type().String()}
	case *TEntry:
		return map[string]interface{}{
			"entry":  refJSON(x.Item.Ref),
			"timing": x.Time.String(),
			"sort":   x.Item.Type.String(),
		}
	case *Create:
		args := make([]interface{}, 0, len(x.Args)+1)
		args = append(args, x.Contract)
		for _, a := range x.Args {
			args = append(args, expJSON(a))
		}
		return op("create", args...)
	}
	return nil
}

func refJSON(r *StorageRef) interface{} {
	switch r.Kind {
	case RefVar:
		return op("lookup", r.Contract, r.Name)
	case RefMapping:
		args := []interface{}{refJSON(r.Base)}
		for _, ix := range r.Indexes {
			args = append(args, expJSON(ix))
		}
		return op("select", args...)
	case RefField:
		return op("field", refJSON(r.Base), r.Name)
	}
	return nil
}
