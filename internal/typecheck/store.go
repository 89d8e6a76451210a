package typecheck

import (
	"act/internal/ast"
	"act/internal/span"
	"act/internal/types"
)

// DiscoverStore walks every constructor definition and builds the global
// store schema. Duplicate contract names and duplicate slots within one
// creates block are reported but do not stop later passes: the first
// declaration of each name wins and checking continues against it.
func DiscoverStore(f *ast.File) (types.Store, *span.ErrorList) {
	errs := &span.ErrorList{}
	store := types.Store{}

	for _, raw := range f.Behaviours {
		def, ok := raw.(*ast.Definition)
		if !ok {
			continue
		}
		if _, dup := store[def.Contract]; dup {
			errs.Addf(def.P, "duplicate contract %s", def.Contract)
			continue
		}

		slots := map[string]types.SlotType{}
		counts := map[string]int{}
		for _, a := range def.Creates {
			counts[a.SlotName()]++
		}
		for _, a := range def.Creates {
			name := a.SlotName()
			if counts[name] > 1 {
				errs.Addf(a.AssignPos(), "duplicate slot %s in contract %s", name, def.Contract)
			}
			if _, seen := slots[name]; seen {
				continue
			}
			switch x := a.(type) {
			case *ast.AssignVal:
				slots[name] = types.SlotType{Value: x.Type}
			case *ast.AssignMapping:
				slots[name] = types.SlotType{Keys: x.Keys, Value: x.Value}
			case *ast.AssignStruct:
				// struct assignments are reserved syntax; the typechecker
				// rejects them when it reaches the creates block
			}
		}
		store[def.Contract] = slots
	}
	return store, errs
}
