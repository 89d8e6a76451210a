package smt

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"act/internal/types"
)

// ModelEntry is one assignment of a counter-model.
type ModelEntry struct {
	Name  string
	Value string
}

// Model is a human-readable counter-model extracted after a sat result.
type Model struct {
	Calldata    []ModelEntry
	Environment []ModelEntry
	Prestate    []ModelEntry
	Poststate   []ModelEntry
}

// getModel reads the model for every field the query mentions, in
// enumeration order: calldata, environment, then storage locations.
func (s *SolverInstance) getModel(q *Query) (*Model, error) {
	model := &Model{}
	enc := &encoder{iface: q.Model.Iface}

	for _, arg := range q.Model.Calldata {
		raw, err := s.getValue(calldataName(q.Model.Iface, arg.Name))
		if err != nil {
			return nil, err
		}
		model.Calldata = append(model.Calldata, ModelEntry{
			Name:  arg.Name,
			Value: renderValue(parseModelValue(raw), arg.Abi.ActType()),
		})
	}
	for _, env := range q.Model.Envs {
		raw, err := s.getValue(env.SMTName())
		if err != nil {
			return nil, err
		}
		model.Environment = append(model.Environment, ModelEntry{
			Name:  env.SourceName(),
			Value: renderValue(parseModelValue(raw), env.Type()),
		})
	}
	for _, lm := range q.Model.Locs {
		name := displayRef(lm.Item.Ref)
		if lm.HasPre {
			term, err := enc.ref(types.SetItemTime(lm.Item, types.Pre).Ref, types.Pre)
			if err != nil {
				return nil, err
			}
			raw, err := s.getValue(term)
			if err != nil {
				return nil, err
			}
			model.Prestate = append(model.Prestate, ModelEntry{
				Name:  name,
				Value: renderValue(parseModelValue(raw), lm.Item.Type),
			})
		}
		if lm.HasPost {
			term, err := enc.ref(types.SetItemTime(lm.Item, types.Pre).Ref, types.Post)
			if err != nil {
				return nil, err
			}
			raw, err := s.getValue(term)
			if err != nil {
				return nil, err
			}
			model.Poststate = append(model.Poststate, ModelEntry{
				Name:  name,
				Value: renderValue(parseModelValue(raw), lm.Item.Type),
			})
		}
	}
	return model, nil
}

var negativeRe = regexp.MustCompile(`^\(-\s+(.*)\)$`)

// parseModelValue strips a ((name value)) response down to its value and
// unwraps parenthesized negative numbers.
func parseModelValue(line string) string {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "((") || !strings.HasSuffix(line, "))") {
		return line
	}
	inner := line[2 : len(line)-2]
	value := lastSexp(inner)
	if m := negativeRe.FindStringSubmatch(value); m != nil {
		return "-" + strings.TrimSpace(m[1])
	}
	return value
}

// lastSexp returns the final whitespace-separated token of s, keeping a
// trailing parenthesized group intact.
func lastSexp(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, ")") {
		depth := 0
		for i := len(s) - 1; i >= 0; i-- {
			switch s[i] {
			case ')':
				depth++
			case '(':
				depth--
				if depth == 0 {
					return s[i:]
				}
			}
		}
		return s
	}
	if i := strings.LastIndexByte(s, ' '); i >= 0 {
		return s[i+1:]
	}
	return s
}

// renderValue reinterprets a raw model value per its act type.
func renderValue(raw string, t types.ActType) string {
	switch t {
	case types.AInteger:
		if v, ok := new(big.Int).SetString(raw, 10); ok {
			return v.String()
		}
		return raw
	case types.ABoolean:
		if raw == "true" || raw == "false" {
			return raw
		}
		return raw
	case types.AByteStr:
		return strings.Trim(raw, `"`)
	}
	return raw
}

// displayRef renders a storage reference for counterexample output.
func displayRef(r *types.StorageRef) string {
	switch r.Kind {
	case types.RefVar:
		return r.Contract + "." + r.Name
	case types.RefMapping:
		ixs := make([]string, len(r.Indexes))
		for i, ix := range r.Indexes {
			ixs[i] = types.ExpKey(ix)
		}
		return displayRef(r.Base) + "[" + strings.Join(ixs, ", ") + "]"
	case types.RefField:
		return displayRef(r.Base) + "." + r.Name
	}
	return "?"
}

// Colourize brackets s in an ANSI escape sequence for terminal output.
func Colourize(code int, s string) string {
	return "\x1b[" + strconv.Itoa(code) + "m" + s + "\x1b[0m"
}

// Format renders the model in the fixed counterexample layout.
func (m *Model) Format() string {
	var sb strings.Builder
	sb.WriteString(Colourize(31, "Counterexample:") + "\n")
	section := func(title string, entries []ModelEntry) {
		if len(entries) == 0 {
			return
		}
		sb.WriteString("\n  " + Colourize(33, title) + "\n")
		for _, e := range entries {
			fmt.Fprintf(&sb, "    %s = %s\n", e.Name, e.Value)
		}
	}
	section("calldata:", m.Calldata)
	section("environment:", m.Environment)
	section("initial storage:", m.Prestate)
	section("storage after:", m.Poststate)
	return sb.String()
}
