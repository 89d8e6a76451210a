package smt

import (
	"strings"
	"testing"

	"act/internal/types"

	"github.com/stretchr/testify/assert"
)

func Test_ParseModelValue(t *testing.T) {
	assert.Equal(t, "5", parseModelValue("((x 5))"))
	assert.Equal(t, "-5", parseModelValue("((x (- 5)))"))
	assert.Equal(t, "true", parseModelValue("((flag true))"))
	assert.Equal(t, "0", parseModelValue("(((select Token_balanceOf_Pre caller) 0))"))
	assert.Equal(t, "-42", parseModelValue("(((select m 1) (- 42)))"))
	// unrecognised shapes pass through untouched
	assert.Equal(t, "garbage", parseModelValue("garbage"))
}

func Test_RenderValue(t *testing.T) {
	assert.Equal(t, "7", renderValue("7", types.AInteger))
	assert.Equal(t, "-7", renderValue("-7", types.AInteger))
	assert.Equal(t, "true", renderValue("true", types.ABoolean))
	assert.Equal(t, "hello", renderValue(`"hello"`, types.AByteStr))
}

func Test_ModelFormat(t *testing.T) {
	m := &Model{
		Calldata:    []ModelEntry{{Name: "value", Value: "100"}},
		Environment: []ModelEntry{{Name: "CALLER", Value: "3"}},
		Prestate:    []ModelEntry{{Name: "Token.totalSupply", Value: "0"}},
		Poststate:   []ModelEntry{{Name: "Token.totalSupply", Value: "100"}},
	}
	out := m.Format()
	assert.Contains(t, out, "Counterexample:")
	assert.Contains(t, out, "value = 100")
	assert.Contains(t, out, "CALLER = 3")
	assert.Contains(t, out, "Token.totalSupply = 0")

	// sections appear in the fixed order
	calldataIdx := strings.Index(out, "calldata:")
	envIdx := strings.Index(out, "environment:")
	preIdx := strings.Index(out, "initial storage:")
	postIdx := strings.Index(out, "storage after:")
	assert.True(t, calldataIdx < envIdx && envIdx < preIdx && preIdx < postIdx)
}

func Test_SolverArgs(t *testing.T) {
	bin, args := solverArgs(SMTConfig{Solver: Z3, TimeoutMS: 20000})
	assert.Equal(t, "z3", bin)
	assert.Equal(t, []string{"-in", "-t:20000"}, args)

	bin, args = solverArgs(SMTConfig{Solver: CVC4, TimeoutMS: 1500})
	assert.Equal(t, "cvc4", bin)
	assert.Equal(t, []string{
		"--lang=smt",
		"--interactive",
		"--no-interactive-prompt",
		"--produce-models",
		"--tlimit-per=1500",
	}, args)
}

func Test_ParseSolver(t *testing.T) {
	s, err := ParseSolver("z3")
	assert.Nil(t, err)
	assert.Equal(t, Z3, s)

	s, err = ParseSolver("cvc4")
	assert.Nil(t, err)
	assert.Equal(t, CVC4, s)

	_, err = ParseSolver("boolector")
	assert.NotNil(t, err)
}
