package types

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ActType is the runtime tag carried by every typed expression.
type ActType int

const (
	AInteger ActType = iota
	ABoolean
	AByteStr
	AContract
)

func (t ActType) String() string {
	switch t {
	case AInteger:
		return "AInteger"
	case ABoolean:
		return "ABoolean"
	case AByteStr:
		return "AByteStr"
	case AContract:
		return "AContract"
	}
	return "unknown"
}

// Timing marks a storage reference as reading the pre-state, the
// post-state, or neither (untimed).
type Timing int

const (
	Neither Timing = iota
	Pre
	Post
)

func (t Timing) String() string {
	switch t {
	case Pre:
		return "Pre"
	case Post:
		return "Post"
	}
	return "Neither"
}

// Store is the global storage schema: contract name to slot name to slot
// type. Built once by store discovery and immutable thereafter.
type Store map[string]map[string]SlotType

// Contracts returns the declared contract names in sorted order.
func (s Store) Contracts() []string {
	names := maps.Keys(s)
	slices.Sort(names)
	return names
}

// Slots returns the slot names of one contract in sorted order.
func (s Store) Slots(contract string) []string {
	names := maps.Keys(s[contract])
	slices.Sort(names)
	return names
}

// EthEnv identifies one of the fixed EVM environment values.
type EthEnv int

const (
	Caller EthEnv = iota
	Callvalue
	Calldepth
	Origin
	Blockhash
	Blocknumber
	Difficulty
	Chainid
	Gaslimit
	Coinbase
	Timestamp
	This
	Nonce
)

type envInfo struct {
	Source  string // spelling in Act source
	SMTName string // name used in queries and counterexamples
	Type    ActType
}

// envTable is the fixed environment table. Every entry is an integer
// except BLOCKHASH, which the current typechecker treats as a bytestring.
var envTable = map[EthEnv]envInfo{
	Caller:      {"CALLER", "caller", AInteger},
	Callvalue:   {"CALLVALUE", "callvalue", AInteger},
	Calldepth:   {"CALLDEPTH", "calldepth", AInteger},
	Origin:      {"ORIGIN", "origin", AInteger},
	Blockhash:   {"BLOCKHASH", "blockhash", AByteStr},
	Blocknumber: {"BLOCKNUMBER", "blocknumber", AInteger},
	Difficulty:  {"DIFFICULTY", "difficulty", AInteger},
	Chainid:     {"CHAINID", "chainid", AInteger},
	Gaslimit:    {"GASLIMIT", "gaslimit", AInteger},
	Coinbase:    {"COINBASE", "coinbase", AInteger},
	Timestamp:   {"TIMESTAMP", "timestamp", AInteger},
	This:        {"THIS", "this", AInteger},
	Nonce:       {"NONCE", "nonce", AInteger},
}

var envBySource = func() map[string]EthEnv {
	m := make(map[string]EthEnv, len(envTable))
	for e, info := range envTable {
		m[info.Source] = e
	}
	return m
}()

// LookupEnv resolves a source spelling like "CALLER" to its environment
// value and act type.
func LookupEnv(name string) (EthEnv, ActType, bool) {
	e, ok := envBySource[name]
	if !ok {
		return 0, 0, false
	}
	return e, envTable[e].Type, true
}

func (e EthEnv) SourceName() string { return envTable[e].Source }
func (e EthEnv) SMTName() string    { return envTable[e].SMTName }
func (e EthEnv) Type() ActType     { return envTable[e].Type }
