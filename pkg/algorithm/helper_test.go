package algorithm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/gatecheck/pkg/circuit"
	"github.com/fyerfyer/gatecheck/pkg/utils"
)

// flatten parses src on top of the built-in cells and flattens module top
func flatten(t *testing.T, top, src string) *circuit.Cell {
	t.Helper()

	p := utils.NewVerilogParser(nil)
	require.NoError(t, p.ParseBuiltinCells())
	require.NoError(t, p.ParseString(top+".v", src))
	d, err := p.Build(top)
	require.NoError(t, err)

	c, err := d.Cell(top)
	require.NoError(t, err)
	flat, err := circuit.Flatten(top, c, circuit.DefaultGlobals())
	require.NoError(t, err)
	return flat
}

// rankMap turns a rank report into name -> rank
func rankMap(entries []RankEntry) map[string]int {
	m := make(map[string]int, len(entries))
	for _, e := range entries {
		m[e.Name] = e.Rank
	}
	return m
}

// check runs an equivalence query with the default library
func check(t *testing.T, spec, impl *circuit.Cell) *EquivResult {
	t.Helper()
	result, err := CheckEquivalence(spec, impl, circuit.DefaultLibrary(), circuit.DefaultGlobals(), nil, EquivOptions{})
	require.NoError(t, err)
	return result
}

func inputValues(result *EquivResult) map[string]circuit.LogicValue {
	m := make(map[string]circuit.LogicValue, len(result.Counterexample))
	for _, a := range result.Counterexample {
		m[a.Name] = a.Value
	}
	return m
}
