package algorithm

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/gatecheck/pkg/circuit"
	"github.com/fyerfyer/gatecheck/pkg/sat"
)

const adder = `
module half (a, b, s, c);
  input a, b;
  output s, c;
  xor2 x (.A(a), .B(b), .Y(s));
  and2 g (.A(a), .B(b), .Y(c));
endmodule

module full (a, b, cin, sum, cout);
  input a, b, cin;
  output sum, cout;
  half h1 (.a(a), .b(b), .s(s1), .c(c1));
  half h2 (.a(s1), .b(cin), .s(sum), .c(c2));
  or2 o (.A(c1), .B(c2), .Y(cout));
endmodule
`

// TestEquivalenceSelf tests that a circuit is equivalent to a copy of itself
func TestEquivalenceSelf(t *testing.T) {
	spec := flatten(t, "full", adder)
	impl := flatten(t, "full", adder)

	result := check(t, spec, impl)
	assert.Equal(t, sat.Unsatisfiable, result.Status)
	assert.True(t, result.Equivalent())
	assert.Equal(t, 2, result.Pairs)
	assert.True(t, result.Audit.Clean())
	assert.Empty(t, result.Counterexample)
}

// TestEquivalenceRestructured tests a structurally different but equivalent implementation
func TestEquivalenceRestructured(t *testing.T) {
	spec := flatten(t, "full", adder)
	impl := flatten(t, "full", `
module full (a, b, cin, sum, cout);
  input a, b, cin;
  output sum, cout;
  xnor2 x1 (.A(a), .B(b), .Y(p));
  xnor2 x2 (.A(p), .B(cin), .Y(sum));
  nand2 n1 (.A(a), .B(b), .Y(t1));
  nand2 n2 (.A(a), .B(cin), .Y(t2));
  nand2 n3 (.A(b), .B(cin), .Y(t3));
  nand3 n4 (.A(t1), .B(t2), .C(t3), .Y(cout));
endmodule
`)

	result := check(t, spec, impl)
	assert.True(t, result.Equivalent())
}

// TestEquivalenceInsertedInverter tests that an extra inverter before an output is caught
func TestEquivalenceInsertedInverter(t *testing.T) {
	spec := flatten(t, "top", `
module top (a, b, y);
  input a, b;
  output y;
  and2 g1 (.A(a), .B(b), .Y(n));
  buffer g2 (.A(n), .Y(y));
endmodule
`)
	impl := flatten(t, "top", `
module top (a, b, y);
  input a, b;
  output y;
  and2 g1 (.A(a), .B(b), .Y(n));
  inv extra (.A(n), .Y(m));
  buffer g2 (.A(m), .Y(y));
endmodule
`)

	result := check(t, spec, impl)
	require.Equal(t, sat.Satisfiable, result.Status)
	require.Len(t, result.Mismatches, 1)
	assert.Equal(t, "y", result.Mismatches[0].Name)
	assert.Equal(t, OutputPair, result.Mismatches[0].Kind)
	assert.NotEqual(t, result.Mismatches[0].Spec, result.Mismatches[0].Impl)

	values := inputValues(result)
	assert.True(t, values["a"].IsAssigned())
	assert.True(t, values["b"].IsAssigned())
}

// TestEquivalenceCounterexample tests that the reported inputs distinguish the circuits
func TestEquivalenceCounterexample(t *testing.T) {
	spec := flatten(t, "top", `
module top (a, b, y);
  input a, b;
  output y;
  and2 g (.A(a), .B(b), .Y(y));
endmodule
`)
	impl := flatten(t, "top", `
module top (a, b, y);
  input a, b;
  output y;
  or2 g (.A(a), .B(b), .Y(y));
endmodule
`)

	result := check(t, spec, impl)
	require.Equal(t, sat.Satisfiable, result.Status)

	values := inputValues(result)
	require.True(t, values["a"].IsAssigned())
	require.True(t, values["b"].IsAssigned())
	assert.NotEqual(t, values["a"], values["b"])
	assert.Len(t, result.Mismatches, 1)
}

// TestEquivalenceUnconstrainedInput tests that an input no gate reads is reported as X
func TestEquivalenceUnconstrainedInput(t *testing.T) {
	spec := flatten(t, "top", `
module top (a, unused, y);
  input a, unused;
  output y;
  buffer g (.A(a), .Y(y));
endmodule
`)
	impl := flatten(t, "top", `
module top (a, unused, y);
  input a, unused;
  output y;
  inv g (.A(a), .Y(y));
endmodule
`)

	result := check(t, spec, impl)
	require.Equal(t, sat.Satisfiable, result.Status)
	values := inputValues(result)
	assert.Equal(t, circuit.X, values["unused"])
	assert.True(t, values["a"].IsAssigned())

	var buf bytes.Buffer
	require.NoError(t, result.Write(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "SATISFIABLE", lines[0])
	assert.Regexp(t, `^a = [01]$`, lines[1])
	assert.Equal(t, "unused = X", lines[2])
}

// TestEquivalenceAudit tests that unmatched boundary names are reported
func TestEquivalenceAudit(t *testing.T) {
	spec := flatten(t, "top", `
module top (a, b, y, extra);
  input a, b;
  output y, extra;
  and2 g (.A(a), .B(b), .Y(y));
  inv i (.A(a), .Y(extra));
endmodule
`)
	impl := flatten(t, "top", `
module top (a, b, c, y);
  input a, b, c;
  output y;
  and2 g (.A(b), .B(a), .Y(y));
endmodule
`)

	result := check(t, spec, impl)
	assert.True(t, result.Equivalent())
	assert.False(t, result.Audit.Clean())
	assert.Equal(t, []string{"c"}, result.Audit.ImplOnlyInputs)
	assert.Equal(t, []string{"extra"}, result.Audit.SpecOnlyOutputs)
	assert.Empty(t, result.Audit.SpecOnlyInputs)
	assert.False(t, result.Audit.Vacuous)
}

// TestEquivalenceVacuous tests that disjoint outputs are flagged
func TestEquivalenceVacuous(t *testing.T) {
	spec := flatten(t, "top", `
module top (a, y);
  input a;
  output y;
  buffer g (.A(a), .Y(y));
endmodule
`)
	impl := flatten(t, "top", `
module top (a, z);
  input a;
  output z;
  buffer g (.A(a), .Y(z));
endmodule
`)

	result := check(t, spec, impl)
	assert.True(t, result.Audit.Vacuous)
	assert.Equal(t, 0, result.Pairs)
}

// TestEquivalenceFlipFlops tests flip-flop state sharing and data comparison
func TestEquivalenceFlipFlops(t *testing.T) {
	const spec = `
module counter (clk, en, y);
  input clk, en;
  output y;
  dff ff (.D(n), .CLK(clk), .Q(q));
  xor2 x (.A(q), .B(en), .Y(n));
  buffer b (.A(q), .Y(y));
endmodule
`
	same := `
module counter (clk, en, y);
  input clk, en;
  output y;
  dff ff (.D(n), .CLK(clk), .Q(q));
  xnor2 x (.A(q), .B(en), .Y(m));
  inv i (.A(m), .Y(n));
  buffer b (.A(q), .Y(y));
endmodule
`
	different := strings.Replace(spec, "xor2 x (.A(q), .B(en)", "and2 x (.A(q), .B(en)", 1)

	result := check(t, flatten(t, "counter", spec), flatten(t, "counter", same))
	assert.True(t, result.Equivalent())
	assert.Equal(t, 2, result.Pairs)

	result = check(t, flatten(t, "counter", spec), flatten(t, "counter", different))
	require.Equal(t, sat.Satisfiable, result.Status)
	require.Len(t, result.Mismatches, 1)
	assert.Equal(t, "ff", result.Mismatches[0].Name)
	assert.Equal(t, FlipFlopPair, result.Mismatches[0].Kind)
	require.Len(t, result.States, 1)
	assert.Equal(t, "ff", result.States[0].Name)
}

// TestEquivalenceUnmatchedFlipFlop tests that renamed flip-flops are audited
func TestEquivalenceUnmatchedFlipFlop(t *testing.T) {
	src := `
module reg1 (clk, d, q);
  input clk, d;
  output q;
  dff NAME (.D(d), .CLK(clk), .Q(q));
endmodule
`
	spec := flatten(t, "reg1", strings.Replace(src, "NAME", "r0", 1))
	impl := flatten(t, "reg1", strings.Replace(src, "NAME", "state_reg", 1))

	result := check(t, spec, impl)
	assert.Equal(t, []string{"r0"}, result.Audit.SpecOnlyFlipFlops)
	assert.Equal(t, []string{"state_reg"}, result.Audit.ImplOnlyFlipFlops)
	// q is now an unrelated free variable on each side
	assert.Equal(t, sat.Satisfiable, result.Status)
}

// TestEquivalenceGlobals tests tie-offs to the global constants
func TestEquivalenceGlobals(t *testing.T) {
	spec := flatten(t, "top", `
module top (a, y);
  input a;
  output y;
  and2 g (.A(a), .B(VDD), .Y(y));
endmodule
`)
	impl := flatten(t, "top", `
module top (a, y);
  input a;
  output y;
  or2 g (.A(a), .B(VSS), .Y(y));
endmodule
`)

	result := check(t, spec, impl)
	assert.True(t, result.Equivalent())
}

// TestEquivalenceDimacs tests that the formula is written before solving
func TestEquivalenceDimacs(t *testing.T) {
	spec := flatten(t, "full", adder)
	path := filepath.Join(t.TempDir(), "full.cnf")

	result, err := CheckEquivalence(spec, spec, circuit.DefaultLibrary(), circuit.DefaultGlobals(), nil,
		EquivOptions{DimacsPath: path})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, len(lines)-1, result.Clauses)
	assert.True(t, strings.HasPrefix(lines[0], "p cnf "))
	for _, line := range lines[1:] {
		assert.True(t, strings.HasSuffix(line, " 0"), line)
	}
}

// TestEquivResultWriteUnsat tests the verdict line of an equivalent pair
func TestEquivResultWriteUnsat(t *testing.T) {
	var buf bytes.Buffer
	r := &EquivResult{Status: sat.Unsatisfiable, Counterexample: []Assignment{{"a", circuit.One}}}
	require.NoError(t, r.Write(&buf))
	assert.Equal(t, "NOT SATISFIABLE\n", buf.String())
}

// TestEquivalenceUndrivenNet tests that a floating gate input is shared by name
func TestEquivalenceUndrivenNet(t *testing.T) {
	const floating = `
module top (a, y);
  input a;
  output y;
  and2 g (.A(a), .B(n), .Y(y));
endmodule
`
	result := check(t, flatten(t, "top", floating), flatten(t, "top", floating))
	assert.Equal(t, sat.Unsatisfiable, result.Status)
	assert.Equal(t, []string{"n"}, result.Audit.UndrivenNets)
	assert.False(t, result.Audit.Clean())

	// The shared value is part of the replayed counterexample
	inverted := strings.Replace(floating, "and2 g", "nand2 g", 1)
	result = check(t, flatten(t, "top", floating), flatten(t, "top", inverted))
	require.Equal(t, sat.Satisfiable, result.Status)
	require.Len(t, result.Undriven, 1)
	assert.Equal(t, "n", result.Undriven[0].Name)
	assert.True(t, result.Undriven[0].Value.IsAssigned())
	require.Len(t, result.Mismatches, 1)
	assert.Equal(t, "y", result.Mismatches[0].Name)
}

// TestUndrivenNets tests which nets count as undriven
func TestUndrivenNets(t *testing.T) {
	flat := flatten(t, "top", `
module top (a, y, z, w);
  input a;
  output y, z, w;
  wire unused;
  and2 g (.A(a), .B(n), .Y(y));
  or2 o (.A(a), .B(VSS), .Y(z));
endmodule
`)
	assert.Equal(t, []string{"n", "w"}, UndrivenNets(flat, circuit.DefaultGlobals()))
}
