package circuit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// leafCell builds a primitive cell with inputs A.. and output Y
func leafCell(name string, inputs ...string) *Cell {
	c := NewCell(name)
	for _, in := range inputs {
		if _, err := c.AddPort(in, In); err != nil {
			panic(err)
		}
	}
	if _, err := c.AddPort("Y", Out); err != nil {
		panic(err)
	}
	return c
}

// place adds an instance and connects port=node pairs
func place(t *testing.T, parent *Cell, name string, master *Cell, conns ...string) *Instance {
	t.Helper()
	inst, err := parent.AddInstance(name, master)
	require.NoError(t, err)
	for i := 0; i+1 < len(conns); i += 2 {
		require.NoError(t, parent.Connect(inst, conns[i], conns[i+1]))
	}
	return inst
}

// createHalfAdder builds a two-level hierarchy:
//
//	top(a, b, s, c) -> half h1 -> {xor2 x, and2 g}
//	                -> inv  i (c -> cn), tied to VDD through and2 t
func createHalfAdder(t *testing.T) (*Design, *Cell) {
	t.Helper()
	d := NewDesign("test")

	xor2 := leafCell("xor2", "A", "B")
	and2 := leafCell("and2", "A", "B")
	inv := leafCell("inv", "A")

	half := NewCell("half")
	for _, p := range []string{"a", "b"} {
		_, err := half.AddPort(p, In)
		require.NoError(t, err)
	}
	for _, p := range []string{"s", "c"} {
		_, err := half.AddPort(p, Out)
		require.NoError(t, err)
	}
	place(t, half, "x", xor2, "A", "a", "B", "b", "Y", "s")
	place(t, half, "g", and2, "A", "a", "B", "b", "Y", "c")

	top := NewCell("top")
	for _, p := range []string{"a", "b"} {
		_, err := top.AddPort(p, In)
		require.NoError(t, err)
	}
	for _, p := range []string{"s", "c", "cn"} {
		_, err := top.AddPort(p, Out)
		require.NoError(t, err)
	}
	place(t, top, "h1", half, "a", "a", "b", "b", "s", "s", "c", "c")
	place(t, top, "i", inv, "A", "c", "Y", "w")
	place(t, top, "t", and2, "A", "w", "B", "VDD", "Y", "cn")

	for _, c := range []*Cell{xor2, and2, inv, half, top} {
		require.NoError(t, d.AddCell(c))
	}
	return d, top
}
