package circuit

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCellConstruction tests ports, nodes and connections of a cell
func TestCellConstruction(t *testing.T) {
	_, top := createHalfAdder(t)

	assert.False(t, top.IsLeaf())
	assert.Equal(t, []string{"a", "b", "s", "c", "cn"}, portNames(top.OrderedPorts()))
	assert.Equal(t, []string{"VDD", "a", "b", "c", "cn", "s", "w"}, top.NodeNames())
	assert.Equal(t, []string{"h1", "i", "t"}, top.InstanceNames())

	c := top.Nodes["c"]
	require.True(t, c.IsBoundary())
	assert.Equal(t, Out, c.Port.Dir)
	assert.Equal(t, "c(OUT)", c.String())
	require.Len(t, c.InstPorts, 2)
	assert.Equal(t, "h1%c", c.InstPorts[0].Name())
	assert.Equal(t, "i%A", c.InstPorts[1].Name())

	inst := top.Instances["t"]
	assert.Equal(t, "and2", inst.MasterName())
	assert.Equal(t, "VDD", inst.PortNode("B").Name)
	assert.Nil(t, inst.PortNode("missing"))
	assert.Equal(t, "t(and2)", inst.String())
}

func portNames(ports []*Port) []string {
	names := make([]string, 0, len(ports))
	for _, p := range ports {
		names = append(names, p.Name)
	}
	return names
}

// TestCellErrors tests duplicate declarations and unknown ports
func TestCellErrors(t *testing.T) {
	inv := leafCell("inv", "A")
	top := NewCell("top")

	_, err := top.AddPort("a", In)
	require.NoError(t, err)
	_, err = top.AddPort("a", Out)
	assert.Error(t, err)

	inst, err := top.AddInstance("u", inv)
	require.NoError(t, err)
	_, err = top.AddInstance("u", inv)
	assert.Error(t, err)
	_, err = top.AddInstance("v", nil)
	assert.Error(t, err)

	assert.Error(t, top.Connect(inst, "Z", "a"))
	require.NoError(t, top.Connect(inst, "A", "a"))
	assert.Error(t, top.Connect(inst, "A", "b"))
}

// TestBoundaryNodes tests filtering boundary nodes by direction
func TestBoundaryNodes(t *testing.T) {
	c := NewCell("c")
	for name, dir := range map[string]PortDir{"z": In, "a": In, "io": InOut, "y": Out} {
		_, err := c.AddPort(name, dir)
		require.NoError(t, err)
	}

	names := func(nodes []*Node) []string {
		out := make([]string, 0, len(nodes))
		for _, n := range nodes {
			out = append(out, n.Name)
		}
		return out
	}
	assert.Equal(t, []string{"a", "io", "z"}, names(c.BoundaryNodes(In, InOut)))
	assert.Equal(t, []string{"io", "y"}, names(c.BoundaryNodes(Out, InOut)))
}

// TestDesignLookupAndValidate tests cell lookup and link validation
func TestDesignLookupAndValidate(t *testing.T) {
	d, top := createHalfAdder(t)
	require.NoError(t, d.Validate())

	got, err := d.Cell("top")
	require.NoError(t, err)
	assert.Same(t, top, got)

	_, err = d.Cell("nope")
	assert.True(t, errors.Is(err, ErrCellNotFound))

	// A master that is not registered in the design
	stray := leafCell("stray", "A")
	place(t, top, "s", stray, "A", "a")
	assert.Error(t, d.Validate())
}

// TestDesignRedefinition tests that only leaf cells may be redefined
func TestDesignRedefinition(t *testing.T) {
	d, _ := createHalfAdder(t)

	assert.NoError(t, d.AddCell(leafCell("inv", "A")))
	assert.Error(t, d.AddCell(NewCell("top")))
}
