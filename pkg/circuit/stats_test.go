package circuit

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCollectStats tests the folded and flat counts and the deepest reach
func TestCollectStats(t *testing.T) {
	d, top := createHalfAdder(t)

	// Add a second half adder to separate folded and flat counts
	half, err := d.Cell("half")
	require.NoError(t, err)
	place(t, top, "h2", half, "a", "s", "b", "c", "s", "s2", "c", "c2")

	stats, err := CollectStats(top, "and2", DefaultGlobals())
	require.NoError(t, err)
	assert.Equal(t, 8, stats.TopNodes) // a b c cn s w s2 c2
	assert.Equal(t, 4, stats.TopInstances)
	assert.Equal(t, 2, stats.FoldedCount) // t in top, g in half
	assert.Equal(t, 3, stats.FlatCount)   // t, h1/g, h2/g
	assert.Equal(t, 2, stats.DeepestReach)
	assert.Equal(t, []string{"h1/a", "h1/b", "h1/c", "h1/s", "h2/a", "h2/b", "h2/c", "h2/s"}, stats.DeepestNodes)
}

// TestStatsWrite tests the report layout
func TestStatsWrite(t *testing.T) {
	_, top := createHalfAdder(t)
	stats, err := CollectStats(top, "xor2", DefaultGlobals())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, stats.Write(&buf, "top.v"))
	want := "file name: top.v\n" +
		"a: 6\n" +
		"b: 3\n" +
		"c: 1\n" +
		"d: 1\n" +
		"e: 2\n" +
		"h1/a\nh1/b\nh1/c\nh1/s\n"
	assert.Equal(t, want, buf.String())
}

// TestCollectStatsRecursive tests that self-instantiating cells are rejected
func TestCollectStatsRecursive(t *testing.T) {
	inv := leafCell("inv", "A")

	loop := NewCell("loop")
	_, err := loop.AddPort("a", In)
	require.NoError(t, err)
	place(t, loop, "u", inv, "A", "a")
	place(t, loop, "inner", loop, "a", "a")

	_, err = CollectStats(loop, "inv", DefaultGlobals())
	assert.ErrorContains(t, err, "instance inner: cell loop instantiates itself")

	// Through another cell, below a well-formed top
	ping := NewCell("ping")
	pong := NewCell("pong")
	for _, c := range []*Cell{ping, pong} {
		_, err := c.AddPort("a", In)
		require.NoError(t, err)
	}
	place(t, ping, "p", pong, "a", "a")
	place(t, pong, "q", ping, "a", "a")

	top := NewCell("top")
	_, err = top.AddPort("x", In)
	require.NoError(t, err)
	place(t, top, "i", inv, "A", "x")
	place(t, top, "r", ping, "a", "x")

	_, err = CollectStats(top, "inv", DefaultGlobals())
	assert.ErrorContains(t, err, "cell pong: instance q: cell ping instantiates itself")
}
