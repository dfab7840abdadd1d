package circuit

import (
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"
)

// HierarchyStats summarizes the folded hierarchy below a top cell
type HierarchyStats struct {
	TopNodes        int      // Nodes of the top cell, globals excluded
	TopInstances    int      // Instances placed directly in the top cell
	Cell            string   // Master cell being counted
	FoldedCount     int      // Instances of Cell, each cell definition counted once
	FlatCount       int      // Instances of Cell in the fully expanded hierarchy
	DeepestReach    int      // Deepest hierarchy level reached by a top-level node (top is 1)
	DeepestNodes    []string // Hierarchical names of the nodes at DeepestReach
	definitionsSeen map[*Cell]bool
}

// CollectStats walks the hierarchy below top. A cell that instantiates
// itself, directly or through other cells, is an error.
func CollectStats(top *Cell, cellName string, globals Globals) (*HierarchyStats, error) {
	s := &HierarchyStats{
		Cell:            cellName,
		TopInstances:    len(top.Instances),
		DeepestReach:    1,
		DeepestNodes:    make([]string, 0),
		definitionsSeen: make(map[*Cell]bool),
	}

	for _, name := range top.NodeNames() {
		if globals.Contains(name) {
			continue
		}
		s.TopNodes++
	}

	if err := s.countFolded(top, map[*Cell]bool{}); err != nil {
		return nil, err
	}
	s.FlatCount = countExpanded(top, cellName, make(map[*Cell]int))

	for _, name := range top.NodeNames() {
		if globals.Contains(name) {
			continue
		}
		s.reach(top.Nodes[name], "", 1, globals)
	}
	sort.Strings(s.DeepestNodes)

	return s, nil
}

// countFolded counts each cell definition once. active holds the cells on
// the current instantiation path.
func (s *HierarchyStats) countFolded(c *Cell, active map[*Cell]bool) error {
	if s.definitionsSeen[c] {
		return nil
	}
	s.definitionsSeen[c] = true
	active[c] = true
	defer delete(active, c)

	for _, name := range c.InstanceNames() {
		inst := c.Instances[name]
		if active[inst.Master] {
			return errors.Errorf("cell %s: instance %s: cell %s instantiates itself", c.Name, inst.Name, inst.Master.Name)
		}
		if inst.Master.Name == s.Cell {
			s.FoldedCount++
		}
		if err := s.countFolded(inst.Master, active); err != nil {
			return err
		}
	}
	return nil
}

func countExpanded(c *Cell, cellName string, memo map[*Cell]int) int {
	if n, ok := memo[c]; ok {
		return n
	}
	memo[c] = 0
	total := 0
	for _, inst := range c.Instances {
		if inst.Master.Name == cellName {
			total++
		}
		total += countExpanded(inst.Master, cellName, memo)
	}
	memo[c] = total
	return total
}

// reach follows a node down through the ports of hierarchical instances.
// The hierarchy is known to be acyclic here.
func (s *HierarchyStats) reach(n *Node, path string, depth int, globals Globals) {
	name := path + n.Name
	switch {
	case depth > s.DeepestReach:
		s.DeepestReach = depth
		s.DeepestNodes = []string{name}
	case depth == s.DeepestReach:
		s.DeepestNodes = append(s.DeepestNodes, name)
	}

	for _, ip := range n.InstPorts {
		master := ip.Instance.Master
		if master.IsLeaf() || globals.Contains(ip.Port.Node.Name) {
			continue
		}
		s.reach(ip.Port.Node, path+ip.Instance.Name+HierarchySeparator, depth+1, globals)
	}
}

// Write prints the statistics in the a..e report layout followed by the deepest node names
func (s *HierarchyStats) Write(w io.Writer, fileName string) error {
	lines := []string{
		fmt.Sprintf("file name: %s", fileName),
		fmt.Sprintf("a: %d", s.TopNodes),
		fmt.Sprintf("b: %d", s.TopInstances),
		fmt.Sprintf("c: %d", s.FoldedCount),
		fmt.Sprintf("d: %d", s.FlatCount),
		fmt.Sprintf("e: %d", s.DeepestReach),
	}
	lines = append(lines, s.DeepestNodes...)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
