package circuit

import (
	"github.com/pkg/errors"
)

// HierarchySeparator joins instance names into hierarchical paths
const HierarchySeparator = "/"

// Flatten builds a new cell that contains only the leaf instances reachable
// from top. Instances and internal nodes are named by their hierarchical path,
// top-level names are kept, and global nodes keep their bare name at every
// level. top and its masters are not modified.
func Flatten(name string, top *Cell, globals Globals) (*Cell, error) {
	flat := NewCell(name)
	for _, p := range top.OrderedPorts() {
		if _, err := flat.AddPort(p.Name, p.Dir); err != nil {
			return nil, err
		}
	}

	// Top-level nodes map onto themselves
	nodeMap := make(map[string]string, len(top.Nodes))
	for _, nodeName := range top.NodeNames() {
		nodeMap[nodeName] = nodeName
		flat.AddNode(nodeName)
	}

	active := map[*Cell]bool{top: true}
	if err := flattenInto(flat, top, "", nodeMap, globals, active); err != nil {
		return nil, errors.Wrapf(err, "flatten %s", top.Name)
	}
	return flat, nil
}

// flattenInto copies the instances of c into flat. nodeMap translates the
// node names of c into node names of flat.
func flattenInto(flat, c *Cell, prefix string, nodeMap map[string]string, globals Globals, active map[*Cell]bool) error {
	for _, instName := range c.InstanceNames() {
		inst := c.Instances[instName]
		path := prefix + inst.Name

		if inst.Master.IsLeaf() {
			leaf, err := flat.AddInstance(path, inst.Master)
			if err != nil {
				return err
			}
			for _, ip := range inst.OrderedInstPorts() {
				if err := flat.Connect(leaf, ip.Port.Name, nodeMap[ip.Node.Name]); err != nil {
					return err
				}
			}
			continue
		}

		child := inst.Master
		if active[child] {
			return errors.Errorf("instance %s: cell %s instantiates itself", path, child.Name)
		}

		childMap := make(map[string]string, len(child.Nodes))
		for nodeName, n := range child.Nodes {
			switch {
			case globals.Contains(nodeName):
				childMap[nodeName] = nodeName
			case n.Port != nil && inst.InstPorts[n.Port.Name] != nil:
				childMap[nodeName] = nodeMap[inst.InstPorts[n.Port.Name].Node.Name]
			default:
				// Internal node, or a port left unconnected by the parent
				childMap[nodeName] = path + HierarchySeparator + nodeName
			}
		}

		active[child] = true
		err := flattenInto(flat, child, path+HierarchySeparator, childMap, globals, active)
		delete(active, child)
		if err != nil {
			return err
		}
	}
	return nil
}
