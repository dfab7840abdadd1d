package circuit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// ErrCellNotFound is returned when a design has no cell with the requested name
var ErrCellNotFound = errors.New("cell not found")

// PortDir represents the direction of a port as seen from inside its cell
type PortDir int

const (
	In PortDir = iota
	Out
	InOut
)

// String returns a string representation of the port direction
func (d PortDir) String() string {
	switch d {
	case In:
		return "IN"
	case Out:
		return "OUT"
	case InOut:
		return "IN_OUT"
	default:
		return "UNKNOWN"
	}
}

// Port is a named terminal of a cell
type Port struct {
	Name string
	Dir  PortDir
	Node *Node // Node inside the owning cell
	Cell *Cell // Owning cell
}

// InstPort connects a port of an instance's master cell to a node of the parent cell
type InstPort struct {
	Instance *Instance
	Port     *Port // Port on the master cell
	Node     *Node // Node in the parent cell
}

// Name returns "<instance>%<port>"
func (ip *InstPort) Name() string {
	return ip.Instance.Name + "%" + ip.Port.Name
}

// Node represents a named signal inside a cell
type Node struct {
	Name      string
	Port      *Port       // Boundary port, nil for internal nodes
	InstPorts []*InstPort // Instance ports attached to this node, in connection order
}

// IsBoundary returns true if the node is a primary I/O of its cell
func (n *Node) IsBoundary() bool {
	return n.Port != nil
}

// String returns a string representation of the node
func (n *Node) String() string {
	if n.Port != nil {
		return fmt.Sprintf("%s(%s)", n.Name, n.Port.Dir)
	}
	return n.Name
}

// Instance is a placement of a master cell inside a parent cell
type Instance struct {
	Name      string
	Master    *Cell
	Parent    *Cell
	InstPorts map[string]*InstPort // Keyed by master port name
}

// MasterName returns the name of the instantiated cell
func (i *Instance) MasterName() string {
	return i.Master.Name
}

// PortNode returns the node connected to the named master port, or nil
func (i *Instance) PortNode(port string) *Node {
	if ip, ok := i.InstPorts[port]; ok {
		return ip.Node
	}
	return nil
}

// OrderedInstPorts returns the connections in the master's port declaration order
func (i *Instance) OrderedInstPorts() []*InstPort {
	out := make([]*InstPort, 0, len(i.InstPorts))
	for _, p := range i.Master.OrderedPorts() {
		if ip, ok := i.InstPorts[p.Name]; ok {
			out = append(out, ip)
		}
	}
	return out
}

// String returns a string representation of the instance
func (i *Instance) String() string {
	return fmt.Sprintf("%s(%s)", i.Name, i.Master.Name)
}

// Cell is a named circuit definition, either primitive (leaf) or hierarchical
type Cell struct {
	Name      string
	Ports     map[string]*Port
	Nodes     map[string]*Node
	Instances map[string]*Instance
	portOrder []string
}

// NewCell creates an empty cell with the given name
func NewCell(name string) *Cell {
	return &Cell{
		Name:      name,
		Ports:     make(map[string]*Port),
		Nodes:     make(map[string]*Node),
		Instances: make(map[string]*Instance),
		portOrder: make([]string, 0),
	}
}

// IsLeaf returns true if the cell has no instances
func (c *Cell) IsLeaf() bool {
	return len(c.Instances) == 0
}

// AddNode returns the node with the given name, creating it when missing
func (c *Cell) AddNode(name string) *Node {
	if n, ok := c.Nodes[name]; ok {
		return n
	}
	n := &Node{Name: name, InstPorts: make([]*InstPort, 0)}
	c.Nodes[name] = n
	return n
}

// AddPort declares a boundary port and its node
func (c *Cell) AddPort(name string, dir PortDir) (*Port, error) {
	if _, exists := c.Ports[name]; exists {
		return nil, errors.Errorf("cell %s: port %s declared twice", c.Name, name)
	}
	node := c.AddNode(name)
	p := &Port{Name: name, Dir: dir, Node: node, Cell: c}
	node.Port = p
	c.Ports[name] = p
	c.portOrder = append(c.portOrder, name)
	return p, nil
}

// OrderedPorts returns the ports in declaration order
func (c *Cell) OrderedPorts() []*Port {
	ports := make([]*Port, 0, len(c.portOrder))
	for _, name := range c.portOrder {
		ports = append(ports, c.Ports[name])
	}
	return ports
}

// AddInstance places master inside c
func (c *Cell) AddInstance(name string, master *Cell) (*Instance, error) {
	if master == nil {
		return nil, errors.Errorf("cell %s: instance %s has no master cell", c.Name, name)
	}
	if _, exists := c.Instances[name]; exists {
		return nil, errors.Errorf("cell %s: instance %s declared twice", c.Name, name)
	}
	inst := &Instance{
		Name:      name,
		Master:    master,
		Parent:    c,
		InstPorts: make(map[string]*InstPort),
	}
	c.Instances[name] = inst
	return inst, nil
}

// Connect attaches the named master port of inst to the node nodeName of c
func (c *Cell) Connect(inst *Instance, portName, nodeName string) error {
	port, ok := inst.Master.Ports[portName]
	if !ok {
		return errors.Errorf("cell %s: instance %s: master %s has no port %s",
			c.Name, inst.Name, inst.Master.Name, portName)
	}
	if _, connected := inst.InstPorts[portName]; connected {
		return errors.Errorf("cell %s: instance %s: port %s connected twice",
			c.Name, inst.Name, portName)
	}
	node := c.AddNode(nodeName)
	ip := &InstPort{Instance: inst, Port: port, Node: node}
	inst.InstPorts[portName] = ip
	node.InstPorts = append(node.InstPorts, ip)
	return nil
}

// NodeNames returns all node names sorted lexicographically
func (c *Cell) NodeNames() []string {
	names := make([]string, 0, len(c.Nodes))
	for name := range c.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InstanceNames returns all instance names sorted lexicographically
func (c *Cell) InstanceNames() []string {
	names := make([]string, 0, len(c.Instances))
	for name := range c.Instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BoundaryNodes returns the boundary nodes whose port direction is in dirs, sorted by name
func (c *Cell) BoundaryNodes(dirs ...PortDir) []*Node {
	nodes := make([]*Node, 0)
	for _, p := range c.Ports {
		for _, d := range dirs {
			if p.Dir == d {
				nodes = append(nodes, p.Node)
				break
			}
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	return nodes
}

// String returns a string representation of the cell
func (c *Cell) String() string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Cell: %s\n", c.Name))

	builder.WriteString("Ports: ")
	for _, p := range c.OrderedPorts() {
		builder.WriteString(fmt.Sprintf("%s ", p.Node))
	}

	builder.WriteString(fmt.Sprintf("\nNodes: %d Instances: %d", len(c.Nodes), len(c.Instances)))
	return builder.String()
}

// Design is a library of cells populated from one or more netlist sources
type Design struct {
	Name  string
	Cells map[string]*Cell
}

// NewDesign creates an empty design
func NewDesign(name string) *Design {
	return &Design{
		Name:  name,
		Cells: make(map[string]*Cell),
	}
}

// AddCell registers a cell. A later definition with the same name replaces
// an earlier leaf definition, but redefining a hierarchical cell is an error.
func (d *Design) AddCell(c *Cell) error {
	if prev, exists := d.Cells[c.Name]; exists && !prev.IsLeaf() {
		return errors.Errorf("design %s: cell %s defined twice", d.Name, c.Name)
	}
	d.Cells[c.Name] = c
	return nil
}

// Cell returns the cell with the given name
func (d *Design) Cell(name string) (*Cell, error) {
	c, ok := d.Cells[name]
	if !ok {
		return nil, errors.Wrapf(ErrCellNotFound, "design %s: %s", d.Name, name)
	}
	return c, nil
}

// Validate checks that every instance refers to a cell of the design and that
// every instance port exists on its master. All problems are reported at once.
func (d *Design) Validate() error {
	var result *multierror.Error

	names := make([]string, 0, len(d.Cells))
	for name := range d.Cells {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c := d.Cells[name]
		for _, instName := range c.InstanceNames() {
			inst := c.Instances[instName]
			if master, ok := d.Cells[inst.Master.Name]; !ok || master != inst.Master {
				result = multierror.Append(result, errors.Errorf(
					"cell %s: instance %s refers to unknown cell %s", c.Name, inst.Name, inst.Master.Name))
				continue
			}
			for portName, ip := range inst.InstPorts {
				if inst.Master.Ports[portName] != ip.Port {
					result = multierror.Append(result, errors.Errorf(
						"cell %s: instance %s: stale port %s", c.Name, inst.Name, portName))
				}
			}
		}
	}

	return result.ErrorOrNil()
}
