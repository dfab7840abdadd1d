package algorithm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fyerfyer/gatecheck/pkg/circuit"
	"github.com/fyerfyer/gatecheck/pkg/utils"
)

// SourceID is the synthetic driver of every value supplied from outside the circuit
const SourceID = "__TOP_INPUT__"

// PortRole classifies an instance port attached to a node
type PortRole int

const (
	Sink   PortRole = iota // Reads the node
	Driver                 // Writes the node
	Both                   // Bidirectional, reads and writes
)

// String returns a string representation of the role
func (r PortRole) String() string {
	switch r {
	case Sink:
		return "SINK"
	case Driver:
		return "DRIVER"
	case Both:
		return "BOTH"
	default:
		return "UNKNOWN"
	}
}

// RoleOf maps a port direction to its role on the attached node
func RoleOf(dir circuit.PortDir) PortRole {
	switch dir {
	case circuit.Out:
		return Driver
	case circuit.InOut:
		return Both
	default:
		return Sink
	}
}

// Drives returns true if the role writes the node
func (r PortRole) Drives() bool {
	return r == Driver || r == Both
}

// Reads returns true if the role reads the node
func (r PortRole) Reads() bool {
	return r == Sink || r == Both
}

// MultiDriverError reports a node written by more than one output port
type MultiDriverError struct {
	Node    string
	Drivers []string
}

func (e *MultiDriverError) Error() string {
	return fmt.Sprintf("node %s has %d drivers: %s", e.Node, len(e.Drivers), strings.Join(e.Drivers, ", "))
}

// GraphOptions controls dependency graph construction
type GraphOptions struct {
	// Library identifies flip-flops. Their state outputs are driven by
	// SourceID instead of the flip-flop itself. nil treats every instance
	// as combinational.
	Library *circuit.Library
	// StrictDrivers turns multi-driver nodes into a MultiDriverError
	StrictDrivers bool
	Logger        *utils.Logger
}

type edge struct {
	from, to string
}

// DependencyGraph holds the instance-to-instance edges of a flat cell
type DependencyGraph struct {
	Adj         map[string][]string // Driver to sinks, in discovery order
	InDegree    map[string]int      // Number of distinct driving predecessors
	MultiDriven []string            // Nodes with more than one driver, sorted
	edges       map[edge]bool
}

// NewDependencyGraph creates an empty graph containing only SourceID
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		Adj:         make(map[string][]string),
		InDegree:    map[string]int{SourceID: 0},
		MultiDriven: make([]string, 0),
		edges:       make(map[edge]bool),
	}
}

// AddVertex registers an instance with in-degree 0 if it is not yet known
func (g *DependencyGraph) AddVertex(name string) {
	if _, ok := g.InDegree[name]; !ok {
		g.InDegree[name] = 0
	}
}

// AddEdge registers from -> to once; repeated pairs are coalesced
func (g *DependencyGraph) AddEdge(from, to string) bool {
	e := edge{from, to}
	if from == to || g.edges[e] {
		return false
	}
	g.edges[e] = true
	g.AddVertex(from)
	g.AddVertex(to)
	g.Adj[from] = append(g.Adj[from], to)
	g.InDegree[to]++
	return true
}

// HasEdge returns true if from -> to is in the graph
func (g *DependencyGraph) HasEdge(from, to string) bool {
	return g.edges[edge{from, to}]
}

// NumEdges returns the number of distinct edges
func (g *DependencyGraph) NumEdges() int {
	return len(g.edges)
}

// Vertices returns every vertex, SourceID included, sorted
func (g *DependencyGraph) Vertices() []string {
	names := make([]string, 0, len(g.InDegree))
	for name := range g.InDegree {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildDependencyGraph derives the driver -> sink edges of a flat cell.
// Global nodes contribute no edges.
func BuildDependencyGraph(flat *circuit.Cell, globals circuit.Globals, opts GraphOptions) (*DependencyGraph, error) {
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}
	logger.Graph("Building dependency graph for %s", flat.Name)
	logger.Indent()
	defer logger.Outdent()

	g := NewDependencyGraph()
	for _, name := range flat.InstanceNames() {
		g.AddVertex(name)
	}

	for _, nodeName := range flat.NodeNames() {
		if globals.Contains(nodeName) {
			continue
		}
		node := flat.Nodes[nodeName]

		drivers := make([]string, 0, 1)
		sinks := make([]string, 0, len(node.InstPorts))
		outputs := make([]string, 0, 1)

		if node.Port != nil && node.Port.Dir != circuit.Out {
			drivers = append(drivers, SourceID)
		}

		for _, ip := range node.InstPorts {
			inst := ip.Instance.Name
			if isStateOutput(opts.Library, ip) {
				// Flip-flop state is a pseudo primary input
				drivers = appendUnique(drivers, SourceID)
				continue
			}
			role := RoleOf(ip.Port.Dir)
			if role.Drives() {
				drivers = appendUnique(drivers, inst)
			}
			if role == Driver {
				outputs = append(outputs, ip.Name())
			}
			if role.Reads() {
				sinks = appendUnique(sinks, inst)
			}
		}

		if len(outputs) > 1 {
			if opts.StrictDrivers {
				return nil, &MultiDriverError{Node: nodeName, Drivers: outputs}
			}
			logger.Warning("Node %s has multiple drivers: %s", nodeName, strings.Join(outputs, ", "))
			g.MultiDriven = append(g.MultiDriven, nodeName)
		}

		if len(drivers) == 0 && len(sinks) > 0 {
			logger.Graph("Node %s has no driver", nodeName)
		}

		for _, d := range drivers {
			for _, s := range sinks {
				if g.AddEdge(d, s) {
					logger.Trace("%s -> %s via %s", d, s, nodeName)
				}
			}
		}
	}

	logger.Graph("%d vertices, %d edges", len(g.InDegree), g.NumEdges())
	return g, nil
}

// isStateOutput returns true if ip is the state port of a flip-flop
func isStateOutput(lib *circuit.Library, ip *circuit.InstPort) bool {
	if lib == nil {
		return false
	}
	spec, ok := lib.Resolve(ip.Instance)
	return ok && spec.Kind.IsSequential() && ip.Port.Name == spec.State
}

func appendUnique(list []string, name string) []string {
	for _, existing := range list {
		if existing == name {
			return list
		}
	}
	return append(list, name)
}
