package algorithm

import (
	"sort"

	"github.com/go-air/gini/z"
	"github.com/pkg/errors"

	"github.com/fyerfyer/gatecheck/pkg/circuit"
	"github.com/fyerfyer/gatecheck/pkg/sat"
	"github.com/fyerfyer/gatecheck/pkg/utils"
)

// PairKind tells what a comparison pair observes
type PairKind int

const (
	OutputPair   PairKind = iota // A primary output present in both circuits
	FlipFlopPair                 // The data input of a matched flip-flop
)

// String returns a string representation of the pair kind
func (k PairKind) String() string {
	switch k {
	case OutputPair:
		return "output"
	case FlipFlopPair:
		return "flip-flop"
	default:
		return "unknown"
	}
}

// ComparePair is one signal observed in both circuits
type ComparePair struct {
	Name     string // Output name or flip-flop instance name
	Kind     PairKind
	SpecNode string
	ImplNode string
	Spec     z.Var
	Impl     z.Var
	Diff     z.Var // True when Spec and Impl differ
}

// Audit lists what the correspondence left out
type Audit struct {
	SpecOnlyInputs    []string
	ImplOnlyInputs    []string
	SpecOnlyOutputs   []string
	ImplOnlyOutputs   []string
	SpecOnlyFlipFlops []string
	ImplOnlyFlipFlops []string
	UnconnectedFlops  []string // Matched flip-flops missing a data or state connection
	UndrivenNets      []string // Undriven nets of either circuit, sorted
	Vacuous           bool     // No comparison pair exists
}

// Clean returns true if every boundary signal was matched
func (a Audit) Clean() bool {
	return len(a.SpecOnlyInputs)+len(a.ImplOnlyInputs)+
		len(a.SpecOnlyOutputs)+len(a.ImplOnlyOutputs)+
		len(a.SpecOnlyFlipFlops)+len(a.ImplOnlyFlipFlops)+
		len(a.UnconnectedFlops)+len(a.UndrivenNets) == 0 && !a.Vacuous
}

// Miter joins two encoded circuits into a single satisfiability query
type Miter struct {
	Solver       sat.Solver
	Spec         *EncodedCircuit
	Impl         *EncodedCircuit
	SharedInputs []string // Primary inputs present in both circuits
	SharedStates []string // Matched flip-flops whose state is shared
	SharedNets   []string // Undriven nets present in both circuits
	Pairs        []ComparePair
	Audit        Audit
}

// PrimaryInputs returns the non-global boundary nodes driven from outside
func PrimaryInputs(flat *circuit.Cell, globals circuit.Globals) []string {
	return boundaryNames(flat, globals, circuit.In, circuit.InOut)
}

// PrimaryOutputs returns the non-global boundary nodes observed from outside
func PrimaryOutputs(flat *circuit.Cell, globals circuit.Globals) []string {
	return boundaryNames(flat, globals, circuit.Out, circuit.InOut)
}

// UndrivenNets returns the non-global nets that no instance output or
// primary input drives. Their value is as free as a primary input's.
func UndrivenNets(flat *circuit.Cell, globals circuit.Globals) []string {
	names := make([]string, 0)
	for _, name := range flat.NodeNames() {
		n := flat.Nodes[name]
		if globals.Contains(name) || (n.Port == nil && len(n.InstPorts) == 0) {
			continue
		}
		if n.Port != nil && n.Port.Dir != circuit.Out {
			continue
		}
		driven := false
		for _, ip := range n.InstPorts {
			if RoleOf(ip.Port.Dir).Drives() {
				driven = true
				break
			}
		}
		if !driven {
			names = append(names, name)
		}
	}
	return names
}

func boundaryNames(flat *circuit.Cell, globals circuit.Globals, dirs ...circuit.PortDir) []string {
	names := make([]string, 0)
	for _, n := range flat.BoundaryNodes(dirs...) {
		if globals.Contains(n.Name) {
			continue
		}
		names = append(names, n.Name)
	}
	return names
}

// splitNames partitions two sorted name lists into common, left-only and right-only
func splitNames(left, right []string) (common, leftOnly, rightOnly []string) {
	common, leftOnly, rightOnly = []string{}, []string{}, []string{}
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		switch {
		case left[i] == right[j]:
			common = append(common, left[i])
			i++
			j++
		case left[i] < right[j]:
			leftOnly = append(leftOnly, left[i])
			i++
		default:
			rightOnly = append(rightOnly, right[j])
			j++
		}
	}
	leftOnly = append(leftOnly, left[i:]...)
	rightOnly = append(rightOnly, right[j:]...)
	return common, leftOnly, rightOnly
}

func sortedKeys(ffs map[string]FlipFlop) []string {
	names := make([]string, 0, len(ffs))
	for name := range ffs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildMiter encodes spec and impl into s with shared variables for matched
// inputs and flip-flop states, then asserts that some compared signal differs
func BuildMiter(s sat.Solver, spec, impl *circuit.Cell, lib *circuit.Library, globals circuit.Globals, logger *utils.Logger) (*Miter, error) {
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}
	m := &Miter{Solver: s}

	specPool := NewVarPool("spec", s, globals)
	implPool := NewVarPool("impl", s, globals)

	// Primary inputs
	var shared []string
	shared, m.Audit.SpecOnlyInputs, m.Audit.ImplOnlyInputs = splitNames(
		PrimaryInputs(spec, globals), PrimaryInputs(impl, globals))
	for _, name := range shared {
		v := s.NewVar()
		specPool.Bind(name, v)
		implPool.Bind(name, v)
		logger.Match("input %s shared as %s", name, v)
	}
	m.SharedInputs = shared

	// Undriven nets of the same name read the same free value on both sides
	var specNets, implNets []string
	m.SharedNets, specNets, implNets = splitNames(UndrivenNets(spec, globals), UndrivenNets(impl, globals))
	for _, name := range m.SharedNets {
		v := s.NewVar()
		specPool.Bind(name, v)
		implPool.Bind(name, v)
		logger.Match("undriven net %s shared as %s", name, v)
	}
	m.Audit.UndrivenNets = append(append(append([]string{}, m.SharedNets...), specNets...), implNets...)
	sort.Strings(m.Audit.UndrivenNets)

	// Flip-flop state outputs
	specFFs := CollectFlipFlops(spec, lib)
	implFFs := CollectFlipFlops(impl, lib)
	var matchedFFs []string
	matchedFFs, m.Audit.SpecOnlyFlipFlops, m.Audit.ImplOnlyFlipFlops = splitNames(
		sortedKeys(specFFs), sortedKeys(implFFs))
	m.SharedStates = make([]string, 0, len(matchedFFs))
	for _, name := range matchedFFs {
		sf, inf := specFFs[name], implFFs[name]
		if sf.State == "" || inf.State == "" || sf.Data == "" || inf.Data == "" {
			m.Audit.UnconnectedFlops = append(m.Audit.UnconnectedFlops, name)
		}
		if sf.State == "" || inf.State == "" {
			continue
		}
		v := s.NewVar()
		specPool.Bind(sf.State, v)
		implPool.Bind(inf.State, v)
		m.SharedStates = append(m.SharedStates, name)
		logger.Match("flip-flop %s state shared as %s", name, v)
	}

	encoder := NewEncoder(s, lib, logger)
	var err error
	if m.Spec, err = encoder.EncodeCell("spec", spec, specPool); err != nil {
		return nil, errors.Wrapf(err, "encode %s", spec.Name)
	}
	if m.Impl, err = encoder.EncodeCell("impl", impl, implPool); err != nil {
		return nil, errors.Wrapf(err, "encode %s", impl.Name)
	}

	// Comparison pairs
	var outputs []string
	outputs, m.Audit.SpecOnlyOutputs, m.Audit.ImplOnlyOutputs = splitNames(
		PrimaryOutputs(spec, globals), PrimaryOutputs(impl, globals))
	for _, name := range outputs {
		m.Pairs = append(m.Pairs, ComparePair{Name: name, Kind: OutputPair, SpecNode: name, ImplNode: name})
	}
	for _, name := range matchedFFs {
		sf, inf := specFFs[name], implFFs[name]
		if sf.Data == "" || inf.Data == "" {
			continue
		}
		m.Pairs = append(m.Pairs, ComparePair{Name: name, Kind: FlipFlopPair, SpecNode: sf.Data, ImplNode: inf.Data})
	}

	diffs := make([]z.Lit, 0, len(m.Pairs))
	for i := range m.Pairs {
		p := &m.Pairs[i]
		p.Spec = specPool.Var(p.SpecNode)
		p.Impl = implPool.Var(p.ImplNode)
		p.Diff = s.NewVar()
		if err := EncodeGate(s, circuit.Xor, []z.Lit{p.Spec.Pos(), p.Impl.Pos()}, p.Diff.Pos()); err != nil {
			return nil, err
		}
		diffs = append(diffs, p.Diff.Pos())
		logger.Match("compare %s %s: %s vs %s", p.Kind, p.Name, p.SpecNode, p.ImplNode)
	}

	if len(diffs) == 0 {
		m.Audit.Vacuous = true
		logger.Warning("No outputs or flip-flops in common, the verdict is vacuous")
	} else {
		s.AddClause(diffs...)
	}

	m.logAudit(logger)
	return m, nil
}

func (m *Miter) logAudit(logger *utils.Logger) {
	report := func(what string, names []string) {
		for _, name := range names {
			logger.Warning("Unmatched %s %s is excluded from the comparison", what, name)
		}
	}
	report("spec input", m.Audit.SpecOnlyInputs)
	report("impl input", m.Audit.ImplOnlyInputs)
	report("spec output", m.Audit.SpecOnlyOutputs)
	report("impl output", m.Audit.ImplOnlyOutputs)
	report("spec flip-flop", m.Audit.SpecOnlyFlipFlops)
	report("impl flip-flop", m.Audit.ImplOnlyFlipFlops)
	for _, name := range m.Audit.UndrivenNets {
		logger.Warning("Net %s has no driver and is treated as a free input", name)
	}
	for _, name := range m.Audit.UnconnectedFlops {
		logger.Warning("Flip-flop %s has an unconnected data or state port", name)
	}
}
