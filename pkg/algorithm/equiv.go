package algorithm

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"

	"github.com/fyerfyer/gatecheck/pkg/circuit"
	"github.com/fyerfyer/gatecheck/pkg/sat"
	"github.com/fyerfyer/gatecheck/pkg/utils"
)

// Assignment is one input value of a distinguishing vector
type Assignment struct {
	Name  string
	Value circuit.LogicValue
}

// Mismatch is a compared signal whose replayed values differ
type Mismatch struct {
	Name string
	Kind PairKind
	Spec circuit.LogicValue
	Impl circuit.LogicValue
}

// EquivResult is the verdict of one equivalence query
type EquivResult struct {
	Status         sat.Status
	Counterexample []Assignment // Primary inputs of either circuit, sorted; empty unless satisfiable
	States         []Assignment // Shared flip-flop states of the counterexample
	Undriven       []Assignment // Shared undriven nets of the counterexample
	Mismatches     []Mismatch   // Compared signals that differ when the counterexample is simulated
	Pairs          int
	Audit          Audit
	Vars           int
	Clauses        int
}

// Equivalent returns true if the solver proved that no compared signal can differ
func (r *EquivResult) Equivalent() bool {
	return r.Status == sat.Unsatisfiable
}

// Write prints the verdict line and, when satisfiable, one "<input> = <0|1|X>"
// line per primary input
func (r *EquivResult) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, r.Status.String())
	if r.Status == sat.Satisfiable {
		for _, a := range r.Counterexample {
			fmt.Fprintf(bw, "%s = %s\n", a.Name, a.Value)
		}
	}
	return bw.Flush()
}

// EquivOptions controls an equivalence query
type EquivOptions struct {
	DimacsPath string // Write the complete formula here before solving
}

// Checker proves or refutes combinational equivalence of two flat cells
type Checker struct {
	Library *circuit.Library
	Globals circuit.Globals
	Logger  *utils.Logger
	Options EquivOptions
}

// NewChecker creates a new checker
func NewChecker(lib *circuit.Library, globals circuit.Globals, logger *utils.Logger) *Checker {
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}
	return &Checker{
		Library: lib,
		Globals: globals,
		Logger:  logger,
	}
}

// Check builds the miter of spec and impl and solves it. On a satisfiable
// result the counterexample is replayed on both circuits.
func (c *Checker) Check(spec, impl *circuit.Cell) (*EquivResult, error) {
	c.Logger.Info("Checking %s against %s", impl.Name, spec.Name)
	c.Logger.Indent()
	defer c.Logger.Outdent()

	s := sat.NewGini()
	m, err := BuildMiter(s, spec, impl, c.Library, c.Globals, c.Logger)
	if err != nil {
		return nil, err
	}

	result := &EquivResult{
		Pairs:   len(m.Pairs),
		Audit:   m.Audit,
		Vars:    s.NumVars(),
		Clauses: s.NumClauses(),
	}
	c.Logger.Info("Formula has %d variables and %d clauses over %d compared signals",
		result.Vars, result.Clauses, result.Pairs)

	if c.Options.DimacsPath != "" {
		if err := s.WriteDimacsFile(c.Options.DimacsPath); err != nil {
			return nil, err
		}
		c.Logger.Info("Wrote %s", c.Options.DimacsPath)
	}

	result.Status = s.Solve()
	c.Logger.Info("Solver returned %s", result.Status)
	switch result.Status {
	case sat.Unknown:
		return nil, errors.New("solver stopped without a verdict")
	case sat.Unsatisfiable:
		return result, nil
	}

	result.Counterexample, result.States, result.Undriven = c.extract(m)
	if err := c.replay(m, result); err != nil {
		return nil, errors.Wrap(err, "replay counterexample")
	}
	return result, nil
}

// extract reads the distinguishing vector out of the model
func (c *Checker) extract(m *Miter) (inputs, states, nets []Assignment) {
	seen := make(map[string]bool)
	for _, ec := range []*EncodedCircuit{m.Spec, m.Impl} {
		for _, name := range PrimaryInputs(ec.Cell, c.Globals) {
			if seen[name] {
				continue
			}
			seen[name] = true
			value := circuit.X
			if v, ok := ec.Pool.Lookup(name); ok {
				value = m.Solver.Value(v)
			}
			inputs = append(inputs, Assignment{Name: name, Value: value})
		}
	}
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Name < inputs[j].Name })

	for _, name := range m.SharedStates {
		v, _ := m.Spec.Pool.Lookup(m.Spec.FlipFlops[name].State)
		states = append(states, Assignment{Name: name, Value: m.Solver.Value(v)})
	}
	for _, name := range m.SharedNets {
		v, _ := m.Spec.Pool.Lookup(name)
		nets = append(nets, Assignment{Name: name, Value: m.Solver.Value(v)})
	}
	return inputs, states, nets
}

// replay simulates the counterexample on both circuits and records the
// compared signals that differ
func (c *Checker) replay(m *Miter, result *EquivResult) error {
	values := make(map[string]circuit.LogicValue, len(result.Counterexample))
	for _, a := range result.Counterexample {
		values[a.Name] = a.Value
	}

	assignmentFor := func(ec *EncodedCircuit) map[string]circuit.LogicValue {
		assignment := make(map[string]circuit.LogicValue)
		for _, name := range PrimaryInputs(ec.Cell, c.Globals) {
			assignment[name] = values[name]
		}
		for _, st := range result.States {
			assignment[ec.FlipFlops[st.Name].State] = st.Value
		}
		for _, net := range result.Undriven {
			assignment[net.Name] = net.Value
		}
		return assignment
	}

	specValues, err := circuit.Simulate(m.Spec.Cell, c.Library, c.Globals, assignmentFor(m.Spec))
	if err != nil {
		return err
	}
	implValues, err := circuit.Simulate(m.Impl.Cell, c.Library, c.Globals, assignmentFor(m.Impl))
	if err != nil {
		return err
	}

	for _, p := range m.Pairs {
		sv, iv := specValues[p.SpecNode], implValues[p.ImplNode]
		if sv.IsAssigned() && iv.IsAssigned() && sv != iv {
			result.Mismatches = append(result.Mismatches, Mismatch{Name: p.Name, Kind: p.Kind, Spec: sv, Impl: iv})
			c.Logger.Info("%s %s differs: spec=%s impl=%s", p.Kind, p.Name, sv, iv)
		}
	}
	if len(result.Mismatches) == 0 {
		c.Logger.Warning("Counterexample shows no difference under 3-valued simulation, unconstrained inputs may mask it")
	}
	for _, st := range result.States {
		c.Logger.Debug("flip-flop %s state = %s", st.Name, st.Value)
	}
	return nil
}

// CheckEquivalence is a one-shot wrapper around Checker
func CheckEquivalence(spec, impl *circuit.Cell, lib *circuit.Library, globals circuit.Globals, logger *utils.Logger, opts EquivOptions) (*EquivResult, error) {
	checker := NewChecker(lib, globals, logger)
	checker.Options = opts
	return checker.Check(spec, impl)
}
