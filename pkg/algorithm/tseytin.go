package algorithm

import (
	"fmt"
	"sort"

	"github.com/go-air/gini/z"
	"github.com/pkg/errors"

	"github.com/fyerfyer/gatecheck/pkg/circuit"
	"github.com/fyerfyer/gatecheck/pkg/sat"
	"github.com/fyerfyer/gatecheck/pkg/utils"
)

// UnknownGateError reports a leaf instance whose master is not in the library
type UnknownGateError struct {
	Instance string
	Master   string
}

func (e *UnknownGateError) Error() string {
	return fmt.Sprintf("instance %s: unknown gate %s", e.Instance, e.Master)
}

// ArityError reports a gate connected with the wrong number of inputs
type ArityError struct {
	Instance string
	Kind     circuit.GateKind
	Want     int
	Got      int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("instance %s: %s gate expects %d inputs, got %d", e.Instance, e.Kind, e.Want, e.Got)
}

// EncodeGate appends the clauses forcing out to equal kind applied to ins
func EncodeGate(s sat.Solver, kind circuit.GateKind, ins []z.Lit, out z.Lit) error {
	if fixed := kind.FixedArity(); fixed != 0 && len(ins) != fixed {
		return errors.Errorf("%s gate needs %d inputs, got %d", kind, fixed, len(ins))
	}
	if len(ins) == 0 {
		return errors.Errorf("%s gate has no inputs", kind)
	}

	switch kind {
	case circuit.Buffer:
		encodeBuffer(s, ins[0], out)
	case circuit.Inverter:
		encodeBuffer(s, ins[0], out.Not())
	case circuit.And:
		encodeAnd(s, ins, out)
	case circuit.Nand:
		encodeAnd(s, ins, out.Not())
	case circuit.Or:
		encodeOr(s, ins, out)
	case circuit.Nor:
		encodeOr(s, ins, out.Not())
	case circuit.Xor:
		encodeXor(s, ins[0], ins[1], out)
	case circuit.Xnor:
		encodeXor(s, ins[0], ins[1], out.Not())
	default:
		return errors.Errorf("%s has no combinational encoding", kind)
	}
	return nil
}

// y = a
func encodeBuffer(s sat.Solver, a, y z.Lit) {
	s.AddClause(a.Not(), y)
	s.AddClause(a, y.Not())
}

// y = a1 & ... & an
func encodeAnd(s sat.Solver, ins []z.Lit, y z.Lit) {
	big := make([]z.Lit, 0, len(ins)+1)
	for _, a := range ins {
		big = append(big, a.Not())
		s.AddClause(a, y.Not())
	}
	s.AddClause(append(big, y)...)
}

// y = a1 | ... | an
func encodeOr(s sat.Solver, ins []z.Lit, y z.Lit) {
	big := make([]z.Lit, 0, len(ins)+1)
	for _, a := range ins {
		big = append(big, a)
		s.AddClause(a.Not(), y)
	}
	s.AddClause(append(big, y.Not())...)
}

// y = a ^ b
func encodeXor(s sat.Solver, a, b, y z.Lit) {
	s.AddClause(a.Not(), b.Not(), y.Not())
	s.AddClause(a, b, y.Not())
	s.AddClause(a, b.Not(), y)
	s.AddClause(a.Not(), b, y)
}

// VarPool maps the node names of one circuit to solver variables
type VarPool struct {
	Tag     string
	solver  sat.Solver
	globals circuit.Globals
	vars    map[string]z.Var
}

// NewVarPool creates an empty pool over s. Global nodes are fixed to their
// constant by a unit clause the first time they are referenced.
func NewVarPool(tag string, s sat.Solver, globals circuit.Globals) *VarPool {
	return &VarPool{
		Tag:     tag,
		solver:  s,
		globals: globals,
		vars:    make(map[string]z.Var),
	}
}

// Var returns the variable of a node, allocating it on first use
func (p *VarPool) Var(name string) z.Var {
	if v, ok := p.vars[name]; ok {
		return v
	}
	v := p.solver.NewVar()
	p.vars[name] = v
	p.fixGlobal(name, v)
	return v
}

func (p *VarPool) fixGlobal(name string, v z.Var) {
	value, ok := p.globals[name]
	if !ok {
		return
	}
	if value == circuit.One {
		p.solver.AddClause(v.Pos())
	} else {
		p.solver.AddClause(v.Neg())
	}
}

// Lookup returns the variable of a node if it has one
func (p *VarPool) Lookup(name string) (z.Var, bool) {
	v, ok := p.vars[name]
	return v, ok
}

// Bind makes name use v. A name already bound to another variable is tied
// to v with a biconditional instead.
func (p *VarPool) Bind(name string, v z.Var) {
	if prev, ok := p.vars[name]; ok {
		if prev != v {
			encodeBuffer(p.solver, prev.Pos(), v.Pos())
		}
		return
	}
	p.vars[name] = v
	p.fixGlobal(name, v)
}

// Len returns the number of named variables
func (p *VarPool) Len() int {
	return len(p.vars)
}

// Names returns the bound node names, sorted
func (p *VarPool) Names() []string {
	names := make([]string, 0, len(p.vars))
	for name := range p.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FlipFlop records the boundary nodes of a flip-flop instance. Either node
// is empty when the port is left unconnected.
type FlipFlop struct {
	Name  string
	Data  string
	State string
}

// CollectFlipFlops returns the flip-flop instances of a flat cell keyed by name
func CollectFlipFlops(flat *circuit.Cell, lib *circuit.Library) map[string]FlipFlop {
	ffs := make(map[string]FlipFlop)
	for _, name := range flat.InstanceNames() {
		inst := flat.Instances[name]
		spec, ok := lib.Resolve(inst)
		if !ok || !spec.Kind.IsSequential() {
			continue
		}
		ff := FlipFlop{Name: name}
		if n := inst.PortNode(spec.Data); n != nil {
			ff.Data = n.Name
		}
		if n := inst.PortNode(spec.State); n != nil {
			ff.State = n.Name
		}
		ffs[name] = ff
	}
	return ffs
}

// EncodedCircuit is the clause-level image of one flat cell
type EncodedCircuit struct {
	Tag       string
	Cell      *circuit.Cell
	Pool      *VarPool
	FlipFlops map[string]FlipFlop
	Gates     int
}

// Encoder translates flat cells into CNF
type Encoder struct {
	Solver  sat.Solver
	Library *circuit.Library
	Logger  *utils.Logger
}

// NewEncoder creates a new encoder
func NewEncoder(s sat.Solver, lib *circuit.Library, logger *utils.Logger) *Encoder {
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}
	return &Encoder{
		Solver:  s,
		Library: lib,
		Logger:  logger,
	}
}

// EncodeCell adds the clauses of every combinational instance of flat.
// Flip-flops are recorded but not encoded. Every instance must resolve to a
// library gate.
func (e *Encoder) EncodeCell(tag string, flat *circuit.Cell, pool *VarPool) (*EncodedCircuit, error) {
	e.Logger.Encode("Encoding %s as %s", flat.Name, tag)
	e.Logger.Indent()
	defer e.Logger.Outdent()

	ec := &EncodedCircuit{
		Tag:  tag,
		Cell: flat,
		Pool: pool,
	}

	ins := make([]z.Lit, 0, circuit.MaxCatalogArity)
	for _, name := range flat.InstanceNames() {
		inst := flat.Instances[name]
		spec, ok := e.Library.Resolve(inst)
		if !ok {
			return nil, &UnknownGateError{Instance: inst.Name, Master: inst.MasterName()}
		}
		if spec.Kind.IsSequential() {
			continue
		}

		inputs, output, err := circuit.Pins(inst)
		if err != nil {
			return nil, errors.Wrap(err, tag)
		}
		if len(inputs) != spec.Arity {
			return nil, &ArityError{Instance: inst.Name, Kind: spec.Kind, Want: spec.Arity, Got: len(inputs)}
		}

		var out z.Var
		if output == nil {
			out = e.Solver.NewVar()
			e.Logger.Debug("%s: output of %s is unconnected", tag, inst.Name)
		} else {
			out = pool.Var(output.Name)
		}

		ins = ins[:0]
		for _, n := range inputs {
			ins = append(ins, pool.Var(n.Name).Pos())
		}
		if err := EncodeGate(e.Solver, spec.Kind, ins, out.Pos()); err != nil {
			return nil, errors.Wrapf(err, "instance %s", inst.Name)
		}
		e.Logger.Encode("%s %s/%d", inst.Name, spec.Kind, spec.Arity)
		ec.Gates++
	}

	ec.FlipFlops = CollectFlipFlops(flat, e.Library)
	e.Logger.Encode("%s: %d gates, %d flip-flops, %d variables", tag, ec.Gates, len(ec.FlipFlops), pool.Len())
	return ec, nil
}
