package circuit

import (
	"github.com/pkg/errors"
)

// Pins returns the input nodes of a combinational instance in port
// declaration order and its output node. The output is nil when the output
// port is left unconnected.
func Pins(inst *Instance) (inputs []*Node, output *Node, err error) {
	outputs := 0
	for _, p := range inst.Master.OrderedPorts() {
		node := inst.PortNode(p.Name)
		switch p.Dir {
		case In:
			if node == nil {
				return nil, nil, errors.Errorf("instance %s: input %s is not connected", inst.Name, p.Name)
			}
			inputs = append(inputs, node)
		case Out:
			outputs++
			output = node
		case InOut:
			return nil, nil, errors.Errorf("instance %s: bidirectional port %s on a gate", inst.Name, p.Name)
		}
	}
	if outputs != 1 {
		return nil, nil, errors.Errorf("instance %s: gate %s has %d outputs", inst.Name, inst.Master.Name, outputs)
	}
	return inputs, output, nil
}

// Simulate performs three-valued forward simulation of a flat cell.
// assignment fixes node values (primary inputs, flip-flop state outputs);
// global nodes take their constant value and everything else starts at X.
func Simulate(flat *Cell, lib *Library, globals Globals, assignment map[string]LogicValue) (map[string]LogicValue, error) {
	values := make(map[string]LogicValue, len(flat.Nodes))
	for name := range flat.Nodes {
		values[name] = X
	}
	for name, v := range globals {
		if _, ok := values[name]; ok {
			values[name] = v
		}
	}
	for name, v := range assignment {
		values[name] = v
	}

	type gate struct {
		kind   GateKind
		inputs []*Node
		output *Node
	}
	gates := make([]gate, 0, len(flat.Instances))
	for _, name := range flat.InstanceNames() {
		inst := flat.Instances[name]
		spec, ok := lib.Resolve(inst)
		if !ok {
			return nil, errors.Errorf("instance %s: unknown gate %s", inst.Name, inst.Master.Name)
		}
		if spec.Kind.IsSequential() {
			continue
		}
		inputs, output, err := Pins(inst)
		if err != nil {
			return nil, err
		}
		if output == nil {
			continue
		}
		gates = append(gates, gate{kind: spec.Kind, inputs: inputs, output: output})
	}

	// Process gates until no output changes. Outputs only move away from X,
	// so this terminates after at most len(gates) sweeps.
	ins := make([]LogicValue, 0, MaxCatalogArity)
	for changed := true; changed; {
		changed = false
		for _, g := range gates {
			if values[g.output.Name] != X {
				continue
			}
			ins = ins[:0]
			for _, n := range g.inputs {
				ins = append(ins, values[n.Name])
			}
			if v := g.kind.Evaluate(ins); v != X {
				values[g.output.Name] = v
				changed = true
			}
		}
	}

	return values, nil
}
