package circuit

import (
	"fmt"
	"strings"
)

// GateKind enumerates the primitive cells the analyzers understand
type GateKind int

const (
	Buffer GateKind = iota
	Inverter
	And
	Nand
	Or
	Nor
	Xor
	Xnor
	FlipFlop // D flip-flop, handled as a sequential boundary
)

// String returns a string representation of the gate kind
func (k GateKind) String() string {
	switch k {
	case Buffer:
		return "BUF"
	case Inverter:
		return "NOT"
	case And:
		return "AND"
	case Nand:
		return "NAND"
	case Or:
		return "OR"
	case Nor:
		return "NOR"
	case Xor:
		return "XOR"
	case Xnor:
		return "XNOR"
	case FlipFlop:
		return "DFF"
	default:
		return "UNKNOWN"
	}
}

// ParseGateKind converts a kind name as written in a library file
func ParseGateKind(s string) (GateKind, bool) {
	switch strings.ToLower(s) {
	case "buf", "buffer":
		return Buffer, true
	case "not", "inv", "inverter":
		return Inverter, true
	case "and":
		return And, true
	case "nand":
		return Nand, true
	case "or":
		return Or, true
	case "nor":
		return Nor, true
	case "xor":
		return Xor, true
	case "xnor":
		return Xnor, true
	case "dff", "flipflop":
		return FlipFlop, true
	default:
		return Buffer, false
	}
}

// IsSequential returns true for state-holding kinds
func (k GateKind) IsSequential() bool {
	return k == FlipFlop
}

// FixedArity returns the fan-in required by the kind, or 0 when any fan-in >= 1 is allowed
func (k GateKind) FixedArity() int {
	switch k {
	case Buffer, Inverter:
		return 1
	case Xor, Xnor:
		return 2
	default:
		return 0
	}
}

// GateSpec describes one master cell of the gate library
type GateSpec struct {
	Cell  string   // Master cell name
	Kind  GateKind // Boolean function
	Arity int      // Number of data inputs
	Data  string   // Flip-flop data input port
	State string   // Flip-flop state output port
}

// String returns a string representation of the gate spec
func (g GateSpec) String() string {
	if g.Kind == FlipFlop {
		return fmt.Sprintf("%s(%s %s->%s)", g.Cell, g.Kind, g.Data, g.State)
	}
	return fmt.Sprintf("%s(%s/%d)", g.Cell, g.Kind, g.Arity)
}

// Evaluate computes the three-valued output of a combinational kind
func (k GateKind) Evaluate(inputs []LogicValue) LogicValue {
	switch k {
	case And:
		return evaluateAND(inputs)
	case Or:
		return evaluateOR(inputs)
	case Inverter:
		return evaluateBUF(inputs).Not()
	case Nand:
		return evaluateAND(inputs).Not()
	case Nor:
		return evaluateOR(inputs).Not()
	case Xor:
		return evaluateXOR(inputs)
	case Xnor:
		return evaluateXOR(inputs).Not()
	case Buffer:
		return evaluateBUF(inputs)
	default:
		return X
	}
}

func evaluateAND(inputs []LogicValue) LogicValue {
	result := One
	for _, input := range inputs {
		switch input {
		case Zero:
			return Zero // Short-circuit for AND gate
		case X:
			result = X
		}
	}
	return result
}

func evaluateOR(inputs []LogicValue) LogicValue {
	result := Zero
	for _, input := range inputs {
		switch input {
		case One:
			return One // Short-circuit for OR gate
		case X:
			result = X
		}
	}
	return result
}

func evaluateXOR(inputs []LogicValue) LogicValue {
	if len(inputs) != 2 {
		return X
	}
	a, b := inputs[0], inputs[1]
	if !a.IsAssigned() || !b.IsAssigned() {
		return X
	}
	return FromBool(a != b)
}

func evaluateBUF(inputs []LogicValue) LogicValue {
	if len(inputs) != 1 {
		return X
	}
	return inputs[0]
}
