package circuit

// LogicValue represents the value carried by a node during simulation
type LogicValue int

const (
	X    LogicValue = iota // Unknown/unassigned
	Zero                   // Logic 0
	One                    // Logic 1
)

// String returns a string representation of the logic value
func (v LogicValue) String() string {
	switch v {
	case X:
		return "X"
	case Zero:
		return "0"
	case One:
		return "1"
	default:
		return "?"
	}
}

// FromBool converts a boolean into Zero or One
func FromBool(b bool) LogicValue {
	if b {
		return One
	}
	return Zero
}

// IsAssigned returns true if the value is 0 or 1
func (v LogicValue) IsAssigned() bool {
	return v == Zero || v == One
}

// Not returns the complement of v, X stays X
func (v LogicValue) Not() LogicValue {
	switch v {
	case Zero:
		return One
	case One:
		return Zero
	default:
		return X
	}
}
