// Package sat adapts an incremental CNF solver to the clause-by-clause
// interface used by the circuit encoders.
package sat

import (
	"github.com/go-air/gini"
	"github.com/go-air/gini/z"

	"github.com/fyerfyer/gatecheck/pkg/circuit"
)

// Status is the outcome of a solve call
type Status int

const (
	Unknown Status = iota
	Satisfiable
	Unsatisfiable
)

// String returns the verdict line printed for the status
func (s Status) String() string {
	switch s {
	case Satisfiable:
		return "SATISFIABLE"
	case Unsatisfiable:
		return "NOT SATISFIABLE"
	default:
		return "UNKNOWN"
	}
}

const (
	satisfiable   = 1
	unsatisfiable = -1
)

// Solver is an append-only clause store with a one-shot solve
type Solver interface {
	// NewVar allocates a fresh boolean variable
	NewVar() z.Var
	// AddClause appends the disjunction of lits
	AddClause(lits ...z.Lit)
	// Solve runs the search over every clause added so far
	Solve() Status
	// Value returns the model value of v after a satisfiable solve. Variables
	// that appear in no clause are reported as X.
	Value(v z.Var) circuit.LogicValue
	// NumVars and NumClauses report the size of the formula
	NumVars() int
	NumClauses() int
}

// Gini is a Solver backed by github.com/go-air/gini. Every clause is also
// recorded so the formula can be written out in DIMACS form.
type Gini struct {
	g       *gini.Gini
	vars    int
	clauses [][]z.Lit
	used    map[z.Var]bool
	status  Status
}

// NewGini creates an empty solver
func NewGini() *Gini {
	return &Gini{
		g:       gini.New(),
		clauses: make([][]z.Lit, 0),
		used:    make(map[z.Var]bool),
	}
}

// NewVar allocates a fresh boolean variable
func (s *Gini) NewVar() z.Var {
	m := s.g.Lit()
	s.vars++
	return m.Var()
}

// AddClause appends the disjunction of lits. An empty clause makes the
// formula unsatisfiable.
func (s *Gini) AddClause(lits ...z.Lit) {
	clause := make([]z.Lit, len(lits))
	copy(clause, lits)
	s.clauses = append(s.clauses, clause)

	for _, m := range clause {
		s.used[m.Var()] = true
		s.g.Add(m)
	}
	s.g.Add(z.LitNull)
}

// Solve runs the search
func (s *Gini) Solve() Status {
	switch s.g.Solve() {
	case satisfiable:
		s.status = Satisfiable
	case unsatisfiable:
		s.status = Unsatisfiable
	default:
		s.status = Unknown
	}
	return s.status
}

// Value returns the model value of v after a satisfiable solve
func (s *Gini) Value(v z.Var) circuit.LogicValue {
	if s.status != Satisfiable || !s.used[v] {
		return circuit.X
	}
	return circuit.FromBool(s.g.Value(v.Pos()))
}

// NumVars returns the number of allocated variables
func (s *Gini) NumVars() int {
	return s.vars
}

// NumClauses returns the number of clauses added
func (s *Gini) NumClauses() int {
	return len(s.clauses)
}

// Clauses returns the recorded clauses in insertion order
func (s *Gini) Clauses() [][]z.Lit {
	return s.clauses
}
