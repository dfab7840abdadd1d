package circuit

import (
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// MaxCatalogArity is the widest AND/OR/NAND/NOR cell in the built-in catalog
const MaxCatalogArity = 9

// Globals maps the reserved global node names to their constant value
type Globals map[string]LogicValue

// DefaultGlobals returns the VDD/VSS pair
func DefaultGlobals() Globals {
	return Globals{"VDD": One, "VSS": Zero}
}

// Contains returns true if name is a global node
func (g Globals) Contains(name string) bool {
	_, ok := g[name]
	return ok
}

// Names returns the global node names, sorted
func (g Globals) Names() []string {
	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Library is the closed catalog of primitive master cells
type Library struct {
	specs map[string]GateSpec
}

// NewLibrary creates an empty library
func NewLibrary() *Library {
	return &Library{specs: make(map[string]GateSpec)}
}

// DefaultLibrary returns the catalog matching the built-in standard cells
func DefaultLibrary() *Library {
	lib := NewLibrary()
	lib.mustAdd(GateSpec{Cell: "buffer", Kind: Buffer, Arity: 1})
	lib.mustAdd(GateSpec{Cell: "buf", Kind: Buffer, Arity: 1})
	lib.mustAdd(GateSpec{Cell: "inv", Kind: Inverter, Arity: 1})
	lib.mustAdd(GateSpec{Cell: "not", Kind: Inverter, Arity: 1})

	families := []struct {
		prefix string
		kind   GateKind
	}{
		{"and", And}, {"nand", Nand}, {"or", Or}, {"nor", Nor},
	}
	for _, f := range families {
		lib.mustAdd(GateSpec{Cell: f.prefix, Kind: f.kind, Arity: 2})
		for n := 2; n <= MaxCatalogArity; n++ {
			lib.mustAdd(GateSpec{Cell: fmt.Sprintf("%s%d", f.prefix, n), Kind: f.kind, Arity: n})
		}
	}

	lib.mustAdd(GateSpec{Cell: "xor", Kind: Xor, Arity: 2})
	lib.mustAdd(GateSpec{Cell: "xor2", Kind: Xor, Arity: 2})
	lib.mustAdd(GateSpec{Cell: "xnor", Kind: Xnor, Arity: 2})
	lib.mustAdd(GateSpec{Cell: "xnor2", Kind: Xnor, Arity: 2})
	lib.mustAdd(GateSpec{Cell: "dff", Kind: FlipFlop, Arity: 1, Data: "D", State: "Q"})
	return lib
}

func (l *Library) mustAdd(spec GateSpec) {
	if err := l.Add(spec); err != nil {
		panic(err)
	}
}

// Add registers or replaces a gate spec after checking it is well formed
func (l *Library) Add(spec GateSpec) error {
	if spec.Cell == "" {
		return errors.New("library: cell name is empty")
	}
	if spec.Kind == FlipFlop {
		if spec.Data == "" || spec.State == "" {
			return errors.Errorf("library: flip-flop %s needs data and state ports", spec.Cell)
		}
		spec.Arity = 1
	} else if fixed := spec.Kind.FixedArity(); fixed != 0 {
		if spec.Arity == 0 {
			spec.Arity = fixed
		}
		if spec.Arity != fixed {
			return errors.Errorf("library: %s cell %s must have %d inputs, got %d",
				spec.Kind, spec.Cell, fixed, spec.Arity)
		}
	} else if spec.Arity < 1 {
		return errors.Errorf("library: %s cell %s has invalid arity %d", spec.Kind, spec.Cell, spec.Arity)
	}
	l.specs[spec.Cell] = spec
	return nil
}

// Lookup returns the spec registered for a master cell name
func (l *Library) Lookup(cell string) (GateSpec, bool) {
	spec, ok := l.specs[cell]
	return spec, ok
}

// Resolve returns the spec of an instance's master cell
func (l *Library) Resolve(inst *Instance) (GateSpec, bool) {
	return l.Lookup(inst.Master.Name)
}

// IsSequential returns true if inst is a known flip-flop
func (l *Library) IsSequential(inst *Instance) bool {
	spec, ok := l.Resolve(inst)
	return ok && spec.Kind.IsSequential()
}

// Len returns the number of cells in the catalog
func (l *Library) Len() int {
	return len(l.specs)
}

// CellConfig is one entry of a library file
type CellConfig struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`
	Arity int    `yaml:"arity,omitempty"`
	Data  string `yaml:"data,omitempty"`
	State string `yaml:"state,omitempty"`
}

// GlobalsConfig lists the reserved power and ground node names
type GlobalsConfig struct {
	Power  []string `yaml:"power"`
	Ground []string `yaml:"ground"`
}

// LibraryConfig is the YAML schema of a gate library file
type LibraryConfig struct {
	Cells   []CellConfig   `yaml:"cells"`
	Globals *GlobalsConfig `yaml:"globals,omitempty"`
}

// Apply merges the configuration into lib and globals. A globals section
// replaces the existing global set entirely.
func (cfg *LibraryConfig) Apply(lib *Library, globals Globals) error {
	for i, cc := range cfg.Cells {
		kind, ok := ParseGateKind(cc.Kind)
		if !ok {
			return errors.Errorf("library: cells[%d] (%s): unknown kind %q", i, cc.Name, cc.Kind)
		}
		spec := GateSpec{Cell: cc.Name, Kind: kind, Arity: cc.Arity, Data: cc.Data, State: cc.State}
		if err := lib.Add(spec); err != nil {
			return errors.Wrapf(err, "cells[%d]", i)
		}
	}

	if cfg.Globals != nil {
		for name := range globals {
			delete(globals, name)
		}
		for _, name := range cfg.Globals.Power {
			globals[name] = One
		}
		for _, name := range cfg.Globals.Ground {
			if v, dup := globals[name]; dup && v != Zero {
				return errors.Errorf("library: global %s is both power and ground", name)
			}
			globals[name] = Zero
		}
	}
	return nil
}

// ParseLibraryConfig decodes a YAML gate library
func ParseLibraryConfig(data []byte) (*LibraryConfig, error) {
	cfg := &LibraryConfig{}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, errors.Wrap(err, "library: invalid YAML")
	}
	return cfg, nil
}

// LoadLibrary reads a YAML library file and merges it over the built-in catalog
func LoadLibrary(path string) (*Library, Globals, error) {
	lib := DefaultLibrary()
	globals := DefaultGlobals()
	if path == "" {
		return lib, globals, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to read library")
	}
	cfg, err := ParseLibraryConfig(data)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "%s", path)
	}
	if err := cfg.Apply(lib, globals); err != nil {
		return nil, nil, errors.Wrapf(err, "%s", path)
	}
	return lib, globals, nil
}
