package utils

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/fyerfyer/gatecheck/pkg/circuit"
)

//go:embed stdcells.v
var builtinCells string

// BuiltinCellsName is the file name reported for the embedded cell library
const BuiltinCellsName = "<stdcells>"

// Regular expressions for tokenizing structural Verilog
var (
	blockCommentRegex = regexp.MustCompile(`(?s)/\*.*?\*/`)
	tokenRegex        = regexp.MustCompile(`\\\S+|[A-Za-z_][A-Za-z0-9_$]*|[0-9]+'?[A-Za-z0-9_]*|\S`)
)

// SyntaxError reports a netlist construct that could not be parsed
type SyntaxError struct {
	File string
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

type token struct {
	text string
	line int
}

type portDecl struct {
	name string
	dir  circuit.PortDir
	set  bool // Direction has been declared
}

type connection struct {
	port string // Empty for positional connections
	net  string // Empty for an explicitly unconnected port
}

type instanceDecl struct {
	master string
	name   string
	line   int
	conns  []connection
}

type moduleDecl struct {
	name      string
	file      string
	line      int
	ports     []*portDecl
	portIndex map[string]*portDecl
	nets      []string
	instances []*instanceDecl
}

// VerilogParser accumulates module definitions from one or more netlist files
type VerilogParser struct {
	logger  *Logger
	modules []*moduleDecl
	byName  map[string]*moduleDecl
}

// NewVerilogParser creates a parser with no modules
func NewVerilogParser(logger *Logger) *VerilogParser {
	if logger == nil {
		logger = NewDiscardLogger()
	}
	return &VerilogParser{
		logger: logger,
		byName: make(map[string]*moduleDecl),
	}
}

// ParseBuiltinCells reads the embedded standard-cell library
func (p *VerilogParser) ParseBuiltinCells() error {
	return p.ParseString(BuiltinCellsName, builtinCells)
}

// ParseFile reads a structural Verilog file
func (p *VerilogParser) ParseFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrap(err, "failed to read netlist")
	}
	return p.ParseString(filename, string(data))
}

// ParseString reads structural Verilog source. Every syntax error in the
// source is reported; modules parsed without error are kept.
func (p *VerilogParser) ParseString(filename, src string) error {
	toks := tokenize(src)
	p.logger.Parse("%s: %d tokens", filename, len(toks))

	r := &reader{file: filename, toks: toks}
	var result *multierror.Error
	for !r.done() {
		if r.peek() != "module" {
			result = multierror.Append(result, r.errorf("expected 'module', found %q", r.peek()))
			r.next()
			continue
		}
		m, err := r.module()
		if err != nil {
			result = multierror.Append(result, err)
		}
		if m == nil {
			continue
		}
		if err := p.define(m); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (p *VerilogParser) define(m *moduleDecl) error {
	if prev, ok := p.byName[m.name]; ok {
		if len(prev.instances) > 0 {
			return &SyntaxError{File: m.file, Line: m.line,
				Msg: fmt.Sprintf("module %s already defined at %s:%d", m.name, prev.file, prev.line)}
		}
		p.logger.Parse("module %s redefined at %s:%d", m.name, m.file, m.line)
		for i, old := range p.modules {
			if old == prev {
				p.modules = append(p.modules[:i], p.modules[i+1:]...)
				break
			}
		}
	}
	p.byName[m.name] = m
	p.modules = append(p.modules, m)
	p.logger.Parse("module %s: %d ports, %d instances", m.name, len(m.ports), len(m.instances))
	return nil
}

// Build links all parsed modules into a design. Masters are resolved by
// name across every file read so far.
func (p *VerilogParser) Build(name string) (*circuit.Design, error) {
	d := circuit.NewDesign(name)
	var result *multierror.Error

	cells := make(map[string]*circuit.Cell, len(p.modules))
	for _, m := range p.modules {
		c := circuit.NewCell(m.name)
		for _, pd := range m.ports {
			if !pd.set {
				result = multierror.Append(result, &SyntaxError{File: m.file, Line: m.line,
					Msg: fmt.Sprintf("module %s: port %s has no direction", m.name, pd.name)})
			}
			if _, err := c.AddPort(pd.name, pd.dir); err != nil {
				result = multierror.Append(result, err)
			}
		}
		for _, net := range m.nets {
			c.AddNode(net)
		}
		cells[m.name] = c
	}

	for _, m := range p.modules {
		c := cells[m.name]
		for _, id := range m.instances {
			if err := p.place(c, m, id, cells); err != nil {
				result = multierror.Append(result, err)
			}
		}
		if err := d.AddCell(c); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// place adds one instance to c and wires its connections
func (p *VerilogParser) place(c *circuit.Cell, m *moduleDecl, id *instanceDecl, cells map[string]*circuit.Cell) error {
	master, ok := cells[id.master]
	if !ok {
		return &SyntaxError{File: m.file, Line: id.line,
			Msg: fmt.Sprintf("instance %s: unknown module %s", id.name, id.master)}
	}
	inst, err := c.AddInstance(id.name, master)
	if err != nil {
		return errors.Wrapf(err, "%s:%d", m.file, id.line)
	}

	ports := master.OrderedPorts()
	for i, conn := range id.conns {
		portName := conn.port
		if portName == "" {
			if i >= len(ports) {
				return &SyntaxError{File: m.file, Line: id.line,
					Msg: fmt.Sprintf("instance %s: %d connections for %d ports of %s",
						id.name, len(id.conns), len(ports), master.Name)}
			}
			portName = ports[i].Name
		}
		if conn.net == "" {
			continue
		}
		if _, declared := c.Nodes[conn.net]; !declared {
			p.logger.Parse("%s: implicit net %s", m.name, conn.net)
		}
		if err := c.Connect(inst, portName, conn.net); err != nil {
			return errors.Wrapf(err, "%s:%d", m.file, id.line)
		}
	}
	return nil
}

// ParseNetlist reads the given files, preceded by the built-in cells unless
// builtins is false, and links them into a design
func ParseNetlist(name string, files []string, builtins bool, logger *Logger) (*circuit.Design, error) {
	p := NewVerilogParser(logger)
	if builtins {
		if err := p.ParseBuiltinCells(); err != nil {
			return nil, err
		}
	}
	for _, f := range files {
		if err := p.ParseFile(f); err != nil {
			return nil, err
		}
	}
	return p.Build(name)
}

// DesignName derives a design name from the first netlist file
func DesignName(files []string) string {
	if len(files) == 0 {
		return "design"
	}
	base := filepath.Base(files[0])
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// tokenize strips comments and splits the source into tokens with line numbers
func tokenize(src string) []token {
	// Keep newlines of block comments so line numbers survive
	src = blockCommentRegex.ReplaceAllStringFunc(src, func(c string) string {
		return strings.Repeat("\n", strings.Count(c, "\n"))
	})

	var toks []token
	for i, line := range strings.Split(src, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		for _, t := range tokenRegex.FindAllString(line, -1) {
			toks = append(toks, token{text: t, line: i + 1})
		}
	}
	return toks
}

// reader is a cursor over the token stream of one file
type reader struct {
	file string
	toks []token
	pos  int
}

func (r *reader) done() bool {
	return r.pos >= len(r.toks)
}

func (r *reader) peek() string {
	if r.done() {
		return ""
	}
	return r.toks[r.pos].text
}

func (r *reader) line() int {
	if r.done() {
		if len(r.toks) == 0 {
			return 1
		}
		return r.toks[len(r.toks)-1].line
	}
	return r.toks[r.pos].line
}

func (r *reader) next() string {
	t := r.peek()
	if !r.done() {
		r.pos++
	}
	return t
}

func (r *reader) errorf(format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{File: r.file, Line: r.line(), Msg: fmt.Sprintf(format, args...)}
}

func (r *reader) expect(text string) error {
	if r.peek() != text {
		if r.done() {
			return r.errorf("expected %q, found end of file", text)
		}
		return r.errorf("expected %q, found %q", text, r.peek())
	}
	r.next()
	return nil
}

var keywords = map[string]bool{
	"module": true, "endmodule": true, "input": true, "output": true, "inout": true,
	"wire": true, "supply0": true, "supply1": true, "assign": true,
}

func (r *reader) identifier() (string, error) {
	t := r.peek()
	if r.done() {
		return "", r.errorf("expected identifier, found end of file")
	}
	if t == "[" {
		return "", r.errorf("vectors are not supported")
	}
	if strings.HasPrefix(t, `\`) && len(t) > 1 {
		r.next()
		return t[1:], nil
	}
	if keywords[t] || !isIdentifier(t) {
		return "", r.errorf("expected identifier, found %q", t)
	}
	r.next()
	return t, nil
}

func isIdentifier(t string) bool {
	c := t[0]
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// skipStatement moves past the next ';' without leaving the module
func (r *reader) skipStatement() {
	for !r.done() {
		switch r.peek() {
		case ";":
			r.next()
			return
		case "endmodule":
			return
		}
		r.next()
	}
}

func direction(kw string) (circuit.PortDir, bool) {
	switch kw {
	case "input":
		return circuit.In, true
	case "output":
		return circuit.Out, true
	case "inout":
		return circuit.InOut, true
	default:
		return circuit.In, false
	}
}

// module parses one module. A module whose header is malformed is dropped;
// errors in its body are reported and the statement is skipped.
func (r *reader) module() (*moduleDecl, error) {
	start := r.line()
	r.next() // module

	name, err := r.identifier()
	if err != nil {
		r.skipModule()
		return nil, err
	}
	m := &moduleDecl{name: name, file: r.file, line: start, portIndex: make(map[string]*portDecl)}

	if r.peek() == "(" {
		if err := r.portList(m); err != nil {
			r.skipModule()
			return nil, err
		}
	}
	if err := r.expect(";"); err != nil {
		r.skipModule()
		return nil, err
	}

	var result *multierror.Error
	for r.peek() != "endmodule" {
		if r.done() || r.peek() == "module" {
			result = multierror.Append(result, r.errorf("module %s: missing endmodule", name))
			return m, result.ErrorOrNil()
		}
		if err := r.item(m); err != nil {
			result = multierror.Append(result, err)
			r.skipStatement()
		}
	}
	r.next() // endmodule
	return m, result.ErrorOrNil()
}

func (r *reader) skipModule() {
	for !r.done() && r.peek() != "endmodule" {
		r.next()
	}
	r.next()
}

func (m *moduleDecl) addPort(name string) (*portDecl, bool) {
	if pd, ok := m.portIndex[name]; ok {
		return pd, false
	}
	pd := &portDecl{name: name}
	m.portIndex[name] = pd
	m.ports = append(m.ports, pd)
	return pd, true
}

// portList parses either "(a, b, c)" or the ANSI "(input a, b, output y)" form
func (r *reader) portList(m *moduleDecl) error {
	r.next() // (
	if r.peek() == ")" {
		r.next()
		return nil
	}

	var dir circuit.PortDir
	ansi := false
	for {
		if d, ok := direction(r.peek()); ok {
			dir, ansi = d, true
			r.next()
			if r.peek() == "wire" {
				r.next()
			}
		}
		name, err := r.identifier()
		if err != nil {
			return err
		}
		pd, fresh := m.addPort(name)
		if !fresh {
			return r.errorf("module %s: port %s listed twice", m.name, name)
		}
		if ansi {
			pd.dir, pd.set = dir, true
		}

		switch r.next() {
		case ",":
			continue
		case ")":
			return nil
		default:
			return r.errorf("module %s: malformed port list", m.name)
		}
	}
}

// identifierList parses "a, b, c ;"
func (r *reader) identifierList() ([]string, error) {
	var names []string
	for {
		name, err := r.identifier()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		switch r.peek() {
		case ",":
			r.next()
		case ";":
			r.next()
			return names, nil
		default:
			return nil, r.errorf("expected ',' or ';', found %q", r.peek())
		}
	}
}

// item parses one module item
func (r *reader) item(m *moduleDecl) error {
	kw := r.peek()
	if d, ok := direction(kw); ok {
		r.next()
		if r.peek() == "wire" {
			r.next()
		}
		names, err := r.identifierList()
		if err != nil {
			return err
		}
		for _, name := range names {
			pd, ok := m.portIndex[name]
			if !ok {
				return r.errorf("module %s: %s %s is not in the port list", m.name, kw, name)
			}
			if pd.set && pd.dir != d {
				return r.errorf("module %s: port %s declared %s and %s", m.name, name, pd.dir, d)
			}
			pd.dir, pd.set = d, true
		}
		return nil
	}

	switch kw {
	case "wire", "supply0", "supply1":
		r.next()
		names, err := r.identifierList()
		if err != nil {
			return err
		}
		m.nets = append(m.nets, names...)
		return nil
	case "assign":
		return r.errorf("continuous assignments are not supported")
	}

	return r.instances(m)
}

// instances parses "master name (conns) [, name (conns)] ;"
func (r *reader) instances(m *moduleDecl) error {
	master, err := r.identifier()
	if err != nil {
		return err
	}
	if r.peek() == "#" {
		return r.errorf("instance of %s: parameters are not supported", master)
	}

	for {
		line := r.line()
		name, err := r.identifier()
		if err != nil {
			return err
		}
		if err := r.expect("("); err != nil {
			return err
		}
		conns, err := r.connections()
		if err != nil {
			return err
		}
		m.instances = append(m.instances, &instanceDecl{master: master, name: name, line: line, conns: conns})

		switch r.next() {
		case ",":
			continue
		case ";":
			return nil
		default:
			return r.errorf("instance %s: expected ';'", name)
		}
	}
}

// connections parses the list after "(" up to and including ")"
func (r *reader) connections() ([]connection, error) {
	var conns []connection
	if r.peek() == ")" {
		r.next()
		return conns, nil
	}

	named := r.peek() == "."
	for {
		var c connection
		if named {
			if err := r.expect("."); err != nil {
				return nil, r.errorf("cannot mix named and positional connections")
			}
			port, err := r.identifier()
			if err != nil {
				return nil, err
			}
			c.port = port
			if err := r.expect("("); err != nil {
				return nil, err
			}
			if r.peek() != ")" {
				net, err := r.identifier()
				if err != nil {
					return nil, err
				}
				c.net = net
			}
			if err := r.expect(")"); err != nil {
				return nil, err
			}
		} else {
			if r.peek() == "." {
				return nil, r.errorf("cannot mix named and positional connections")
			}
			if r.peek() != "," && r.peek() != ")" {
				net, err := r.identifier()
				if err != nil {
					return nil, err
				}
				c.net = net
			}
		}
		conns = append(conns, c)

		switch r.next() {
		case ",":
			continue
		case ")":
			return conns, nil
		default:
			return nil, r.errorf("malformed connection list")
		}
	}
}
