package main

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/fyerfyer/gatecheck/pkg/circuit"
	"github.com/fyerfyer/gatecheck/pkg/utils"
)

// session holds what every subcommand needs: a logger, the gate library and
// the global node set
type session struct {
	logger   *utils.Logger
	lib      *circuit.Library
	globals  circuit.Globals
	builtins bool
}

// addSessionFlags registers the flags shared by every subcommand
func addSessionFlags(fs *pflag.FlagSet) {
	fs.CountP("verbose", "v", "increase logging verbosity (-vv for trace)")
	fs.String("log-file", "", "write the log to a file instead of stderr")
	fs.String("library", "", "YAML gate library merged over the built-in cells")
	fs.StringSlice("global", nil, "global constant node as NAME=0|1 (default VDD=1,VSS=0)")
	fs.Bool("no-builtin-cells", false, "do not read the built-in standard-cell netlist")
}

func newSession(cmd *cobra.Command) (*session, error) {
	flags := cmd.Flags()
	verbosity, _ := flags.GetCount("verbose")
	logFile, _ := flags.GetString("log-file")
	libFile, _ := flags.GetString("library")
	globalSpecs, _ := flags.GetStringSlice("global")
	noBuiltins, _ := flags.GetBool("no-builtin-cells")

	level := utils.VerbosityLevel(verbosity)
	var logger *utils.Logger
	if logFile != "" {
		var err error
		if logger, err = utils.NewFileLogger(level, logFile); err != nil {
			return nil, errors.Wrap(err, "failed to create log file")
		}
	} else {
		logger = utils.NewLogger(level)
		logger.SetColors(term.IsTerminal(int(os.Stderr.Fd())))
	}

	lib, globals, err := circuit.LoadLibrary(libFile)
	if err != nil {
		logger.Close()
		return nil, err
	}
	if len(globalSpecs) > 0 {
		if globals, err = parseGlobals(globalSpecs); err != nil {
			logger.Close()
			return nil, &usageError{err}
		}
	}
	logger.Debug("Library has %d cells, globals %s", lib.Len(), strings.Join(globals.Names(), ","))

	return &session{
		logger:   logger,
		lib:      lib,
		globals:  globals,
		builtins: !noBuiltins,
	}, nil
}

// parseGlobals reads NAME=0|1 entries
func parseGlobals(specs []string) (circuit.Globals, error) {
	globals := make(circuit.Globals, len(specs))
	for _, spec := range specs {
		name, value, found := strings.Cut(spec, "=")
		if !found || name == "" {
			return nil, errors.Errorf("invalid global %q (expected NAME=0 or NAME=1)", spec)
		}
		switch value {
		case "0":
			globals[name] = circuit.Zero
		case "1":
			globals[name] = circuit.One
		default:
			return nil, errors.Errorf("invalid value for global %s: %q", name, value)
		}
	}
	return globals, nil
}

func (s *session) close() {
	s.logger.Close()
}

// loadTop parses the netlist files and returns the hierarchical top cell
func (s *session) loadTop(top string, files []string) (*circuit.Cell, error) {
	s.logger.Info("Reading %s", strings.Join(files, ", "))
	design, err := utils.ParseNetlist(utils.DesignName(files), files, s.builtins, s.logger)
	if err != nil {
		return nil, err
	}
	cell, err := design.Cell(top)
	if err != nil {
		return nil, errors.Wrap(err, "top cell")
	}
	return cell, nil
}

// loadFlat parses the netlist files and flattens the top cell
func (s *session) loadFlat(top string, files []string) (*circuit.Cell, error) {
	cell, err := s.loadTop(top, files)
	if err != nil {
		return nil, err
	}
	flat, err := circuit.Flatten(top, cell, s.globals)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Flattened %s: %d instances, %d nodes", top, len(flat.Instances), len(flat.Nodes))
	return flat, nil
}

// openOutput returns stdout for "-" and a new file otherwise
func openOutput(stdout io.Writer, path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopCloser{stdout}, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create output")
	}
	return file, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}
