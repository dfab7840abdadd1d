package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Exit codes
const (
	exitError   = 1
	exitUsage   = 2
	exitDiffers = 3
)

// errDiffers is returned by equiv --fail-on-diff when the circuits differ
var errDiffers = errors.New("circuits are not equivalent")

// usageError marks bad command-line input
type usageError struct {
	err error
}

func (e *usageError) Error() string {
	return e.err.Error()
}

// usageArgs wraps an argument validator so its failures exit with exitUsage
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &usageError{err}
		}
		return nil
	}
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "gatecheck",
	Short:         "Logic depth ranking and combinational equivalence checking for gate netlists.",
	Long:          "Ranks the leaf instances of a structural Verilog netlist by logic depth and proves or refutes the combinational equivalence of two netlists with a SAT solver.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	addSessionFlags(rootCmd.PersistentFlags())
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err}
	})

	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(equivCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	if errors.Is(err, errDiffers) {
		os.Exit(exitDiffers)
	}

	fmt.Fprintf(os.Stderr, "-E- %v\n", err)
	var usage *usageError
	if errors.As(err, &usage) {
		fmt.Fprintln(os.Stderr, "Run 'gatecheck --help' for usage.")
		os.Exit(exitUsage)
	}
	os.Exit(exitError)
}
