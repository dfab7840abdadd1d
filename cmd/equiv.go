package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fyerfyer/gatecheck/pkg/algorithm"
)

var equivCmd = &cobra.Command{
	Use:   "equiv --spec-top <cell> --spec <file.v>... --impl-top <cell> --impl <file.v>...",
	Short: "Check two netlists for combinational equivalence.",
	Long: `Builds a miter of the spec and implementation netlists and solves it.
Primary inputs and flip-flop states are matched by name. Prints NOT SATISFIABLE
when the circuits are equivalent, or SATISFIABLE followed by a distinguishing
input vector.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		flags := cmd.Flags()
		specTop, _ := flags.GetString("spec-top")
		specFiles, _ := flags.GetStringSlice("spec")
		implTop, _ := flags.GetString("impl-top")
		implFiles, _ := flags.GetStringSlice("impl")
		dimacs, _ := flags.GetString("dimacs")
		failOnDiff, _ := flags.GetBool("fail-on-diff")

		spec, err := s.loadFlat(specTop, specFiles)
		if err != nil {
			return errors.Wrap(err, "spec")
		}
		impl, err := s.loadFlat(implTop, implFiles)
		if err != nil {
			return errors.Wrap(err, "impl")
		}

		result, err := algorithm.CheckEquivalence(spec, impl, s.lib, s.globals, s.logger,
			algorithm.EquivOptions{DimacsPath: dimacs})
		if err != nil {
			return err
		}
		if err := result.Write(cmd.OutOrStdout()); err != nil {
			return err
		}

		if failOnDiff && !result.Equivalent() {
			return errDiffers
		}
		return nil
	},
}

func init() {
	equivCmd.Flags().String("spec-top", "", "top cell of the reference netlist")
	equivCmd.Flags().StringSlice("spec", nil, "reference netlist files")
	equivCmd.Flags().String("impl-top", "", "top cell of the implementation netlist")
	equivCmd.Flags().StringSlice("impl", nil, "implementation netlist files")
	equivCmd.Flags().String("dimacs", "", "write the complete CNF formula to this file")
	equivCmd.Flags().Bool("fail-on-diff", false, "exit with status 3 when the circuits differ")

	for _, name := range []string{"spec-top", "spec", "impl-top", "impl"} {
		if err := equivCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
}
