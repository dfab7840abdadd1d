package main

import (
	"github.com/spf13/cobra"

	"github.com/fyerfyer/gatecheck/pkg/algorithm"
)

var rankCmd = &cobra.Command{
	Use:   "rank <top> <file.v>...",
	Short: "Rank the leaf instances of a netlist by logic depth.",
	Long: `Flattens the top cell and labels every leaf instance with the length of the
longest path from a primary input. Instances fed only by primary inputs get
rank 0. Flip-flop outputs count as primary inputs.`,
	Args: usageArgs(cobra.MinimumNArgs(2)),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		top, files := args[0], args[1:]
		output, _ := cmd.Flags().GetString("output")
		strict, _ := cmd.Flags().GetBool("strict-drivers")
		if output == "" {
			output = top + ".rank"
		}

		flat, err := s.loadFlat(top, files)
		if err != nil {
			return err
		}
		entries, err := algorithm.RankCell(flat, s.globals, algorithm.GraphOptions{
			Library:       s.lib,
			StrictDrivers: strict,
			Logger:        s.logger,
		})
		if err != nil {
			return err
		}

		if output == "-" {
			return algorithm.WriteRankReport(cmd.OutOrStdout(), entries)
		}
		if err := algorithm.WriteRankFile(output, entries); err != nil {
			return err
		}
		s.logger.Info("Wrote %d ranks to %s", len(entries), output)
		return nil
	},
}

func init() {
	rankCmd.Flags().StringP("output", "o", "", "rank report file, - for stdout (default <top>.rank)")
	rankCmd.Flags().Bool("strict-drivers", false, "fail on nodes driven by more than one output")
}
