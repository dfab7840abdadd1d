package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fyerfyer/gatecheck/pkg/circuit"
)

var statsCmd = &cobra.Command{
	Use:   "stats <top> <file.v>...",
	Short: "Report hierarchy statistics of a netlist.",
	Long: `Counts the nodes and instances of the top cell, the instances of --cell in
the folded and in the flattened hierarchy, and the deepest level any
top-level node reaches.`,
	Args: usageArgs(cobra.MinimumNArgs(2)),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		top, files := args[0], args[1:]
		cellName, _ := cmd.Flags().GetString("cell")
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = top + ".stat"
		}

		cell, err := s.loadTop(top, files)
		if err != nil {
			return err
		}
		stats, err := circuit.CollectStats(cell, cellName, s.globals)
		if err != nil {
			return err
		}

		w, err := openOutput(cmd.OutOrStdout(), output)
		if err != nil {
			return err
		}
		if err := stats.Write(w, filepath.Base(files[0])); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	},
}

func init() {
	statsCmd.Flags().String("cell", "and", "cell whose instances are counted")
	statsCmd.Flags().StringP("output", "o", "", "report file, - for stdout (default <top>.stat)")
}
