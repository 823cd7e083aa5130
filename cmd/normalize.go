package cmd

import (
	"fmt"
	"os"

	"github.com/estuarylabs/chemclean/internal/model"
	"github.com/estuarylabs/chemclean/internal/normalize"
	"github.com/estuarylabs/chemclean/internal/table"
	"github.com/spf13/cobra"
)

var nrmOutputPath string

var normalizeCmd = &cobra.Command{
	Use:   "normalize <categorized.csv>",
	Short: "Normalize units of an already-categorized long table",
	Long: `Reads a categorized long-format CSV (the classify output), merges
analyte name variants, rewrites every row onto its canonical unit, and
applies the curated drops. Fails if any (category, analyte, matrix)
group is left with mixed units.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := model.Load()
		if err != nil {
			return err
		}
		t, _, err := readLongFile(args[0])
		if err != nil {
			return err
		}
		uncategorized := len(t) - len(t.Filter(func(r table.Measurement) bool { return r.Category != "" }))
		if uncategorized > 0 {
			return fmt.Errorf("%d rows have no category; run classify first", uncategorized)
		}
		out, stats, err := normalize.All(m, t)
		if err != nil {
			return err
		}

		w := os.Stdout
		if nrmOutputPath != "" {
			f, err := os.Create(nrmOutputPath)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer f.Close()
			w = f
		}
		if err := table.WriteCSV(w, out); err != nil {
			return err
		}
		var dropped int
		for _, n := range stats.Dropped {
			dropped += n
		}
		fmt.Fprintf(os.Stderr, "✓ Normalized %d rows (%d converted, %d relabeled, %d merged, %d dropped)\n",
			stats.RowsOut, stats.Converted, stats.Relabeled, stats.Merged, dropped)
		return nil
	},
}

func init() {
	normalizeCmd.Flags().StringVarP(&nrmOutputPath, "output", "o", "", "write normalized table here instead of stdout")
	rootCmd.AddCommand(normalizeCmd)
}
