package cmd

import (
	"fmt"
	"os"

	"github.com/estuarylabs/chemclean/internal/classify"
	"github.com/estuarylabs/chemclean/internal/model"
	"github.com/estuarylabs/chemclean/internal/table"
	"github.com/spf13/cobra"
)

var (
	clsOutputPath string
	clsLookupPath string
)

var classifyCmd = &cobra.Command{
	Use:   "classify <long.csv>",
	Short: "Tag a long-format table with conceptual-model categories",
	Long: `Reads a long-format measurement CSV, assigns each row its category by
exact match against the curated lists, and drops rows whose analyte is
outside the model. Useful for auditing one stage in isolation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := model.Load()
		if err != nil {
			return err
		}
		t, stats, err := readLongFile(args[0])
		if err != nil {
			return err
		}
		res := classify.Apply(m, t)

		out := os.Stdout
		if clsOutputPath != "" {
			f, err := os.Create(clsOutputPath)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer f.Close()
			out = f
		}
		if err := table.WriteCSV(out, res.Table); err != nil {
			return err
		}
		if clsLookupPath != "" {
			f, err := os.Create(clsLookupPath)
			if err != nil {
				return fmt.Errorf("create lookup output: %w", err)
			}
			defer f.Close()
			if err := classify.WriteLookupCSV(f, res.Lookup); err != nil {
				return err
			}
		}
		var droppedRows int
		for _, n := range res.Dropped {
			droppedRows += n
		}
		fmt.Fprintf(os.Stderr, "✓ Classified %d/%d rows (%d rows of %d analytes outside the model, %d unreadable)\n",
			res.RowsOut, stats.Rows, droppedRows, len(res.Dropped), stats.Rows-stats.Kept)
		return nil
	},
}

func init() {
	classifyCmd.Flags().StringVarP(&clsOutputPath, "output", "o", "", "write categorized table here instead of stdout")
	classifyCmd.Flags().StringVar(&clsLookupPath, "lookup", "", "also write the analyte-to-category lookup table")
	rootCmd.AddCommand(classifyCmd)
}

func readLongFile(path string) (table.Table, *table.ReadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	t, stats, err := table.ReadCSV(f, 0)
	if err != nil {
		return nil, nil, err
	}
	return t, stats, nil
}
