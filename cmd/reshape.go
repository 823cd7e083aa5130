package cmd

import (
	"fmt"
	"os"

	"github.com/estuarylabs/chemclean/internal/normalize"
	"github.com/estuarylabs/chemclean/internal/reshape"
	"github.com/estuarylabs/chemclean/internal/table"
	"github.com/spf13/cobra"
)

var (
	rshOutputPath string
	rshMatrix     string
)

var reshapeCmd = &cobra.Command{
	Use:   "reshape <normalized.csv>",
	Short: "Pivot a normalized long table into wide format",
	Long: `Reads a normalized long-format CSV, groups by date and location,
averages duplicate measurements, and pivots analytes into columns.
The sediment output names its columns analyte_matrix. Refuses input
with mixed units: averaging them would mix incompatible scales.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mx, ok := table.ParseMatrix(rshMatrix)
		if !ok {
			return fmt.Errorf("unsupported --matrix: %s (use water or sediment)", rshMatrix)
		}
		t, _, err := readLongFile(args[0])
		if err != nil {
			return err
		}
		// Unit conversion must precede aggregation.
		if err := normalize.CheckUniform(t); err != nil {
			return fmt.Errorf("input not normalized: %w", err)
		}
		w := reshape.Build(t.ByMatrix(mx), mx == table.MatrixSediment)

		out := os.Stdout
		if rshOutputPath != "" {
			f, err := os.Create(rshOutputPath)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer f.Close()
			out = f
		}
		if err := w.WriteCSV(out); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Pivoted %d rows into %d wide records x %d analyte columns\n",
			len(t.ByMatrix(mx)), len(w.Rows), len(w.Columns))
		return nil
	},
}

func init() {
	reshapeCmd.Flags().StringVarP(&rshOutputPath, "output", "o", "", "write wide table here instead of stdout")
	reshapeCmd.Flags().StringVar(&rshMatrix, "matrix", "water", "matrix to pivot: water or sediment")
	rootCmd.AddCommand(reshapeCmd)
}
