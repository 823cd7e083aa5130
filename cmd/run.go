package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/estuarylabs/chemclean/internal/model"
	"github.com/estuarylabs/chemclean/internal/pipeline"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the whole cleaning pipeline end-to-end",
	Long: `Fetches both agency exports, merges them, classifies analytes against
the conceptual model, normalizes units per category, and writes the
long and wide output tables plus a run report to the output directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("no configuration loaded")
		}
		m, err := model.Load()
		if err != nil {
			return err
		}
		rep, err := pipeline.Run(cfg, m)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Run %s complete\n", rep.RunID)
		fmt.Printf("  loaded %d rows (window %s..%s)\n", rep.Load.Rows, rep.Window.From, rep.Window.To)
		fmt.Printf("  classified %d rows, dropped %d unmatched analytes\n",
			rep.Classify.RowsOut, len(rep.Classify.DroppedAnalytes))
		fmt.Printf("  normalized %d rows (%d converted, %d relabeled, %d merged)\n",
			rep.Normalize.RowsOut, rep.Normalize.Converted, rep.Normalize.Relabeled, rep.Normalize.Merged)
		for _, o := range rep.Outputs {
			fmt.Printf("  wrote %s (%d rows)\n", filepath.Join(cfg.OutputDir, o.File), o.Rows)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
