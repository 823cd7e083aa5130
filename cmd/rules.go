package cmd

import (
	"fmt"

	"github.com/estuarylabs/chemclean/internal/model"
	"github.com/estuarylabs/chemclean/internal/table"
	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the conceptual model: categories, analytes, canonical units",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := model.Load()
		if err != nil {
			return err
		}
		for _, cat := range model.Order {
			fmt.Printf("%s\n", cat)
			for _, a := range m.Analytes(cat) {
				line := "  " + a
				if target := m.MergeTarget(cat, a); target != table.CanonicalAnalyte(a) {
					line += fmt.Sprintf(" -> %s", target)
				}
				if reason, ok := m.DropReason(cat, a); ok {
					line += fmt.Sprintf(" (dropped: %s)", reason)
				} else {
					for _, mx := range []table.Matrix{table.MatrixWater, table.MatrixSediment} {
						if r, ok := m.RuleFor(cat, a, mx); ok {
							line += fmt.Sprintf(" [%s: %s]", mx, r.Canonical)
						}
					}
				}
				fmt.Println(line)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}
