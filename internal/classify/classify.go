// Package classify assigns each measurement its conceptual-model
// category and filters out everything the model does not cover. The
// source notebooks dropped unmatched analytes silently; here every
// removal is counted and logged.
package classify

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/apex/log"
	"github.com/estuarylabs/chemclean/internal/model"
	"github.com/estuarylabs/chemclean/internal/table"
)

// LookupRow is one line of the analyte-to-category lookup output.
type LookupRow struct {
	Analyte  string
	Category model.Category
}

// Result carries the categorized table plus the audit trail of the
// stage.
type Result struct {
	Table table.Table
	// Lookup maps every distinct analyte seen in the input, including
	// the unmatched ones (empty category), sorted by analyte.
	Lookup []LookupRow
	// Dropped counts removed rows keyed by analyte.
	Dropped map[string]int
	RowsIn  int
	RowsOut int
}

// Apply tags each row with its category via exact match against the
// curated lists and removes rows whose analyte is outside the model.
func Apply(m *model.Model, t table.Table) Result {
	res := Result{Dropped: map[string]int{}, RowsIn: len(t)}
	seen := map[string]model.Category{}
	out := make(table.Table, 0, len(t))
	for _, row := range t {
		cat, ok := m.Classify(row.Analyte)
		if ok {
			seen[row.Analyte] = cat
			row.Category = string(cat)
			out = append(out, row)
			continue
		}
		seen[row.Analyte] = ""
		res.Dropped[row.Analyte]++
	}
	res.Table = out
	res.RowsOut = len(out)

	analytes := make([]string, 0, len(seen))
	for a := range seen {
		analytes = append(analytes, a)
	}
	sort.Strings(analytes)
	for _, a := range analytes {
		res.Lookup = append(res.Lookup, LookupRow{Analyte: a, Category: seen[a]})
	}

	var droppedRows int
	for _, n := range res.Dropped {
		droppedRows += n
	}
	log.WithFields(log.Fields{
		"rows_in":           res.RowsIn,
		"rows_out":          res.RowsOut,
		"dropped_rows":      droppedRows,
		"dropped_analytes":  len(res.Dropped),
		"distinct_analytes": len(seen),
	}).Info("classify: assigned categories")
	for _, a := range analytes {
		if n, ok := res.Dropped[a]; ok {
			log.WithFields(log.Fields{"analyte": a, "rows": n}).Debug("classify: outside conceptual model")
		}
	}
	return res
}

// WriteLookupCSV serializes the analyte-to-category lookup table.
// Unmatched analytes appear with an empty category so the curation gap
// is visible in the output.
func WriteLookupCSV(w io.Writer, rows []LookupRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"analyte", "category"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Analyte, string(r.Category)}); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
