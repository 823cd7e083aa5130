// Package reshape pivots the normalized long table into the wide form
// the downstream Bayesian-network tool consumes: one row per sample
// date and location, one column per canonical analyte. Requires
// normalized input; aggregating mixed units would be meaningless.
package reshape

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/estuarylabs/chemclean/internal/table"
	"gonum.org/v1/gonum/stat"
)

// Wide is a pivoted table keyed by (date, latitude, longitude).
type Wide struct {
	Columns []string
	Rows    []Row
}

// Row is one wide record. Values holds the per-column group means;
// columns absent from the map are empty cells.
type Row struct {
	Date      time.Time
	Latitude  float64
	Longitude float64
	Subregion string
	Values    map[string]float64
}

// Build groups t by (date, latitude, longitude, analyte, matrix),
// averages duplicate measurements, and pivots analytes into columns.
// With suffixMatrix set, columns are named analyte_matrix, which the
// sediment output uses to stay distinguishable from water columns.
//
// Subregion is resolved per location group to the most frequent
// non-empty value, ties broken lexically. The source notebooks took
// whichever row happened to come first; this choice is deterministic
// regardless of input order.
func Build(t table.Table, suffixMatrix bool) Wide {
	type locKey struct {
		date     string
		lat, lon float64
	}
	type acc struct {
		row       Row
		vals      map[string][]float64
		subCounts map[string]int
	}
	groups := map[locKey]*acc{}
	colSet := map[string]bool{}
	var order []locKey

	for _, m := range t {
		col := m.Analyte
		if suffixMatrix {
			col = fmt.Sprintf("%s_%s", m.Analyte, m.Matrix)
		}
		colSet[col] = true
		k := locKey{m.Date.Format(table.DateLayout), m.Latitude, m.Longitude}
		g := groups[k]
		if g == nil {
			g = &acc{
				row:       Row{Date: m.Date, Latitude: m.Latitude, Longitude: m.Longitude},
				vals:      map[string][]float64{},
				subCounts: map[string]int{},
			}
			groups[k] = g
			order = append(order, k)
		}
		if !math.IsNaN(m.Result) {
			g.vals[col] = append(g.vals[col], m.Result)
		}
		if m.Subregion != "" {
			g.subCounts[m.Subregion]++
		}
	}

	cols := make([]string, 0, len(colSet))
	for c := range colSet {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.date != b.date {
			return a.date < b.date
		}
		if a.lat != b.lat {
			return a.lat < b.lat
		}
		return a.lon < b.lon
	})

	w := Wide{Columns: cols}
	for _, k := range order {
		g := groups[k]
		g.row.Values = make(map[string]float64, len(g.vals))
		for col, vs := range g.vals {
			g.row.Values[col] = stat.Mean(vs, nil)
		}
		g.row.Subregion = topSubregion(g.subCounts)
		w.Rows = append(w.Rows, g.row)
	}

	log.WithFields(log.Fields{
		"rows_in":  len(t),
		"rows_out": len(w.Rows),
		"columns":  len(w.Columns),
	}).Info("reshape: pivoted wide table")
	return w
}

func topSubregion(counts map[string]int) string {
	var best string
	var bestN int
	for s, n := range counts {
		if n > bestN || (n == bestN && (best == "" || s < best)) {
			best, bestN = s, n
		}
	}
	return best
}

// ColumnMeans returns the per-column mean and standard deviation across
// all wide rows that have the column, for the run report.
func (w Wide) ColumnMeans() map[string][2]float64 {
	out := make(map[string][2]float64, len(w.Columns))
	for _, col := range w.Columns {
		var vs []float64
		for _, r := range w.Rows {
			if v, ok := r.Values[col]; ok {
				vs = append(vs, v)
			}
		}
		if len(vs) == 0 {
			continue
		}
		out[col] = [2]float64{stat.Mean(vs, nil), stat.StdDev(vs, nil)}
	}
	return out
}

// WriteCSV serializes the wide table. Cells with no data stay empty.
func (w Wide) WriteCSV(out io.Writer) error {
	cw := csv.NewWriter(out)
	header := append([]string{"date", "latitude", "longitude", "subregion"}, w.Columns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(header))
	for _, r := range w.Rows {
		rec[0] = r.Date.Format(table.DateLayout)
		rec[1] = strconv.FormatFloat(r.Latitude, 'g', -1, 64)
		rec[2] = strconv.FormatFloat(r.Longitude, 'g', -1, 64)
		rec[3] = r.Subregion
		for i, col := range w.Columns {
			if v, ok := r.Values[col]; ok {
				rec[4+i] = strconv.FormatFloat(v, 'g', -1, 64)
			} else {
				rec[4+i] = ""
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
