package table

import (
	"sort"
	"strings"
	"time"
)

// Matrix is the sampled medium of a measurement.
type Matrix string

const (
	MatrixWater    Matrix = "water"
	MatrixSediment Matrix = "sediment"
)

// Measurement is one row of the long-format table: a single analyte
// result at a station on a date.
type Measurement struct {
	Analyte   string
	Result    float64
	Unit      string
	Matrix    Matrix
	Date      time.Time
	Station   string
	Latitude  float64
	Longitude float64
	Subregion string
	// Category is empty until the classifier assigns one; rows that
	// remain empty are excluded from every downstream output.
	Category string
}

// Table is a long-format table of measurements. Stages take a Table and
// return a new one; rows are never mutated in place across stages.
type Table []Measurement

// Filter returns the rows for which keep is true.
func (t Table) Filter(keep func(Measurement) bool) Table {
	out := make(Table, 0, len(t))
	for _, m := range t {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

// ByMatrix returns only the rows of the given matrix.
func (t Table) ByMatrix(mx Matrix) Table {
	return t.Filter(func(m Measurement) bool { return m.Matrix == mx })
}

// Analytes returns the sorted distinct analyte names in the table.
func (t Table) Analytes() []string {
	seen := map[string]bool{}
	for _, m := range t {
		seen[m.Analyte] = true
	}
	out := make([]string, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Concat appends the rows of others after t, preserving order.
func Concat(tables ...Table) Table {
	var n int
	for _, t := range tables {
		n += len(t)
	}
	out := make(Table, 0, n)
	for _, t := range tables {
		out = append(out, t...)
	}
	return out
}

// CanonicalAnalyte normalizes a raw analyte name: lowercase, separators
// collapsed to single spaces, symbols removed. "Diazinon-Oxon " and
// "diazinon oxon" map to the same key.
func CanonicalAnalyte(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevSpace = false
		case r == ' ', r == '-', r == '_', r == '\t':
			if !prevSpace && b.Len() > 0 {
				b.WriteByte(' ')
				prevSpace = true
			}
		default:
			// drop parens, commas and other symbols outright
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// CanonicalUnit normalizes a unit label for comparison only: lowercase,
// micro sign folded to "u", inner whitespace collapsed. The display form
// of a unit is whatever the rules declare canonical.
func CanonicalUnit(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.ReplaceAll(s, "µ", "u") // micro sign
	s = strings.ReplaceAll(s, "μ", "u") // greek mu
	return strings.Join(strings.Fields(s), " ")
}

// ParseMatrix maps the matrix labels used by the source agencies onto
// the two media the pipeline models.
func ParseMatrix(s string) (Matrix, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "water", "samplewater", "surface water", "filtered water", "w":
		return MatrixWater, true
	case "sediment", "samplesediment", "bed sediment", "sed", "s":
		return MatrixSediment, true
	}
	return "", false
}
