// Package normalize rewrites every measurement of a category onto its
// canonical analyte name and unit. Conversions are linear scalars only;
// values keep full floating-point precision. Must run before any
// aggregation: averaging rows that still carry mixed units would mix
// incompatible scales.
package normalize

import (
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/estuarylabs/chemclean/internal/model"
	"github.com/estuarylabs/chemclean/internal/table"
)

// ErrUnitMismatch reports a violation of the single-unit postcondition.
var ErrUnitMismatch = errors.New("mixed units after normalization")

// Stats is the audit trail of one normalization pass.
type Stats struct {
	RowsIn    int
	RowsOut   int
	Converted int            // value rewritten onto the canonical unit
	Relabeled int            // unit string rewritten, value untouched
	Merged    int            // analyte renamed onto its canonical identifier
	Dropped   map[string]int // removed rows, keyed by reason
}

func (s *Stats) drop(reason string) {
	if s.Dropped == nil {
		s.Dropped = map[string]int{}
	}
	s.Dropped[reason]++
}

func (s *Stats) add(o Stats) {
	s.RowsIn += o.RowsIn
	s.RowsOut += o.RowsOut
	s.Converted += o.Converted
	s.Relabeled += o.Relabeled
	s.Merged += o.Merged
	for r, n := range o.Dropped {
		if s.Dropped == nil {
			s.Dropped = map[string]int{}
		}
		s.Dropped[r] += n
	}
}

// Category normalizes the rows of one category and returns them. Rows
// of other categories in t are ignored. Order inside the pass matters:
// analyte merges first, so unit rules and drops see canonical names.
func Category(m *model.Model, cat model.Category, t table.Table) (table.Table, Stats) {
	var st Stats
	out := make(table.Table, 0, len(t))
	for _, row := range t {
		if row.Category != string(cat) {
			continue
		}
		st.RowsIn++

		if target := m.MergeTarget(cat, row.Analyte); target != row.Analyte {
			row.Analyte = target
			st.Merged++
		}

		if reason, ok := m.DropReason(cat, row.Analyte); ok {
			st.drop(reason)
			continue
		}

		rule, ok := m.RuleFor(cat, row.Analyte, row.Matrix)
		if !ok {
			st.drop(fmt.Sprintf("no unit rule for matrix %s", row.Matrix))
			continue
		}
		unit := table.CanonicalUnit(row.Unit)
		switch {
		case unit == table.CanonicalUnit(rule.Canonical):
			if row.Unit != rule.Canonical {
				st.Relabeled++
			}
			row.Unit = rule.Canonical
		default:
			conv, found := findConversion(rule, unit)
			if !found {
				st.drop(fmt.Sprintf("unit %s not comparable to %s", row.Unit, rule.Canonical))
				continue
			}
			if conv.Divide != 0 || conv.Multiply != 0 {
				row.Result = conv.Apply(row.Result)
				st.Converted++
			} else {
				st.Relabeled++
			}
			row.Unit = rule.Canonical
		}

		out = append(out, row)
		st.RowsOut++
	}

	var dropped int
	for _, n := range st.Dropped {
		dropped += n
	}
	log.WithFields(log.Fields{
		"category":  cat,
		"rows_in":   st.RowsIn,
		"rows_out":  st.RowsOut,
		"converted": st.Converted,
		"relabeled": st.Relabeled,
		"merged":    st.Merged,
		"dropped":   dropped,
	}).Info("normalize: category pass")
	for reason, n := range st.Dropped {
		log.WithFields(log.Fields{"category": cat, "reason": reason, "rows": n}).Debug("normalize: dropped rows")
	}
	return out, st
}

func findConversion(rule model.UnitRule, canonUnit string) (model.Conversion, bool) {
	for _, c := range rule.Convert {
		if table.CanonicalUnit(c.From) == canonUnit {
			return c, true
		}
	}
	return model.Conversion{}, false
}

// All runs the category passes in the fixed model order, concatenates
// the results, and enforces the single-unit postcondition.
func All(m *model.Model, t table.Table) (table.Table, Stats, error) {
	var st Stats
	parts := make([]table.Table, 0, len(model.Order))
	for _, cat := range model.Order {
		part, cst := Category(m, cat, t)
		st.add(cst)
		parts = append(parts, part)
	}
	out := table.Concat(parts...)
	if err := CheckUniform(out); err != nil {
		return nil, st, err
	}
	return out, st, nil
}

// CheckUniform asserts that grouping by (category, analyte, matrix)
// yields exactly one distinct unit. The source relied on curation alone
// for this guarantee; here it is enforced.
func CheckUniform(t table.Table) error {
	type key struct {
		cat     string
		analyte string
		matrix  table.Matrix
	}
	units := map[key]string{}
	for _, m := range t {
		k := key{m.Category, m.Analyte, m.Matrix}
		if prev, ok := units[k]; ok {
			if prev != m.Unit {
				return fmt.Errorf("%w: %s/%s/%s has both %q and %q",
					ErrUnitMismatch, m.Category, m.Analyte, m.Matrix, prev, m.Unit)
			}
			continue
		}
		units[k] = m.Unit
	}
	return nil
}
