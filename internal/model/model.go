// Package model holds the conceptual model behind the cleaning
// pipeline: the fixed analyte categories, their hand-curated membership
// lists, and the unit rules that bring every (analyte, matrix) pair
// onto one canonical unit. The lists are immutable configuration,
// compiled in and parsed once at process start; nothing modifies them
// at run time.
package model

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/estuarylabs/chemclean/internal/table"
	"gopkg.in/yaml.v3"
)

// Category is one grouping of the conceptual model.
type Category string

const (
	WQP         Category = "WQP"
	Metal       Category = "Metal"
	OrganoP     Category = "OrganoP"
	Neon        Category = "Neon"
	Pyrethroids Category = "Pyrethroids"
	GABA        Category = "GABA"
	Glyphosate  Category = "Glyphosate"
	Atrazine    Category = "Atrazine"
)

// Order is the fixed processing order of the categories.
var Order = []Category{WQP, Metal, OrganoP, Neon, Pyrethroids, GABA, Glyphosate, Atrazine}

// Merge renames raw analyte variants onto one canonical identifier
// within a category. Result values are untouched.
type Merge struct {
	Category Category `yaml:"category"`
	Into     string   `yaml:"into"`
	From     []string `yaml:"from"`
}

// Conversion rewrites one source unit onto the rule's canonical unit by
// a linear scalar. Exactly one of Divide/Multiply is set; neither set
// means a relabel with no numeric change.
type Conversion struct {
	From     string  `yaml:"from"`
	Divide   float64 `yaml:"divide,omitempty"`
	Multiply float64 `yaml:"multiply,omitempty"`
}

// Apply converts v from the conversion's source unit.
func (c Conversion) Apply(v float64) float64 {
	switch {
	case c.Divide != 0:
		return v / c.Divide
	case c.Multiply != 0:
		return v * c.Multiply
	default:
		return v
	}
}

// UnitRule selects the canonical unit for rows of a category and
// matrix. A rule with Analyte set applies only to that analyte and
// takes precedence over the category-wide rule.
type UnitRule struct {
	Category  Category     `yaml:"category"`
	Analyte   string       `yaml:"analyte,omitempty"`
	Matrix    table.Matrix `yaml:"matrix"`
	Canonical string       `yaml:"canonical"`
	Convert   []Conversion `yaml:"convert,omitempty"`
}

// Drop removes an analyte from a category after inspection: either its
// unit basis is not comparable to the rest of the category, or it has
// too few replicate records to aggregate.
type Drop struct {
	Category Category `yaml:"category"`
	Analyte  string   `yaml:"analyte"`
	Reason   string   `yaml:"reason"`
}

// Model is the parsed, read-only conceptual model.
type Model struct {
	Categories map[Category][]string `yaml:"categories"`
	Merges     []Merge               `yaml:"merges"`
	UnitRules  []UnitRule            `yaml:"units"`
	Drops      []Drop                `yaml:"drops"`

	byAnalyte map[string]Category
}

//go:embed rules.yaml
var rulesYAML []byte

// Load parses the embedded conceptual model and verifies the curation
// invariants: category lists must be disjoint, and every merge source,
// unit-rule analyte, and drop target must belong to its category.
func Load() (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(rulesYAML, &m); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	m.byAnalyte = make(map[string]Category)
	for _, cat := range Order {
		for _, a := range m.Categories[cat] {
			key := table.CanonicalAnalyte(a)
			if prev, dup := m.byAnalyte[key]; dup {
				return nil, fmt.Errorf("analyte %q curated in both %s and %s", a, prev, cat)
			}
			m.byAnalyte[key] = cat
		}
	}
	for cat := range m.Categories {
		if !validCategory(cat) {
			return nil, fmt.Errorf("unknown category %q in rules", cat)
		}
	}
	for _, mg := range m.Merges {
		for _, from := range append([]string{mg.Into}, mg.From...) {
			if got, ok := m.byAnalyte[table.CanonicalAnalyte(from)]; !ok || got != mg.Category {
				return nil, fmt.Errorf("merge %s: %q is not curated under %s", mg.Into, from, mg.Category)
			}
		}
	}
	for _, d := range m.Drops {
		if got, ok := m.byAnalyte[table.CanonicalAnalyte(d.Analyte)]; !ok || got != d.Category {
			return nil, fmt.Errorf("drop %q is not curated under %s", d.Analyte, d.Category)
		}
	}
	for _, r := range m.UnitRules {
		if !validCategory(r.Category) {
			return nil, fmt.Errorf("unit rule for unknown category %q", r.Category)
		}
		if r.Canonical == "" {
			return nil, fmt.Errorf("unit rule %s/%s/%s has no canonical unit", r.Category, r.Analyte, r.Matrix)
		}
		if r.Analyte != "" {
			if got, ok := m.byAnalyte[table.CanonicalAnalyte(r.Analyte)]; !ok || got != r.Category {
				return nil, fmt.Errorf("unit rule analyte %q is not curated under %s", r.Analyte, r.Category)
			}
		}
	}
	return &m, nil
}

func validCategory(c Category) bool {
	for _, k := range Order {
		if k == c {
			return true
		}
	}
	return false
}

// Classify returns the category of a canonicalized analyte name, or
// false when the analyte is outside the conceptual model.
func (m *Model) Classify(analyte string) (Category, bool) {
	c, ok := m.byAnalyte[table.CanonicalAnalyte(analyte)]
	return c, ok
}

// Analytes returns the sorted membership list of a category.
func (m *Model) Analytes(cat Category) []string {
	out := append([]string(nil), m.Categories[cat]...)
	sort.Strings(out)
	return out
}

// MergeTarget returns the canonical analyte a raw name folds into
// within its category, or the name unchanged.
func (m *Model) MergeTarget(cat Category, analyte string) string {
	key := table.CanonicalAnalyte(analyte)
	for _, mg := range m.Merges {
		if mg.Category != cat {
			continue
		}
		for _, from := range mg.From {
			if table.CanonicalAnalyte(from) == key {
				return table.CanonicalAnalyte(mg.Into)
			}
		}
	}
	return key
}

// RuleFor returns the unit rule governing (cat, analyte, matrix): the
// analyte-specific rule when one exists, otherwise the category-wide
// rule for the matrix.
func (m *Model) RuleFor(cat Category, analyte string, mx table.Matrix) (UnitRule, bool) {
	key := table.CanonicalAnalyte(analyte)
	var fallback UnitRule
	var haveFallback bool
	for _, r := range m.UnitRules {
		if r.Category != cat || r.Matrix != mx {
			continue
		}
		if r.Analyte == "" {
			fallback, haveFallback = r, true
			continue
		}
		if table.CanonicalAnalyte(r.Analyte) == key {
			return r, true
		}
	}
	return fallback, haveFallback
}

// DropReason reports whether (cat, analyte) is curated out, and why.
func (m *Model) DropReason(cat Category, analyte string) (string, bool) {
	key := table.CanonicalAnalyte(analyte)
	for _, d := range m.Drops {
		if d.Category == cat && table.CanonicalAnalyte(d.Analyte) == key {
			return d.Reason, true
		}
	}
	return "", false
}
