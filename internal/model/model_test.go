package model

import (
	"testing"

	"github.com/estuarylabs/chemclean/internal/table"
)

func TestLoad(t *testing.T) {
	m, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, cat := range Order {
		if len(m.Categories[cat]) == 0 {
			t.Fatalf("category %s has no curated analytes", cat)
		}
	}
}

func TestClassify(t *testing.T) {
	m, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cases := map[string]Category{
		"bifenthrin":    Pyrethroids,
		"Bifenthrin":    Pyrethroids,
		"diazinon oxon": OrganoP,
		"mercury":       Metal,
		"fipronil":      GABA,
		"imidacloprid":  Neon,
		"glyphosate":    Glyphosate,
		"atrazine":      Atrazine,
		"ph":            WQP,
	}
	for analyte, want := range cases {
		got, ok := m.Classify(analyte)
		if !ok || got != want {
			t.Fatalf("Classify(%q) = %v %v, want %v", analyte, got, ok, want)
		}
	}
	// Outside the conceptual model entirely.
	for _, analyte := range []string{"silver", "caffeine", ""} {
		if cat, ok := m.Classify(analyte); ok {
			t.Fatalf("Classify(%q) unexpectedly matched %v", analyte, cat)
		}
	}
}

func TestMergeTarget(t *testing.T) {
	m, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := m.MergeTarget(OrganoP, "diazinon oxon"); got != "diazoxon" {
		t.Fatalf("diazinon oxon should merge to diazoxon, got %q", got)
	}
	if got := m.MergeTarget(OrganoP, "diazinon degradate"); got != "diazoxon" {
		t.Fatalf("diazinon degradate should merge to diazoxon, got %q", got)
	}
	if got := m.MergeTarget(OrganoP, "diazinon"); got != "diazinon" {
		t.Fatalf("diazinon itself must not merge, got %q", got)
	}
	if got := m.MergeTarget(Glyphosate, "aminomethylphosphonic acid"); got != "ampa" {
		t.Fatalf("ampa variant should merge, got %q", got)
	}
}

func TestRuleForPrecedence(t *testing.T) {
	m, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// Analyte-specific rule wins over the category-wide fallback.
	r, ok := m.RuleFor(WQP, "oxygen", table.MatrixWater)
	if !ok || r.Canonical != "mg/L" || r.Analyte == "" {
		t.Fatalf("expected oxygen-specific rule, got %+v ok=%v", r, ok)
	}
	// No specific rule: fall back to the category-wide one.
	r, ok = m.RuleFor(WQP, "total suspended solids", table.MatrixWater)
	if !ok || r.Analyte != "" || r.Canonical != "mg/L" {
		t.Fatalf("expected category fallback rule, got %+v ok=%v", r, ok)
	}
	// Water-only category has no sediment rule.
	if _, ok := m.RuleFor(Neon, "imidacloprid", table.MatrixSediment); ok {
		t.Fatalf("Neon should have no sediment rule")
	}
}

func TestDropReason(t *testing.T) {
	m, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := m.DropReason(OrganoP, "phorate"); !ok {
		t.Fatalf("phorate should be curated out")
	}
	if reason, ok := m.DropReason(WQP, "transmissivity"); !ok || reason == "" {
		t.Fatalf("transmissivity should be curated out with a reason")
	}
	if _, ok := m.DropReason(Pyrethroids, "bifenthrin"); ok {
		t.Fatalf("bifenthrin must not be curated out")
	}
}
