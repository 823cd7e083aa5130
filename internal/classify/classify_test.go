package classify

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/estuarylabs/chemclean/internal/model"
	"github.com/estuarylabs/chemclean/internal/table"
)

func sample(analyte string) table.Measurement {
	return table.Measurement{
		Analyte:   analyte,
		Result:    1,
		Unit:      "ng/L",
		Matrix:    table.MatrixWater,
		Date:      time.Date(2016, 3, 9, 0, 0, 0, 0, time.UTC),
		Station:   "Cache Slough",
		Latitude:  38.21,
		Longitude: -121.69,
	}
}

func TestApply(t *testing.T) {
	m, err := model.Load()
	if err != nil {
		t.Fatalf("load model: %v", err)
	}
	in := table.Table{
		sample("bifenthrin"),
		sample("silver"), // not curated anywhere
		sample("fipronil"),
		sample("silver"),
	}
	res := Apply(m, in)
	if res.RowsIn != 4 || res.RowsOut != 2 {
		t.Fatalf("rows in/out = %d/%d, want 4/2", res.RowsIn, res.RowsOut)
	}
	for _, r := range res.Table {
		if r.Category == "" {
			t.Fatalf("categorized table contains an unassigned row: %+v", r)
		}
		if r.Analyte == "silver" {
			t.Fatalf("silver must not survive classification")
		}
	}
	if res.Dropped["silver"] != 2 {
		t.Fatalf("silver drops not counted: %+v", res.Dropped)
	}
}

func TestLookupIncludesUnmatched(t *testing.T) {
	m, err := model.Load()
	if err != nil {
		t.Fatalf("load model: %v", err)
	}
	res := Apply(m, table.Table{sample("bifenthrin"), sample("silver")})
	if len(res.Lookup) != 2 {
		t.Fatalf("lookup rows = %d, want 2", len(res.Lookup))
	}
	// Sorted by analyte: bifenthrin, silver.
	if res.Lookup[0].Analyte != "bifenthrin" || res.Lookup[0].Category != model.Pyrethroids {
		t.Fatalf("unexpected lookup row: %+v", res.Lookup[0])
	}
	if res.Lookup[1].Analyte != "silver" || res.Lookup[1].Category != "" {
		t.Fatalf("unmatched analyte should appear with empty category: %+v", res.Lookup[1])
	}

	var buf bytes.Buffer
	if err := WriteLookupCSV(&buf, res.Lookup); err != nil {
		t.Fatalf("write lookup: %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, "bifenthrin,Pyrethroids") || !strings.Contains(got, "silver,") {
		t.Fatalf("unexpected lookup csv:\n%s", got)
	}
}
