package table

import (
	"bytes"
	"strings"
	"testing"
)

func TestCanonicalAnalyte(t *testing.T) {
	cases := map[string]string{
		"Diazinon-Oxon ":   "diazinon oxon",
		"DIAZINON  OXON":   "diazinon oxon",
		"Lambda_Cyhalothrin": "lambda cyhalothrin",
		"Oxygen, Dissolved": "oxygen dissolved",
		"pH":                "ph",
		"  bifenthrin  ":    "bifenthrin",
	}
	for in, want := range cases {
		if got := CanonicalAnalyte(in); got != want {
			t.Fatalf("CanonicalAnalyte(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCanonicalUnit(t *testing.T) {
	if CanonicalUnit("µS/cm") != CanonicalUnit("uS/cm") {
		t.Fatalf("micro sign should fold to u")
	}
	if CanonicalUnit("NG/L") != "ng/l" {
		t.Fatalf("unit comparison should be case-insensitive")
	}
	if CanonicalUnit(" mg/Kg  dw ") != "mg/kg dw" {
		t.Fatalf("inner whitespace should collapse")
	}
}

func TestParseMatrix(t *testing.T) {
	if mx, ok := ParseMatrix("samplewater"); !ok || mx != MatrixWater {
		t.Fatalf("samplewater should map to water, got %q %v", mx, ok)
	}
	if mx, ok := ParseMatrix("Bed Sediment"); !ok || mx != MatrixSediment {
		t.Fatalf("bed sediment should map to sediment, got %q %v", mx, ok)
	}
	if _, ok := ParseMatrix("tissue"); ok {
		t.Fatalf("tissue is not a modeled matrix")
	}
}

func TestReadCSV_AliasedHeaders(t *testing.T) {
	// SURF-style header vocabulary.
	in := "Chemical Name,Concentration,Units,Sample Type,Sample Date,Site Name,Target Latitude,Target Longitude\n" +
		"Bifenthrin,500,ng/L,samplewater,2015-06-01,Toe Drain,38.35,-121.64\n" +
		"Mercury,0.2,mg/Kg,sediment,06/15/2015,Cache Slough,38.21,-121.69\n"
	tb, stats, err := ReadCSV(strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if stats.Rows != 2 || stats.Kept != 2 {
		t.Fatalf("expected 2 rows kept, got %+v", stats)
	}
	if tb[0].Analyte != "bifenthrin" || tb[0].Unit != "ng/L" || tb[0].Matrix != MatrixWater {
		t.Fatalf("unexpected first row: %+v", tb[0])
	}
	if tb[1].Matrix != MatrixSediment || tb[1].Date.Format(DateLayout) != "2015-06-15" {
		t.Fatalf("unexpected second row: %+v", tb[1])
	}
}

func TestReadCSV_DropsUnparseableRows(t *testing.T) {
	in := "analyte,result,unit,matrix,date,station,latitude,longitude\n" +
		"ph,7.8,none,water,2016-01-10,Liberty Island,38.3,-121.7\n" +
		"ph,n/a,none,water,2016-01-10,Liberty Island,38.3,-121.7\n" +
		"copper,3,ug/L,tissue,2016-01-10,Liberty Island,38.3,-121.7\n" +
		"copper,3,ug/L,water,someday,Liberty Island,38.3,-121.7\n"
	tb, stats, err := ReadCSV(strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(tb) != 1 {
		t.Fatalf("expected 1 surviving row, got %d", len(tb))
	}
	if stats.Dropped["unparseable result"] != 1 || stats.Dropped["unknown matrix"] != 1 || stats.Dropped["unparseable date"] != 1 {
		t.Fatalf("unexpected drop reasons: %+v", stats.Dropped)
	}
}

func TestReadCSV_MissingColumns(t *testing.T) {
	in := "analyte,result\nph,7.8\n"
	if _, _, err := ReadCSV(strings.NewReader(in), 0); err == nil {
		t.Fatalf("expected error for unresolvable columns")
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	in := "analyte,result,unit,matrix,date,station,latitude,longitude,subregion,category\n" +
		"bifenthrin,0.55,ppb,water,2015-06-01,Toe Drain,38.35,-121.64,Cache Slough Complex,Pyrethroids\n"
	tb, _, err := ReadCSV(strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, tb); err != nil {
		t.Fatalf("write: %v", err)
	}
	tb2, _, err := ReadCSV(bytes.NewReader(buf.Bytes()), 0)
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if len(tb2) != 1 || tb2[0] != tb[0] {
		t.Fatalf("round trip mismatch: %+v vs %+v", tb2, tb)
	}
}

func TestConcatAndFilter(t *testing.T) {
	a := Table{{Analyte: "ph", Matrix: MatrixWater}}
	b := Table{{Analyte: "mercury", Matrix: MatrixSediment}}
	all := Concat(a, b)
	if len(all) != 2 {
		t.Fatalf("concat length = %d", len(all))
	}
	if w := all.ByMatrix(MatrixWater); len(w) != 1 || w[0].Analyte != "ph" {
		t.Fatalf("ByMatrix(water) = %+v", w)
	}
	if got := all.Analytes(); len(got) != 2 || got[0] != "mercury" {
		t.Fatalf("Analytes() = %v", got)
	}
}
