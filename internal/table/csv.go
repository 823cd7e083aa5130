package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the date form used in every CSV the pipeline writes.
const DateLayout = "2006-01-02"

// columnAliases resolves the agencies' differing header vocabularies
// onto the Measurement fields. Matching is case-insensitive on the
// canonicalized header.
var columnAliases = map[string][]string{
	"analyte":   {"analyte", "analyte name", "parameter", "chemical name"},
	"result":    {"result", "value", "concentration"},
	"unit":      {"unit", "units", "unit name"},
	"matrix":    {"matrix", "sample type", "medium", "matrix name"},
	"date":      {"date", "sample date", "collection date"},
	"station":   {"station name", "station", "site", "site name", "station code"},
	"latitude":  {"latitude", "lat", "target latitude"},
	"longitude": {"longitude", "lon", "long", "target longitude"},
	"subregion": {"subregion", "region", "risk region"},
	"category":  {"category"},
}

// required columns; subregion and category are optional on input.
var requiredColumns = []string{"analyte", "result", "unit", "matrix", "date", "station", "latitude", "longitude"}

// ReadStats counts rows the reader had to discard, keyed by reason.
type ReadStats struct {
	Rows    int
	Kept    int
	Dropped map[string]int
}

func (s *ReadStats) drop(reason string) {
	if s.Dropped == nil {
		s.Dropped = map[string]int{}
	}
	s.Dropped[reason]++
}

// ReadCSV parses a long-format measurement table. Headers are resolved
// via alias lists so that both agencies' exports load through the same
// path. Rows that cannot be parsed are dropped and counted, never
// silently skipped.
func ReadCSV(r io.Reader, delim rune) (Table, *ReadStats, error) {
	if delim == 0 {
		delim = ','
	}
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("empty input: no header row")
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := resolveColumns(header)
	if err != nil {
		return nil, nil, err
	}

	stats := &ReadStats{Dropped: map[string]int{}}
	var out Table
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("read row %d: %w", stats.Rows+1, err)
		}
		stats.Rows++
		m, reason := parseRow(rec, idx)
		if reason != "" {
			stats.drop(reason)
			continue
		}
		stats.Kept++
		out = append(out, m)
	}
	return out, stats, nil
}

func resolveColumns(header []string) (map[string]int, error) {
	// Fold case, symbols and spacing so "StationName", "Station Name"
	// and "station_name" all resolve alike.
	key := func(s string) string {
		return strings.ReplaceAll(CanonicalAnalyte(s), " ", "")
	}
	canon := make([]string, len(header))
	for i, h := range header {
		canon[i] = key(h)
	}
	idx := map[string]int{}
	for field, aliases := range columnAliases {
		for _, a := range aliases {
			for i, h := range canon {
				if h == key(a) {
					idx[field] = i
					break
				}
			}
			if _, ok := idx[field]; ok {
				break
			}
		}
	}
	var missing []string
	for _, field := range requiredColumns {
		if _, ok := idx[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unresolvable columns %v in header %v", missing, header)
	}
	return idx, nil
}

func parseRow(rec []string, idx map[string]int) (Measurement, string) {
	get := func(field string) string {
		i, ok := idx[field]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	var m Measurement
	m.Analyte = CanonicalAnalyte(get("analyte"))
	if m.Analyte == "" {
		return m, "missing analyte"
	}
	res, err := strconv.ParseFloat(get("result"), 64)
	if err != nil {
		return m, "unparseable result"
	}
	m.Result = res
	m.Unit = get("unit")
	if m.Unit == "" {
		return m, "missing unit"
	}
	mx, ok := ParseMatrix(get("matrix"))
	if !ok {
		return m, "unknown matrix"
	}
	m.Matrix = mx
	d, ok := parseDate(get("date"))
	if !ok {
		return m, "unparseable date"
	}
	m.Date = d
	lat, errLat := strconv.ParseFloat(get("latitude"), 64)
	lon, errLon := strconv.ParseFloat(get("longitude"), 64)
	if errLat != nil || errLon != nil {
		return m, "missing coordinates"
	}
	m.Latitude = lat
	m.Longitude = lon
	m.Station = get("station")
	m.Subregion = get("subregion")
	m.Category = get("category")
	return m, ""
}

func parseDate(s string) (time.Time, bool) {
	layouts := []string{
		DateLayout, "2006/01/02", "01/02/2006", "1/2/2006",
		"2006-01-02 15:04:05", "2006-01-02T15:04:05", time.RFC3339,
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// longHeader is the column order of every long-format CSV the pipeline
// writes.
var longHeader = []string{"analyte", "result", "unit", "matrix", "date", "station", "latitude", "longitude", "subregion", "category"}

// WriteCSV serializes the table in long format.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(longHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, m := range t {
		rec := []string{
			m.Analyte,
			formatFloat(m.Result),
			m.Unit,
			string(m.Matrix),
			m.Date.Format(DateLayout),
			m.Station,
			formatFloat(m.Latitude),
			formatFloat(m.Longitude),
			m.Subregion,
			m.Category,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
