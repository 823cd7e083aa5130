// Package loader fetches the two agencies' measurement exports, merges
// them, restricts to the monitoring window, and fills in subregions
// from the risk-region layer when the export lacks them.
package loader

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/estuarylabs/chemclean/internal/table"
)

// Source is one agency export, local path or http(s) URL.
type Source struct {
	Name     string
	Location string
}

// Stats aggregates what loading dropped, per source and reason.
type Stats struct {
	PerSource map[string]*table.ReadStats
	// WindowDropped counts rows outside the monitoring window.
	WindowDropped int
	// Unregioned counts rows left without a subregion after the join.
	Unregioned int
}

// Fetch retrieves and parses one source table.
func Fetch(src Source, timeout time.Duration) (table.Table, *table.ReadStats, error) {
	rc, err := open(src.Location, timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch %s: %w", src.Name, err)
	}
	defer rc.Close()
	delim := rune(0)
	if strings.HasSuffix(strings.ToLower(src.Location), ".tsv") {
		delim = '\t'
	}
	t, st, err := table.ReadCSV(rc, delim)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", src.Name, err)
	}
	log.WithFields(log.Fields{
		"source": src.Name,
		"rows":   st.Rows,
		"kept":   st.Kept,
	}).Info("loader: source fetched")
	for reason, n := range st.Dropped {
		log.WithFields(log.Fields{"source": src.Name, "reason": reason, "rows": n}).Debug("loader: dropped rows")
	}
	return t, st, nil
}

func open(location string, timeout time.Duration) (io.ReadCloser, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		client := &http.Client{Timeout: timeout}
		resp, err := client.Get(location)
		if err != nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			resp.Body.Close()
			return nil, fmt.Errorf("fetch: unexpected status %s: %s", resp.Status, string(b))
		}
		return resp.Body, nil
	}
	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return f, nil
}

// Load fetches every source, concatenates the tables in source order,
// applies the monitoring window, and assigns subregions when a region
// layer is given. Rows that already carry a subregion keep it.
func Load(sources []Source, window Window, regions *RegionLayer, timeout time.Duration) (table.Table, *Stats, error) {
	stats := &Stats{PerSource: map[string]*table.ReadStats{}}
	parts := make([]table.Table, 0, len(sources))
	for _, src := range sources {
		t, st, err := Fetch(src, timeout)
		if err != nil {
			return nil, nil, err
		}
		stats.PerSource[src.Name] = st
		parts = append(parts, t)
	}
	merged := table.Concat(parts...)

	windowed := merged.Filter(func(m table.Measurement) bool { return window.Contains(m.Date) })
	stats.WindowDropped = len(merged) - len(windowed)
	if stats.WindowDropped > 0 {
		log.WithFields(log.Fields{
			"from": window.From.Format(table.DateLayout),
			"to":   window.To.Format(table.DateLayout),
			"rows": stats.WindowDropped,
		}).Info("loader: rows outside monitoring window")
	}

	if regions != nil {
		for i := range windowed {
			if windowed[i].Subregion != "" {
				continue
			}
			if name, ok := regions.Lookup(windowed[i].Latitude, windowed[i].Longitude); ok {
				windowed[i].Subregion = name
			} else {
				stats.Unregioned++
			}
		}
		if stats.Unregioned > 0 {
			log.WithFields(log.Fields{"rows": stats.Unregioned}).Warn("loader: rows outside every risk region")
		}
	}
	return windowed, stats, nil
}

// Window is the inclusive monitoring date range.
type Window struct {
	From, To time.Time
}

// Contains reports whether d falls inside the window.
func (w Window) Contains(d time.Time) bool {
	return !d.Before(w.From) && !d.After(w.To)
}

// ParseWindow parses "2006-01-02" bounds.
func ParseWindow(from, to string) (Window, error) {
	f, err := time.Parse(table.DateLayout, from)
	if err != nil {
		return Window{}, fmt.Errorf("parse window start: %w", err)
	}
	t, err := time.Parse(table.DateLayout, to)
	if err != nil {
		return Window{}, fmt.Errorf("parse window end: %w", err)
	}
	if t.Before(f) {
		return Window{}, fmt.Errorf("window end %s before start %s", to, from)
	}
	return Window{From: f, To: t}, nil
}
