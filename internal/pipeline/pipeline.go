// Package pipeline wires the stages into the linear run the notebooks
// performed by hand: load → classify → normalize per category →
// concatenate → reshape → write. Each stage hands the next a fresh
// table; the run report records what every stage kept and dropped.
package pipeline

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/estuarylabs/chemclean/internal/classify"
	"github.com/estuarylabs/chemclean/internal/config"
	"github.com/estuarylabs/chemclean/internal/loader"
	"github.com/estuarylabs/chemclean/internal/model"
	"github.com/estuarylabs/chemclean/internal/normalize"
	"github.com/estuarylabs/chemclean/internal/reshape"
	"github.com/estuarylabs/chemclean/internal/table"
	"github.com/estuarylabs/chemclean/internal/utils"
	"github.com/google/uuid"
)

// Output file names, fixed relative to the output directory.
const (
	LookupFile         = "analyte_categories.csv"
	CategorizedFile    = "long_categorized.csv"
	NormalizedFile     = "long_normalized.csv"
	WideWaterFile      = "wide_water.csv"
	WideSedimentFile   = "wide_sediment.csv"
	ReportFile         = "run_report.json"
	wideCategoryFormat = "wide_%s_water.csv"
)

// Report is the audit record of one pipeline run.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Window struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"window"`

	Load struct {
		Sources       map[string]SourceReport `json:"sources"`
		WindowDropped int                     `json:"window_dropped"`
		Unregioned    int                     `json:"unregioned"`
		Rows          int                     `json:"rows"`
	} `json:"load"`

	Classify struct {
		RowsIn          int            `json:"rows_in"`
		RowsOut         int            `json:"rows_out"`
		DroppedAnalytes map[string]int `json:"dropped_analytes"`
	} `json:"classify"`

	Normalize struct {
		RowsIn    int            `json:"rows_in"`
		RowsOut   int            `json:"rows_out"`
		Converted int            `json:"converted"`
		Relabeled int            `json:"relabeled"`
		Merged    int            `json:"merged"`
		Dropped   map[string]int `json:"dropped"`
	} `json:"normalize"`

	Outputs []OutputReport `json:"outputs"`
}

// SourceReport summarizes one agency export load.
type SourceReport struct {
	Rows    int            `json:"rows"`
	Kept    int            `json:"kept"`
	Dropped map[string]int `json:"dropped,omitempty"`
}

// OutputReport summarizes one written file.
type OutputReport struct {
	File    string             `json:"file"`
	Rows    int                `json:"rows"`
	Columns int                `json:"columns,omitempty"`
	Stats   map[string]ColStat `json:"stats,omitempty"`
}

// ColStat is the mean and spread of one wide column, for quick
// plausibility checks without opening the CSV.
type ColStat struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// Run executes the whole pipeline against cfg and writes every output
// under cfg.OutputDir.
func Run(cfg *config.Global, m *model.Model) (*Report, error) {
	rep := &Report{RunID: uuid.NewString(), StartedAt: time.Now()}
	log.WithFields(log.Fields{"run_id": rep.RunID, "output_dir": cfg.OutputDir}).Info("pipeline: starting")

	if cfg.SourceCEDEN == "" || cfg.SourceSURF == "" {
		return nil, fmt.Errorf("both sources must be configured (source_ceden, source_surf)")
	}
	window, err := loader.ParseWindow(cfg.WindowStart, cfg.WindowEnd)
	if err != nil {
		return nil, err
	}
	rep.Window.From = cfg.WindowStart
	rep.Window.To = cfg.WindowEnd

	var regions *loader.RegionLayer
	if cfg.RegionLayer != "" {
		regions, err = loader.LoadRegions(cfg.RegionLayer)
		if err != nil {
			return nil, err
		}
	}

	if err := utils.EnsureDir(cfg.OutputDir); err != nil {
		return nil, fmt.Errorf("ensure output dir: %w", err)
	}

	// Load and merge the two exports.
	sources := []loader.Source{
		{Name: "ceden", Location: cfg.SourceCEDEN},
		{Name: "surf", Location: cfg.SourceSURF},
	}
	long, lstats, err := loader.Load(sources, window, regions, cfg.HTTPTimeout())
	if err != nil {
		return nil, err
	}
	rep.Load.Sources = map[string]SourceReport{}
	for name, st := range lstats.PerSource {
		rep.Load.Sources[name] = SourceReport{Rows: st.Rows, Kept: st.Kept, Dropped: st.Dropped}
	}
	rep.Load.WindowDropped = lstats.WindowDropped
	rep.Load.Unregioned = lstats.Unregioned
	rep.Load.Rows = len(long)

	// Classify against the conceptual model.
	cres := classify.Apply(m, long)
	rep.Classify.RowsIn = cres.RowsIn
	rep.Classify.RowsOut = cres.RowsOut
	rep.Classify.DroppedAnalytes = cres.Dropped

	var buf bytes.Buffer
	if err := classify.WriteLookupCSV(&buf, cres.Lookup); err != nil {
		return nil, err
	}
	if err := writeOutput(rep, cfg.OutputDir, LookupFile, buf.Bytes(), len(cres.Lookup), 0, nil); err != nil {
		return nil, err
	}
	buf.Reset()
	if err := table.WriteCSV(&buf, cres.Table); err != nil {
		return nil, err
	}
	if err := writeOutput(rep, cfg.OutputDir, CategorizedFile, buf.Bytes(), len(cres.Table), 0, nil); err != nil {
		return nil, err
	}

	// Normalize units per category and concatenate.
	normalized, nstats, err := normalize.All(m, cres.Table)
	if err != nil {
		return nil, err
	}
	rep.Normalize.RowsIn = nstats.RowsIn
	rep.Normalize.RowsOut = nstats.RowsOut
	rep.Normalize.Converted = nstats.Converted
	rep.Normalize.Relabeled = nstats.Relabeled
	rep.Normalize.Merged = nstats.Merged
	rep.Normalize.Dropped = nstats.Dropped

	buf.Reset()
	if err := table.WriteCSV(&buf, normalized); err != nil {
		return nil, err
	}
	if err := writeOutput(rep, cfg.OutputDir, NormalizedFile, buf.Bytes(), len(normalized), 0, nil); err != nil {
		return nil, err
	}

	// Per-category wide tables, water only.
	water := normalized.ByMatrix(table.MatrixWater)
	for _, cat := range model.Order {
		part := water.Filter(func(r table.Measurement) bool { return r.Category == string(cat) })
		if len(part) == 0 {
			continue
		}
		w := reshape.Build(part, false)
		buf.Reset()
		if err := w.WriteCSV(&buf); err != nil {
			return nil, err
		}
		name := fmt.Sprintf(wideCategoryFormat, strings.ToLower(string(cat)))
		if err := writeOutput(rep, cfg.OutputDir, name, buf.Bytes(), len(w.Rows), len(w.Columns), nil); err != nil {
			return nil, err
		}
	}

	// Final wide tables: all categories.
	wideWater := reshape.Build(water, false)
	buf.Reset()
	if err := wideWater.WriteCSV(&buf); err != nil {
		return nil, err
	}
	if err := writeOutput(rep, cfg.OutputDir, WideWaterFile, buf.Bytes(), len(wideWater.Rows), len(wideWater.Columns), colStats(wideWater)); err != nil {
		return nil, err
	}

	wideSed := reshape.Build(normalized.ByMatrix(table.MatrixSediment), true)
	buf.Reset()
	if err := wideSed.WriteCSV(&buf); err != nil {
		return nil, err
	}
	if err := writeOutput(rep, cfg.OutputDir, WideSedimentFile, buf.Bytes(), len(wideSed.Rows), len(wideSed.Columns), colStats(wideSed)); err != nil {
		return nil, err
	}

	rep.FinishedAt = time.Now()
	rb, err := utils.PrettyJSON(rep)
	if err != nil {
		return nil, err
	}
	if err := utils.SafeWriteFile(filepath.Join(cfg.OutputDir, ReportFile), rb); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	log.WithFields(log.Fields{
		"run_id":  rep.RunID,
		"outputs": len(rep.Outputs),
		"elapsed": rep.FinishedAt.Sub(rep.StartedAt).String(),
	}).Info("pipeline: finished")
	return rep, nil
}

func colStats(w reshape.Wide) map[string]ColStat {
	means := w.ColumnMeans()
	if len(means) == 0 {
		return nil
	}
	out := make(map[string]ColStat, len(means))
	for col, ms := range means {
		out[col] = ColStat{Mean: ms[0], StdDev: ms[1]}
	}
	return out
}

func writeOutput(rep *Report, dir, name string, data []byte, rows, cols int, stats map[string]ColStat) error {
	path := filepath.Join(dir, name)
	if err := utils.SafeWriteFile(path, data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	rep.Outputs = append(rep.Outputs, OutputReport{File: name, Rows: rows, Columns: cols, Stats: stats})
	log.WithFields(log.Fields{"file": name, "rows": rows}).Info("pipeline: wrote output")
	return nil
}
