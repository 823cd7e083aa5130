package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	oldHome := os.Getenv("HOME")
	defer os.Setenv("HOME", oldHome)
	os.Setenv("HOME", home)

	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.WindowStart != "2010-01-01" || c.WindowEnd != "2019-12-31" {
		t.Fatalf("unexpected default window: %s..%s", c.WindowStart, c.WindowEnd)
	}
	if c.OutputDir != "chemclean-out" {
		t.Fatalf("unexpected default output dir: %s", c.OutputDir)
	}
	if c.HTTPTimeoutSec != 60 {
		t.Fatalf("unexpected default timeout: %d", c.HTTPTimeoutSec)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	in := &Global{
		SourceCEDEN:    "/data/ceden.csv",
		SourceSURF:     "https://example.org/surf.csv",
		OutputDir:      "/tmp/out",
		WindowStart:    "2011-01-01",
		WindowEnd:      "2018-12-31",
		RegionLayer:    "/data/regions.geojson",
		HTTPTimeoutSec: 30,
	}
	if err := Save(in, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *got != *in {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, in)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("CHEMCLEAN_OUTPUT_DIR", "/custom/out")
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.OutputDir != "/custom/out" {
		t.Fatalf("env override ignored: %s", c.OutputDir)
	}
}
