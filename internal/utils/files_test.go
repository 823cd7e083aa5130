package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSafeWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	if err := SafeWriteFile(path, []byte("a,b\n1,2\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(b) != "a,b\n1,2\n" {
		t.Fatalf("unexpected content: %q", b)
	}
	// No temp file left behind.
	if _, err := os.Stat(path + ".tmp"); err == nil {
		t.Fatalf("temp file not cleaned up")
	}
	// Overwrite in place.
	if err := SafeWriteFile(path, []byte("x\n")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	b, _ = os.ReadFile(path)
	if string(b) != "x\n" {
		t.Fatalf("overwrite failed: %q", b)
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("dir not created: %v", err)
	}
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"rows": 3})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), "\"rows\": 3") {
		t.Fatalf("unexpected json: %s", b)
	}
}
