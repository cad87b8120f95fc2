package blake3

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestComputeMatchesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	if err := os.WriteFile(path, []byte("genestack"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	fromReader, err := Compute(strings.NewReader("genestack"))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	fromFile, err := ComputeFile(path)
	if err != nil {
		t.Fatalf("compute file: %v", err)
	}
	if fromReader != fromFile {
		t.Fatalf("digests differ: %s vs %s", fromReader, fromFile)
	}
	if len(fromReader) != 64 {
		t.Fatalf("expected 32-byte hex digest, got %q", fromReader)
	}
}

func TestComputeFileMissing(t *testing.T) {
	if _, err := ComputeFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
