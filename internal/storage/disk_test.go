package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestArtifactBytes(t *testing.T) {
	dir := t.TempDir()
	run := filepath.Join(dir, "run")
	if err := os.MkdirAll(filepath.Join(run, "configs"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(run, "summary.json"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(run, "configs", "v.yaml"), []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ArtifactBytes(run, filepath.Join(dir, "missing"), "")
	if err != nil {
		t.Fatal(err)
	}
	if got != 7 {
		t.Errorf("got %d bytes, want 7", got)
	}

	got, err = ArtifactBytes(filepath.Join(run, "summary.json"))
	if err != nil || got != 5 {
		t.Errorf("single file: %d, %v", got, err)
	}
}
