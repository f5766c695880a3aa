package bench

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadSample(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sample_A")
	touch(t, filepath.Join(dir, TruthFile))
	touch(t, filepath.Join(dir, "test.cremi"))
	touch(t, filepath.Join(dir, "baseline.cremi"))
	touch(t, filepath.Join(dir, "notes.txt"))

	s, err := LoadSample(dir)
	if err != nil {
		t.Fatalf("LoadSample() error = %v", err)
	}

	if s.ID != "sample_A" {
		t.Errorf("ID = %q, want %q", s.ID, "sample_A")
	}
	if s.TruthPath() != filepath.Join(dir, TruthFile) {
		t.Errorf("TruthPath() = %q", s.TruthPath())
	}

	got, err := s.Submissions()
	if err != nil {
		t.Fatalf("Submissions() error = %v", err)
	}
	want := []string{"baseline.cremi", "test.cremi"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Submissions() = %v, want %v", got, want)
	}
}

func TestLoadSample_MissingTruth(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "test.cremi"))

	if _, err := LoadSample(dir); err == nil {
		t.Error("expected error for sample without ground truth")
	}
}

func TestLoadCorpus(t *testing.T) {
	dir := t.TempDir()

	// Create two samples
	for _, name := range []string{"sample_A", "sample_B"} {
		touch(t, filepath.Join(dir, name, TruthFile))
	}

	// Files and hidden directories should be ignored
	touch(t, filepath.Join(dir, "README.md"))
	touch(t, filepath.Join(dir, ".cache", "scratch.cremi"))

	samples, err := LoadCorpus(dir)
	if err != nil {
		t.Fatalf("LoadCorpus() error = %v", err)
	}

	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}
	if samples[0].ID != "sample_A" || samples[1].ID != "sample_B" {
		t.Errorf("got samples %q, %q", samples[0].ID, samples[1].ID)
	}

	touch(t, filepath.Join(dir, "sample_C", "test.cremi"))
	if _, err := LoadCorpus(dir); err == nil {
		t.Error("expected error for sample without ground truth")
	}
}
