// Package bench provides benchmarking utilities for CREMI evaluation runs.
package bench

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// TruthFile is the ground truth container expected in every sample directory.
const TruthFile = "groundtruth.cremi"

// ContainerExt is the file extension of containers.
const ContainerExt = ".cremi"

// Sample is one directory of a corpus: a ground truth container and any
// number of submissions scored against it.
type Sample struct {
	ID  string // directory name
	Dir string
}

// TruthPath returns the path of the sample's ground truth container.
func (s *Sample) TruthPath() string {
	return filepath.Join(s.Dir, TruthFile)
}

// SubmissionPath returns the path of a submission container by file name.
func (s *Sample) SubmissionPath(name string) string {
	return filepath.Join(s.Dir, name)
}

// Submissions lists the container file names of the sample other than the
// ground truth, sorted.
func (s *Sample) Submissions() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ContainerExt || name == TruthFile {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// LoadSample checks that dir holds a ground truth container.
func LoadSample(dir string) (*Sample, error) {
	if _, err := os.Stat(filepath.Join(dir, TruthFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("missing %s in %s", TruthFile, dir)
		}
		return nil, fmt.Errorf("stat ground truth: %w", err)
	}
	return &Sample{ID: filepath.Base(dir), Dir: dir}, nil
}

// LoadCorpus loads every sample directory below dir. Hidden directories
// and plain files are skipped.
func LoadCorpus(dir string) ([]*Sample, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var samples []*Sample
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		s, err := LoadSample(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", entry.Name(), err)
		}
		samples = append(samples, s)
	}

	return samples, nil
}
