//go:build stave

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/yaklabco/stave/pkg/sh"
	"github.com/yaklabco/stave/pkg/st"
	"github.com/yaklabco/stave/pkg/target"
)

// Default target when running `stave` with no arguments.
var Default = All

// Aliases for common targets.
var Aliases = map[string]interface{}{
	"b": Build,
	"t": Test,
	"e": Evaluate,
	"l": Lint,
	"c": Clean,
}

// All runs the complete build pipeline: lint, test, and build.
func All() error {
	st.Deps(Init)
	st.Deps(Lint, Test)
	st.Deps(Build)
	return nil
}

// Init ensures the module dependencies are up to date.
func Init() error {
	return sh.Run("go", "mod", "tidy")
}

// Build compiles both cremi-cli and cremi-bench binaries.
func Build() error {
	st.Deps(Init)
	st.Deps(Build_CLI, Build_Bench)
	return nil
}

// Build_CLI compiles the cremi-cli binary with version information.
func Build_CLI() error {
	st.Deps(Init)

	// Check if rebuild is needed
	rebuild, err := target.Glob("bin/cremi-cli", "**/*.go", "go.mod", "go.sum")
	if err != nil {
		return fmt.Errorf("checking rebuild: %w", err)
	}
	if !rebuild {
		if st.Verbose() {
			fmt.Println("cremi-cli is up to date")
		}
		return nil
	}

	ldflags := buildLdflags()
	return sh.RunV("go", "build", "-ldflags", ldflags, "-o", "bin/cremi-cli", "./cmd/cremi-cli")
}

// Build_Bench compiles the cremi-bench binary with version information.
func Build_Bench() error {
	st.Deps(Init)

	// Check if rebuild is needed
	rebuild, err := target.Glob("bin/cremi-bench", "**/*.go", "go.mod", "go.sum")
	if err != nil {
		return fmt.Errorf("checking rebuild: %w", err)
	}
	if !rebuild {
		if st.Verbose() {
			fmt.Println("cremi-bench is up to date")
		}
		return nil
	}

	ldflags := buildLdflags()
	return sh.RunV("go", "build", "-ldflags", ldflags, "-o", "bin/cremi-bench", "./cmd/cremi-bench")
}

// buildLdflags returns ldflags for version injection.
func buildLdflags() string {
	version, _ := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	commit, _ := sh.Output("git", "rev-parse", "--short", "HEAD")
	date := time.Now().Format(time.RFC3339)

	return fmt.Sprintf(
		"-X main.version=%s -X main.commit=%s -X main.date=%s",
		strings.TrimSpace(version),
		strings.TrimSpace(commit),
		date,
	)
}

// Test runs all tests with race detection and coverage.
func Test() error {
	st.Deps(Init)
	return sh.RunV("go", "test", "-race", "-cover", "./...")
}

// TestShort runs tests in short mode (skips long-running tests).
func TestShort() error {
	st.Deps(Init)
	return sh.RunV("go", "test", "-short", "-race", "./...")
}

// Lint runs golangci-lint on the codebase.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Fmt formats all Go code using gofmt and goimports.
func Fmt() error {
	if err := sh.Run("gofmt", "-w", "."); err != nil {
		return fmt.Errorf("gofmt: %w", err)
	}
	if err := sh.Run("goimports", "-w", "."); err != nil {
		return fmt.Errorf("goimports: %w", err)
	}
	return nil
}

// Vet runs go vet on all packages.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	artifacts := []string{
		"bin/",
		"cremi-bench",
		"cremi-cli",
	}
	for _, a := range artifacts {
		if err := sh.Rm(a); err != nil {
			return fmt.Errorf("removing %s: %w", a, err)
		}
	}
	return nil
}

// Install builds and installs the binaries to GOBIN.
func Install() error {
	st.Deps(Build)

	gocmd := st.GoCmd()
	bin, err := sh.Output(gocmd, "env", "GOBIN")
	if err != nil {
		return fmt.Errorf("determining GOBIN: %w", err)
	}
	if bin == "" {
		gopath, err := sh.Output(gocmd, "env", "GOPATH")
		if err != nil {
			return fmt.Errorf("determining GOPATH: %w", err)
		}
		bin = gopath + "/bin"
	}

	binaries := []string{"cremi-cli", "cremi-bench"}
	for _, name := range binaries {
		src := "bin/" + name
		dst := bin + "/" + name
		if runtime.GOOS == "windows" {
			dst += ".exe"
		}
		if err := sh.Copy(dst, src); err != nil {
			return fmt.Errorf("installing %s: %w", name, err)
		}
		if st.Verbose() {
			fmt.Printf("Installed %s to %s\n", name, dst)
		}
	}
	return nil
}

// Bench namespace for benchmark-related targets.
type Bench st.Namespace

// Run evaluates the default submission of every sample in the corpus.
// CREMI_CORPUS overrides the corpus directory (default: testdata/cremi).
func (Bench) Run() error {
	st.Deps(Build_Bench)

	return sh.RunV("./bin/cremi-bench",
		"-corpus", corpusDir(),
		"-metrics", "bin/cremi-bench.prom",
	)
}

// Sweep runs a matching threshold sweep to find the threshold that
// maximises the weighted partner score.
func (Bench) Sweep() error {
	st.Deps(Build_Bench)

	return sh.RunV("./bin/cremi-bench",
		"-corpus", corpusDir(),
		"-sweep",
		"-metrics", "bin/cremi-sweep.prom",
	)
}

// Mask writes a border-masked copy of every sample's ground truth neuron
// ids next to it as groundtruth.masked.cremi. CREMI_MAX_DIST sets the mask
// distance in voxels (default: 1).
func (Bench) Mask() error {
	st.Deps(Build_CLI)

	entries, err := os.ReadDir(corpusDir())
	if err != nil {
		return fmt.Errorf("reading corpus: %w", err)
	}
	maxDist := os.Getenv("CREMI_MAX_DIST")
	if maxDist == "" {
		maxDist = "1"
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(corpusDir(), e.Name())
		if err := sh.RunV("./bin/cremi-cli",
			"-mode", "mask",
			"-in", filepath.Join(dir, "groundtruth.cremi"),
			"-out", filepath.Join(dir, "groundtruth.masked.cremi"),
			"-max-dist", maxDist,
			"-overwrite",
		); err != nil {
			return fmt.Errorf("masking %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Compare scores the submissions listed in CREMI_SUBMISSIONS (comma
// separated) side by side.
func (Bench) Compare() error {
	st.Deps(Build_Bench)

	submissions := os.Getenv("CREMI_SUBMISSIONS")
	if submissions == "" {
		return errors.New("CREMI_SUBMISSIONS is not set")
	}
	return sh.RunV("./bin/cremi-bench",
		"-corpus", corpusDir(),
		"-submissions", submissions,
	)
}

// Evaluate scores CREMI_TEST against CREMI_TRUTH with cremi-cli.
func Evaluate() error {
	st.Deps(Build_CLI)

	truth, test := os.Getenv("CREMI_TRUTH"), os.Getenv("CREMI_TEST")
	if truth == "" || test == "" {
		return errors.New("CREMI_TRUTH and CREMI_TEST must both be set")
	}
	return sh.RunV("./bin/cremi-cli", "-truth", truth, "-test", test)
}

func corpusDir() string {
	if dir := os.Getenv("CREMI_CORPUS"); dir != "" {
		return dir
	}
	return "testdata/cremi"
}

// CI runs the full CI pipeline (lint, test, build).
func CI() error {
	st.Deps(Init)
	st.SerialDeps(Lint, Test, Build)
	return nil
}

// Check runs quick validation (vet, lint, short tests).
func Check() error {
	st.Deps(Vet, Lint, TestShort)
	return nil
}

// Coverage generates a coverage report.
func Coverage() error {
	st.Deps(Init)
	if err := sh.RunV("go", "test", "-race", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-html=coverage.out", "-o", "coverage.html")
}
