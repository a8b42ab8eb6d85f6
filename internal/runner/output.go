package runner

import (
	"fmt"
	"path/filepath"
	"strings"

	"forgetbench/internal/runlog"
)

// OutputPaths describes filesystem locations for run outputs.
type OutputPaths struct {
	Root  string
	RunID string
}

// NewOutputPaths validates and constructs output paths metadata.
func NewOutputPaths(root, runID string) (OutputPaths, error) {
	if strings.TrimSpace(root) == "" {
		return OutputPaths{}, fmt.Errorf("output root is empty")
	}
	if strings.TrimSpace(runID) == "" {
		return OutputPaths{}, fmt.Errorf("run ID is empty")
	}
	if strings.ContainsAny(runID, `/\`) {
		return OutputPaths{}, fmt.Errorf("run ID %q contains a path separator", runID)
	}
	return OutputPaths{Root: root, RunID: runID}, nil
}

// PathsForRunDir returns output paths for an existing run directory.
func PathsForRunDir(runDir string) OutputPaths {
	clean := filepath.Clean(runDir)
	return OutputPaths{Root: filepath.Dir(clean), RunID: filepath.Base(clean)}
}

// RunDir returns the directory for a specific run.
func (o OutputPaths) RunDir() string {
	return filepath.Join(o.Root, o.RunID)
}

func (o OutputPaths) RunPath() string         { return filepath.Join(o.RunDir(), runlog.RunFileName) }
func (o OutputPaths) VerdictsPath() string    { return filepath.Join(o.RunDir(), runlog.VerdictsFileName) }
func (o OutputPaths) FailuresPath() string    { return filepath.Join(o.RunDir(), runlog.FailuresFileName) }
func (o OutputPaths) UsagePath() string       { return filepath.Join(o.RunDir(), runlog.UsageFileName) }
func (o OutputPaths) SummaryJSONPath() string { return filepath.Join(o.RunDir(), runlog.SummaryJSONFileName) }
func (o OutputPaths) SummaryCSVPath() string  { return filepath.Join(o.RunDir(), runlog.SummaryCSVFileName) }
func (o OutputPaths) ReportPath() string      { return filepath.Join(o.RunDir(), runlog.ReportFileName) }
func (o OutputPaths) DatabasePath() string    { return filepath.Join(o.RunDir(), runlog.DatabaseFileName) }
func (o OutputPaths) LogPath() string         { return filepath.Join(o.RunDir(), runlog.LogFileName) }
