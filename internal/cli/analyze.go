package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"forgetbench/internal/analysis"
	"forgetbench/internal/report"
	"forgetbench/internal/runlog"
	"forgetbench/internal/runner"
)

// runAnalyze builds the handler for the analyze command.
func runAnalyze(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		configPath := fs.String("config", "", "Path to config file")
		noColor := fs.Bool("no-color", false, "Disable colored output")
		if err := fs.Parse(args); err != nil {
			return usageError(cmd, stderr, "invalid arguments: %v", err)
		}
		if fs.NArg() != 1 {
			return usageError(cmd, stderr, "expected exactly one <run-dir>")
		}
		runDir := fs.Arg(0)
		if info, err := os.Stat(runDir); err != nil || !info.IsDir() {
			fmt.Fprintf(stderr, "Run directory not found: %s\n", runDir)
			return ExitError
		}

		proj, err := loadProject(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
			return ExitError
		}
		records, err := proj.loadRecords()
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load dataset: %v\n", err)
			return ExitError
		}
		input, err := analysis.LoadRun(runDir, records)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load run: %v\n", err)
			return ExitError
		}
		usage, err := runlog.ReadUsage(filepath.Join(runDir, runlog.UsageFileName))
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load usage: %v\n", err)
			return ExitError
		}
		paths := runner.PathsForRunDir(runDir)
		summary, err := runner.WriteAnalysis(context.Background(), paths, input, usage, runner.OutputOptions{
			Analysis: analysisOptions(proj.Config),
			DuckDB:   proj.Config.Store.DuckDB,
		})
		if err != nil {
			fmt.Fprintf(stderr, "Failed to write analysis: %v\n", err)
			return ExitError
		}
		fmt.Fprintln(stdout, report.RenderTable(summary, *noColor))
		fmt.Fprintf(stdout, "Summary: %s\n", paths.SummaryJSONPath())
		return ExitOK
	}
}
