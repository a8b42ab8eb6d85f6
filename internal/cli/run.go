package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"forgetbench/internal/analysis"
	"forgetbench/internal/config"
	"forgetbench/internal/ledger"
	"forgetbench/internal/metrics"
	"forgetbench/internal/prompt"
	"forgetbench/internal/provider"
	"forgetbench/internal/ratelimit"
	"forgetbench/internal/record"
	"forgetbench/internal/report"
	"forgetbench/internal/runner"
	"forgetbench/internal/spec"
	"forgetbench/internal/ui/live"
)

// Test seams.
var (
	executeRun  = runner.Execute
	httpDoer    provider.HTTPDoer
	dialLedger  = dialTigerBeetle
	startLiveUI = func(stdout io.Writer, noColor bool, interrupt func()) liveUI {
		return live.Start(stdout, live.Options{NoColor: noColor, Interrupt: interrupt})
	}
)

// liveUI is the part of live.Controller the run command drives.
type liveUI interface {
	runner.Observer
	Close()
	Wait()
}

// usageSink records run usage in an external ledger.
type usageSink interface {
	Record(ctx context.Context, runID string, entries []ledger.Entry) error
	Close() error
}

func dialTigerBeetle(cfg spec.LedgerConfig) (usageSink, error) {
	return ledger.Dial(cfg.ClusterID, cfg.Addresses)
}

// runOptions are the parsed flags of the run command.
type runOptions struct {
	configPath  string
	outputDir   string
	limit       int
	backends    []string
	ui          string
	verbose     bool
	logPath     string
	noColor     bool
	metricsAddr string
}

func parseRunFlags(cmd *Command, args []string, stderr io.Writer) (runOptions, int, bool) {
	var opts runOptions
	fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to config file")
	fs.StringVar(&opts.outputDir, "output-dir", "", "Override output directory")
	fs.IntVar(&opts.limit, "limit", -1, "Evaluate only the first n records (0 = all)")
	fs.Func("backend", "Backend id to run (repeatable; default: all)", func(value string) error {
		if strings.TrimSpace(value) == "" {
			return errors.New("backend id is empty")
		}
		opts.backends = append(opts.backends, strings.TrimSpace(value))
		return nil
	})
	fs.StringVar(&opts.ui, "ui", "auto", "Console UI: auto|live|plain")
	fs.BoolVar(&opts.verbose, "verbose", false, "Print a line per unit")
	fs.StringVar(&opts.logPath, "log", "", "Also write verbose lines to this file")
	fs.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	if err := fs.Parse(args); err != nil {
		return runOptions{}, usageError(cmd, stderr, "invalid arguments: %v", err), false
	}
	if fs.NArg() > 0 {
		return runOptions{}, usageError(cmd, stderr, "unexpected arguments: %s", strings.Join(fs.Args(), " ")), false
	}
	return opts, ExitOK, true
}

// runRun builds the handler for the run command.
func runRun(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		opts, code, ok := parseRunFlags(cmd, args, stderr)
		if !ok {
			return code
		}
		mode, warning, err := resolveUIMode(opts.ui, opts.verbose, stdout)
		if err != nil {
			return usageError(cmd, stderr, "%v", err)
		}
		if warning != "" {
			fmt.Fprintln(stderr, warning)
		}

		proj, err := loadProject(opts.configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
			return ExitError
		}
		cfg := proj.Config
		records, err := proj.loadRecords()
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load dataset: %v\n", err)
			return ExitError
		}
		limit := cfg.Limit
		if opts.limit >= 0 {
			limit = opts.limit
		}
		records = record.Limit(records, limit)
		modes, err := parseModes(cfg.Modes)
		if err != nil {
			fmt.Fprintf(stderr, "Invalid modes: %v\n", err)
			return ExitError
		}
		backends, err := runner.BackendsFromConfig(cfg, opts.backends, lookupEnv, httpDoer)
		if err != nil {
			return usageError(cmd, stderr, "%v", err)
		}

		signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		ctx, cancelRun := context.WithCancel(signalCtx)
		defer cancelRun()

		runID, err := runner.NewRunID()
		if err != nil {
			fmt.Fprintf(stderr, "Failed to create run id: %v\n", err)
			return ExitError
		}
		outputRoot := proj.OutputDir
		if opts.outputDir != "" {
			outputRoot = opts.outputDir
		}
		dataset, err := runner.DescribeDataset(ctx, proj.DatasetPath, len(records))
		if err != nil {
			fmt.Fprintf(stderr, "Failed to read dataset: %v\n", err)
			return ExitError
		}

		var logWriter io.Writer
		if opts.logPath != "" {
			file, err := openLogFile(opts.logPath)
			if err != nil {
				fmt.Fprintf(stderr, "Failed to open log: %v\n", err)
				return ExitError
			}
			defer file.Close()
			logWriter = file
		}

		recorder := metrics.New()
		if opts.metricsAddr != "" {
			shutdown, bound, err := serveMetrics(opts.metricsAddr, recorder)
			if err != nil {
				fmt.Fprintf(stderr, "Failed to serve metrics: %v\n", err)
				return ExitError
			}
			defer shutdown()
			fmt.Fprintf(stderr, "Serving metrics at http://%s/metrics\n", bound)
		}

		params := runner.Params{
			RunID:            runID,
			Records:          records,
			Modes:            modes,
			Backends:         backends,
			Gates:            ratelimit.BuildGates(cfg.Providers),
			Metrics:          recorder,
			Dataset:          &dataset,
			Verbose:          opts.verbose || logWriter != nil,
			VerboseLogWriter: logWriter,
			NoColor:          opts.noColor,
		}
		if opts.verbose {
			params.VerboseWriter = stdout
		}
		var ui liveUI
		switch {
		case mode == uiLive:
			ui = startLiveUI(stdout, opts.noColor, cancelRun)
			params.Observer = ui
		case !opts.verbose:
			params.Observer = newPlainProgress(stdout)
		}

		run, err := executeRun(ctx, params)
		if ui != nil {
			ui.Close()
			ui.Wait()
		}
		if err != nil {
			fmt.Fprintf(stderr, "Run failed: %v\n", err)
			return ExitError
		}

		exitCode := ExitOK
		if cfg.Ledger.Mode == config.LedgerTigerBeetle {
			if err := recordUsage(context.WithoutCancel(ctx), cfg.Ledger, run); err != nil {
				fmt.Fprintf(stderr, "Ledger error: %v\n", err)
				exitCode = ExitError
			}
		}

		paths, summary, err := runner.WriteOutputs(context.WithoutCancel(ctx), run, outputRoot, runner.OutputOptions{
			Analysis: analysisOptions(cfg),
			DuckDB:   cfg.Store.DuckDB,
		})
		if err != nil {
			fmt.Fprintf(stderr, "Failed to write outputs: %v\n", err)
			return ExitError
		}

		fmt.Fprintln(stdout, report.RenderTable(summary, opts.noColor))
		for backend, message := range run.FatalErrors() {
			fmt.Fprintf(stderr, "Backend %s aborted: %s\n", backend, message)
		}
		if len(run.Failures) > 0 {
			fmt.Fprintf(stderr, "%d unit(s) produced no verdict; see %s\n", len(run.Failures), paths.FailuresPath())
		}
		if run.Canceled {
			fmt.Fprintf(stderr, "Run %s was interrupted\n", run.RunID)
			exitCode = ExitError
		}
		fmt.Fprintf(stdout, "Run %s completed\n", run.RunID)
		fmt.Fprintf(stdout, "Verdicts: %s\n", paths.VerdictsPath())
		fmt.Fprintf(stdout, "Summary: %s\n", paths.SummaryJSONPath())
		fmt.Fprintf(stdout, "Report: %s\n", paths.ReportPath())
		return exitCode
	}
}

func parseModes(values []string) ([]prompt.Mode, error) {
	modes := make([]prompt.Mode, 0, len(values))
	for _, value := range values {
		mode, err := prompt.ParseMode(value)
		if err != nil {
			return nil, err
		}
		modes = append(modes, mode)
	}
	return modes, nil
}

func analysisOptions(cfg spec.Config) analysis.Options {
	return analysis.Options{
		Confidence:     cfg.Analysis.Confidence,
		ExactThreshold: cfg.Analysis.McNemarExactThreshold,
	}
}

func recordUsage(ctx context.Context, cfg spec.LedgerConfig, run runner.Run) error {
	sink, err := dialLedger(cfg)
	if err != nil {
		return err
	}
	recordErr := sink.Record(ctx, run.RunID, run.Usage)
	closeErr := sink.Close()
	if recordErr != nil {
		return recordErr
	}
	return closeErr
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// serveMetrics exposes the recorder until the returned shutdown is called.
func serveMetrics(addr string, recorder *metrics.Recorder) (func(), string, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		_ = server.Serve(listener)
	}()
	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
	return shutdown, listener.Addr().String(), nil
}
