package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"forgetbench/internal/reportserver"
)

// serveReport is a test seam for running the report server.
var serveReport = reportserver.Serve

// runServe builds the handler for the serve command.
func runServe(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}

		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		addr := fs.String("addr", "127.0.0.1:5000", "Address to listen on")
		if err := fs.Parse(args); err != nil {
			return usageError(cmd, stderr, "invalid arguments: %v", err)
		}
		runDir := fs.Arg(0)
		if runDir == "" {
			return usageError(cmd, stderr, "Missing <run-dir>")
		}
		if fs.NArg() > 1 {
			return usageError(cmd, stderr, "Too many arguments")
		}
		if *addr == "" {
			return usageError(cmd, stderr, "Missing --addr")
		}
		if info, err := os.Stat(runDir); err != nil || !info.IsDir() {
			fmt.Fprintf(stderr, "Run directory not found: %s\n", runDir)
			return ExitError
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		cfg := reportserver.Config{
			Addr:   *addr,
			RunDir: runDir,
			Ready: func(bound string) {
				fmt.Fprintf(stdout, "Serving report at http://%s\n", bound)
			},
		}
		if err := serveReport(ctx, cfg); err != nil {
			fmt.Fprintf(stderr, "Server error: %v\n", err)
			return ExitError
		}
		return ExitOK
	}
}
