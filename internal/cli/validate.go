package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// lookupEnv resolves credentials; tests replace it.
var lookupEnv = os.Getenv

// runValidate builds the handler for the validate command.
func runValidate(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}

		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		configPath := flags.String("config", "", "Path to config file (default: search for .forgetbench/config.yml)")
		if err := flags.Parse(args); err != nil {
			return usageError(cmd, stderr, "invalid arguments: %v", err)
		}
		if flags.NArg() > 0 {
			return usageError(cmd, stderr, "unexpected arguments: %s", strings.Join(flags.Args(), " "))
		}

		proj, err := loadProject(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Validation failed:\n%v\n", err)
			return ExitError
		}
		records, err := proj.loadRecords()
		if err != nil {
			fmt.Fprintf(stderr, "Validation failed:\n%v\n", err)
			return ExitError
		}

		for _, backend := range proj.Config.Backends {
			if strings.TrimSpace(lookupEnv(backend.APIKeyEnv)) == "" {
				fmt.Fprintf(stderr, "Warning: %s is not set; backend %s will fail\n", backend.APIKeyEnv, backend.ID)
			}
		}
		fmt.Fprintf(stdout, "Config OK: %d backend(s), %d mode(s), %d record(s)\n",
			len(proj.Config.Backends), len(proj.Config.Modes), len(records))
		return ExitOK
	}
}
