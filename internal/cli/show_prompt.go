package cli

import (
	"flag"
	"fmt"
	"io"

	"forgetbench/internal/prompt"
	"forgetbench/internal/record"
)

// runPrompt builds the handler for the prompt command.
func runPrompt(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}

		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		configPath := flags.String("config", "", "Path to config file")
		recordID := flags.String("record", "", "Record id")
		modeName := flags.String("mode", string(prompt.ModeDirect), "Prompt mode")
		if err := flags.Parse(args); err != nil {
			return usageError(cmd, stderr, "invalid arguments: %v", err)
		}
		if *recordID == "" {
			return usageError(cmd, stderr, "missing --record")
		}
		mode, err := prompt.ParseMode(*modeName)
		if err != nil {
			return usageError(cmd, stderr, "%v", err)
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
		rec, ok := record.Index(records)[*recordID]
		if !ok {
			fmt.Fprintf(stderr, "Record %q not found in %s\n", *recordID, proj.DatasetPath)
			return ExitError
		}
		text, err := prompt.Render(rec, mode)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to render prompt: %v\n", err)
			return ExitError
		}
		fmt.Fprintln(stdout, text)
		return ExitOK
	}
}
