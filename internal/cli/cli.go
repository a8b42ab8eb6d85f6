// Package cli implements the forgetbench command line.
package cli

import (
	"fmt"
	"io"
)

const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

type Command struct {
	Name    string
	Summary string
	Usage   []string
	Run     func(args []string, stdout, stderr io.Writer) int
}

func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stdout)
		return ExitUsage
	}
	if isHelpArg(args[0]) {
		printUsage(stdout)
		return ExitOK
	}

	cmd := findCommand(args[0])
	if cmd == nil {
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return ExitUsage
	}

	return cmd.Run(args[1:], stdout, stderr)
}

func findCommand(name string) *Command {
	for _, cmd := range commands {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}

func isHelpArg(arg string) bool {
	switch arg {
	case "-h", "--help", "help":
		return true
	default:
		return false
	}
}

func wantsHelp(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "-h", "--help":
			return true
		}
	}
	return false
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  forgetbench <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-9s %s\n", cmd.Name, cmd.Summary)
	}
	fmt.Fprintln(w, "\nUse \"forgetbench <command> --help\" for more information.")
}

func printCommandUsage(cmd *Command, w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	for _, line := range cmd.Usage {
		fmt.Fprintf(w, "  %s\n", line)
	}
	if cmd.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", cmd.Summary)
	}
}

// usageError reports a flag parsing problem and prints the command usage.
func usageError(cmd *Command, stderr io.Writer, format string, args ...any) int {
	fmt.Fprintf(stderr, format+"\n", args...)
	printCommandUsage(cmd, stderr)
	return ExitUsage
}

func command(name, summary string, usage []string, runner func(cmd *Command) func(args []string, stdout, stderr io.Writer) int) *Command {
	cmd := &Command{
		Name:    name,
		Summary: summary,
		Usage:   usage,
	}
	cmd.Run = runner(cmd)
	return cmd
}

var commands = []*Command{
	command("init", "Scaffold .forgetbench/config.yml", []string{
		"forgetbench init [--config <path>] [--dataset <path>]",
	}, runInit),
	command("validate", "Validate the config and dataset", []string{
		"forgetbench validate [--config <path>]",
	}, runValidate),
	command("prompt", "Print the prompt sent for one record", []string{
		"forgetbench prompt --record <id> --mode direct|chain_of_thought [--config <path>]",
	}, runPrompt),
	command("run", "Evaluate every backend under every mode", []string{
		"forgetbench run [--config <path>] [--output-dir <dir>] [--limit <n>] [--backend <id>]...",
		"                [--ui auto|live|plain] [--verbose] [--log <path>] [--no-color] [--metrics-addr <addr>]",
	}, runRun),
	command("analyze", "Recompute statistics for a finished run", []string{
		"forgetbench analyze <run-dir> [--config <path>]",
	}, runAnalyze),
	command("serve", "Serve a run's report over HTTP", []string{
		"forgetbench serve <run-dir> [--addr <host:port>]",
	}, runServe),
}
