package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"forgetbench/internal/config"
	"forgetbench/internal/vcs"
)

// initInput allows tests to override stdin for init prompts.
var initInput io.Reader = os.Stdin

// runInit builds the handler for the init command.
func runInit(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}

		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		configPath := flags.String("config", "", "Path to config file (default: .forgetbench/config.yml in the git root or working directory)")
		dataset := flags.String("dataset", "", "Dataset path written into the config")
		if err := flags.Parse(args); err != nil {
			return usageError(cmd, stderr, "invalid arguments: %v", err)
		}
		if flags.NArg() > 0 {
			return usageError(cmd, stderr, "unexpected arguments: %s", strings.Join(flags.Args(), " "))
		}

		target, root, err := initTarget(strings.TrimSpace(*configPath))
		if err != nil {
			fmt.Fprintf(stderr, "Init failed: %v\n", err)
			return ExitError
		}
		if info, err := os.Stat(target); err == nil {
			if info.IsDir() {
				fmt.Fprintf(stderr, "Init failed: config path %q is a directory\n", target)
				return ExitError
			}
			fmt.Fprintf(stderr, "Init failed: config file already exists at %q\n", target)
			return ExitError
		} else if !os.IsNotExist(err) {
			fmt.Fprintf(stderr, "Init failed: stat config file: %v\n", err)
			return ExitError
		}

		reader := bufio.NewReader(initInput)
		confirm, err := promptYesNo(reader, stdout, fmt.Sprintf("Initialize forgetbench config at %s?", target), true)
		if err != nil {
			fmt.Fprintf(stderr, "Init failed: %v\n", err)
			return ExitError
		}
		if !confirm {
			fmt.Fprintln(stderr, "Init cancelled.")
			return ExitError
		}
		datasetPath := strings.TrimSpace(*dataset)
		if datasetPath == "" {
			datasetPath, err = promptString(reader, stdout, "Dataset (JSON Lines)", "data/conditional_forgetting.jsonl")
			if err != nil {
				fmt.Fprintf(stderr, "Init failed: %v\n", err)
				return ExitError
			}
		}
		outputDir, err := promptString(reader, stdout, "Results folder", config.DefaultOutputDir)
		if err != nil {
			fmt.Fprintf(stderr, "Init failed: %v\n", err)
			return ExitError
		}
		addGitignore := false
		if root != "" {
			addGitignore, err = promptYesNo(reader, stdout, "Add results folder to .gitignore?", true)
			if err != nil {
				fmt.Fprintf(stderr, "Init failed: %v\n", err)
				return ExitError
			}
		}

		if err := config.Scaffold(target, datasetPath, outputDir); err != nil {
			fmt.Fprintf(stderr, "Init failed: %v\n", err)
			return ExitError
		}
		fmt.Fprintf(stdout, "Wrote %s\n", target)
		if addGitignore {
			entry, updated, err := addGitignoreEntry(root, config.ResolvePath(config.RootFromConfigPath(target), outputDir))
			if err != nil {
				fmt.Fprintf(stderr, "Init failed: update .gitignore: %v\n", err)
				return ExitError
			}
			if updated {
				fmt.Fprintf(stdout, "Added %s to %s\n", entry, filepath.Join(root, ".gitignore"))
			}
		}
		return ExitOK
	}
}

// initTarget picks the config path and the git root, if any, that owns it.
func initTarget(configPath string) (string, string, error) {
	if configPath != "" {
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return "", "", err
		}
		return abs, discoverGitRoot(config.RootFromConfigPath(abs)), nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", "", err
	}
	root := discoverGitRoot(wd)
	base := root
	if base == "" {
		base = wd
	}
	return config.ConfigPath(base), root, nil
}

// discoverGitRoot returns the git root or empty when not found.
func discoverGitRoot(startDir string) string {
	root, err := vcs.DiscoverRepoRoot(context.Background(), startDir)
	if err != nil {
		return ""
	}
	return root
}
