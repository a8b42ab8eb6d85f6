package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"forgetbench/internal/config"
	"forgetbench/internal/record"
	"forgetbench/internal/spec"
)

// resolveConfigPath normalizes a config path or finds it from CWD.
func resolveConfigPath(configPath string) (string, error) {
	if strings.TrimSpace(configPath) == "" {
		return config.FindConfigPath("")
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return abs, nil
}

// project is a loaded config with its paths resolved against the project root.
type project struct {
	ConfigPath  string
	Root        string
	Config      spec.Config
	DatasetPath string
	OutputDir   string
}

// loadProject finds and loads the config.
func loadProject(configPath string) (project, error) {
	resolved, err := resolveConfigPath(configPath)
	if err != nil {
		return project{}, err
	}
	cfg, err := config.Load(resolved)
	if err != nil {
		return project{}, err
	}
	root := config.RootFromConfigPath(resolved)
	return project{
		ConfigPath:  resolved,
		Root:        root,
		Config:      cfg,
		DatasetPath: config.ResolvePath(root, cfg.Dataset),
		OutputDir:   config.ResolvePath(root, cfg.OutputDir),
	}, nil
}

// loadRecords reads and validates the project's dataset.
func (p project) loadRecords() ([]record.GoldRecord, error) {
	return record.Load(p.DatasetPath)
}
