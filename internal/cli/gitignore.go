package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// addGitignoreEntry appends outputDir, relative to root, to root/.gitignore.
// It reports the entry and whether the file changed.
func addGitignoreEntry(root, outputDir string) (string, bool, error) {
	entry, err := gitignoreEntry(root, outputDir)
	if err != nil {
		return "", false, err
	}
	path := filepath.Join(root, ".gitignore")
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return "", false, fmt.Errorf("read .gitignore: %w", err)
	}
	for _, line := range strings.Split(string(existing), "\n") {
		if strings.TrimSuffix(strings.TrimSpace(line), "/") == strings.TrimSuffix(entry, "/") {
			return entry, false, nil
		}
	}
	content := string(existing)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += entry + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", false, fmt.Errorf("write .gitignore: %w", err)
	}
	return entry, true, nil
}

// gitignoreEntry converts outputDir into a slash-separated directory pattern
// rooted at root.
func gitignoreEntry(root, outputDir string) (string, error) {
	if strings.TrimSpace(outputDir) == "" {
		return "", fmt.Errorf("output dir is required")
	}
	rel := filepath.Clean(outputDir)
	if filepath.IsAbs(rel) {
		var err error
		rel, err = filepath.Rel(root, rel)
		if err != nil {
			return "", fmt.Errorf("resolve output dir: %w", err)
		}
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("output dir %q is outside %s", outputDir, root)
	}
	return "/" + filepath.ToSlash(rel) + "/", nil
}
