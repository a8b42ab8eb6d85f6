package runner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"forgetbench/internal/vcs"
)

// DatasetInfo identifies the dataset a run evaluated.
type DatasetInfo struct {
	Path    string `json:"path"`
	SHA256  string `json:"sha256"`
	Records int    `json:"records"`
	Commit  string `json:"commit,omitempty"`
	Dirty   bool   `json:"dirty,omitempty"`
}

// revisionOf is a test seam for git lookups.
var revisionOf = vcs.FileRevision

// DescribeDataset hashes the dataset file and, when it lives in a git
// repository, records the commit it was read at.
func DescribeDataset(ctx context.Context, path string, records int) (DatasetInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return DatasetInfo{}, fmt.Errorf("hash dataset: %w", err)
	}
	info := DatasetInfo{
		Path:    path,
		SHA256:  hex.EncodeToString(hash.Sum(nil)),
		Records: records,
	}
	if revision, err := revisionOf(ctx, path); err == nil {
		info.Commit = revision.Commit
		info.Dirty = revision.Dirty
	}
	return info, nil
}
