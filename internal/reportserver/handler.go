package reportserver

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"forgetbench/internal/runlog"
)

// NewHandler builds the HTTP handler serving a run directory's report,
// summary and DuckDB file.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.RunDir == "" {
		return nil, errors.New("reportserver: run dir is required")
	}
	info, err := os.Stat(cfg.RunDir)
	if err != nil {
		return nil, fmt.Errorf("reportserver: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("reportserver: %s is not a directory", cfg.RunDir)
	}

	mux := http.NewServeMux()
	mux.Handle("/{$}", serveFile(filepath.Join(cfg.RunDir, runlog.ReportFileName), "text/html; charset=utf-8"))
	mux.Handle("/summary.json", serveFile(filepath.Join(cfg.RunDir, runlog.SummaryJSONFileName), "application/json"))
	mux.Handle("/summary.csv", serveFile(filepath.Join(cfg.RunDir, runlog.SummaryCSVFileName), "text/csv; charset=utf-8"))
	mux.Handle("/data/verdicts.jsonl", serveFile(filepath.Join(cfg.RunDir, runlog.VerdictsFileName), "application/x-ndjson"))
	mux.Handle("/data/results.duckdb", serveFile(filepath.Join(cfg.RunDir, runlog.DatabaseFileName), "application/octet-stream"))
	return mux, nil
}

// serveFile serves one file from the run directory for GET and HEAD requests.
func serveFile(path, contentType string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if _, err := os.Stat(path); err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		http.ServeFile(w, r, path)
	})
}
