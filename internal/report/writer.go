package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/lexaudit/lexaudit/internal/config"
)

// Writer persists reports as JSON files.
//
// Writes are atomic: the report is marshaled to a temp file in the target
// directory and renamed into place, so a reader never observes a half-written
// report and a rerun replaces the previous report in one step.
type Writer struct {
	dir    string
	logger *zap.Logger
}

// NewWriter creates a report writer for the configured directory.
func NewWriter(cfg config.ReportsConfig, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{dir: cfg.Dir, logger: logger}
}

// Write persists the report as <document>_final_report.json and returns the
// written path.
func (w *Writer) Write(r *Report) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating reports dir: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}

	target := filepath.Join(w.dir, safeName(r.DocumentName)+"_final_report.json")

	tmp, err := os.CreateTemp(w.dir, ".report-*.json")
	if err != nil {
		return "", fmt.Errorf("creating temp report: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp report: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("publishing report: %w", err)
	}

	w.logger.Info("report written",
		zap.String("path", target),
		zap.String("document", r.DocumentName),
		zap.Float64("pass_rate", r.RuleChecks.Summary.PassRate),
	)
	return target, nil
}

// safeName strips path separators and whitespace from a document name so it
// can be used as a file name.
func safeName(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_", "..", "_")
	out := replacer.Replace(name)
	if out == "" {
		return "document"
	}
	return out
}
