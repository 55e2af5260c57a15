// Package runlog owns the on-disk artifacts of a benchmark run: the run
// directory, the JSON-lines event log, the summary, the Markdown report and
// copies of the configuration files used.
package runlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/kurabe/internal/models"
)

// Artifact file names inside a run directory.
const (
	DetailFile  = "detail.jsonl"
	SummaryFile = "summary.json"
	ReportFile  = "report.md"
	MetricsFile = "metrics.prom"
	ConfigsDir  = "configs"
)

// NewRunID returns a sortable run id: the UTC time as 20060102_150405
// followed by 8 random hex characters, so concurrent runs never share a directory.
func NewRunID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return now.UTC().Format("20060102_150405") + "-" + suffix
}

// Prepare creates <outDir>/<runID> and returns the artifact paths inside it.
func Prepare(outDir, runID string) (*models.RunArtifacts, error) {
	if runID == "" {
		runID = NewRunID(time.Now())
	}
	root := filepath.Join(outDir, runID)
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	return &models.RunArtifacts{
		RunID:         runID,
		OutDir:        root,
		DetailPath:    filepath.Join(root, DetailFile),
		SummaryPath:   filepath.Join(root, SummaryFile),
		ReportPath:    filepath.Join(root, ReportFile),
		MetricsPath:   filepath.Join(root, MetricsFile),
		CopiedConfigs: make(map[string]string),
	}, nil
}

// CopyConfigs copies the vendor and pipeline YAML files into the run's
// configs directory. Paths that do not exist are skipped.
func CopyConfigs(art *models.RunArtifacts, vendorsPath, pipelinesPath string) error {
	dir := filepath.Join(art.OutDir, ConfigsDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create configs directory: %w", err)
	}
	if art.CopiedConfigs == nil {
		art.CopiedConfigs = make(map[string]string)
	}
	for key, src := range map[string]string{"vendors": vendorsPath, "pipelines": pipelinesPath} {
		if src == "" {
			continue
		}
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		dst := filepath.Join(dir, filepath.Base(src))
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("failed to copy %s config: %w", key, err)
		}
		art.CopiedConfigs[key] = dst
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
