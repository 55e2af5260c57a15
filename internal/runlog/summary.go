package runlog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hyperjump/kurabe/internal/eval"
	"github.com/zeebo/blake3"
)

// Summary is the final record of a run, written to summary.json and emitted
// as the run_end event.
type Summary struct {
	RunID       string       `json:"run_id"`
	VendorSetID string       `json:"vendor_set_id"`
	PipelineID  string       `json:"pipeline_id"`
	NDocs       int          `json:"n_docs"`
	NCases      int          `json:"n_cases"`
	NEval       int          `json:"n_eval"`
	NSkipped    int          `json:"n_skipped"`
	NBadGold    int          `json:"n_bad_gold"`
	Metrics     eval.Metrics `json:"metrics"`
	// Inputs maps catalog/testcases/vendors/pipelines to a content fingerprint.
	Inputs     map[string]string `json:"inputs,omitempty"`
	StartedAt  string            `json:"started_at,omitempty"`
	DurationMS float64           `json:"duration_ms"`
}

// WriteJSON writes v to path as indented JSON.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadSummary loads a summary.json written by WriteJSON.
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse summary %s: %w", path, err)
	}
	return &s, nil
}

// Fingerprint returns "blake3:<hex>" for the contents of path.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return fmt.Sprintf("blake3:%x", h.Sum(nil)), nil
}

// Fingerprints hashes every named path. Empty paths are skipped.
func Fingerprints(paths map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(paths))
	for name, p := range paths {
		if p == "" {
			continue
		}
		fp, err := Fingerprint(p)
		if err != nil {
			return nil, fmt.Errorf("fingerprint %s: %w", name, err)
		}
		out[name] = fp
	}
	return out, nil
}
