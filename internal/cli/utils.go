// Package cli renders kurabe command output as text or JSON.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/hyperjump/kurabe/internal/config"
	"github.com/hyperjump/kurabe/internal/eval"
	"github.com/hyperjump/kurabe/internal/models"
	"github.com/hyperjump/kurabe/internal/runlog"
	"github.com/hyperjump/kurabe/internal/storage"
	"github.com/hyperjump/kurabe/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates an --output value. Empty means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return OutputText, nil
	case OutputText, OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text or json)", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Listing is the output of `kurabe list`.
type Listing struct {
	VendorSets []*config.VendorSet `json:"vendor_sets"`
	Pipelines  []*config.Pipeline  `json:"pipelines"`
}

// NewListing orders vendor sets and pipelines by id.
func NewListing(sets map[string]*config.VendorSet, pipelines map[string]*config.Pipeline) *Listing {
	l := &Listing{
		VendorSets: make([]*config.VendorSet, 0, len(sets)),
		Pipelines:  make([]*config.Pipeline, 0, len(pipelines)),
	}
	for _, id := range config.SortedIDs(sets) {
		l.VendorSets = append(l.VendorSets, sets[id])
	}
	for _, id := range config.SortedIDs(pipelines) {
		l.Pipelines = append(l.Pipelines, pipelines[id])
	}
	return l
}

// WriteListing writes the configured vendor sets and pipelines.
func WriteListing(w io.Writer, l *Listing, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, l)
	}
	fmt.Fprintln(w, "Vendor sets:")
	for _, vs := range l.VendorSets {
		fmt.Fprintf(w, "  - %s (embedding=%s vector_db=%s bm25=%s rerank=%s)\n",
			vs.ID, vs.Embedding.Provider, vs.VectorDB.Provider, vs.BM25.Provider, vs.Rerank.Provider)
		if vs.Description != "" {
			fmt.Fprintf(w, "      %s\n", utils.Truncate(vs.Description, 100))
		}
	}
	fmt.Fprintln(w, "Pipelines:")
	for _, p := range l.Pipelines {
		steps := make([]string, len(p.Steps))
		for i, s := range p.Steps {
			steps[i] = string(s)
		}
		fmt.Fprintf(w, "  - %s: %s\n", p.ID, strings.Join(steps, " -> "))
		if p.Description != "" {
			fmt.Fprintf(w, "      %s\n", utils.Truncate(p.Description, 100))
		}
	}
	return nil
}

// WriteHistory writes registry records, newest first as given.
func WriteHistory(w io.Writer, runs []*storage.RunRecord, format OutputFormat) error {
	if format == OutputJSON {
		if runs == nil {
			runs = []*storage.RunRecord{}
		}
		return writeJSON(w, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tPIPELINE\tVENDOR SET\tEVAL\tP@10\tR@10\tMRR\tNDCG@10\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			r.RunID, r.PipelineID, r.VendorSetID, r.NEval,
			metricCell(r.Metrics, eval.PrecisionKey(eval.DefaultK)),
			metricCell(r.Metrics, eval.RecallKey(eval.DefaultK)),
			metricCell(r.Metrics, eval.KeyMRR),
			metricCell(r.Metrics, eval.NDCGKey(eval.DefaultK)),
			r.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func metricCell(m map[string]float64, key string) string {
	v, ok := m[key]
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.4f", v)
}

// RunOutput is the output of `kurabe run`.
type RunOutput struct {
	Summary   *runlog.Summary      `json:"summary"`
	Artifacts *models.RunArtifacts `json:"artifacts"`
}

// WriteRun writes the outcome of a completed run.
func WriteRun(w io.Writer, out *RunOutput, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, out)
	}
	s := out.Summary
	fmt.Fprintf(w, "Run %s finished: pipeline=%s vendor_set=%s\n", s.RunID, s.PipelineID, s.VendorSetID)
	fmt.Fprintf(w, "Cases: %d total, %d eval, %d skipped, %d bad gold\n", s.NCases, s.NEval, s.NSkipped, s.NBadGold)
	if len(s.Metrics) == 0 {
		fmt.Fprintln(w, "Metrics: (none)")
	} else {
		for _, key := range eval.Keys(eval.DefaultK) {
			fmt.Fprintf(w, "  %-13s %.4f\n", key, s.Metrics[key])
		}
	}
	fmt.Fprintf(w, "Artifacts: %s\n", out.Artifacts.OutDir)
	return nil
}
