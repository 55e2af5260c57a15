package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/hyperjump/kurabe/internal/eval"
	"github.com/hyperjump/kurabe/internal/models"
)

var reportTemplate = template.Must(template.New("report").Parse(`# Retrieval Benchmark Report

- Run ID: ` + "`{{.S.RunID}}`" + `
- Vendor Set: ` + "`{{.S.VendorSetID}}`" + `
- Pipeline: ` + "`{{.S.PipelineID}}`" + `
- Docs: {{.S.NDocs}}
- Cases: {{.S.NCases}} (eval={{.S.NEval}}, skipped={{.S.NSkipped}}, bad_gold={{.S.NBadGold}})

## Metrics (mean)

{{if .Rows}}| Metric | Value |
|---|---:|
{{range .Rows}}| {{.Label}} | {{.Value}} |
{{end}}{{else}}(no metrics)
{{end}}
## Artifacts

{{range .Artifacts}}- {{.Label}}: ` + "`{{.Value}}`" + `
{{end}}`))

type reportRow struct {
	Label string
	Value string
}

var metricLabels = map[string]string{
	eval.PrecisionKey(eval.DefaultK): fmt.Sprintf("Precision@%d", eval.DefaultK),
	eval.RecallKey(eval.DefaultK):    fmt.Sprintf("Recall@%d", eval.DefaultK),
	eval.KeyMRR:                      "MRR",
	eval.NDCGKey(eval.DefaultK):      fmt.Sprintf("nDCG@%d", eval.DefaultK),
}

// RenderReport returns the Markdown report for s. Metrics are listed in the
// standard order, followed by any extra keys sorted by name.
func RenderReport(s *Summary, art *models.RunArtifacts) (string, error) {
	data := struct {
		S         *Summary
		Rows      []reportRow
		Artifacts []reportRow
	}{S: s}

	if s.NEval > 0 && len(s.Metrics) > 0 {
		seen := make(map[string]bool)
		for _, k := range eval.Keys(eval.DefaultK) {
			if v, ok := s.Metrics[k]; ok {
				data.Rows = append(data.Rows, reportRow{metricLabels[k], fmt.Sprintf("%.4f", v)})
				seen[k] = true
			}
		}
		var extra []string
		for k := range s.Metrics {
			if !seen[k] {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		for _, k := range extra {
			data.Rows = append(data.Rows, reportRow{k, fmt.Sprintf("%.4f", s.Metrics[k])})
		}
	}

	data.Artifacts = []reportRow{
		{"detail", filepath.Base(art.DetailPath)},
		{"summary", filepath.Base(art.SummaryPath)},
	}
	if art.MetricsPath != "" {
		data.Artifacts = append(data.Artifacts, reportRow{"telemetry", filepath.Base(art.MetricsPath)})
	}
	for _, key := range []string{"vendors", "pipelines"} {
		if p, ok := art.CopiedConfigs[key]; ok {
			data.Artifacts = append(data.Artifacts, reportRow{key, filepath.Join(ConfigsDir, filepath.Base(p))})
		}
	}

	var b strings.Builder
	if err := reportTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return b.String(), nil
}

// WriteReport writes a report produced by RenderReport to path.
func WriteReport(path, report string) error {
	if err := os.WriteFile(path, []byte(report), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
