package models

// Source identifies the stage that produced a score.
type Source string

const (
	SourceDense  Source = "dense"
	SourceBM25   Source = "bm25"
	SourceFused  Source = "fused"
	SourceRerank Source = "rerank"
)

// ScoredDoc is one ranked hit. Lists of ScoredDoc are sorted by descending score
// and are built fresh for each case.
type ScoredDoc struct {
	DocID  string         `json:"doc_id"`
	Score  float64        `json:"score"`
	Source Source         `json:"source"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// DocIDs returns the doc ids of docs in order.
func DocIDs(docs []ScoredDoc) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.DocID
	}
	return ids
}

// TopIDs returns at most n doc ids from the head of docs.
func TopIDs(docs []ScoredDoc, n int) []string {
	if n < len(docs) {
		docs = docs[:n]
	}
	return DocIDs(docs)
}

// RunArtifacts lists the files produced by a benchmark run.
type RunArtifacts struct {
	RunID         string            `json:"run_id"`
	OutDir        string            `json:"out_dir"`
	DetailPath    string            `json:"detail_path"`
	SummaryPath   string            `json:"summary_path"`
	ReportPath    string            `json:"report_path"`
	MetricsPath   string            `json:"metrics_path"`
	CopiedConfigs map[string]string `json:"copied_configs"`
}
