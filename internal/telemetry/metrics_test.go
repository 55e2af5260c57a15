package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kurabe/internal/eval"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_Cases(t *testing.T) {
	r := NewRecorder("r1", "bm25_only", "local_mock")
	r.RecordCase("EVAL")
	r.RecordCase("EVAL")
	r.RecordCase("SKIPPED")

	expected := `
		# HELP kurabe_cases_total Query cases processed, by final status
		# TYPE kurabe_cases_total counter
		kurabe_cases_total{pipeline="bm25_only",run_id="r1",status="EVAL",vendor_set="local_mock"} 2
		kurabe_cases_total{pipeline="bm25_only",run_id="r1",status="SKIPPED",vendor_set="local_mock"} 1
	`
	if err := testutil.CollectAndCompare(r.CasesTotal, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metric value: %v", err)
	}
}

func TestRecorder_StagesAndMetrics(t *testing.T) {
	r := NewRecorder("r1", "p", "v")
	r.RecordStage("bm25", 2.5, 10)
	r.RecordStage("dense", 1, 5)
	r.SetMetrics(eval.Metrics{"mrr": 0.5, "ndcg@10": 0.25})

	if n := testutil.CollectAndCount(r.StageLatency); n != 2 {
		t.Errorf("expected 2 stage series, got %d", n)
	}
	if v := testutil.ToFloat64(r.MetricMean.WithLabelValues("mrr")); v != 0.5 {
		t.Errorf("mrr gauge = %v", v)
	}
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder("r1", "p", "v")
	r.SetEmbedDocs(1500)
	r.RecordCase("EVAL")

	path := filepath.Join(t.TempDir(), "metrics.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `kurabe_embed_docs_seconds{pipeline="p",run_id="r1",vendor_set="v"} 1.5`) {
		t.Errorf("textfile missing embed gauge:\n%s", data)
	}
}

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	r.RecordCase("EVAL")
	r.RecordStage("bm25", 1, 1)
	r.SetMetrics(eval.Metrics{"mrr": 1})
	if err := r.WriteTextfile(filepath.Join(t.TempDir(), "x")); err != nil {
		t.Errorf("nil recorder should not fail: %v", err)
	}
}
