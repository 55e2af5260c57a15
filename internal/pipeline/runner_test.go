package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kurabe/internal/config"
	"github.com/hyperjump/kurabe/internal/embedding"
	"github.com/hyperjump/kurabe/internal/keyword"
	"github.com/hyperjump/kurabe/internal/models"
	"github.com/hyperjump/kurabe/internal/rerank"
	"github.com/hyperjump/kurabe/internal/runlog"
	"github.com/hyperjump/kurabe/internal/storage"
	"github.com/hyperjump/kurabe/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	stationeryCatalog = "doc_id\ttitle\ttext\tcategory\n" +
		"P1\tBlue Pen\tblue pen\tstationery\n" +
		"P2\tRed Marker\tred marker\tstationery\n" +
		"P3\tNotebook\tnotebook\tpaper\n"
	testcasesHeader = "id\traw_text\tintent_text\texpected_doc_ids\tbm25_query_text\texpected_category\tneeds_clarification\tnotes\n"
)

type inputs struct {
	dir, catalog, testcases, vendors, pipelines, out string
}

func writeInputs(t *testing.T, catalog, testcases string) inputs {
	t.Helper()
	dir := t.TempDir()
	in := inputs{
		dir:       dir,
		catalog:   filepath.Join(dir, "catalog.tsv"),
		testcases: filepath.Join(dir, "testcases.tsv"),
		vendors:   filepath.Join(dir, "vendors.yaml"),
		pipelines: filepath.Join(dir, "pipelines.yaml"),
		out:       filepath.Join(dir, "runs"),
	}
	files := map[string]string{
		in.catalog:   catalog,
		in.testcases: testcases,
		in.vendors:   "vendor_sets:\n  local_mock: {}\n",
		in.pipelines: "pipelines:\n  bm25_only:\n    steps: [bm25]\n",
	}
	for path, content := range files {
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}
	return in
}

func mockVendorSet() *config.VendorSet {
	vs := &config.VendorSet{ID: "local_mock"}
	config.ApplyVendorDefaults(vs)
	return vs
}

func newPipeline(id string, steps ...config.Step) *config.Pipeline {
	p := &config.Pipeline{ID: id, Steps: steps}
	config.ApplyPipelineDefaults(p)
	return p
}

type event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readEvents(t *testing.T, path string) []event {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var out []event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		out = append(out, ev)
	}
	return out
}

func TestRun_LexicalOnlyEndToEnd(t *testing.T) {
	in := writeInputs(t, stationeryCatalog, testcasesHeader+
		"T1\tblue pen\t\tP1\t\t\t\t\n"+
		"T2\tsomething vague\t\tP2\t\t\ttrue\t\n"+
		"T3\tgreen pencil\t\tP9\t\t\t\t\n"+
		"T4\tnotebook\t\t\t\t\t\t\n")

	reg, err := storage.NewSQLiteRegistry(filepath.Join(in.dir, "registry.db"))
	require.NoError(t, err)
	defer reg.Close()

	runner := NewRunner(WithRegistry(reg))
	res, err := runner.Run(context.Background(), Input{
		VendorSet:     mockVendorSet(),
		Pipeline:      newPipeline("bm25_only", config.StepBM25),
		CatalogPath:   in.catalog,
		TestcasesPath: in.testcases,
		VendorsPath:   in.vendors,
		PipelinesPath: in.pipelines,
		OutDir:        in.out,
	})
	require.NoError(t, err)

	s := res.Summary
	assert.Equal(t, 3, s.NDocs)
	assert.Equal(t, 4, s.NCases)
	assert.Equal(t, 1, s.NEval, "only the case with gold contributes metrics")
	assert.Equal(t, 1, s.NSkipped)
	assert.Equal(t, 1, s.NBadGold)
	assert.InDelta(t, 0.1, s.Metrics["precision@10"], 1e-9)
	assert.InDelta(t, 1.0, s.Metrics["recall@10"], 1e-9)
	assert.InDelta(t, 1.0, s.Metrics["mrr"], 1e-9)
	assert.InDelta(t, 1.0, s.Metrics["ndcg@10"], 1e-9)
	assert.Contains(t, s.Inputs["catalog"], "blake3:")

	art := res.Artifacts
	assert.FileExists(t, art.SummaryPath)
	assert.FileExists(t, art.ReportPath)
	assert.FileExists(t, art.MetricsPath)
	assert.FileExists(t, filepath.Join(art.OutDir, "configs", "vendors.yaml"))
	assert.FileExists(t, filepath.Join(art.OutDir, "configs", "pipelines.yaml"))

	events := readEvents(t, art.DetailPath)
	require.Len(t, events, 6)
	assert.Equal(t, "run_start", events[0].Type)
	assert.Equal(t, "run_end", events[5].Type)

	var first CaseRecord
	require.NoError(t, json.Unmarshal(events[1].Payload, &first))
	assert.Equal(t, models.StatusEval, first.Status)
	assert.Equal(t, "P1", first.PredictedDocIDs[0])
	assert.Equal(t, []string{"P1", "P2", "P3"}, first.Top5BM25DocIDs)
	assert.Equal(t, 3, first.StageCounts.BM25)

	var skipped CaseRecord
	require.NoError(t, json.Unmarshal(events[2].Payload, &skipped))
	assert.Equal(t, models.StatusSkipped, skipped.Status)
	assert.Nil(t, skipped.Metrics)

	var bad CaseRecord
	require.NoError(t, json.Unmarshal(events[3].Payload, &bad))
	assert.Equal(t, models.StatusBadGold, bad.Status)
	assert.Equal(t, []string{"P9"}, bad.MissingExpectedDocIDs)

	var noGold CaseRecord
	require.NoError(t, json.Unmarshal(events[4].Payload, &noGold))
	assert.Equal(t, models.StatusEval, noGold.Status)
	assert.Nil(t, noGold.Metrics)
	assert.Equal(t, "P3", noGold.PredictedDocIDs[0])

	rec, err := reg.GetRun(context.Background(), art.RunID)
	require.NoError(t, err)
	assert.Equal(t, "bm25_only", rec.PipelineID)
	assert.Positive(t, rec.ArtifactBytes)
}

func TestRun_NoEvaluableCases(t *testing.T) {
	in := writeInputs(t, stationeryCatalog, testcasesHeader+"T1\tpen\t\t\t\t\t\t\n")
	res, err := NewRunner().Run(context.Background(), Input{
		VendorSet:     mockVendorSet(),
		Pipeline:      newPipeline("bm25_only", config.StepBM25),
		CatalogPath:   in.catalog,
		TestcasesPath: in.testcases,
		OutDir:        in.out,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Summary.NEval)
	assert.Nil(t, res.Summary.Metrics)

	report, err := os.ReadFile(res.Artifacts.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(report), "(no metrics)")
}

func TestRun_ClockStampsRunID(t *testing.T) {
	in := writeInputs(t, stationeryCatalog, testcasesHeader+"T1\tblue pen\t\tP1\t\t\t\t\n")
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	res, err := NewRunner(WithClock(func() time.Time { return fixed })).Run(context.Background(), Input{
		VendorSet:     mockVendorSet(),
		Pipeline:      newPipeline("bm25_only", config.StepBM25),
		CatalogPath:   in.catalog,
		TestcasesPath: in.testcases,
		OutDir:        in.out,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Summary.RunID, "20260102_030405-"), res.Summary.RunID)
	assert.Equal(t, "2026-01-02T03:04:05Z", res.Summary.StartedAt)
	assert.DirExists(t, filepath.Join(in.out, res.Summary.RunID))
}

func TestRun_ReportFailureWritesNoSummary(t *testing.T) {
	in := writeInputs(t, stationeryCatalog, testcasesHeader+"T1\tblue pen\t\tP1\t\t\t\t\n")
	r := NewRunner()
	r.render = func(*runlog.Summary, *models.RunArtifacts) (string, error) {
		return "", errors.New("template broke")
	}
	_, err := r.Run(context.Background(), Input{
		VendorSet:     mockVendorSet(),
		Pipeline:      newPipeline("bm25_only", config.StepBM25),
		CatalogPath:   in.catalog,
		TestcasesPath: in.testcases,
		OutDir:        in.out,
	})
	require.ErrorContains(t, err, "template broke")

	for _, name := range []string{"summary.json", "report.md"} {
		matches, err := filepath.Glob(filepath.Join(in.out, "*", name))
		require.NoError(t, err)
		assert.Empty(t, matches, name)
	}
}

func TestRun_GuardViolationCreatesNoArtifacts(t *testing.T) {
	in := writeInputs(t, stationeryCatalog, testcasesHeader+"T1\tblue pen\t\tP1\t\t\t\t\n")
	_, err := NewRunner().Run(context.Background(), Input{
		VendorSet:     mockVendorSet(),
		Pipeline:      newPipeline("bm25_only", config.StepBM25, config.StepDense),
		CatalogPath:   in.catalog,
		TestcasesPath: in.testcases,
		OutDir:        in.out,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGuard))
	assert.NoDirExists(t, in.out)
}

func TestRun_DenseWithMockEmbedder(t *testing.T) {
	in := writeInputs(t, stationeryCatalog, testcasesHeader+"T1\tx\t\tP2\tred marker\t\t\t\n")
	res, err := NewRunner().Run(context.Background(), Input{
		VendorSet:     mockVendorSet(),
		Pipeline:      newPipeline("dense_only", config.StepDense),
		CatalogPath:   in.catalog,
		TestcasesPath: in.testcases,
		OutDir:        in.out,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.NEval)

	events := readEvents(t, res.Artifacts.DetailPath)
	var cr CaseRecord
	require.NoError(t, json.Unmarshal(events[1].Payload, &cr))
	assert.Equal(t, 3, cr.StageCounts.Dense)
	assert.Equal(t, 0, cr.StageCounts.BM25)
	assert.Len(t, cr.PredictedDocIDs, 3)
}

// fakes for hybrid wiring

type fakeEmbedder struct{ texts []string }

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.texts = append(f.texts, texts...)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}
func (f *fakeEmbedder) Dimensions() int { return 2 }
func (f *fakeEmbedder) Close() error    { return nil }

type fakeDense struct{ out []models.ScoredDoc }

func (f *fakeDense) Query(context.Context, []float32, int) ([]models.ScoredDoc, error) {
	return f.out, nil
}
func (f *fakeDense) Name() string { return "fake-dense" }

type fakeLexical struct {
	out     []models.ScoredDoc
	queries []string
}

func (f *fakeLexical) Query(_ context.Context, text string, _ int) ([]models.ScoredDoc, error) {
	f.queries = append(f.queries, text)
	return f.out, nil
}
func (f *fakeLexical) Name() string { return "fake-lexical" }

type reverseReranker struct {
	queries    []string
	candidates [][]string
}

func (f *reverseReranker) Rerank(_ context.Context, query string, docs []*models.Document, topK int) ([]models.ScoredDoc, error) {
	f.queries = append(f.queries, query)
	ids := make([]string, len(docs))
	out := make([]models.ScoredDoc, 0, len(docs))
	for i, d := range docs {
		ids[i] = d.DocID
	}
	f.candidates = append(f.candidates, ids)
	for i := len(docs) - 1; i >= 0; i-- {
		out = append(out, models.ScoredDoc{DocID: docs[i].DocID, Score: float64(i + 1), Source: models.SourceRerank})
	}
	if topK < len(out) {
		out = out[:topK]
	}
	return out, nil
}
func (f *reverseReranker) Name() string { return "reverse" }

type fakeFactory struct {
	emb     *fakeEmbedder
	dense   *fakeDense
	lexical *fakeLexical
	rr      *reverseReranker
}

func (f *fakeFactory) Embedder(context.Context, *config.VendorSet) (embedding.Embedder, error) {
	return f.emb, nil
}
func (f *fakeFactory) VectorRetriever(context.Context, *config.VendorSet, []*models.Document, embedding.Embedder) (vector.Retriever, error) {
	return f.dense, nil
}
func (f *fakeFactory) LexicalRetriever(context.Context, *config.VendorSet, []*models.Document) (keyword.Retriever, error) {
	return f.lexical, nil
}
func (f *fakeFactory) Reranker(context.Context, *config.VendorSet) (rerank.Reranker, error) {
	return f.rr, nil
}

func sd(id string, score float64) models.ScoredDoc {
	return models.ScoredDoc{DocID: id, Score: score}
}

func TestRun_HybridStagesShareCanonicalText(t *testing.T) {
	catalog := "doc_id\ttitle\ttext\tcategory\n" +
		"X\tx\tplain\tshoes\n" +
		"Y\ty\tplain\tshoes\n" +
		"Z\tz\trefurbished unit\tshoes\n"
	in := writeInputs(t, catalog, testcasesHeader+"T1\traw words\tintent words\tY\tcanonical words\t\t\t\n")

	ff := &fakeFactory{
		emb:     &fakeEmbedder{},
		dense:   &fakeDense{out: []models.ScoredDoc{sd("X", 0.9), sd("Y", 0.8), sd("GHOST", 0.1)}},
		lexical: &fakeLexical{out: []models.ScoredDoc{sd("Y", 7), sd("Z", 3)}},
		rr:      &reverseReranker{},
	}
	p := newPipeline("hybrid_rrf", config.StepDense, config.StepBM25, config.StepFusion, config.StepRerank, config.StepFilter)
	p.Params.Filter.DenyTerms = []string{"REFURBISHED"}

	res, err := NewRunner(WithFactory(ff)).Run(context.Background(), Input{
		VendorSet:     mockVendorSet(),
		Pipeline:      p,
		CatalogPath:   in.catalog,
		TestcasesPath: in.testcases,
		OutDir:        in.out,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"canonical words"}, ff.emb.texts)
	assert.Equal(t, []string{"canonical words"}, ff.lexical.queries)
	assert.Equal(t, []string{"canonical words"}, ff.rr.queries)

	// RRF order: Y (two lists), X, Z, GHOST; GHOST is dropped before reranking.
	require.Len(t, ff.rr.candidates, 1)
	assert.Equal(t, []string{"Y", "X", "Z"}, ff.rr.candidates[0])

	events := readEvents(t, res.Artifacts.DetailPath)
	var cr CaseRecord
	require.NoError(t, json.Unmarshal(events[1].Payload, &cr))
	assert.Equal(t, []string{"X", "Y"}, cr.PredictedDocIDs, "reversed by reranker, Z removed by deny term")
	assert.Equal(t, StageCounts{Dense: 3, BM25: 2, Fused: 4, Rerank: 3, Final: 2}, *cr.StageCounts)
	assert.Equal(t, "intent words", cr.IntentText)
	assert.Equal(t, "canonical words", cr.BM25QueryText)
	assert.Equal(t, []string{"Y", "X", "Z", "GHOST"}, cr.StageTop5["fused"])
	assert.InDelta(t, 0.5, cr.Metrics["mrr"], 1e-9)
}

func TestRun_MissingInputFile(t *testing.T) {
	in := writeInputs(t, stationeryCatalog, testcasesHeader)
	_, err := NewRunner().Run(context.Background(), Input{
		VendorSet:     mockVendorSet(),
		Pipeline:      newPipeline("bm25_only", config.StepBM25),
		CatalogPath:   filepath.Join(in.dir, "nope.tsv"),
		TestcasesPath: in.testcases,
		OutDir:        in.out,
	})
	assert.Error(t, err)
	assert.NoDirExists(t, in.out)
}

func TestRun_Cancelled(t *testing.T) {
	in := writeInputs(t, stationeryCatalog, testcasesHeader+"T1\tblue pen\t\tP1\t\t\t\t\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner().Run(ctx, Input{
		VendorSet:     mockVendorSet(),
		Pipeline:      newPipeline("bm25_only", config.StepBM25),
		CatalogPath:   in.catalog,
		TestcasesPath: in.testcases,
		OutDir:        in.out,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
