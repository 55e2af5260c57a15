package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hyperjump/kurabe/internal/config"
	"github.com/hyperjump/kurabe/internal/dataset"
	"github.com/hyperjump/kurabe/internal/embedding"
	"github.com/hyperjump/kurabe/internal/eval"
	"github.com/hyperjump/kurabe/internal/filter"
	"github.com/hyperjump/kurabe/internal/keyword"
	"github.com/hyperjump/kurabe/internal/models"
	"github.com/hyperjump/kurabe/internal/rerank"
	"github.com/hyperjump/kurabe/internal/runlog"
	"github.com/hyperjump/kurabe/internal/search"
	"github.com/hyperjump/kurabe/internal/storage"
	"github.com/hyperjump/kurabe/internal/telemetry"
	"github.com/hyperjump/kurabe/internal/vector"
	"go.uber.org/zap"
)

// predictedIDsLogged caps predicted_doc_ids in detail records.
const predictedIDsLogged = 50

// Input names everything one run needs.
type Input struct {
	VendorSet     *config.VendorSet
	Pipeline      *config.Pipeline
	CatalogPath   string
	TestcasesPath string
	// VendorsPath and PipelinesPath are copied into the run directory and fingerprinted.
	VendorsPath   string
	PipelinesPath string
	OutDir        string
	// RunID overrides the generated run id.
	RunID string
}

// Result is what a completed run produced.
type Result struct {
	Artifacts *models.RunArtifacts
	Summary   *runlog.Summary
}

// Runner executes benchmark runs.
type Runner struct {
	factory  Factory
	registry storage.Registry
	logger   *zap.Logger
	now      func() time.Time
	render   func(*runlog.Summary, *models.RunArtifacts) (string, error)
}

// Option configures a Runner.
type Option func(*Runner)

// WithFactory replaces the adapter factory.
func WithFactory(f Factory) Option {
	return func(r *Runner) {
		r.factory = f
	}
}

// WithRegistry records each completed run in reg.
func WithRegistry(reg storage.Registry) Option {
	return func(r *Runner) {
		r.registry = reg
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock sets the time source used for run ids and durations.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner returns a runner. Without WithFactory it uses a DefaultFactory.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{logger: zap.NewNop(), now: time.Now, render: runlog.RenderReport}
	for _, opt := range opts {
		opt(r)
	}
	if r.factory == nil {
		r.factory = NewDefaultFactory(r.logger)
	}
	return r
}

// adapters are the per-run components; nil when the step is not configured.
type adapters struct {
	embedder    embedding.Embedder
	dense       vector.Retriever
	lexical     keyword.Retriever
	reranker    rerank.Reranker
	embedDocsMS float64
}

func (a *adapters) close() {
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	if c, ok := a.lexical.(io.Closer); ok {
		_ = c.Close()
	}
	if c, ok := a.dense.(io.Closer); ok {
		_ = c.Close()
	}
}

// Run executes one benchmark. Configuration problems (guards, adapter
// construction) fail before the run directory is created. Any later error
// aborts the run before summary.json and report.md are written.
func (r *Runner) Run(ctx context.Context, in Input) (*Result, error) {
	started := r.now()
	vs, p := in.VendorSet, in.Pipeline
	if vs == nil || p == nil {
		return nil, fmt.Errorf("vendor set and pipeline are required")
	}
	if err := CheckGuards(p); err != nil {
		return nil, err
	}

	docs, err := dataset.LoadCatalog(in.CatalogPath)
	if err != nil {
		return nil, err
	}
	cases, err := dataset.LoadTestCases(in.TestcasesPath)
	if err != nil {
		return nil, err
	}
	catalog := models.NewCatalog(docs)
	docs = catalog.Docs()

	ad, err := r.buildAdapters(ctx, vs, p, docs)
	if err != nil {
		return nil, err
	}
	defer ad.close()

	art, err := runlog.Prepare(in.OutDir, firstNonBlank(in.RunID, runlog.NewRunID(started)))
	if err != nil {
		return nil, err
	}
	events, err := runlog.OpenEventLog(art.DetailPath)
	if err != nil {
		return nil, err
	}
	defer events.Close()

	rec := telemetry.NewRecorder(art.RunID, p.ID, vs.ID)
	rec.SetEmbedDocs(ad.embedDocsMS)

	log := r.logger.With(zap.String("run_id", art.RunID), zap.String("pipeline", p.ID), zap.String("vendor_set", vs.ID))
	log.Info("Run started", zap.Int("docs", catalog.Len()), zap.Int("cases", len(cases)), zap.Strings("steps", stepNames(p)))

	if err := events.Log(runlog.EventRunStart, RunStart{
		RunID:       art.RunID,
		VendorSetID: vs.ID,
		PipelineID:  p.ID,
		Steps:       stepNames(p),
		NDocs:       catalog.Len(),
		NCases:      len(cases),
		EmbedDocsMS: ad.embedDocsMS,
	}); err != nil {
		return nil, err
	}

	summary := &runlog.Summary{
		RunID:       art.RunID,
		VendorSetID: vs.ID,
		PipelineID:  p.ID,
		NDocs:       catalog.Len(),
		NCases:      len(cases),
		StartedAt:   started.UTC().Format(time.RFC3339),
	}
	var perCase []eval.Metrics

	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run interrupted: %w", err)
		}
		cr, err := r.processCase(ctx, c, vs, p, catalog, ad, rec)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", c.CaseID, err)
		}
		switch cr.Status {
		case models.StatusSkipped:
			summary.NSkipped++
			log.Info("Case skipped: needs clarification", zap.String("case_id", c.CaseID))
		case models.StatusBadGold:
			summary.NBadGold++
			log.Warn("Case has gold ids missing from catalog", zap.String("case_id", c.CaseID), zap.Strings("missing", cr.MissingExpectedDocIDs))
		default:
			if cr.Metrics != nil {
				perCase = append(perCase, cr.Metrics)
			}
			log.Debug("Case evaluated", zap.String("case_id", c.CaseID), zap.Int("predicted", len(cr.PredictedDocIDs)))
		}
		rec.RecordCase(string(cr.Status))
		if err := events.Log(runlog.EventCase, cr); err != nil {
			return nil, err
		}
	}

	agg := eval.Aggregate(perCase)
	summary.NEval = agg.NEval
	if agg.NEval > 0 {
		summary.Metrics = agg.Metrics
		rec.SetMetrics(agg.Metrics)
	}
	summary.Inputs, err = runlog.Fingerprints(map[string]string{
		"catalog":   in.CatalogPath,
		"testcases": in.TestcasesPath,
		"vendors":   existing(in.VendorsPath),
		"pipelines": existing(in.PipelinesPath),
	})
	if err != nil {
		return nil, err
	}
	summary.DurationMS = msSince(started, r.now())

	if err := runlog.CopyConfigs(art, in.VendorsPath, in.PipelinesPath); err != nil {
		return nil, err
	}
	if err := rec.WriteTextfile(art.MetricsPath); err != nil {
		return nil, err
	}
	report, err := r.render(summary, art)
	if err != nil {
		return nil, err
	}
	if err := runlog.WriteJSON(art.SummaryPath, summary); err != nil {
		return nil, err
	}
	if err := runlog.WriteReport(art.ReportPath, report); err != nil {
		return nil, err
	}
	if err := events.Log(runlog.EventRunEnd, summary); err != nil {
		return nil, err
	}

	log.Info("Run finished",
		zap.Int("eval", summary.NEval),
		zap.Int("skipped", summary.NSkipped),
		zap.Int("bad_gold", summary.NBadGold),
		zap.String("out_dir", art.OutDir),
	)

	if r.registry != nil {
		r.recordRun(ctx, summary, art, log)
	}
	return &Result{Artifacts: art, Summary: summary}, nil
}

func (r *Runner) recordRun(ctx context.Context, s *runlog.Summary, art *models.RunArtifacts, log *zap.Logger) {
	size, err := storage.ArtifactBytes(art.OutDir)
	if err != nil {
		log.Warn("Failed to measure run artifacts", zap.Error(err))
	}
	err = r.registry.RecordRun(ctx, &storage.RunRecord{
		RunID:         s.RunID,
		VendorSetID:   s.VendorSetID,
		PipelineID:    s.PipelineID,
		NDocs:         s.NDocs,
		NCases:        s.NCases,
		NEval:         s.NEval,
		NSkipped:      s.NSkipped,
		NBadGold:      s.NBadGold,
		Metrics:       s.Metrics,
		Inputs:        s.Inputs,
		OutDir:        art.OutDir,
		ArtifactBytes: size,
		DurationMS:    s.DurationMS,
		CreatedAt:     r.now().UTC(),
	})
	if err != nil {
		log.Warn("Failed to record run in registry", zap.Error(err))
	}
}

func (r *Runner) buildAdapters(ctx context.Context, vs *config.VendorSet, p *config.Pipeline, docs []*models.Document) (*adapters, error) {
	ad := &adapters{}
	ok := false
	defer func() {
		if !ok {
			ad.close()
		}
	}()

	if p.Has(config.StepDense) {
		emb, err := r.factory.Embedder(ctx, vs)
		if err != nil {
			return nil, err
		}
		ad.embedder = emb
		t0 := r.now()
		dense, err := r.factory.VectorRetriever(ctx, vs, docs, emb)
		if err != nil {
			return nil, fmt.Errorf("failed to create vector retriever: %w", err)
		}
		if vs.VectorDB.Provider != string(vector.ProviderQdrant) {
			ad.embedDocsMS = msSince(t0, r.now())
		}
		ad.dense = dense
	}
	if p.Has(config.StepBM25) {
		lex, err := r.factory.LexicalRetriever(ctx, vs, docs)
		if err != nil {
			return nil, fmt.Errorf("failed to create lexical retriever: %w", err)
		}
		ad.lexical = lex
	}
	if p.Has(config.StepRerank) {
		rr, err := r.factory.Reranker(ctx, vs)
		if err != nil {
			return nil, fmt.Errorf("failed to create reranker: %w", err)
		}
		ad.reranker = rr
	}
	ok = true
	return ad, nil
}

// processCase classifies one case and, when it is evaluable, runs every
// configured stage on the canonical query text.
func (r *Runner) processCase(ctx context.Context, c *models.QueryCase, vs *config.VendorSet, p *config.Pipeline, catalog *models.Catalog, ad *adapters, rec *telemetry.Recorder) (*CaseRecord, error) {
	cr := newCaseRecord(c, p.ID, vs.ID)

	if c.NeedsClarification {
		cr.Status = models.StatusSkipped
		return cr, nil
	}
	if missing := catalog.Missing(c.ExpectedDocIDs); len(missing) > 0 {
		cr.Status = models.StatusBadGold
		cr.MissingExpectedDocIDs = missing
		return cr, nil
	}

	text := c.CanonicalText()
	params := p.Params
	var (
		lat    Latencies
		counts StageCounts
		dense  []models.ScoredDoc
		sparse []models.ScoredDoc
		top5   = make(map[string][]string)
	)

	if ad.dense != nil {
		t := r.now()
		qvec, err := embedding.EmbedQuery(ctx, ad.embedder, text)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		lat.EmbedQuery = msSince(t, r.now())

		t = r.now()
		dense, err = ad.dense.Query(ctx, qvec, params.TopKDense)
		if err != nil {
			return nil, fmt.Errorf("dense retrieval: %w", err)
		}
		lat.DenseRetrieval = msSince(t, r.now())
		counts.Dense = len(dense)
		top5["dense"] = models.TopIDs(dense, 5)
		rec.RecordStage(StageEmbedQuery, lat.EmbedQuery, 1)
		rec.RecordStage(StageDense, lat.DenseRetrieval, len(dense))
	}

	if ad.lexical != nil {
		t := r.now()
		var err error
		sparse, err = ad.lexical.Query(ctx, text, params.TopKBM25)
		if err != nil {
			return nil, fmt.Errorf("bm25 retrieval: %w", err)
		}
		lat.BM25 = msSince(t, r.now())
		counts.BM25 = len(sparse)
		cr.Top5BM25DocIDs = models.TopIDs(sparse, 5)
		top5["bm25"] = cr.Top5BM25DocIDs
		rec.RecordStage(StageBM25, lat.BM25, len(sparse))
	}

	var working []models.ScoredDoc
	if p.Has(config.StepFusion) {
		method, err := search.ParseMethod(params.Fusion.Method)
		if err != nil {
			return nil, err
		}
		t := r.now()
		working = search.Fuse(dense, sparse, search.Params{
			Method: method,
			RRFK:   params.Fusion.RRFK,
			Alpha:  params.Fusion.AlphaValue(),
			TopK:   params.TopKFused,
		})
		lat.Fusion = msSince(t, r.now())
		top5["fused"] = models.TopIDs(working, 5)
		rec.RecordStage(StageFusion, lat.Fusion, len(working))
	} else if ad.dense != nil {
		working = dense
	} else {
		working = sparse
	}
	counts.Fused = len(working)

	if ad.reranker != nil {
		n := params.RerankTopK
		if n > len(working) {
			n = len(working)
		}
		candidates := make([]*models.Document, 0, n)
		for _, sd := range working[:n] {
			if d := catalog.Get(sd.DocID); d != nil {
				candidates = append(candidates, d)
			}
		}
		t := r.now()
		reranked, err := ad.reranker.Rerank(ctx, text, candidates, len(candidates))
		if err != nil {
			return nil, fmt.Errorf("rerank: %w", err)
		}
		lat.Rerank = msSince(t, r.now())
		working = reranked
		top5["rerank"] = models.TopIDs(working, 5)
		rec.RecordStage(StageRerank, lat.Rerank, len(working))
	}
	counts.Rerank = len(working)

	if p.Has(config.StepFilter) {
		t := r.now()
		working = filter.Apply(working, catalog, params.Filter, c.ExpectedCategory)
		lat.Filter = msSince(t, r.now())
		rec.RecordStage(StageFilter, lat.Filter, len(working))
	}
	counts.Final = len(working)

	pred := models.DocIDs(working)
	cr.Status = models.StatusEval
	cr.Top5DocIDs = models.TopIDs(working, 5)
	cr.PredictedDocIDs = models.TopIDs(working, predictedIDsLogged)
	cr.StageTop5 = top5
	cr.StageCounts = &counts
	cr.LatencyMS = &lat
	if c.HasGold() {
		if len(pred) > eval.DefaultK {
			pred = pred[:eval.DefaultK]
		}
		cr.Metrics = eval.CaseMetrics(pred, c.ExpectedDocIDs, eval.DefaultK)
	}
	return cr, nil
}

func stepNames(p *config.Pipeline) []string {
	out := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = string(s)
	}
	return out
}

func msSince(start, end time.Time) float64 {
	return float64(end.Sub(start)) / float64(time.Millisecond)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}

// existing returns path when it names a readable file, else "".
func existing(path string) string {
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
