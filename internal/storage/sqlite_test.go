package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestRegistry(t *testing.T) *SQLiteRegistry {
	t.Helper()
	reg, err := NewSQLiteRegistry(filepath.Join(t.TempDir(), "nested", "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestSQLiteRegistry_RecordAndGet(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	rec := &RunRecord{
		RunID: "20260101_000000-aaaaaaaa", VendorSetID: "local_mock", PipelineID: "bm25_only",
		NDocs: 3, NCases: 2, NEval: 1, NSkipped: 1,
		Metrics: map[string]float64{"mrr": 1, "precision@10": 0.1},
		Inputs:  map[string]string{"catalog": "blake3:abc"},
		OutDir:  "runs/20260101_000000-aaaaaaaa", ArtifactBytes: 42, DurationMS: 12.5,
	}
	if err := reg.RecordRun(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := reg.GetRun(ctx, rec.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if got.PipelineID != "bm25_only" || got.NEval != 1 || got.ArtifactBytes != 42 {
		t.Errorf("got %+v", got)
	}
	if got.Metrics["precision@10"] != 0.1 || got.Inputs["catalog"] != "blake3:abc" {
		t.Errorf("maps not round-tripped: %+v %+v", got.Metrics, got.Inputs)
	}

	if err := reg.RecordRun(ctx, rec); err == nil {
		t.Error("duplicate run id should fail")
	}
}

func TestSQLiteRegistry_NullMetrics(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	if err := reg.RecordRun(ctx, &RunRecord{RunID: "r", VendorSetID: "v", PipelineID: "p"}); err != nil {
		t.Fatal(err)
	}
	got, err := reg.GetRun(ctx, "r")
	if err != nil {
		t.Fatal(err)
	}
	if got.Metrics != nil {
		t.Errorf("expected nil metrics, got %v", got.Metrics)
	}
}

func TestSQLiteRegistry_GetMissing(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.GetRun(context.Background(), "nope")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestSQLiteRegistry_List(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range []string{"bm25_only", "hybrid_rrf", "bm25_only"} {
		rec := &RunRecord{
			RunID: string(rune('a' + i)), VendorSetID: "v", PipelineID: p,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := reg.RecordRun(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	all, err := reg.ListRuns(ctx, RunFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].RunID != "c" {
		t.Errorf("expected newest first, got %d runs starting with %v", len(all), all[0].RunID)
	}

	bm25, err := reg.ListRuns(ctx, RunFilter{PipelineID: "bm25_only", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(bm25) != 1 || bm25[0].RunID != "c" {
		t.Errorf("filtered list = %+v", bm25)
	}

	n, err := reg.CountRuns(ctx)
	if err != nil || n != 3 {
		t.Errorf("CountRuns: %v, %d", err, n)
	}
}
