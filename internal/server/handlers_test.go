package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/kurabe/internal/storage"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*Server, *storage.SQLiteRegistry) {
	t.Helper()
	reg, err := storage.NewSQLiteRegistry(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { reg.Close() })

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range []string{"bm25_only", "hybrid_rrf", "bm25_only"} {
		rec := &storage.RunRecord{
			RunID:       "run-" + string(rune('a'+i)),
			VendorSetID: "local_mock",
			PipelineID:  p,
			NEval:       1,
			Metrics:     map[string]float64{"mrr": float64(i) / 2},
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}
		if err := reg.RecordRun(context.Background(), rec); err != nil {
			t.Fatal(err)
		}
	}
	return NewServer(reg, DefaultConfig(), zap.NewNop()), reg
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	w := get(t, srv, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("body: %v", body)
	}
}

func TestHandleListRuns(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name     string
		target   string
		wantCode int
		wantIDs  []string
	}{
		{"all newest first", "/api/v1/runs", http.StatusOK, []string{"run-c", "run-b", "run-a"}},
		{"by pipeline", "/api/v1/runs?pipeline_id=bm25_only", http.StatusOK, []string{"run-c", "run-a"}},
		{"limit", "/api/v1/runs?limit=1", http.StatusOK, []string{"run-c"}},
		{"offset", "/api/v1/runs?limit=1&offset=1", http.StatusOK, []string{"run-b"}},
		{"no match", "/api/v1/runs?pipeline_id=nope", http.StatusOK, []string{}},
		{"bad limit", "/api/v1/runs?limit=abc", http.StatusBadRequest, nil},
		{"zero limit", "/api/v1/runs?limit=0", http.StatusBadRequest, nil},
		{"negative offset", "/api/v1/runs?offset=-1", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, srv, tt.target)
			if w.Code != tt.wantCode {
				t.Fatalf("status: got %d, want %d (%s)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantIDs == nil {
				return
			}
			var out listRunsResponse
			if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
				t.Fatal(err)
			}
			if out.Total != 3 {
				t.Errorf("total: got %d, want 3", out.Total)
			}
			if len(out.Runs) != len(tt.wantIDs) {
				t.Fatalf("runs: got %d, want %d", len(out.Runs), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if out.Runs[i].RunID != id {
					t.Errorf("runs[%d]: got %s, want %s", i, out.Runs[i].RunID, id)
				}
			}
		})
	}
}

func TestHandleGetRun(t *testing.T) {
	srv, _ := newTestServer(t)

	w := get(t, srv, "/api/v1/runs/run-b")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var rec storage.RunRecord
	if err := json.NewDecoder(w.Body).Decode(&rec); err != nil {
		t.Fatal(err)
	}
	if rec.PipelineID != "hybrid_rrf" || rec.Metrics["mrr"] != 0.5 {
		t.Errorf("got %+v", rec)
	}

	w = get(t, srv, "/api/v1/runs/missing")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing run: got %d, want 404", w.Code)
	}
}

type failingRegistry struct{ storage.Registry }

func (failingRegistry) GetRun(context.Context, string) (*storage.RunRecord, error) {
	return nil, errors.New("disk on fire")
}

func (failingRegistry) ListRuns(context.Context, storage.RunFilter) ([]*storage.RunRecord, error) {
	return nil, errors.New("disk on fire")
}

func TestHandlers_RegistryErrors(t *testing.T) {
	srv := NewServer(failingRegistry{}, DefaultConfig(), nil)
	for _, target := range []string{"/api/v1/runs", "/api/v1/runs/x"} {
		if w := get(t, srv, target); w.Code != http.StatusInternalServerError {
			t.Errorf("%s: got %d, want 500", target, w.Code)
		}
	}
}

func TestServer_Addr(t *testing.T) {
	srv := NewServer(nil, Config{Host: "0.0.0.0", Port: 9090}, nil)
	if srv.Addr() != "0.0.0.0:9090" {
		t.Errorf("Addr() = %s", srv.Addr())
	}
	if err := srv.Stop(context.Background()); err != nil {
		t.Errorf("Stop before Start: %v", err)
	}
}
