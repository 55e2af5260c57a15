// Package storage persists completed benchmark runs so they can be compared
// across invocations.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrRunNotFound is returned when a run id is not in the registry.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is one completed run.
type RunRecord struct {
	RunID         string             `json:"run_id"`
	VendorSetID   string             `json:"vendor_set_id"`
	PipelineID    string             `json:"pipeline_id"`
	NDocs         int                `json:"n_docs"`
	NCases        int                `json:"n_cases"`
	NEval         int                `json:"n_eval"`
	NSkipped      int                `json:"n_skipped"`
	NBadGold      int                `json:"n_bad_gold"`
	Metrics       map[string]float64 `json:"metrics"`
	Inputs        map[string]string  `json:"inputs,omitempty"`
	OutDir        string             `json:"out_dir"`
	ArtifactBytes int64              `json:"artifact_bytes"`
	DurationMS    float64            `json:"duration_ms"`
	CreatedAt     time.Time          `json:"created_at"`
}

// RunFilter narrows ListRuns. Zero fields match everything; Limit 0 means no limit.
type RunFilter struct {
	PipelineID  string
	VendorSetID string
	Limit       int
	Offset      int
}

// Registry stores run records.
type Registry interface {
	RecordRun(ctx context.Context, rec *RunRecord) error
	GetRun(ctx context.Context, runID string) (*RunRecord, error)
	// ListRuns returns the newest runs first.
	ListRuns(ctx context.Context, f RunFilter) ([]*RunRecord, error)
	CountRuns(ctx context.Context) (int64, error)
	Close() error
}
