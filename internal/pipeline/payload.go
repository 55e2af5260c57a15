package pipeline

import (
	"github.com/hyperjump/kurabe/internal/eval"
	"github.com/hyperjump/kurabe/internal/models"
)

// Stage names used in detail records and telemetry.
const (
	StageEmbedQuery = "embed_query"
	StageDense      = "dense_retrieval"
	StageBM25       = "bm25"
	StageFusion     = "fusion"
	StageRerank     = "rerank"
	StageFilter     = "filter"
)

// RunStart is the payload of the run_start event.
type RunStart struct {
	RunID       string   `json:"run_id"`
	VendorSetID string   `json:"vendor_set_id"`
	PipelineID  string   `json:"pipeline_id"`
	Steps       []string `json:"steps"`
	NDocs       int      `json:"n_docs"`
	NCases      int      `json:"n_cases"`
	EmbedDocsMS float64  `json:"embed_docs_ms"`
}

// StageCounts holds the number of candidates leaving each stage.
type StageCounts struct {
	Dense  int `json:"dense"`
	BM25   int `json:"bm25"`
	Fused  int `json:"fused"`
	Rerank int `json:"rerank"`
	Final  int `json:"final"`
}

// Latencies holds per-stage wall time in milliseconds.
type Latencies struct {
	EmbedQuery     float64 `json:"embed_query"`
	DenseRetrieval float64 `json:"dense_retrieval"`
	BM25           float64 `json:"bm25"`
	Fusion         float64 `json:"fusion"`
	Rerank         float64 `json:"rerank"`
	Filter         float64 `json:"filter"`
}

// CaseRecord is the payload of a case event.
type CaseRecord struct {
	CaseID             string            `json:"case_id"`
	RawText            string            `json:"raw_text"`
	IntentText         string            `json:"intent_text"`
	BM25QueryText      string            `json:"bm25_query_text"`
	ExpectedDocIDs     []string          `json:"expected_doc_ids"`
	ExpectedCategory   string            `json:"expected_category"`
	NeedsClarification bool              `json:"needs_clarification"`
	Notes              string            `json:"notes"`
	Pipeline           string            `json:"pipeline"`
	VendorSet          string            `json:"vendor_set"`
	Status             models.CaseStatus `json:"status"`

	MissingExpectedDocIDs []string            `json:"missing_expected_doc_ids,omitempty"`
	Top5BM25DocIDs        []string            `json:"top5_bm25_doc_ids,omitempty"`
	Top5DocIDs            []string            `json:"top5_doc_ids,omitempty"`
	StageTop5             map[string][]string `json:"stage_top5,omitempty"`
	PredictedDocIDs       []string            `json:"predicted_doc_ids,omitempty"`
	StageCounts           *StageCounts        `json:"stage_counts,omitempty"`
	LatencyMS             *Latencies          `json:"latency_ms,omitempty"`
	Metrics               eval.Metrics        `json:"metrics"`
}

func newCaseRecord(c *models.QueryCase, pipelineID, vendorSetID string) *CaseRecord {
	gold := c.ExpectedDocIDs
	if gold == nil {
		gold = []string{}
	}
	return &CaseRecord{
		CaseID:             c.CaseID,
		RawText:            c.RawText,
		IntentText:         firstNonBlank(c.IntentText, c.RawText),
		BM25QueryText:      c.CanonicalText(),
		ExpectedDocIDs:     gold,
		ExpectedCategory:   c.ExpectedCategory,
		NeedsClarification: c.NeedsClarification,
		Notes:              c.Notes,
		Pipeline:           pipelineID,
		VendorSet:          vendorSetID,
	}
}
