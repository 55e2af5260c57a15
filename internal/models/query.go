package models

import "strings"

// QueryCase is one evaluation case: a query, its intent variants, and the gold documents.
type QueryCase struct {
	CaseID             string   `json:"case_id"`
	RawText            string   `json:"raw_text"`
	IntentText         string   `json:"intent_text"`
	ExpectedDocIDs     []string `json:"expected_doc_ids"`
	BM25QueryText      string   `json:"bm25_query_text"`
	ExpectedCategory   string   `json:"expected_category"`
	NeedsClarification bool     `json:"needs_clarification"`
	Notes              string   `json:"notes"`
}

// CanonicalText returns the single query text every retrieval method scores:
// the first non-blank of BM25QueryText, IntentText and RawText, trimmed.
func (q *QueryCase) CanonicalText() string {
	for _, s := range []string{q.BM25QueryText, q.IntentText, q.RawText} {
		if t := strings.TrimSpace(s); t != "" {
			return t
		}
	}
	return ""
}

// HasGold reports whether the case carries expected document ids.
func (q *QueryCase) HasGold() bool {
	return len(q.ExpectedDocIDs) > 0
}

// CaseStatus is the outcome of processing a query case.
type CaseStatus string

const (
	StatusSkipped CaseStatus = "SKIPPED"
	StatusBadGold CaseStatus = "BAD_GOLD"
	StatusEval    CaseStatus = "EVAL"
)
