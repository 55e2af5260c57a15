package dataset

import (
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kurabe/internal/models"
)

var (
	docIDColumns = []string{"doc_id", "id", "docid"}
	textColumns  = []string{"text", "body", "content"}
	caseIDColumn = []string{"id", "case_id", "qid"}
)

var catalogColumns = map[string]bool{
	"doc_id": true, "id": true, "docid": true,
	"title": true, "text": true, "body": true, "content": true, "category": true,
}

// LoadCatalog reads catalog documents from a TSV or .xlsx file. Rows without a
// doc_id or text are skipped; unknown columns are kept in Meta.
func LoadCatalog(path string) ([]*models.Document, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", path, err)
	}
	return catalogFromRows(rows), nil
}

// ReadCatalog reads catalog documents from TSV content.
func ReadCatalog(r io.Reader) ([]*models.Document, error) {
	rows, err := readTSV(r)
	if err != nil {
		return nil, err
	}
	return catalogFromRows(rows), nil
}

func catalogFromRows(rows []row) []*models.Document {
	docs := make([]*models.Document, 0, len(rows))
	for _, r := range rows {
		id := r.get(docIDColumns...)
		text := r.get(textColumns...)
		if id == "" || text == "" {
			continue
		}
		var meta map[string]string
		for k, v := range r {
			if catalogColumns[k] {
				continue
			}
			if meta == nil {
				meta = make(map[string]string)
			}
			meta[k] = v
		}
		docs = append(docs, &models.Document{
			DocID:    id,
			Title:    r["title"],
			Text:     text,
			Category: r["category"],
			Meta:     meta,
		})
	}
	return docs
}

// LoadTestCases reads query cases from a TSV or .xlsx file. Rows without an id are skipped.
func LoadTestCases(path string) ([]*models.QueryCase, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load testcases %s: %w", path, err)
	}
	return casesFromRows(rows), nil
}

// ReadTestCases reads query cases from TSV content.
func ReadTestCases(r io.Reader) ([]*models.QueryCase, error) {
	rows, err := readTSV(r)
	if err != nil {
		return nil, err
	}
	return casesFromRows(rows), nil
}

func casesFromRows(rows []row) []*models.QueryCase {
	cases := make([]*models.QueryCase, 0, len(rows))
	for _, r := range rows {
		id := r.get(caseIDColumn...)
		if id == "" {
			continue
		}
		cases = append(cases, &models.QueryCase{
			CaseID:             id,
			RawText:            r["raw_text"],
			IntentText:         r["intent_text"],
			ExpectedDocIDs:     ParseIDList(r["expected_doc_ids"]),
			BM25QueryText:      r["bm25_query_text"],
			ExpectedCategory:   r["expected_category"],
			NeedsClarification: parseBool(r["needs_clarification"]),
			Notes:              r["notes"],
		})
	}
	return cases
}

// ParseIDList splits "a|b|c" or "a,b,c" into trimmed, non-empty ids.
func ParseIDList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' })
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y":
		return true
	}
	return false
}
