package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	catalogHeader  = []string{"doc_id", "title", "text", "category"}
	testcaseHeader = []string{"id", "raw_text", "intent_text", "bm25_query_text", "expected_doc_ids", "expected_category", "needs_clarification", "notes"}
)

func (c *Corpus) catalogRows() [][]string {
	rows := make([][]string, 0, len(c.Documents))
	for _, d := range c.Documents {
		rows = append(rows, []string{d.DocID, d.Title, d.Text, d.Category})
	}
	return rows
}

func (c *Corpus) caseRows() [][]string {
	rows := make([][]string, 0, len(c.Cases))
	for _, q := range c.Cases {
		rows = append(rows, []string{
			q.CaseID, q.RawText, q.IntentText, q.BM25QueryText,
			strings.Join(q.ExpectedDocIDs, "|"), q.ExpectedCategory,
			strconv.FormatBool(q.NeedsClarification), q.Notes,
		})
	}
	return rows
}

// WriteTSV writes catalog.tsv and testcases.tsv into dir and returns their paths.
func (c *Corpus) WriteTSV(dir string) (catalog, testcases string, err error) {
	catalog = filepath.Join(dir, "catalog.tsv")
	testcases = filepath.Join(dir, "testcases.tsv")
	if err := writeTSV(catalog, catalogHeader, c.catalogRows()); err != nil {
		return "", "", err
	}
	if err := writeTSV(testcases, testcaseHeader, c.caseRows()); err != nil {
		return "", "", err
	}
	return catalog, testcases, nil
}

// WriteXLSX writes catalog.xlsx and testcases.xlsx into dir and returns their paths.
func (c *Corpus) WriteXLSX(dir string) (catalog, testcases string, err error) {
	catalog = filepath.Join(dir, "catalog.xlsx")
	testcases = filepath.Join(dir, "testcases.xlsx")
	if err := writeXLSX(catalog, catalogHeader, c.catalogRows()); err != nil {
		return "", "", err
	}
	if err := writeXLSX(testcases, testcaseHeader, c.caseRows()); err != nil {
		return "", "", err
	}
	return catalog, testcases, nil
}

func writeTSV(path string, header []string, rows [][]string) error {
	var b strings.Builder
	b.WriteString(strings.Join(header, "\t"))
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(strings.Join(r, "\t"))
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func writeXLSX(path string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	all := append([][]string{header}, rows...)
	for i, r := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		vals := make([]interface{}, len(r))
		for j, v := range r {
			vals[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
