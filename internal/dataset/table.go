// Package dataset loads the benchmark catalog and query cases from
// tab-separated files or Excel workbooks.
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// row maps a trimmed header name to a trimmed cell value.
type row map[string]string

// get returns the first non-empty value among keys.
func (r row) get(keys ...string) string {
	for _, k := range keys {
		if v := r[k]; v != "" {
			return v
		}
	}
	return ""
}

// readRows loads path as TSV, or as the first sheet of a workbook when the
// extension is .xlsx.
func readRows(path string) ([]row, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readXLSX(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readTSV(f)
}

// readTSV finds the header line (the first non-blank line that is not a
// comment; a "#"-prefixed line containing a tab counts as a header with the
// "#" removed) and splits every remaining line into tab-separated cells with
// splitTSVLine. Lines have no length limit and a record never spans lines.
func readTSV(r io.Reader) ([]row, error) {
	br := bufio.NewReader(r)

	var (
		header  []string
		records [][]string
		first   = true
	)
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read tsv: %w", err)
		}
		if line == "" && err != nil {
			break
		}
		line = strings.TrimRight(line, "\r\n")
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		switch {
		case header != nil:
			records = append(records, splitTSVLine(line))
		case strings.TrimSpace(line) == "":
		case strings.HasPrefix(strings.TrimSpace(line), "#"):
			cand := strings.TrimSpace(strings.TrimPrefix(strings.TrimLeft(line, " \t"), "#"))
			if strings.Contains(cand, "\t") {
				header = strings.Split(cand, "\t")
			}
		default:
			header = strings.Split(line, "\t")
		}
		if err != nil {
			break
		}
	}
	if header == nil {
		return nil, nil
	}
	return toRows(header, records), nil
}

// splitTSVLine splits one line on tabs. A cell that opens with a double quote
// is read as quoted: "" is a literal quote, and text after the closing quote
// is kept as is, so `"Best" pen` reads as `Best pen`. An unterminated quote
// ends at the end of the line.
func splitTSVLine(line string) []string {
	var (
		cells []string
		cell  strings.Builder
	)
	const (
		start = iota
		plain
		quoted
		quoteInQuoted
	)
	state := start
	for _, c := range line {
		switch state {
		case start:
			switch c {
			case '"':
				state = quoted
			case '\t':
				cells = append(cells, "")
			default:
				cell.WriteRune(c)
				state = plain
			}
		case plain:
			if c == '\t' {
				cells = append(cells, cell.String())
				cell.Reset()
				state = start
				continue
			}
			cell.WriteRune(c)
		case quoted:
			if c == '"' {
				state = quoteInQuoted
				continue
			}
			cell.WriteRune(c)
		case quoteInQuoted:
			switch c {
			case '"':
				cell.WriteRune('"')
				state = quoted
			case '\t':
				cells = append(cells, cell.String())
				cell.Reset()
				state = start
			default:
				cell.WriteRune(c)
				state = plain
			}
		}
	}
	return append(cells, cell.String())
}

// readXLSX reads the first sheet of a workbook with the same header rules as readTSV.
func readXLSX(path string) ([]row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}

	for i, rec := range rows {
		if blank(rec) {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(rec[0]), "#") {
			cand := append([]string(nil), rec...)
			cand[0] = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(cand[0]), "#"))
			if nonEmpty(cand) > 1 {
				return toRows(cand, rows[i+1:]), nil
			}
			continue
		}
		return toRows(rec, rows[i+1:]), nil
	}
	return nil, nil
}

// toRows zips records with header. Blank records and records whose first cell
// starts with "#" are dropped; missing cells read as "".
func toRows(header []string, records [][]string) []row {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}
	out := make([]row, 0, len(records))
	for _, rec := range records {
		if blank(rec) {
			continue
		}
		if len(rec) > 0 && strings.HasPrefix(strings.TrimLeft(rec[0], " \t"), "#") {
			continue
		}
		r := make(row, len(names))
		for i, name := range names {
			if name == "" {
				continue
			}
			v := ""
			if i < len(rec) {
				v = strings.TrimSpace(rec[i])
			}
			r[name] = v
		}
		out = append(out, r)
	}
	return out
}

func blank(rec []string) bool {
	return nonEmpty(rec) == 0
}

func nonEmpty(rec []string) int {
	n := 0
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}
