// Package training implements the offline pipeline that turns a raw customer
// table into fitted churn artifacts: clean, encode, balance, split, scale,
// fit and evaluate.
package training

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bibbank/bib/services/churn-service/internal/domain/feature"
)

// RawTable is an in-memory text table with a header row.
type RawTable struct {
	Header []string
	Rows   [][]string
}

// ColumnIndex returns the position of a header column.
func (t RawTable) ColumnIndex(name string) (int, bool) {
	for i, h := range t.Header {
		if h == name {
			return i, true
		}
	}
	return -1, false
}

// CleanReport counts what cleaning removed.
type CleanReport struct {
	InputRows         int `json:"input_rows"`
	MissingDropped    int `json:"missing_dropped"`
	DuplicatesDropped int `json:"duplicates_dropped"`
	OutputRows        int `json:"output_rows"`
}

// Clean drops rows with a missing schema or target value, then drops exact
// duplicate rows keeping the first occurrence, then projects the table onto
// the schema columns followed by the target. Cells are trimmed. A numeric
// cell that does not parse to a finite number counts as missing.
func Clean(t RawTable, schema feature.Schema) (RawTable, CleanReport, error) {
	cols := append(schema.Columns(), feature.Column{Name: schema.Target(), Kind: feature.Categorical})
	idx := make([]int, len(cols))
	for i, c := range cols {
		j, ok := t.ColumnIndex(c.Name)
		if !ok {
			return RawTable{}, CleanReport{}, fmt.Errorf("column %q not found in header", c.Name)
		}
		idx[i] = j
	}

	report := CleanReport{InputRows: len(t.Rows)}
	out := RawTable{Header: make([]string, len(cols))}
	for i, c := range cols {
		out.Header[i] = c.Name
	}

	seen := make(map[string]struct{}, len(t.Rows))
	for n, row := range t.Rows {
		if len(row) != len(t.Header) {
			return RawTable{}, CleanReport{}, fmt.Errorf("row %d has %d cells, header has %d", n+1, len(row), len(t.Header))
		}
		trimmed := make([]string, len(row))
		for i, cell := range row {
			trimmed[i] = strings.TrimSpace(cell)
		}

		if hasMissing(trimmed, cols, idx) {
			report.MissingDropped++
			continue
		}

		// Duplicates are judged on the full raw row, identifiers included.
		key := strings.Join(trimmed, "\x1f")
		if _, dup := seen[key]; dup {
			report.DuplicatesDropped++
			continue
		}
		seen[key] = struct{}{}

		projected := make([]string, len(cols))
		for i, j := range idx {
			projected[i] = trimmed[j]
		}
		out.Rows = append(out.Rows, projected)
	}

	report.OutputRows = len(out.Rows)
	return out, report, nil
}

func hasMissing(row []string, cols []feature.Column, idx []int) bool {
	for i, c := range cols {
		cell := row[idx[i]]
		if cell == "" {
			return true
		}
		if c.Kind == feature.Numeric {
			f, err := strconv.ParseFloat(cell, 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return true
			}
		}
	}
	return false
}
