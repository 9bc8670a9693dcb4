// Package dataset loads the raw customer table used for training.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bibbank/bib/services/churn-service/internal/domain/training"
)

// LoadCSV reads a CSV file with a header row.
func LoadCSV(path string) (training.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return training.RawTable{}, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses CSV with a header row. Every row must have as many fields
// as the header; cells are kept verbatim and cleaned by the pipeline.
func ReadCSV(r io.Reader) (training.RawTable, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return training.RawTable{}, fmt.Errorf("dataset is empty")
	}
	if err != nil {
		return training.RawTable{}, fmt.Errorf("failed to read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := training.RawTable{Header: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return training.RawTable{}, fmt.Errorf("failed to read dataset: %w", err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
