package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	in := "\ufeffcustomerID, tenure ,Contract,TotalCharges\n" +
		"7590-VHVEG,1,Month-to-month,29.85\n" +
		"5575-GNVDE,34,One year, \n" +
		"3668-QPYBK,2,\"Month-to-month\",108.15\n"

	table, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"customerID", "tenure", "Contract", "TotalCharges"}, table.Header)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, " ", table.Rows[1][3], "cells are kept verbatim")

	idx, ok := table.ColumnIndex("tenure")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantMsg string
	}{
		{name: "empty", in: "", wantMsg: "empty"},
		{name: "ragged row", in: "a,b\n1,2\n3\n", wantMsg: "failed to read dataset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "churn.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

	table, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}}, table.Rows)

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
