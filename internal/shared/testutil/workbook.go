package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// CallLogHeader is the header row of a well-formed call log
var CallLogHeader = []interface{}{"Call Date", "Call To", "Call Time"}

// Workbook builds an xlsx file whose first sheet holds rows starting at A1.
func Workbook(t testing.TB, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// WriteWorkbook saves Workbook(rows) as dir/name and returns the path
func WriteWorkbook(t testing.TB, dir, name string, rows [][]interface{}) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, Workbook(t, rows), 0o644))
	return path
}
