package spreadsheet

import "strings"

// Format identifies which parser produced a Table.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// Cell is one worksheet value as stored in the file. Number is set when
// the workbook records the cell as numeric, including date-formatted
// serials; Value then holds the raw number.
type Cell struct {
	Value  string
	Number bool
}

// Table is the first worksheet of a workbook.
type Table struct {
	Format  Format
	Sheet   string
	Headers []string
	Rows    [][]string

	// Numeric parallels Rows. A missing entry reads as text.
	Numeric [][]bool

	// Date1904 is set for workbooks using the 1904 date system.
	Date1904 bool
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of the first header equal to name after
// trimming surrounding whitespace on both sides, or -1.
func (t *Table) ColumnIndex(name string) int {
	want := strings.TrimSpace(name)
	for i, h := range t.Headers {
		if strings.TrimSpace(h) == want {
			return i
		}
	}
	return -1
}

// Cell returns the value at row, col or "" when the row is shorter.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return ""
	}
	r := t.Rows[row]
	if col >= len(r) {
		return ""
	}
	return r[col]
}

// IsNumber reports whether the cell at row, col was stored as a number.
func (t *Table) IsNumber(row, col int) bool {
	if row < 0 || row >= len(t.Numeric) || col < 0 {
		return false
	}
	r := t.Numeric[row]
	return col < len(r) && r[col]
}

// newTable uses the first non-blank row as header and keeps the remaining
// non-blank rows as data.
func newTable(format Format, sheet string, rows [][]Cell) *Table {
	t := &Table{Format: format, Sheet: sheet}
	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		if t.Headers == nil {
			for _, c := range trimTrailingBlanks(row) {
				t.Headers = append(t.Headers, c.Value)
			}
			continue
		}
		values := make([]string, len(row))
		kinds := make([]bool, len(row))
		for i, c := range row {
			values[i] = c.Value
			kinds[i] = c.Number
		}
		t.Rows = append(t.Rows, values)
		t.Numeric = append(t.Numeric, kinds)
	}
	if t.Headers == nil {
		t.Headers = []string{}
	}
	return t
}

func isBlank(row []Cell) bool {
	for _, c := range row {
		if strings.TrimSpace(c.Value) != "" {
			return false
		}
	}
	return true
}

func trimTrailingBlanks(row []Cell) []Cell {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1].Value) == "" {
		end--
	}
	out := make([]Cell, end)
	copy(out, row[:end])
	return out
}
