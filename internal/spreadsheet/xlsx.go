package spreadsheet

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXParser reads Office Open XML workbooks.
type XLSXParser struct{}

// NewXLSXParser creates an XLSXParser.
func NewXLSXParser() *XLSXParser { return &XLSXParser{} }

// Format implements Parser.
func (p *XLSXParser) Format() Format { return FormatXLSX }

// Parse implements Parser. Anything that is not a zip archive, an OLE2
// container handed to excelize, or an archive without worksheets is a
// format mismatch.
func (p *XLSXParser) Parse(ctx context.Context, data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, zip.ErrFormat) || errors.Is(err, excelize.ErrWorkbookFileFormat) {
			return nil, fmt.Errorf("%w: %v", ErrFormatMismatch, err)
		}
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: archive has no worksheets", ErrFormatMismatch)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sheet := sheets[0]
	values, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	rows := make([][]Cell, len(values))
	for i, row := range values {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rows[i] = make([]Cell, len(row))
		for c, v := range row {
			if rows[i][c], err = xlsxCell(f, sheet, i, c, v); err != nil {
				return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
			}
		}
	}

	table := newTable(FormatXLSX, sheet, rows)
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		table.Date1904 = *props.Date1904
	}
	return table, nil
}

// xlsxCell types a raw value. Cells without a type attribute or with
// t="n" hold numbers, which is how date-formatted serials are stored;
// shared, inline and formula strings stay text.
func xlsxCell(f *excelize.File, sheet string, row, col int, value string) (Cell, error) {
	if strings.TrimSpace(value) == "" {
		return Cell{Value: value}, nil
	}
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return Cell{}, err
	}
	typ, err := f.GetCellType(sheet, name)
	if err != nil {
		return Cell{}, err
	}
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		_, perr := strconv.ParseFloat(value, 64)
		return Cell{Value: value, Number: perr == nil}, nil
	}
	return Cell{Value: value}, nil
}
