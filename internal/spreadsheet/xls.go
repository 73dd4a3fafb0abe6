package spreadsheet

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/richardlehane/mscfb"
	"github.com/shakinm/xlsReader/xls"
)

var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// BIFF8 record ids read from the workbook globals.
const (
	recordBOF      = 0x0809
	recordEOF      = 0x000A
	recordDateMode = 0x0022
)

// maxXLSColumns is the BIFF8 column limit.
const maxXLSColumns = 256

// XLSParser reads legacy BIFF workbooks (Excel 97-2003).
type XLSParser struct{}

// NewXLSParser creates an XLSParser.
func NewXLSParser() *XLSParser { return &XLSParser{} }

// Format implements Parser.
func (p *XLSParser) Format() Format { return FormatXLS }

// Parse implements Parser. The container is checked with mscfb before the
// BIFF decoder runs; every rejection up to and including the decoder
// refusing the workbook is a format mismatch.
//
// Cells keep the value stored in the file. NUMBER and RK records come
// through as raw numbers whatever their display format, so date serials
// and durations reach aggregation the same way they do from xlsx.
func (p *XLSParser) Parse(ctx context.Context, data []byte) (*Table, error) {
	if !bytes.HasPrefix(data, oleSignature) {
		return nil, fmt.Errorf("%w: no OLE2 signature", ErrFormatMismatch)
	}
	globals, err := readGlobals(data)
	if err != nil {
		return nil, err
	}

	wb, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormatMismatch, err)
	}
	if wb.GetNumberSheets() == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrFormatMismatch)
	}
	sheet, err := wb.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("%w: first sheet unreadable: %v", ErrFormatMismatch, err)
	}

	n := sheet.GetNumberRows()
	rows := make([][]Cell, 0, n+1)
	for i := 0; i <= n; i++ {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := sheet.GetRow(i)
		if err != nil {
			continue
		}

		want := len(row.GetCols())
		cells := make([]Cell, 0, want)
		for c, found := 0, 0; found < want && c < maxXLSColumns; c++ {
			cell, err := row.GetCol(c)
			if err != nil || cell == nil {
				cells = append(cells, Cell{})
				continue
			}
			found++
			cells = append(cells, xlsCell(cell))
		}
		rows = append(rows, trimTrailingBlanks(cells))
	}

	table := newTable(FormatXLS, sheet.GetName(), rows)
	table.Date1904 = globals.date1904
	return table, nil
}

// biffCell is the part of a decoded BIFF cell the parser reads.
type biffCell interface {
	GetString() string
	GetFloat64() float64
	GetType() string
}

// xlsCell keeps numeric records as their raw value. The decoder reports
// the record type by name, e.g. "*record.Number" or "*record.Rk".
func xlsCell(cell biffCell) Cell {
	typ := strings.ToLower(cell.GetType())
	if strings.HasSuffix(typ, ".number") || strings.HasSuffix(typ, ".rk") {
		return Cell{Value: strconv.FormatFloat(cell.GetFloat64(), 'f', -1, 64), Number: true}
	}
	return Cell{Value: cell.GetString()}
}

type workbookGlobals struct {
	date1904 bool
}

// readGlobals verifies the compound file holds a BIFF8 workbook stream
// and reads the settings the cell decoder does not expose.
func readGlobals(data []byte) (workbookGlobals, error) {
	var g workbookGlobals

	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return g, fmt.Errorf("%w: %v", ErrFormatMismatch, err)
	}
	var stream []byte
	for {
		entry, err := doc.Next()
		if err == io.EOF {
			return g, fmt.Errorf("%w: no Workbook stream", ErrFormatMismatch)
		}
		if err != nil {
			return g, fmt.Errorf("%w: %v", ErrFormatMismatch, err)
		}
		if entry.Name == "Workbook" || entry.Name == "Book" {
			if stream, err = io.ReadAll(entry); err != nil {
				return g, fmt.Errorf("%w: %v", ErrFormatMismatch, err)
			}
			break
		}
	}

	for off, first := 0, true; off+4 <= len(stream); first = false {
		id := binary.LittleEndian.Uint16(stream[off:])
		size := int(binary.LittleEndian.Uint16(stream[off+2:]))
		body := stream[off+4 : min(off+4+size, len(stream))]
		off += 4 + size

		if first && id != recordBOF {
			return g, fmt.Errorf("%w: workbook stream does not start with a BIFF8 BOF", ErrFormatMismatch)
		}
		switch id {
		case recordDateMode:
			if len(body) >= 2 {
				g.date1904 = binary.LittleEndian.Uint16(body) == 1
			}
		case recordEOF:
			return g, nil
		}
	}
	return g, nil
}
