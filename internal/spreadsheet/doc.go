// Package spreadsheet turns an uploaded workbook into a plain Table.
//
// Parsing is delegated to libraries and tried as an ordered chain:
//
//	XLSXParser  Office Open XML workbooks (excelize)
//	XLSParser   legacy BIFF workbooks inside an OLE2 container (mscfb, shakinm/xlsReader)
//
// A parser that does not recognise the bytes returns ErrFormatMismatch and
// the Reader moves on to the next one. When every parser reports a mismatch
// the upload is classified as a corrupt file; any other failure, including a
// panic inside a decoder, is classified as a read error. Both classes are
// *errors.AppError values so the HTTP layer can render them directly.
//
// Only the first worksheet is read. Its first non-blank row is the header and
// fully blank rows are skipped. Cells are raw values: numeric cells from
// either format, date-formatted ones included, arrive as the stored number
// and are flagged in Table.Numeric. Text cells stay text even when they
// look like numbers.
package spreadsheet
