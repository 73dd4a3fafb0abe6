package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"callreport/internal/aggregate"
)

// ContentType is the MIME type of the CSV download.
const ContentType = "text/csv"

// Headers is the header row of an exported report.
var Headers = []string{"Period", "Group", "Total Calls", "Total Call Time"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// CSVWriter writes CSV documents to a destination writer.
type CSVWriter struct {
	w io.Writer
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: w}
}

// WriteCSV writes the BOM, the header row and every record.
func (c *CSVWriter) WriteCSV(options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := c.w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(c.w)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ExportOptions controls the report download.
type ExportOptions struct {
	BOM bool
}

// Records converts aggregate rows to CSV records in result order.
func Records(res *aggregate.Result) [][]string {
	if res == nil {
		return nil
	}
	out := make([][]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, []string{
			row.Bucket.Key(),
			row.Group,
			strconv.Itoa(row.Calls),
			row.Duration(),
		})
	}
	return out
}

// ExportCSV writes the report as CSV with the Headers row.
func ExportCSV(w io.Writer, res *aggregate.Result, opts ExportOptions) error {
	return NewCSVWriter(w).WriteCSV(WriteOptions{
		Headers:   Headers,
		Records:   Records(res),
		BOMPrefix: opts.BOM,
	})
}

// ExportFile writes the report to path, creating parent directories.
func ExportFile(path string, res *aggregate.Result, opts ExportOptions) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return ExportCSV(file, res, opts)
}
