// Package exporter turns an aggregation result into what users see and
// download.
//
// It has two parts:
//
// Render groups aggregate rows into a View, one labeled section per bucket
// for weekly and daily reports or a single flat table for monthly ones.
//
// CSVWriter writes rows to any io.Writer with an optional UTF-8 BOM for
// Excel. ExportCSV uses it to produce the grouped_data.csv download.
//
// Example usage:
//
//	view := exporter.Render(result)
//	if view.Empty() {
//		// show "No data"
//	}
//
//	err := exporter.ExportCSV(w, result, exporter.ExportOptions{BOM: true})
package exporter
