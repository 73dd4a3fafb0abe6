// Package services implements the business logic layer of the call report
// service. Handlers in internal/transport/http and the callexport CLI call
// into it; it never touches HTTP types.
//
// # Report pipeline
//
// ReportService owns the read, validate, aggregate and export steps:
//
//	summary, err := svc.Upload(ctx, "calls.xlsx", file)
//	view, result, err := svc.Report(ctx, summary.ID, aggregate.Week)
//	err = svc.Export(ctx, summary.ID, aggregate.Week, w)
//
// Uploads are parsed once and held in a session.Store; every Report or
// Export re-runs aggregation from the stored table.
//
// # Error Handling
//
// Errors are *errors.AppError values that handlers translate into problems
// or form messages:
//
//	- CORRUPT_FILE and READ_ERROR from the spreadsheet reader
//	- VALIDATION for missing columns, bad extensions and granularity
//	- NOT_FOUND for unknown or expired sessions (ErrSessionNotFound)
//
// # Observability
//
// Each operation opens a span (report.upload, spreadsheet.read,
// report.aggregate, report.export) and records business metrics.
package services
