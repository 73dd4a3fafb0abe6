// Package http implements the HTTP handlers of the call report service.
// Handlers stay thin: they parse the request, call the services layer and
// format the response.
//
// # Surfaces
//
// HTMLHandler serves the server-rendered upload form and report pages:
//
//	GET  /        upload form
//	POST /upload  accept a spreadsheet, set the session cookie, redirect
//	GET  /report  render the report for the session's upload
//	GET  /export  download grouped_data.csv
//
// ReportHandler serves the same pipeline as JSON under /api/v1 and
// HealthHandler serves /api/health and /api/version.
//
// # Error Handling
//
// JSON errors follow RFC 7807 Problem Details and are written by
// errors.ErrorHandler:
//
//	{
//	    "type": "/errors/upload/corrupt-file",
//	    "title": "Corrupt File",
//	    "status": 422,
//	    "detail": "The file is not a valid Excel file or is corrupted.",
//	    "instance": "/api/v1/uploads"
//	}
//
// The HTML flow re-renders the upload form with the same message instead.
//
// # Testing
//
// Handlers are tested with httptest against a testify mock of
// ReportServiceInterface.
package http
