// Package shared holds helpers used by more than one package's tests.
//
// testutil provides a capturing slog handler for asserting on structured
// log output and builders for call log workbooks.
package shared
