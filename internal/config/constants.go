package config

import "time"

// Application constants
const (
	AppName   = "Call Report"
	EnvPrefix = "CALLREPORT"

	// ConfigFileEnv names the variable that points at an explicit YAML file.
	ConfigFileEnv = "CALLREPORT_CONFIG"

	// Default required columns of an uploaded call log
	DefaultDateColumn        = "Call Date"
	DefaultDestinationColumn = "Call To"
	DefaultDurationColumn    = "Call Time"

	DefaultExportFileName = "grouped_data.csv"
	SessionCookieName     = "callreport_session"

	DefaultMaxUploadBytes  = 32 << 20
	DefaultSessionTTL      = 30 * time.Minute
	DefaultCleanupInterval = time.Minute
	DefaultMaxSessions     = 256
)

// DefaultAllowedExtensions lists the upload extensions accepted by default.
func DefaultAllowedExtensions() []string {
	return []string{".xlsx", ".xls"}
}
