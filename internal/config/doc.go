// Package config loads the service configuration.
//
// Values are resolved in three layers, later layers winning:
//
//	1. Default() values
//	2. a YAML file (CALLREPORT_CONFIG, config.yaml or configs/config.yaml)
//	3. CALLREPORT_* environment variables
//
// Environment variables follow the struct nesting, for example:
//
//	CALLREPORT_SERVER_PORT=8080
//	CALLREPORT_UPLOAD_MAX_BYTES=33554432
//	CALLREPORT_COLUMNS_DATE="Call Date"
//	CALLREPORT_SESSION_TTL=30m
//	CALLREPORT_CATEGORIES_FILE=/etc/callreport/categories.yaml
//	CALLREPORT_TIMEZONE=Asia/Baghdad
//
// Load validates the merged result and returns an error describing the first
// invalid value.
package config
