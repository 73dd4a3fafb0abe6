// Package app provides application initialization and lifecycle management
// for the call report service. It wires configuration, logging, telemetry,
// the category table, the session store and the HTTP surface together.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, YAML file and environment
//	2. Initialize logging and OpenTelemetry
//	3. Load the category table (built in or from categories.file)
//	4. Create the session store, spreadsheet reader and services
//	5. Set up middleware, handlers and the HTTP server
//
// # Lifecycle
//
// Run starts the HTTP server, the session janitor and, when enabled, the
// category file watcher under one errgroup. SIGINT or SIGTERM cancels the
// group and the server drains within server.shutdown_timeout.
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
package app
