// Package logging assembles structured slog loggers and formatting helpers used
// across eideploy.
//
// It owns the configurable console/JSON handlers, an optional JSON file tee,
// level and output plumbing, and context-aware helpers that tag records with
// run IDs, project IDs, remote job IDs and lifecycle stages. API keys logged
// under the api_key field are redacted by both handlers. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
//
// Remote build output is not routed through these loggers; the deploy package
// writes job log lines to its own sink so they reach stdout verbatim.
package logging
