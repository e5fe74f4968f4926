// Package services defines shared utilities consumed by the job lifecycle
// controller, the Studio client, and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, remote job IDs, project IDs and
//     stage names for logging.
//   - Structured error markers plus the Wrap helper so every failure carries a
//     class (validation, transport, rejected, failed, malformed) that the CLI
//     turns into a precise message and exit code.
//
// Use these helpers when adding new remote calls so failure classification
// stays uniform across submit, watch and download.
package services
