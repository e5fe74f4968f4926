// Package main hosts the eideploy CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal or CI invocations into Studio
// deployment builds: build runs the full submit, watch and download flow and
// saves the artifact, while submit, watch and download expose each step on its
// own. history, doctor and config cover the local run database, readiness
// checks and configuration scaffolding.
//
// Keep this package lean: the lifecycle lives in internal/deploy and
// persistence in internal/artifact and internal/history. Commands here only
// resolve configuration, apply flag overrides and render results.
package main
