// Package config loads, normalizes, and validates eideploy configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads .env files, and honours environment
// fallbacks such as EI_API_KEY and the GitHub Actions INPUT_* variables. The
// Config type centralizes every knob the CLI needs so Studio credentials,
// build parameters and output locations are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
