// Package config loads, normalizes, and validates uploadai configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// UPLOADAI_API_URL. The Config type centralizes the backend location, the
// transcoding engine binaries, and the pipeline timing so the CLI and the
// terminal UI discover them in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
