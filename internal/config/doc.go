// Package config loads, normalizes, and validates Memento configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a local .env file, and honours
// environment fallbacks such as MEMENTO_API_TOKEN and MEMENTO_NTFY_TOPIC. The
// Config type centralizes every knob the daemon and CLI need so the uploads
// and downloads areas, the import defaults, and the ffmpeg binary are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
