// Package services defines shared utilities consumed by the import pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, item keys, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that keep failure reasons
//     consistent across fetch, merge, and metadata steps.
//
// The ffmpeg subpackage wraps the external transcoder behind a testable CLI.
package services
