// Package daemon coordinates the long-running Memento process.
//
// It wires configuration, the workflow manager and the HTTP API into a single
// lifecycle with flock-based locking to prevent multiple instances. The API
// accepts manifest uploads, exposes run control (pause, resume, restart), and
// serves progress, downloads and failures, including a websocket stream that
// pushes a snapshot on every progress change.
//
// Keep orchestration logic here: import steps live in the importer and
// workflow packages while the daemon focuses on startup, shutdown and
// transport.
package daemon
