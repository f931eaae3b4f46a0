// Package api defines the wire-format types shared by the daemon HTTP server
// and the CLI client. It translates workflow and ledger state into
// transport-friendly DTOs so neither side couples to internal types.
//
// # Key Types
//
// DaemonStatus: daemon runtime information, the current run snapshot,
// component health and dependency availability.
//
// RunResponse: the accepted run returned by POST /api/run.
//
// ControlResponse: the status after pause, resume or restart.
//
// ProgressFrame: one message on the live progress websocket.
//
// # Converters
//
// FromStartResult: workflow.StartResult -> RunResponse.
//
// FromDependencies / FromHealth: deterministic ordering of dependency and
// component readiness.
//
// # Design Notes
//
// DTOs use snake_case JSON tags to match the ledger payloads they embed.
// Progress snapshots, download pages and the failure list are passed through
// unchanged; the failure list keeps its ordered-object encoding.
package api
