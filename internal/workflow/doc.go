// Package workflow owns the single import run a memento process may have in
// flight.
//
// The Manager validates start requests (one active run, output root inside
// the allowed tree, parseable manifest), computes the eligible records, resets
// the ledgers and launches the importer pipeline in the background. Pause and
// resume flip the shared gate; restart and cancel stop the run, wait for every
// in-flight item, and clear state. The Manager is the only writer of the run
// status, and it emits run-level notifications when a run starts, completes,
// or cannot start.
package workflow
