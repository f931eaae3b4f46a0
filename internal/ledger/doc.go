// Package ledger keeps the per-run progress snapshot together with the
// append-only records of downloaded and failed items.
//
// Progress, Downloads and Failures each guard their state with their own
// mutex and no method holds more than one of them, so the pipeline can report
// outcomes while API readers take snapshots without lock ordering concerns.
// The run controller is the only writer of the status field.
package ledger
