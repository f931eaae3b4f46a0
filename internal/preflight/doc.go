// Package preflight provides readiness checks for the filesystem paths and
// external tools memento depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failing check.
//   - The CLI "memento status" command and the health endpoint use the
//     individual check functions to display readiness.
//
// Checks for optional features are gated by their config toggle.
package preflight
