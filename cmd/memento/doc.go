// Package main hosts the memento CLI entrypoint and command graph.
//
// The Cobra command tree covers two ways of running an import. `memento
// import` runs the pipeline in the foreground against a local manifest, while
// `memento start` launches the daemon and the remaining commands (run, pause,
// resume, restart, status, watch, downloads, failures) drive it over its HTTP
// API. Configuration resolution and client construction live in the shared
// command context so subcommands only deal with presentation.
package main
