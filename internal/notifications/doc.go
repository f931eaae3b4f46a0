// Package notifications delivers import run events via ntfy.
//
// The service publishes to the topic configured in config.toml and degrades
// to a no-op when no topic is set. Each event kind can be switched off
// independently so a long import only pings when it matters.
package notifications
