// Package main hosts the printpal CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into calls on the
// printpal client: account queries, single and batch generations, status
// polling, downloads, the local jobs ledger and configuration scaffolding. It
// centralizes configuration resolution, client construction and logging setup
// so subcommands can focus on presentation.
//
// Keep this package lean: new behavior belongs in the client or the internal
// packages first, then gets surfaced here through a command or flag.
package main
