// Package logging assembles the slog loggers used by the printpal CLI.
//
// It owns the console and JSON handlers and the level/output plumbing. The
// console handler lifts the "component" attribute into a prefix so client,
// batch and ledger lines are easy to tell apart on a terminal. Logs go to
// stderr by default; stdout is reserved for command output.
package logging
