// Package jobs keeps a local SQLite ledger of submitted generations.
//
// Every generation the CLI submits is recorded with its input, tier, credit
// cost and last known status so it can be polled or downloaded later from a
// different process (the async workflow), and so batch runs can be audited
// by run ID. The ledger is a convenience cache; the service remains the
// source of truth for status.
//
// Schema changes bump schemaVersion in schema.go; users delete jobs.db to
// adopt the new schema.
package jobs
