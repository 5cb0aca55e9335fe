// Package preflight provides readiness checks for the PrintPal service and
// the local paths the CLI writes to.
//
// The "printpal check" command runs RunAll and prints one line per check.
// Checks never retry; each network check gets its own short deadline so an
// unresponsive service is reported instead of hanging the command.
package preflight
