// Package config loads, normalizes, and validates printpal CLI configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours the PRINTPAL_API_KEY and PRINTPAL_BASE_URL
// environment variables. Generation defaults are checked with the client's
// own request validation so a bad tier/format pair fails at load time.
package config
