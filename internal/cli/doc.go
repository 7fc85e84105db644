// Package cli defines the Cobra command tree for the promptitude CLI. Each
// file registers one top-level command (sync, list, activate, repo, ...) with
// the root command. Commands wire the internal packages together through app
// and only handle flag parsing, output formatting and exit codes.
package cli
