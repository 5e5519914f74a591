// Package cli wires together the Cobra command tree for the reviewd binary.
//
// It defines the root command and all subcommands (serve, review, config,
// models, cache, version), binds flags, reads configuration, invokes the
// review service, and returns deterministic exit codes for CI gating.
package cli
