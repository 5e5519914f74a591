// Package analyze is a heuristic static checker for diff content. It scans
// the added lines of a change set against a set of regex rules and emits
// issues without calling any model backend, which makes it the zero-cost
// fallback when no provider is configured.
//
// Rules are language-scoped by file extension. The built-in set covers
// debug-print leftovers, swallowed errors, SQL string concatenation,
// hardcoded credentials, and overlong lines.
package analyze
