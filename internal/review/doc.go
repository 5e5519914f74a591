// Package review contains the core types and orchestration for merge
// request code review.
//
// It defines the Finding and Result types, assembles prompts from diff
// content, parses and validates JSON responses from model backends (with a
// single repair pass for malformed output), and generates stable finding IDs
// as SHA-256 hashes of path, title, and line.
//
// Large diffs (>100 KB) are split into per-file chunks and reviewed in
// parallel with bounded concurrency; results are deduplicated and merged.
//
// The Service type runs a review job end to end: it parses the merge
// request URL, fetches metadata and changes concurrently, runs the Engine,
// and optionally writes a summary note and positioned line comments back to
// GitLab. Comment submission is best effort: individual failures are
// recorded and skipped, and the job only reports failure when every
// requested write failed.
//
// Rules packs (rules.go) allow callers to override finding severities,
// specify focus areas, and declare required checks included in every prompt.
package review
