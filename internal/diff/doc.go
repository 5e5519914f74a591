// Package diff parses GitLab merge request change payloads into a read-only
// Summary: per-file hunks with old/new line attribution, addition/deletion
// totals, and a file-type histogram.
//
// The Summary is the input contract for review generation and the source of
// truth for which lines may carry positioned comments. A configurable size
// ceiling bounds memory use; oversized diffs fail with TooLargeError before
// any parsing happens.
package diff
