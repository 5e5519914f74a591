// Package gitlab is a GitLab REST API v4 client scoped to merge request
// review: MR metadata, diff retrieval, summary notes, and positioned line
// discussions.
//
// Errors are typed (AuthError, NotFoundError, RateLimitError, PositionError,
// APIError) so callers can map them to HTTP statuses with errors.As.
// Transient failures (429, 5xx, network) are retried up to three times with
// exponential backoff; auth and other 4xx failures are terminal. Every call
// carries a bounded connect and total timeout.
package gitlab
