// Package redact strips secrets from diff content before it leaves the
// service for a model provider.
//
// Detection is regex-heuristic and covers common secret shapes: API key
// assignments, JWTs, private key blocks, AWS credentials, bearer tokens, and
// provider tokens (GitLab, GitHub, Anthropic, OpenAI, Slack).
//
// Whole files can also be excluded by path policy: a file whose path matches
// a configured glob has its entire diff replaced with [REDACTED] instead of
// being scanned line by line.
package redact
