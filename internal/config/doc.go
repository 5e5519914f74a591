// Package config manages reviewd configuration with a layered merge:
// defaults, then the YAML config file, then environment variables, then
// explicit overrides from CLI flags.
//
// The GitLab token is read from the GITLAB_TOKEN environment variable only
// and is never written back to disk. The resulting Config is validated once
// at startup and treated as immutable afterwards.
package config
