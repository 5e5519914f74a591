// Reviewd reviews GitLab merge requests with LLM providers or a built-in
// static analyzer, and can post the results back to the MR as comments.
//
// It runs either as an HTTP service or as a one-shot CLI:
//
//	reviewd serve                                  # run the HTTP service
//	reviewd review <mr-url>                        # review an MR, print findings
//	reviewd review <mr-url> --submit-comment       # also post a summary comment
//	reviewd review <mr-url> --line-comments        # also post line comments
//	reviewd models list                            # list known providers
//	reviewd config init                            # write a default config file
//
// Configuration comes from a YAML config file, environment variables
// (GITLAB_TOKEN, GITLAB_URL, REVIEWD_*), and flags, in increasing order of
// precedence. A .env file in the working directory is loaded at startup.
package main
