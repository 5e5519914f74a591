package gitlab

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const mrURLMarker = "/-/merge_requests/"

// Ref identifies a merge request: the instance base URL, the full project
// path (including subgroups), and the MR IID.
type Ref struct {
	BaseURL string `json:"baseURL"`
	Project string `json:"project"`
	IID     int    `json:"iid"`
}

// ParseMRURL parses a GitLab merge request web URL such as
// https://gitlab.com/group/sub/project/-/merge_requests/42 into a Ref.
// Malformed URLs are rejected before any network call is made.
func ParseMRURL(raw string) (Ref, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Ref{}, &InvalidRequestError{Message: fmt.Sprintf("invalid MR URL %q: %v", raw, err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Ref{}, &InvalidRequestError{Message: fmt.Sprintf("invalid MR URL %q: scheme must be http or https", raw)}
	}
	if u.Host == "" {
		return Ref{}, &InvalidRequestError{Message: fmt.Sprintf("invalid MR URL %q: missing host", raw)}
	}

	idx := strings.Index(u.Path, mrURLMarker)
	if idx < 0 {
		return Ref{}, &InvalidRequestError{Message: fmt.Sprintf("invalid MR URL %q: not a merge request URL", raw)}
	}

	project := strings.Trim(u.Path[:idx], "/")
	segments := strings.Split(project, "/")
	if len(segments) < 2 {
		return Ref{}, &InvalidRequestError{Message: fmt.Sprintf("invalid MR URL %q: project path must be namespace/project", raw)}
	}
	for _, seg := range segments {
		if seg == "" {
			return Ref{}, &InvalidRequestError{Message: fmt.Sprintf("invalid MR URL %q: empty project path segment", raw)}
		}
	}

	iidPart := strings.Trim(u.Path[idx+len(mrURLMarker):], "/")
	iid, err := strconv.Atoi(iidPart)
	if err != nil || iid <= 0 {
		return Ref{}, &InvalidRequestError{Message: fmt.Sprintf("invalid MR URL %q: merge request IID must be a positive integer", raw)}
	}

	return Ref{
		BaseURL: u.Scheme + "://" + u.Host,
		Project: project,
		IID:     iid,
	}, nil
}

// WebURL reconstructs the merge request web URL. ParseMRURL(r.WebURL())
// yields r back.
func (r Ref) WebURL() string {
	return fmt.Sprintf("%s/%s%s%d", r.BaseURL, r.Project, mrURLMarker, r.IID)
}

// apiPath returns the URL-encoded project path used in REST endpoints.
func (r Ref) apiPath() string {
	return url.PathEscape(r.Project)
}
