package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/mreide/reviewd/internal/diff"
)

const (
	connectTimeout = 10 * time.Second
	requestTimeout = 30 * time.Second

	// maxRetries is the number of retries after the initial attempt for
	// transient failures (429, 5xx, network errors).
	maxRetries        = 3
	initialRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 8 * time.Second

	// maxErrorBody bounds how much of an error response is kept in messages.
	maxErrorBody = 512
)

// ClientConfig carries the settings needed to talk to a GitLab instance.
type ClientConfig struct {
	BaseURL      string
	Token        string
	MaxDiffBytes int
}

// Client is a GitLab REST API v4 client scoped to merge request review
// operations. It is safe for concurrent use.
type Client struct {
	baseURL      string
	token        string
	httpCli      *http.Client
	maxDiffBytes int
	retryDelay   time.Duration
}

// NewClient creates a Client. The base URL is the GitLab instance root
// (e.g. https://gitlab.com); API paths are appended internally.
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		token:        cfg.Token,
		maxDiffBytes: cfg.MaxDiffBytes,
		retryDelay:   initialRetryDelay,
		httpCli: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: connectTimeout}).DialContext,
				TLSHandshakeTimeout: connectTimeout,
			},
		},
	}
}

// User is a GitLab user reference.
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// DiffRefs are the commit SHAs that anchor positioned diff comments.
type DiffRefs struct {
	BaseSHA  string `json:"base_sha"`
	StartSHA string `json:"start_sha"`
	HeadSHA  string `json:"head_sha"`
}

// MRInfo is an immutable snapshot of merge request metadata.
type MRInfo struct {
	ID           int       `json:"id"`
	IID          int       `json:"iid"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	State        string    `json:"state"`
	Author       User      `json:"author"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	SourceBranch string    `json:"source_branch"`
	TargetBranch string    `json:"target_branch"`
	WebURL       string    `json:"web_url"`
	DiffRefs     DiffRefs  `json:"diff_refs"`
}

// MR fetches merge request metadata.
func (c *Client) MR(ctx context.Context, ref Ref) (*MRInfo, error) {
	url := fmt.Sprintf("%s/api/v4/projects/%s/merge_requests/%d", c.baseURL, ref.apiPath(), ref.IID)

	var info MRInfo
	if err := c.do(ctx, http.MethodGet, url, nil, &info); err != nil {
		return nil, c.describeNotFound(err, ref)
	}
	return &info, nil
}

// changesPayload is the subset of the changes endpoint response we consume.
type changesPayload struct {
	Changes  []diff.Change `json:"changes"`
	DiffRefs DiffRefs      `json:"diff_refs"`
}

// Changes fetches the merge request diff and parses it into a Summary.
// Diffs over the configured size ceiling fail with diff.TooLargeError.
func (c *Client) Changes(ctx context.Context, ref Ref) (*diff.Summary, error) {
	url := fmt.Sprintf("%s/api/v4/projects/%s/merge_requests/%d/changes", c.baseURL, ref.apiPath(), ref.IID)

	var payload changesPayload
	if err := c.do(ctx, http.MethodGet, url, nil, &payload); err != nil {
		return nil, c.describeNotFound(err, ref)
	}
	return diff.Build(payload.Changes, c.maxDiffBytes)
}

// PostNote creates a plain (summary) note on the merge request and returns
// its ID. Notes are not idempotent: every call creates a new comment.
func (c *Client) PostNote(ctx context.Context, ref Ref, body string) (int, error) {
	url := fmt.Sprintf("%s/api/v4/projects/%s/merge_requests/%d/notes", c.baseURL, ref.apiPath(), ref.IID)

	req := map[string]string{"body": body}
	var note struct {
		ID int `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, url, req, &note); err != nil {
		return 0, c.describeNotFound(err, ref)
	}
	return note.ID, nil
}

// Position anchors a discussion to a diff line.
type Position struct {
	BaseSHA      string `json:"base_sha"`
	StartSHA     string `json:"start_sha"`
	HeadSHA      string `json:"head_sha"`
	PositionType string `json:"position_type"`
	NewPath      string `json:"new_path"`
	NewLine      int    `json:"new_line,omitempty"`
	OldPath      string `json:"old_path,omitempty"`
	OldLine      int    `json:"old_line,omitempty"`
}

// NewLinePosition builds a text position for a new-side line.
func NewLinePosition(refs DiffRefs, path string, line int) Position {
	startSHA := refs.StartSHA
	if startSHA == "" {
		startSHA = refs.BaseSHA
	}
	return Position{
		BaseSHA:      refs.BaseSHA,
		StartSHA:     startSHA,
		HeadSHA:      refs.HeadSHA,
		PositionType: "text",
		NewPath:      path,
		NewLine:      line,
		OldPath:      path,
	}
}

// PostLineComment creates a positioned discussion on the merge request diff
// and returns the ID of its first note. GitLab rejects positions outside the
// diff context with HTTP 400, surfaced here as PositionError.
func (c *Client) PostLineComment(ctx context.Context, ref Ref, pos Position, body string) (int, error) {
	url := fmt.Sprintf("%s/api/v4/projects/%s/merge_requests/%d/discussions", c.baseURL, ref.apiPath(), ref.IID)

	req := struct {
		Body     string   `json:"body"`
		Position Position `json:"position"`
	}{Body: body, Position: pos}

	var discussion struct {
		ID    string `json:"id"`
		Notes []struct {
			ID int `json:"id"`
		} `json:"notes"`
	}
	if err := c.do(ctx, http.MethodPost, url, req, &discussion); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
			return 0, &PositionError{Path: pos.NewPath, Line: pos.NewLine, Message: apiErr.Message}
		}
		return 0, c.describeNotFound(err, ref)
	}
	if len(discussion.Notes) == 0 {
		return 0, nil
	}
	return discussion.Notes[0].ID, nil
}

// do performs one API call with bounded retries on transient failures.
func (c *Client) do(ctx context.Context, method, url string, payload, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
	}

	return retry.Do(
		func() error { return c.once(ctx, method, url, body, out) },
		retry.Context(ctx),
		retry.Attempts(maxRetries+1),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(isTransient),
		retry.LastErrorOnly(true),
	)
}

func (c *Client) once(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("PRIVATE-TOKEN", c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpCli.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Status: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound:
		return &NotFoundError{Resource: "resource"}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{}
	default:
		return &APIError{Status: resp.StatusCode, Message: trimBody(respBody)}
	}
}

// describeNotFound replaces the generic 404 resource with the MR reference
// so callers get an actionable message.
func (c *Client) describeNotFound(err error, ref Ref) error {
	var nfe *NotFoundError
	if errors.As(err, &nfe) && nfe.Resource == "resource" {
		return &NotFoundError{Resource: fmt.Sprintf("merge request !%d in project %s", ref.IID, ref.Project)}
	}
	return err
}

func trimBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}
