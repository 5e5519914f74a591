package review

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mreide/reviewd/internal/config"
	"github.com/mreide/reviewd/internal/diff"
	"github.com/mreide/reviewd/internal/gitlab"
	"github.com/mreide/reviewd/internal/infra"
)

// Request is one code review job.
type Request struct {
	MRURL         string `json:"mr_url"`
	SubmitComment bool   `json:"submit_comment"`
	LineComments  bool   `json:"line_comments"`
}

// CommentOutcome records the result of posting one line comment.
type CommentOutcome struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	NoteID int    `json:"noteId,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Submission reports what was written back to GitLab.
type Submission struct {
	SummaryNoteID int              `json:"summaryNoteId,omitempty"`
	SummaryError  string           `json:"summaryError,omitempty"`
	LineComments  []CommentOutcome `json:"lineComments,omitempty"`
	Posted        int              `json:"posted"`
	Failed        int              `json:"failed"`
}

// Response is the outcome of a review job.
type Response struct {
	Status     string         `json:"status"`
	Message    string         `json:"message"`
	MR         *gitlab.MRInfo `json:"mr,omitempty"`
	Changes    *diff.Summary  `json:"changes,omitempty"`
	Review     *Result        `json:"review,omitempty"`
	Submission *Submission    `json:"submission,omitempty"`
}

// Client is the slice of the GitLab API the orchestrator needs.
type Client interface {
	MR(ctx context.Context, ref gitlab.Ref) (*gitlab.MRInfo, error)
	Changes(ctx context.Context, ref gitlab.Ref) (*diff.Summary, error)
	PostNote(ctx context.Context, ref gitlab.Ref, body string) (int, error)
	PostLineComment(ctx context.Context, ref gitlab.Ref, pos gitlab.Position, body string) (int, error)
}

// Service runs review jobs end to end: parse, fetch, generate, submit.
type Service struct {
	cfg     config.Config
	log     infra.Logger
	engine  *Engine
	limiter *gitlab.RateLimiter

	// newClient builds a GitLab client for the instance named in the MR URL.
	// Tests swap it for a fake.
	newClient func(baseURL string) Client
}

// NewService wires a Service from configuration.
func NewService(cfg config.Config, log infra.Logger) (*Service, error) {
	engine, err := NewEngine(cfg, log)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:    cfg,
		log:    log,
		engine: engine,
		// GitLab abuse detection trips on comment bursts; pace writes.
		limiter: gitlab.NewRateLimiter(10, time.Second),
		newClient: func(baseURL string) Client {
			return gitlab.NewClient(gitlab.ClientConfig{
				BaseURL:      baseURL,
				Token:        cfg.GitLabToken,
				MaxDiffBytes: cfg.MaxDiffBytes,
			})
		},
	}, nil
}

// Review executes one review job. Errors from the parse, fetch, and generate
// phases are returned for the transport layer to map to a status code.
// Submission failures do not fail the job unless every requested write
// failed.
func (s *Service) Review(ctx context.Context, req Request) (*Response, error) {
	if s.cfg.GitLabToken == "" {
		return nil, &gitlab.InvalidRequestError{Message: "GITLAB_TOKEN is not configured"}
	}

	ref, err := gitlab.ParseMRURL(req.MRURL)
	if err != nil {
		return nil, err
	}
	s.log.Infof("starting review of %s!%d", ref.Project, ref.IID)

	client := s.newClient(ref.BaseURL)

	mr, changes, err := fetchMR(ctx, client, ref)
	if err != nil {
		return nil, err
	}

	if mr.State != "opened" && mr.State != "reopened" {
		return nil, &gitlab.InvalidRequestError{
			Message: fmt.Sprintf("merge request is not open for review (state: %s)", mr.State),
		}
	}

	result, err := s.engine.Run(ctx, mr, changes)
	if err != nil {
		return nil, err
	}
	s.log.Infof("review of %s!%d produced %d findings", ref.Project, ref.IID, len(result.Findings))

	resp := &Response{
		Status:  "success",
		Message: "Code review completed successfully",
		MR:      mr,
		Changes: changes,
		Review:  result,
	}

	if req.SubmitComment || req.LineComments {
		// A dropped HTTP client must not abandon comments halfway through.
		resp.Submission = s.submit(context.WithoutCancel(ctx), client, ref, mr, changes, result, req)
		if resp.Submission.Posted == 0 && resp.Submission.Failed > 0 {
			resp.Status = "error"
			resp.Message = "Review generated but posting comments failed"
		}
	}

	return resp, nil
}

// fetchMR loads merge request metadata and changes concurrently.
func fetchMR(ctx context.Context, client Client, ref gitlab.Ref) (*gitlab.MRInfo, *diff.Summary, error) {
	var (
		wg        sync.WaitGroup
		mr        *gitlab.MRInfo
		changes   *diff.Summary
		mrErr     error
		changeErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		mr, mrErr = client.MR(ctx, ref)
	}()
	go func() {
		defer wg.Done()
		changes, changeErr = client.Changes(ctx, ref)
	}()
	wg.Wait()

	if mrErr != nil {
		return nil, nil, mrErr
	}
	if changeErr != nil {
		return nil, nil, changeErr
	}
	return mr, changes, nil
}

// submit posts the summary note and line comments called for by the request
// flags. Individual failures are recorded and skipped.
func (s *Service) submit(ctx context.Context, client Client, ref gitlab.Ref, mr *gitlab.MRInfo, changes *diff.Summary, result *Result, req Request) *Submission {
	sub := &Submission{}

	if req.SubmitComment {
		body := SummaryComment(mr, changes, result)
		if err := s.limiter.Wait(ctx); err != nil {
			sub.SummaryError = err.Error()
			sub.Failed++
		} else if id, err := client.PostNote(ctx, ref, body); err != nil {
			s.log.Errorf("posting summary note on %s!%d: %v", ref.Project, ref.IID, err)
			sub.SummaryError = err.Error()
			sub.Failed++
		} else {
			sub.SummaryNoteID = id
			sub.Posted++
		}
	}

	if req.LineComments {
		for _, f := range result.Findings {
			if f.Path == "" || f.Line <= 0 {
				continue
			}
			if !changes.CommentableLine(f.Path, f.Line) {
				s.log.Infof("skipping finding %s at %s:%d, line not in diff", f.ID, f.Path, f.Line)
				continue
			}

			outcome := CommentOutcome{Path: f.Path, Line: f.Line}
			pos := gitlab.NewLinePosition(mr.DiffRefs, f.Path, f.Line)

			if err := s.limiter.Wait(ctx); err != nil {
				outcome.Error = err.Error()
			} else if id, err := client.PostLineComment(ctx, ref, pos, LineCommentBody(f)); err != nil {
				s.log.Errorf("posting line comment at %s:%d: %v", f.Path, f.Line, err)
				outcome.Error = err.Error()
			} else {
				outcome.NoteID = id
			}

			if outcome.Error != "" {
				sub.Failed++
			} else {
				sub.Posted++
			}
			sub.LineComments = append(sub.LineComments, outcome)
		}
	}

	return sub
}
