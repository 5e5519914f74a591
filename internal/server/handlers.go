package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mreide/reviewd/internal/diff"
	"github.com/mreide/reviewd/internal/gitlab"
	"github.com/mreide/reviewd/internal/infra"
	"github.com/mreide/reviewd/internal/providers"
	"github.com/mreide/reviewd/internal/review"
)

// Reviewer runs a code review for a request. *review.Service satisfies it.
type Reviewer interface {
	Review(ctx context.Context, req review.Request) (*review.Response, error)
}

type Handlers struct {
	Svc Reviewer
	Log infra.Logger
}

func NewHandlers(svc Reviewer, log infra.Logger) *Handlers {
	return &Handlers{Svc: svc, Log: log}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func errorResp(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"status":  "error",
		"message": msg,
		"error":   map[string]string{"code": code, "message": msg},
	})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handlers) CodeReview(w http.ResponseWriter, r *http.Request) {
	var req review.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResp(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json")
		return
	}
	if strings.TrimSpace(req.MRURL) == "" {
		errorResp(w, http.StatusBadRequest, "BAD_REQUEST", "mr_url is required")
		return
	}

	resp, err := h.Svc.Review(r.Context(), req)
	if err != nil {
		status, code := statusFor(err)
		h.Log.Errorf("review of %s failed: %v", req.MRURL, err)
		errorResp(w, status, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// statusFor maps review pipeline errors to HTTP status codes.
func statusFor(err error) (int, string) {
	var (
		invalidErr   *gitlab.InvalidRequestError
		authErr      *gitlab.AuthError
		notFoundErr  *gitlab.NotFoundError
		rateErr      *gitlab.RateLimitError
		apiErr       *gitlab.APIError
		transportErr *gitlab.TransportError
		tooLargeErr  *diff.TooLargeError
		genErr       *review.GenerationError
	)
	switch {
	case errors.As(err, &invalidErr):
		return http.StatusBadRequest, "BAD_REQUEST"
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.As(err, &tooLargeErr):
		return http.StatusRequestEntityTooLarge, "DIFF_TOO_LARGE"
	case errors.As(err, &rateErr), providers.IsRateLimitError(err):
		return http.StatusBadGateway, "UPSTREAM_RATE_LIMITED"
	case errors.As(err, &apiErr) && apiErr.Status >= 500, errors.As(err, &transportErr):
		// GitLab connectivity failure after retry exhaustion.
		return http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"
	case errors.As(err, &genErr):
		return http.StatusInternalServerError, "REVIEW_FAILED"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}
