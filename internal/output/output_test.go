package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mreide/reviewd/internal/gitlab"
	"github.com/mreide/reviewd/internal/review"
)

func sampleResponse() *review.Response {
	result := &review.Result{
		Provider: "openai",
		Model:    "gpt-4o-mini",
		Findings: []review.Finding{
			{
				ID: "abc", Severity: review.SeverityHigh, Category: review.CategorySecurity,
				Title: "SQL injection", Message: "Query is built from user input.",
				Suggestion: "Use parameters.", Confidence: 0.9, Path: "db.go", Line: 14,
			},
			{
				ID: "def", Severity: review.SeverityLow, Category: review.CategoryStyle,
				Title: "Long line", Message: "Line exceeds limit.", Confidence: 1.0,
				Path: "main.go", Line: 3,
			},
		},
		DurationMs: 1200,
	}
	result.Summary = review.ComputeSummary(result.Findings)

	return &review.Response{
		Status:  "success",
		Message: "Code review completed successfully",
		MR: &gitlab.MRInfo{
			Title: "Add db layer", WebURL: "https://gitlab.com/g/p/-/merge_requests/1",
			SourceBranch: "db", TargetBranch: "main",
			Author: gitlab.User{Username: "dev"},
		},
		Review: result,
	}
}

func TestGetWriter(t *testing.T) {
	if _, err := GetWriter("text"); err != nil {
		t.Errorf("text writer: %v", err)
	}
	if _, err := GetWriter("json"); err != nil {
		t.Errorf("json writer: %v", err)
	}
	if _, err := GetWriter("xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONWriter{}).Write(&buf, sampleResponse()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	var decoded review.Response
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Status != "success" || len(decoded.Review.Findings) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestTextWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextWriter{}).Write(&buf, sampleResponse()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Add db layer",
		"Findings: 2 total",
		"HIGH",
		"db.go:14",
		"SQL injection",
		"Suggestion:",
		"LOW",
		"main.go:3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q", want)
		}
	}
}

func TestTextWriterNoFindings(t *testing.T) {
	resp := sampleResponse()
	resp.Review.Findings = nil
	resp.Review.Summary = review.ComputeSummary(nil)

	var buf bytes.Buffer
	if err := (&TextWriter{}).Write(&buf, resp); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if !strings.Contains(buf.String(), "No issues found") {
		t.Error("zero findings should print the all-clear line")
	}
}
