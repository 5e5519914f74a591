package review

import (
	"strings"
	"testing"
)

func TestSummaryComment(t *testing.T) {
	result := &Result{
		Provider: "openai",
		Model:    "gpt-4o-mini",
		Findings: []Finding{
			{
				Severity: SeverityHigh, Category: CategorySecurity,
				Title: "SQL injection", Message: "Query built from input.",
				Suggestion: "Use parameters.", Path: "db.go", Line: 14,
			},
		},
	}
	result.Summary = ComputeSummary(result.Findings)

	body := SummaryComment(testMR(), testSummary(t), result)
	for _, want := range []string{
		"# Code Review Report",
		"Add login handler",
		"@dev",
		"feature → main",
		"Files changed: 1",
		"SQL injection",
		"Use parameters.",
		"High: 1",
		"Generated by reviewd (openai/gpt-4o-mini)",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("summary comment missing %q", want)
		}
	}
	if !strings.Contains(body, "### db.go") {
		t.Error("findings not grouped by file")
	}
}

func TestSummaryCommentNoFindings(t *testing.T) {
	result := &Result{Provider: StaticProvider, Findings: []Finding{}}
	body := SummaryComment(testMR(), testSummary(t), result)
	if !strings.Contains(body, "No issues found") {
		t.Error("zero-finding comment should say no issues were found")
	}
	if strings.Contains(body, "(static") {
		t.Error("static provider should not appear in the footer")
	}
}

func TestLineCommentBody(t *testing.T) {
	f := Finding{
		Severity: SeverityMedium, Category: CategoryBug,
		Title: "Nil map write", Message: "m is never initialized.",
		Suggestion: "make(map[string]int) first.",
		Path:       "store.go", Line: 7,
	}
	body := LineCommentBody(f)
	for _, want := range []string{"Nil map write", "medium/bug", "never initialized", "Suggestion:"} {
		if !strings.Contains(body, want) {
			t.Errorf("line comment missing %q:\n%s", want, body)
		}
	}
}
