package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/mreide/reviewd/internal/review"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, resp *review.Response) error {
	ew := &errWriter{w: w}

	if resp.MR != nil {
		ew.printf("Review of %s\n", resp.MR.WebURL)
		ew.printf("  %s (%s → %s, by @%s)\n",
			resp.MR.Title, resp.MR.SourceBranch, resp.MR.TargetBranch, resp.MR.Author.Username)
	}
	if resp.Changes != nil {
		ew.printf("  %d files changed, +%d -%d\n",
			resp.Changes.TotalFiles, resp.Changes.TotalAdditions, resp.Changes.TotalDeletions)
	}
	ew.println(strings.Repeat("─", 60))

	if resp.Review == nil {
		ew.printf("Status: %s: %s\n", resp.Status, resp.Message)
		return ew.err
	}

	counts := resp.Review.Summary.Counts
	total := counts.High + counts.Medium + counts.Low
	ew.printf("Findings: %d total", total)
	if total > 0 {
		ew.printf(" (%d high, %d medium, %d low)", counts.High, counts.Medium, counts.Low)
	}
	if resp.Review.Cached {
		ew.printf(" [cached]")
	}
	ew.println("")
	ew.println(strings.Repeat("─", 60))

	if total == 0 {
		ew.println("\nNo issues found. Looks good!")
	}

	for _, sev := range []review.Severity{review.SeverityHigh, review.SeverityMedium, review.SeverityLow} {
		printed := false
		for _, f := range resp.Review.Findings {
			if f.Severity != sev {
				continue
			}
			if !printed {
				ew.printf("\n%s %s\n", severityIcon(sev), strings.ToUpper(string(sev)))
				ew.println(strings.Repeat("─", 40))
				printed = true
			}
			ew.printf("\n  %s:%d  %s\n", f.Path, f.Line, f.Title)
			ew.printf("  Category: %s | Confidence: %.0f%%\n", f.Category, f.Confidence*100)
			for _, line := range wrapText(f.Message, 70) {
				ew.printf("    %s\n", line)
			}
			if f.Suggestion != "" {
				ew.println("  Suggestion:")
				for _, line := range wrapText(f.Suggestion, 70) {
					ew.printf("    %s\n", line)
				}
			}
		}
	}

	if resp.Submission != nil {
		ew.printf("\n%s\n", strings.Repeat("─", 60))
		ew.printf("Comments posted: %d, failed: %d\n", resp.Submission.Posted, resp.Submission.Failed)
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.printf("Completed in %dms\n", resp.Review.DurationMs)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func severityIcon(s review.Severity) string {
	switch s {
	case review.SeverityHigh:
		return "[!!]"
	case review.SeverityMedium:
		return "[!]"
	case review.SeverityLow:
		return "[-]"
	default:
		return "[?]"
	}
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
