package review

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mreide/reviewd/internal/diff"
	"github.com/mreide/reviewd/internal/gitlab"
)

var severityIcons = map[Severity]string{
	SeverityHigh:   "🔴",
	SeverityMedium: "🟡",
	SeverityLow:    "🔵",
}

func severityIcon(s Severity) string {
	if icon, ok := severityIcons[s]; ok {
		return icon
	}
	return "⚪"
}

// SummaryComment renders the markdown report posted as the merge request
// overview note.
func SummaryComment(mr *gitlab.MRInfo, summary *diff.Summary, result *Result) string {
	var b strings.Builder

	b.WriteString("# Code Review Report 📝\n\n")

	b.WriteString("## Merge Request\n")
	fmt.Fprintf(&b, "- Title: %s\n", mr.Title)
	fmt.Fprintf(&b, "- Author: %s (@%s)\n", mr.Author.Name, mr.Author.Username)
	fmt.Fprintf(&b, "- Branch: %s → %s\n", mr.SourceBranch, mr.TargetBranch)
	fmt.Fprintf(&b, "- State: %s\n\n", mr.State)

	b.WriteString("## Change Summary 📊\n")
	fmt.Fprintf(&b, "- Files changed: %d\n", summary.TotalFiles)
	fmt.Fprintf(&b, "- Additions: %d\n", summary.TotalAdditions)
	fmt.Fprintf(&b, "- Deletions: %d\n", summary.TotalDeletions)
	if len(summary.FileTypes) > 0 {
		b.WriteString("\n### File Types\n")
		for _, ft := range sortedFileTypes(summary.FileTypes) {
			fmt.Fprintf(&b, "- %s: %d\n", ft, summary.FileTypes[ft])
		}
	}
	b.WriteString("\n")

	if len(result.Findings) == 0 {
		b.WriteString("## Findings ✅\n")
		b.WriteString("No issues found in this change.\n")
	} else {
		fmt.Fprintf(&b, "## Findings 🔍 (%d)\n", len(result.Findings))
		fmt.Fprintf(&b, "- High: %d, Medium: %d, Low: %d\n",
			result.Summary.Counts.High, result.Summary.Counts.Medium, result.Summary.Counts.Low)

		for _, path := range findingPaths(result.Findings) {
			if path != "" {
				fmt.Fprintf(&b, "\n### %s\n", path)
			} else {
				b.WriteString("\n### General\n")
			}
			for _, f := range result.Findings {
				if f.Path != path {
					continue
				}
				fmt.Fprintf(&b, "\n%s **%s** (%s", severityIcon(f.Severity), f.Title, f.Category)
				if f.Line > 0 {
					fmt.Fprintf(&b, ", line %d", f.Line)
				}
				b.WriteString(")\n")
				fmt.Fprintf(&b, "%s\n", f.Message)
				if f.Suggestion != "" {
					fmt.Fprintf(&b, "\nSuggestion: %s\n", f.Suggestion)
				}
			}
		}
	}

	b.WriteString("\n---\n")
	footer := "*Generated by reviewd"
	if result.Provider != "" && result.Provider != StaticProvider {
		footer += " (" + result.Provider
		if result.Model != "" {
			footer += "/" + result.Model
		}
		footer += ")"
	}
	footer += "*\n"
	b.WriteString(footer)

	return b.String()
}

// LineCommentBody renders the markdown body for a positioned diff comment.
func LineCommentBody(f Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s **%s** `%s/%s`\n\n", severityIcon(f.Severity), f.Title, f.Severity, f.Category)
	b.WriteString(f.Message)
	b.WriteString("\n")
	if f.Suggestion != "" {
		fmt.Fprintf(&b, "\nSuggestion: %s\n", f.Suggestion)
	}
	return b.String()
}

func sortedFileTypes(types map[string]int) []string {
	out := make([]string, 0, len(types))
	for ft := range types {
		out = append(out, ft)
	}
	sort.Strings(out)
	return out
}

// findingPaths returns the distinct finding paths in first-seen order.
// Findings are pre-sorted by severity then path, so grouping stays stable.
func findingPaths(findings []Finding) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, f := range findings {
		if !seen[f.Path] {
			seen[f.Path] = true
			paths = append(paths, f.Path)
		}
	}
	return paths
}
