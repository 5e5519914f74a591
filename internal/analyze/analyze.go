package analyze

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mreide/reviewd/internal/diff"
)

const maxLineLength = 160

// Issue is one static-check hit on an added line.
type Issue struct {
	Path       string
	Line       int
	Severity   string
	Category   string
	Title      string
	Message    string
	Suggestion string
}

// Rule matches added lines against a pattern, optionally scoped to file
// extensions.
type Rule struct {
	ID         string
	Pattern    *regexp.Regexp
	Severity   string
	Category   string
	Title      string
	Message    string
	Suggestion string
	Exts       []string
}

func (r Rule) appliesTo(path string) bool {
	if len(r.Exts) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, e := range r.Exts {
		if ext == e {
			return true
		}
	}
	return false
}

// builtinRules are the default checks. They favor precision over recall:
// a static finding posted as a line comment on someone's MR should rarely
// be wrong.
var builtinRules = []Rule{
	{
		ID:       "debug-print",
		Pattern:  regexp.MustCompile(`(?:\bfmt\.Print(?:ln|f)?\(|\bconsole\.log\(|\bSystem\.out\.print|(?:^|[^.\w])print\()`),
		Severity: "low", Category: "maintainability",
		Title:      "Debug print statement",
		Message:    "Looks like a leftover debug print.",
		Suggestion: "Remove it or route the message through the project logger.",
		Exts:       []string{".go", ".js", ".ts", ".java", ".py"},
	},
	{
		ID:       "swallowed-exception",
		Pattern:  regexp.MustCompile(`\.printStackTrace\(\)|catch\s*\([^)]*\)\s*\{\s*\}`),
		Severity: "medium", Category: "bug",
		Title:      "Swallowed exception",
		Message:    "The exception is printed or silently dropped instead of being handled.",
		Suggestion: "Log it with context or propagate it to the caller.",
		Exts:       []string{".java", ".kt"},
	},
	{
		ID:       "string-equality",
		Pattern:  regexp.MustCompile(`\w+\s*[!=]=\s*"[^"]*"\s*(?:[);&|]|$)`),
		Severity: "medium", Category: "bug",
		Title:      "Reference comparison of strings",
		Message:    "Using == or != on strings compares references, not content.",
		Suggestion: "Use .equals() or Objects.equals().",
		Exts:       []string{".java"},
	},
	{
		ID:       "sql-concat",
		Pattern:  regexp.MustCompile(`(?i)(?:select|insert|update|delete)\s[^"']*["']\s*\+|["']\s*\+\s*\w+\s*\+\s*["'][^"']*(?i:where|values)`),
		Severity: "high", Category: "security",
		Title:      "SQL built by string concatenation",
		Message:    "Concatenating values into SQL invites injection.",
		Suggestion: "Use parameterized queries or a prepared statement.",
	},
	{
		ID:       "hardcoded-credential",
		Pattern:  regexp.MustCompile(`(?i)(?:password|passwd|secret|api[_-]?key)\s*[:=]\s*["'][^"']{4,}["']`),
		Severity: "high", Category: "security",
		Title:      "Hardcoded credential",
		Message:    "A credential appears to be hardcoded in source.",
		Suggestion: "Move it to configuration or a secret store.",
	},
	{
		ID:       "eval-call",
		Pattern:  regexp.MustCompile(`\beval\s*\(`),
		Severity: "high", Category: "security",
		Title:      "Use of eval",
		Message:    "eval executes arbitrary code and is almost never needed.",
		Suggestion: "Replace with explicit parsing or dispatch.",
		Exts:       []string{".js", ".ts", ".py", ".php", ".rb"},
	},
	{
		ID:       "todo-marker",
		Pattern:  regexp.MustCompile(`(?://|#)\s*(?:TODO|FIXME|XXX)\b`),
		Severity: "low", Category: "maintainability",
		Title:      "Unresolved TODO marker",
		Message:    "The change introduces a TODO/FIXME marker.",
		Suggestion: "Resolve it or file an issue and reference it.",
	},
}

// Run scans the added lines of every file and returns the issues found,
// ordered by file and line. A nil rule slice selects the built-in set.
func Run(files []diff.File, rules []Rule) []Issue {
	if rules == nil {
		rules = builtinRules
	}

	var issues []Issue
	for _, f := range files {
		if f.DeletedFile {
			continue
		}
		path := f.NewPath
		if path == "" {
			path = f.OldPath
		}
		for _, hunk := range f.Hunks {
			for _, line := range hunk.Lines {
				if line.Kind != diff.LineAdded {
					continue
				}
				issues = append(issues, checkLine(path, line, rules)...)
			}
		}
	}
	return issues
}

func checkLine(path string, line diff.Line, rules []Rule) []Issue {
	var issues []Issue
	content := line.Content

	for _, r := range rules {
		if !r.appliesTo(path) {
			continue
		}
		if r.Pattern.MatchString(content) {
			issues = append(issues, Issue{
				Path:       path,
				Line:       line.NewNo,
				Severity:   r.Severity,
				Category:   r.Category,
				Title:      r.Title,
				Message:    r.Message,
				Suggestion: r.Suggestion,
			})
		}
	}

	if len(strings.TrimRight(content, "\r\n")) > maxLineLength {
		issues = append(issues, Issue{
			Path:       path,
			Line:       line.NewNo,
			Severity:   "low",
			Category:   "style",
			Title:      "Overlong line",
			Message:    "The line exceeds the readable length limit.",
			Suggestion: "Break it into shorter statements.",
		})
	}

	return issues
}
