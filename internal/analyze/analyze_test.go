package analyze

import (
	"strings"
	"testing"

	"github.com/mreide/reviewd/internal/diff"
)

func fileWithAddedLines(path string, lines ...string) diff.File {
	hunk := diff.Hunk{NewStart: 10}
	for i, content := range lines {
		hunk.Lines = append(hunk.Lines, diff.Line{
			Kind:    diff.LineAdded,
			NewNo:   10 + i,
			Content: content,
		})
	}
	return diff.File{NewPath: path, Additions: len(lines), Hunks: []diff.Hunk{hunk}}
}

func TestRunBuiltinRules(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		line     string
		wantRule string
	}{
		{"go debug print", "main.go", `fmt.Println("here")`, "Debug print statement"},
		{"js console log", "app.js", `console.log(user)`, "Debug print statement"},
		{"java stack trace", "App.java", `e.printStackTrace();`, "Swallowed exception"},
		{"java string equality", "App.java", `if (name == "admin") {`, "Reference comparison of strings"},
		{"sql concat", "repo.go", `query := "SELECT * FROM users WHERE id = " + id`, "SQL built by string concatenation"},
		{"hardcoded password", "settings.py", `password = "hunter2secret"`, "Hardcoded credential"},
		{"eval", "handler.js", `eval(payload)`, "Use of eval"},
		{"todo marker", "main.go", `// TODO: handle timeout`, "Unresolved TODO marker"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := Run([]diff.File{fileWithAddedLines(tt.path, tt.line)}, nil)
			found := false
			for _, iss := range issues {
				if iss.Title == tt.wantRule {
					found = true
					if iss.Path != tt.path {
						t.Errorf("Path = %q, want %q", iss.Path, tt.path)
					}
					if iss.Line != 10 {
						t.Errorf("Line = %d, want 10", iss.Line)
					}
				}
			}
			if !found {
				t.Errorf("rule %q did not fire on %q (got %d issues)", tt.wantRule, tt.line, len(issues))
			}
		})
	}
}

func TestRunCleanCode(t *testing.T) {
	file := fileWithAddedLines("clean.go",
		`if err != nil {`,
		`	return fmt.Errorf("fetching user: %w", err)`,
		`}`,
	)
	if issues := Run([]diff.File{file}, nil); len(issues) != 0 {
		t.Errorf("clean code produced %d issues: %+v", len(issues), issues)
	}
}

func TestRunSkipsContextAndRemovedLines(t *testing.T) {
	file := diff.File{
		NewPath: "old.go",
		Hunks: []diff.Hunk{{
			Lines: []diff.Line{
				{Kind: diff.LineRemoved, OldNo: 5, Content: `fmt.Println("gone")`},
				{Kind: diff.LineContext, OldNo: 6, NewNo: 5, Content: `fmt.Println("existing")`},
			},
		}},
	}
	if issues := Run([]diff.File{file}, nil); len(issues) != 0 {
		t.Errorf("non-added lines produced issues: %+v", issues)
	}
}

func TestRunSkipsDeletedFiles(t *testing.T) {
	file := fileWithAddedLines("gone.go", `fmt.Println("x")`)
	file.DeletedFile = true
	if issues := Run([]diff.File{file}, nil); len(issues) != 0 {
		t.Errorf("deleted file produced issues: %+v", issues)
	}
}

func TestRunExtensionScoping(t *testing.T) {
	// The string-equality rule is Java-only and must not fire on Go code.
	file := fileWithAddedLines("main.go", `if name == "admin" {`)
	for _, iss := range Run([]diff.File{file}, nil) {
		if iss.Title == "Reference comparison of strings" {
			t.Error("Java rule fired on a .go file")
		}
	}
}

func TestRunOverlongLine(t *testing.T) {
	file := fileWithAddedLines("long.go", "x := \""+strings.Repeat("a", 200)+"\"")
	issues := Run([]diff.File{file}, nil)
	found := false
	for _, iss := range issues {
		if iss.Title == "Overlong line" {
			found = true
		}
	}
	if !found {
		t.Error("overlong line not flagged")
	}
}
