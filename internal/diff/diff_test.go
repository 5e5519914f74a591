package diff

import (
	"errors"
	"strings"
	"testing"
)

const sampleDiff = `@@ -1,4 +1,5 @@
 package main
-func old() {}
+func renamed() {}
+var added = 1

 func keep() {}
@@ -20,3 +21,4 @@ func tail() {
 	a := 1
 	b := 2
+	c := 3
 }
`

func TestBuildSingleFile(t *testing.T) {
	changes := []Change{
		{OldPath: "main.go", NewPath: "main.go", Diff: sampleDiff},
	}

	s, err := Build(changes, 0)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	if s.TotalFiles != 1 {
		t.Errorf("TotalFiles = %d, want 1", s.TotalFiles)
	}
	if s.TotalAdditions != 3 {
		t.Errorf("TotalAdditions = %d, want 3", s.TotalAdditions)
	}
	if s.TotalDeletions != 1 {
		t.Errorf("TotalDeletions = %d, want 1", s.TotalDeletions)
	}
	if s.FileTypes["go"] != 1 {
		t.Errorf("FileTypes[go] = %d, want 1", s.FileTypes["go"])
	}
	if len(s.Files[0].Hunks) != 2 {
		t.Fatalf("hunks = %d, want 2", len(s.Files[0].Hunks))
	}
}

func TestLineNumberAttribution(t *testing.T) {
	changes := []Change{{NewPath: "main.go", OldPath: "main.go", Diff: sampleDiff}}
	s, err := Build(changes, 0)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	h := s.Files[0].Hunks[0]
	var added []Line
	for _, l := range h.Lines {
		if l.Kind == LineAdded {
			added = append(added, l)
		}
	}
	if len(added) != 2 {
		t.Fatalf("added lines in first hunk = %d, want 2", len(added))
	}
	// "-func old" consumes old line 2, so "+func renamed" is new line 2.
	if added[0].NewNo != 2 || added[1].NewNo != 3 {
		t.Errorf("added NewNo = %d,%d, want 2,3", added[0].NewNo, added[1].NewNo)
	}

	h2 := s.Files[0].Hunks[1]
	last := h2.Lines[len(h2.Lines)-2] // the added "c := 3" line before closing brace
	if last.Kind != LineAdded || last.NewNo != 23 {
		t.Errorf("second hunk added line = %+v, want added at new line 23", last)
	}
}

func TestCommentableLine(t *testing.T) {
	changes := []Change{{NewPath: "main.go", OldPath: "main.go", Diff: sampleDiff}}
	s, _ := Build(changes, 0)

	tests := []struct {
		path string
		line int
		want bool
	}{
		{"main.go", 2, true},   // added line
		{"main.go", 1, true},   // context line
		{"main.go", 24, true},  // added line in second hunk
		{"main.go", 100, false},
		{"other.go", 2, false},
	}
	for _, tt := range tests {
		if got := s.CommentableLine(tt.path, tt.line); got != tt.want {
			t.Errorf("CommentableLine(%q, %d) = %v, want %v", tt.path, tt.line, got, tt.want)
		}
	}
}

func TestBuildTooLarge(t *testing.T) {
	changes := []Change{{NewPath: "big.txt", Diff: strings.Repeat("x", 100)}}

	_, err := Build(changes, 50)
	if err == nil {
		t.Fatal("expected error for oversized diff")
	}
	var tle *TooLargeError
	if !errors.As(err, &tle) {
		t.Fatalf("error type = %T, want *TooLargeError", err)
	}
	if tle.Size != 100 || tle.Limit != 50 {
		t.Errorf("TooLargeError = %+v", tle)
	}
}

func TestUnified(t *testing.T) {
	changes := []Change{
		{OldPath: "a.go", NewPath: "a.go", Diff: "@@ -1 +1 @@\n-x\n+y\n"},
		{NewPath: "b.go", NewFile: true, Diff: "@@ -0,0 +1 @@\n+z\n"},
	}
	s, _ := Build(changes, 0)

	u := s.Unified()
	if !strings.Contains(u, "--- a/a.go") || !strings.Contains(u, "+++ b/a.go") {
		t.Errorf("missing file headers:\n%s", u)
	}
	if !strings.Contains(u, "--- /dev/null\n+++ b/b.go") {
		t.Errorf("new file should diff against /dev/null:\n%s", u)
	}
	if !strings.Contains(u, "+z") {
		t.Errorf("missing hunk content:\n%s", u)
	}
}

func TestHeaderDeletedFile(t *testing.T) {
	f := File{OldPath: "gone.go", NewPath: "gone.go", DeletedFile: true}
	want := "--- a/gone.go\n+++ /dev/null\n"
	if got := f.Header(); got != want {
		t.Errorf("Header() = %q, want %q", got, want)
	}
}

func TestAddedLines(t *testing.T) {
	changes := []Change{
		{OldPath: "main.go", NewPath: "main.go", Diff: sampleDiff},
		{OldPath: "gone.go", NewPath: "gone.go", DeletedFile: true, Diff: "@@ -1 +0,0 @@\n-bye\n"},
	}
	s, _ := Build(changes, 0)

	added := s.AddedLines()
	if len(added["main.go"]) != 3 {
		t.Errorf("added[main.go] = %d lines, want 3", len(added["main.go"]))
	}
	if _, ok := added["gone.go"]; ok {
		t.Error("deleted file should not contribute added lines")
	}
}

func TestBuildSkipsPathlessChanges(t *testing.T) {
	s, err := Build([]Change{{Diff: "@@ -1 +1 @@\n+x\n"}}, 0)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if s.TotalFiles != 0 {
		t.Errorf("TotalFiles = %d, want 0", s.TotalFiles)
	}
}

func TestPaths(t *testing.T) {
	changes := []Change{
		{OldPath: "old.go", NewPath: "new.go", RenamedFile: true, Diff: "@@ -1 +1 @@\n-x\n+y\n"},
		{OldPath: "gone.go", DeletedFile: true, Diff: "@@ -1 +0,0 @@\n-x\n"},
	}
	s, _ := Build(changes, 0)

	paths := s.Paths()
	if len(paths) != 2 || paths[0] != "new.go" || paths[1] != "gone.go" {
		t.Errorf("Paths() = %v", paths)
	}
}
