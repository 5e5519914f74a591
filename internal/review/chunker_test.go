package review

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func sectionFor(path string, lines int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n@@ -1,%d +1,%d @@\n", path, path, lines, lines)
	for i := 0; i < lines; i++ {
		fmt.Fprintf(&b, "+line %d\n", i)
	}
	return b.String()
}

func TestSplitIntoChunks(t *testing.T) {
	diff := sectionFor("a.go", 5) + sectionFor("b.go", 5) + sectionFor("c.go", 5)

	chunks := SplitIntoChunks(diff, len(diff)/2)
	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want at least 2", len(chunks))
	}

	var files []string
	for _, c := range chunks {
		files = append(files, c.Files...)
	}
	want := []string{"a.go", "b.go", "c.go"}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestSplitIntoChunksSingleChunk(t *testing.T) {
	diff := sectionFor("a.go", 3)
	chunks := SplitIntoChunks(diff, 1<<20)
	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
	if chunks[0].Diff != diff {
		t.Error("single chunk should carry the whole diff")
	}
}

func TestSplitIntoChunksRoundTrip(t *testing.T) {
	diff := sectionFor("a.go", 2) + sectionFor("b.go", 2)
	chunks := SplitIntoChunks(diff, 1<<20)
	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
	if chunks[0].Diff != diff {
		t.Errorf("rebuilt diff diverges from input:\n got %q\nwant %q", chunks[0].Diff, diff)
	}
}

func TestSplitIntoChunksDevNullSections(t *testing.T) {
	added := "--- /dev/null\n+++ b/new.go\n@@ -0,0 +1 @@\n+x\n"
	deleted := "--- a/gone.go\n+++ /dev/null\n@@ -1 +0,0 @@\n-y\n"
	diff := sectionFor("a.go", 1) + added + deleted

	chunks := SplitIntoChunks(diff, 1)
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3 (one per file section)", len(chunks))
	}
	if chunks[1].Diff != added {
		t.Errorf("added-file section = %q, want %q", chunks[1].Diff, added)
	}
	if len(chunks[1].Files) != 1 || chunks[1].Files[0] != "new.go" {
		t.Errorf("added-file paths = %v, want [new.go]", chunks[1].Files)
	}
	if len(chunks[2].Files) != 1 || chunks[2].Files[0] != "gone.go" {
		t.Errorf("deleted-file paths = %v, want [gone.go]", chunks[2].Files)
	}
}

func TestSplitIntoChunksEmpty(t *testing.T) {
	if chunks := SplitIntoChunks("  \n ", 100); chunks != nil {
		t.Errorf("chunks = %v, want nil", chunks)
	}
}

func TestNeedsChunking(t *testing.T) {
	if NeedsChunking("small") {
		t.Error("small diff should not need chunking")
	}
	if !NeedsChunking(strings.Repeat("x", ChunkThreshold+1)) {
		t.Error("large diff should need chunking")
	}
}

func TestRunChunkedMergesAndSorts(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		`[{"severity":"low","category":"style","title":"A","message":"m","path":"a.go","line":1}]`,
		`[{"severity":"high","category":"bug","title":"B","message":"m","path":"b.go","line":2}]`,
	}}
	e := testEngine(t, gen, testConfig())

	chunks := []Chunk{
		{Index: 0, Diff: sectionFor("a.go", 2), Files: []string{"a.go"}},
		{Index: 1, Diff: sectionFor("b.go", 2), Files: []string{"b.go"}},
	}
	findings, _, err := e.runChunked(context.Background(), chunks, MRContext{})
	if err != nil {
		t.Fatalf("runChunked error: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("findings = %d, want 2", len(findings))
	}
	if findings[0].Severity != SeverityHigh {
		t.Errorf("findings not sorted by severity: %+v", findings)
	}
}

func TestDeduplicateFindings(t *testing.T) {
	a := Finding{Title: "dup", Path: "a.go", Line: 1}
	a.ID = generateFindingID(a)
	b := Finding{Title: "other", Path: "a.go", Line: 2}
	b.ID = generateFindingID(b)

	out := DeduplicateFindings([]Finding{a, b, a})
	if len(out) != 2 {
		t.Errorf("deduplicated = %d, want 2", len(out))
	}
}

func TestSortFindings(t *testing.T) {
	findings := []Finding{
		{Severity: SeverityLow, Path: "b.go", Line: 9},
		{Severity: SeverityHigh, Path: "z.go", Line: 1},
		{Severity: SeverityLow, Path: "a.go", Line: 5},
		{Severity: SeverityLow, Path: "a.go", Line: 2},
	}
	SortFindings(findings)

	if findings[0].Severity != SeverityHigh {
		t.Errorf("first finding severity = %s", findings[0].Severity)
	}
	if findings[1].Path != "a.go" || findings[1].Line != 2 {
		t.Errorf("second finding = %+v", findings[1])
	}
	if findings[2].Path != "a.go" || findings[2].Line != 5 {
		t.Errorf("third finding = %+v", findings[2])
	}
}
