package diff

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Change mirrors one entry of the GitLab merge request changes payload.
type Change struct {
	OldPath     string `json:"old_path"`
	NewPath     string `json:"new_path"`
	Diff        string `json:"diff"`
	NewFile     bool   `json:"new_file"`
	RenamedFile bool   `json:"renamed_file"`
	DeletedFile bool   `json:"deleted_file"`
}

// LineKind classifies a diff line.
type LineKind string

const (
	LineAdded   LineKind = "added"
	LineRemoved LineKind = "removed"
	LineContext LineKind = "context"
)

// Line is a single line inside a hunk with its old/new line numbers.
// OldNo is 0 for added lines, NewNo is 0 for removed lines.
type Line struct {
	Kind    LineKind `json:"kind"`
	OldNo   int      `json:"oldNo,omitempty"`
	NewNo   int      `json:"newNo,omitempty"`
	Content string   `json:"content"`
}

// Hunk is one @@-delimited section of a file diff.
type Hunk struct {
	OldStart int    `json:"oldStart"`
	OldLines int    `json:"oldLines"`
	NewStart int    `json:"newStart"`
	NewLines int    `json:"newLines"`
	Header   string `json:"header,omitempty"`
	Lines    []Line `json:"lines"`
}

// File is the parsed diff for a single changed file.
type File struct {
	OldPath     string `json:"oldPath"`
	NewPath     string `json:"newPath"`
	NewFile     bool   `json:"newFile,omitempty"`
	RenamedFile bool   `json:"renamedFile,omitempty"`
	DeletedFile bool   `json:"deletedFile,omitempty"`
	Additions   int    `json:"additions"`
	Deletions   int    `json:"deletions"`
	Hunks       []Hunk `json:"hunks"`

	raw string
}

// Summary aggregates the parsed diff of a merge request. It is read-only
// once built.
type Summary struct {
	TotalFiles     int            `json:"totalFiles"`
	TotalAdditions int            `json:"totalAdditions"`
	TotalDeletions int            `json:"totalDeletions"`
	FileTypes      map[string]int `json:"fileTypes"`
	Files          []File         `json:"files"`
}

// TooLargeError reports a diff exceeding the configured size ceiling.
type TooLargeError struct {
	Size  int
	Limit int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("diff too large: %d bytes exceeds limit of %d", e.Size, e.Limit)
}

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@ ?(.*)$`)

// Build parses GitLab change entries into a Summary. maxBytes bounds the
// total diff text size; 0 disables the ceiling.
func Build(changes []Change, maxBytes int) (*Summary, error) {
	total := 0
	for _, c := range changes {
		total += len(c.Diff)
	}
	if maxBytes > 0 && total > maxBytes {
		return nil, &TooLargeError{Size: total, Limit: maxBytes}
	}

	s := &Summary{
		FileTypes: make(map[string]int),
	}
	for _, c := range changes {
		path := c.NewPath
		if path == "" {
			path = c.OldPath
		}
		if path == "" {
			continue
		}

		f := File{
			OldPath:     c.OldPath,
			NewPath:     c.NewPath,
			NewFile:     c.NewFile,
			RenamedFile: c.RenamedFile,
			DeletedFile: c.DeletedFile,
			Hunks:       parseHunks(c.Diff),
			raw:         c.Diff,
		}
		for _, h := range f.Hunks {
			for _, l := range h.Lines {
				switch l.Kind {
				case LineAdded:
					f.Additions++
				case LineRemoved:
					f.Deletions++
				}
			}
		}

		s.Files = append(s.Files, f)
		s.TotalFiles++
		s.TotalAdditions += f.Additions
		s.TotalDeletions += f.Deletions
		s.FileTypes[fileType(path)]++
	}
	return s, nil
}

// parseHunks walks a GitLab file diff (which begins at the first @@ header)
// and attributes old/new line numbers to every line.
func parseHunks(text string) []Hunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var hunks []Hunk
	var cur *Hunk
	oldNo, newNo := 0, 0

	for _, line := range strings.Split(text, "\n") {
		if m := hunkHeaderRe.FindStringSubmatch(line); m != nil {
			if cur != nil {
				hunks = append(hunks, *cur)
			}
			oldStart := atoiDefault(m[1], 1)
			oldLines := atoiDefault(m[2], 1)
			newStart := atoiDefault(m[3], 1)
			newLines := atoiDefault(m[4], 1)
			cur = &Hunk{
				OldStart: oldStart,
				OldLines: oldLines,
				NewStart: newStart,
				NewLines: newLines,
				Header:   strings.TrimSpace(m[5]),
			}
			oldNo = oldStart
			newNo = newStart
			continue
		}
		if cur == nil {
			continue // preamble before the first hunk
		}

		switch {
		case strings.HasPrefix(line, "+"):
			cur.Lines = append(cur.Lines, Line{Kind: LineAdded, NewNo: newNo, Content: line[1:]})
			newNo++
		case strings.HasPrefix(line, "-"):
			cur.Lines = append(cur.Lines, Line{Kind: LineRemoved, OldNo: oldNo, Content: line[1:]})
			oldNo++
		case strings.HasPrefix(line, " "):
			cur.Lines = append(cur.Lines, Line{Kind: LineContext, OldNo: oldNo, NewNo: newNo, Content: line[1:]})
			oldNo++
			newNo++
		case line == "":
			// trailing newline artifact, skip
		case strings.HasPrefix(line, `\`):
			// "\ No newline at end of file"
		}
	}
	if cur != nil {
		hunks = append(hunks, *cur)
	}
	return hunks
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func fileType(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "none"
	}
	return strings.ToLower(ext)
}

// Unified renders the summary back into a single unified diff blob suitable
// for a generator prompt.
func (s *Summary) Unified() string {
	var b strings.Builder
	for _, f := range s.Files {
		b.WriteString(f.Header())
		b.WriteString(f.raw)
		if !strings.HasSuffix(f.raw, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Header renders the two-line unified diff header for the file. Created and
// deleted files diff against /dev/null with no a/ or b/ prefix, following
// git convention.
func (f *File) Header() string {
	oldSide := "--- /dev/null\n"
	if !f.NewFile && f.OldPath != "" {
		oldSide = fmt.Sprintf("--- a/%s\n", f.OldPath)
	}
	newSide := "+++ /dev/null\n"
	if !f.DeletedFile && f.NewPath != "" {
		newSide = fmt.Sprintf("+++ b/%s\n", f.NewPath)
	}
	return oldSide + newSide
}

// UnifiedFor renders a single file's diff. Returns "" for unknown paths.
func (s *Summary) UnifiedFor(path string) string {
	for _, f := range s.Files {
		if f.NewPath == path || f.OldPath == path {
			return f.raw
		}
	}
	return ""
}

// Paths lists the changed file paths (new path, falling back to old).
func (s *Summary) Paths() []string {
	paths := make([]string, 0, len(s.Files))
	for _, f := range s.Files {
		if f.NewPath != "" {
			paths = append(paths, f.NewPath)
		} else {
			paths = append(paths, f.OldPath)
		}
	}
	return paths
}

// CommentableLine reports whether the given new-side line number for path is
// part of the diff context. GitLab rejects positioned comments on lines
// outside the diff.
func (s *Summary) CommentableLine(path string, newLine int) bool {
	for _, f := range s.Files {
		if f.NewPath != path {
			continue
		}
		for _, h := range f.Hunks {
			for _, l := range h.Lines {
				if l.NewNo == newLine && l.Kind != LineRemoved {
					return true
				}
			}
		}
	}
	return false
}

// AddedLines returns the added lines for every file keyed by new path.
func (s *Summary) AddedLines() map[string][]Line {
	out := make(map[string][]Line)
	for _, f := range s.Files {
		if f.DeletedFile || f.NewPath == "" {
			continue
		}
		for _, h := range f.Hunks {
			for _, l := range h.Lines {
				if l.Kind == LineAdded {
					out[f.NewPath] = append(out[f.NewPath], l)
				}
			}
		}
	}
	return out
}
