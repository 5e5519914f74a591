package review

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

const (
	// maxConcurrency limits parallel generator calls.
	maxConcurrency = 4
	// ChunkThreshold is the byte size above which we switch to chunked review.
	ChunkThreshold = 100000 // 100KB
)

// Chunk represents a portion of a diff to be reviewed independently.
type Chunk struct {
	Index int
	Diff  string
	Files []string
}

// NeedsChunking returns true if the diff is large enough to benefit from
// chunked review.
func NeedsChunking(diff string) bool {
	return len(diff) > ChunkThreshold
}

// SplitIntoChunks splits a unified diff into chunks of whole file sections,
// staying under maxBytes per chunk where possible.
func SplitIntoChunks(diff string, maxBytes int) []Chunk {
	sections := splitSections(diff)
	if len(sections) == 0 {
		return nil
	}

	if maxBytes <= 0 {
		maxBytes = ChunkThreshold
	}

	var chunks []Chunk
	var currentDiff strings.Builder
	var currentFiles []string
	idx := 0

	for _, sec := range sections {
		path := pathFromSection(sec)

		if currentDiff.Len() > 0 && currentDiff.Len()+len(sec) > maxBytes {
			chunks = append(chunks, Chunk{
				Index: idx,
				Diff:  currentDiff.String(),
				Files: currentFiles,
			})
			idx++
			currentDiff.Reset()
			currentFiles = nil
		}

		currentDiff.WriteString(sec)
		if path != "" {
			currentFiles = append(currentFiles, path)
		}
	}

	if currentDiff.Len() > 0 {
		chunks = append(chunks, Chunk{
			Index: idx,
			Diff:  currentDiff.String(),
			Files: currentFiles,
		})
	}

	return chunks
}

// runChunked reviews diff chunks in parallel and merges findings in stable
// order.
func (e *Engine) runChunked(ctx context.Context, chunks []Chunk, mrCtx MRContext) ([]Finding, int, error) {
	type result struct {
		findings []Finding
		tokens   int
		err      error
	}

	results := make([]result, len(chunks))
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrency)

	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk Chunk) {
			defer wg.Done()
			sem <- struct{}{}        // acquire
			defer func() { <-sem }() // release

			userPrompt := BuildUserPrompt(chunk.Diff, chunk.Files, mrCtx, e.cfg.MaxFindings, e.rules)
			findings, tokens, err := e.generateFindings(ctx, userPrompt)
			if err != nil {
				results[i] = result{tokens: tokens, err: fmt.Errorf("chunk %d: %w", i, err)}
				return
			}
			results[i] = result{findings: findings, tokens: tokens}
		}(i, chunk)
	}

	wg.Wait()

	var allFindings []Finding
	var totalTokens int
	for _, r := range results {
		totalTokens += r.tokens
		if r.err != nil {
			return nil, totalTokens, r.err
		}
		allFindings = append(allFindings, r.findings...)
	}

	allFindings = DeduplicateFindings(allFindings)
	SortFindings(allFindings)

	return allFindings, totalTokens, nil
}

// DeduplicateFindings removes duplicate findings by ID.
func DeduplicateFindings(findings []Finding) []Finding {
	seen := make(map[string]bool)
	result := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if !seen[f.ID] {
			seen[f.ID] = true
			result = append(result, f)
		}
	}
	return result
}

// SortFindings sorts findings by severity (high first), then path, then line.
func SortFindings(findings []Finding) {
	sort.Slice(findings, func(i, j int) bool {
		ri := SeverityRank(findings[i].Severity)
		rj := SeverityRank(findings[j].Severity)
		if ri != rj {
			return ri > rj
		}
		if findings[i].Path != findings[j].Path {
			return findings[i].Path < findings[j].Path
		}
		return findings[i].Line < findings[j].Line
	})
}

func splitSections(diff string) []string {
	if strings.TrimSpace(diff) == "" {
		return nil
	}
	var sections []string
	lines := strings.Split(diff, "\n")
	// A trailing newline yields a final empty element; keep it out of the
	// rebuild so chunks round-trip byte for byte.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	var current strings.Builder
	for _, line := range lines {
		// Created files diff against /dev/null, so match the bare marker.
		if strings.HasPrefix(line, "--- ") && current.Len() > 0 {
			sections = append(sections, current.String())
			current.Reset()
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if current.Len() > 0 {
		s := current.String()
		if strings.TrimSpace(s) != "" {
			sections = append(sections, s)
		}
	}
	return sections
}

func pathFromSection(section string) string {
	for _, line := range strings.Split(section, "\n") {
		if strings.HasPrefix(line, "+++ b/") {
			return strings.TrimPrefix(line, "+++ b/")
		}
	}
	// Deleted files have +++ /dev/null; fall back to the old side.
	for _, line := range strings.Split(section, "\n") {
		if strings.HasPrefix(line, "--- a/") {
			return strings.TrimPrefix(line, "--- a/")
		}
	}
	return ""
}
