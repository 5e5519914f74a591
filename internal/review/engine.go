package review

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mreide/reviewd/internal/analyze"
	"github.com/mreide/reviewd/internal/cache"
	"github.com/mreide/reviewd/internal/config"
	"github.com/mreide/reviewd/internal/diff"
	"github.com/mreide/reviewd/internal/gitlab"
	"github.com/mreide/reviewd/internal/infra"
	"github.com/mreide/reviewd/internal/providers"
	"github.com/mreide/reviewd/internal/redact"
)

// StaticProvider selects the built-in heuristic checker instead of a model
// backend.
const StaticProvider = "static"

// GenerationError wraps a failure to produce findings: provider errors,
// unparseable model output, or a failed repair pass.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return "generating review: " + e.Err.Error() }
func (e *GenerationError) Unwrap() error { return e.Err }

// rawFinding is the JSON structure returned by the generator.
type rawFinding struct {
	Severity   string   `json:"severity"`
	Category   string   `json:"category"`
	Title      string   `json:"title"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion"`
	Confidence float64  `json:"confidence"`
	Path       string   `json:"path"`
	Line       int      `json:"line"`
	EndLine    int      `json:"endLine"`
	Tags       []string `json:"tags"`
}

// Engine turns a fetched merge request diff into review findings.
type Engine struct {
	provider providers.Generator // nil when cfg.Provider is "static"
	cache    *cache.Cache
	rules    *Rules
	cfg      config.Config
	log      infra.Logger
}

// NewEngine builds an Engine from configuration: rules pack, model backend,
// and response cache.
func NewEngine(cfg config.Config, log infra.Logger) (*Engine, error) {
	rules, err := LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	var provider providers.Generator
	if cfg.Provider != StaticProvider {
		provider, err = providers.New(cfg.Provider, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("creating provider: %w", err)
		}
	}

	c, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	return &Engine{
		provider: provider,
		cache:    c,
		rules:    rules,
		cfg:      cfg,
		log:      log,
	}, nil
}

// Run generates findings for the merge request diff. Results for an
// unchanged provider/model/diff triple come from the cache.
func (e *Engine) Run(ctx context.Context, mr *gitlab.MRInfo, summary *diff.Summary) (*Result, error) {
	start := time.Now()

	result := &Result{
		Provider: e.cfg.Provider,
		Model:    e.cfg.Model,
		Findings: []Finding{},
	}

	redacted := e.redactedDiff(summary)
	if strings.TrimSpace(redacted) == "" {
		result.DurationMs = time.Since(start).Milliseconds()
		return result, nil
	}

	if e.cfg.Provider == StaticProvider {
		findings := e.staticFindings(summary)
		result.Findings = findings
		result.Summary = ComputeSummary(findings)
		result.Model = ""
		result.DurationMs = time.Since(start).Milliseconds()
		return result, nil
	}

	key := cache.Key(e.cfg.Provider, e.cfg.Model, mr.DiffRefs.HeadSHA, redacted)
	if cached, ok := e.cache.Get(key); ok {
		var findings []Finding
		if err := json.Unmarshal([]byte(cached), &findings); err == nil {
			e.log.Infof("review cache hit for %s", mr.WebURL)
			result.Findings = findings
			result.Summary = ComputeSummary(findings)
			result.Cached = true
			result.DurationMs = time.Since(start).Milliseconds()
			return result, nil
		}
	}

	findings, tokens, err := e.generate(ctx, redacted, summary.Paths(), mr)
	if err != nil {
		return nil, err
	}

	findings = ApplySeverityOverrides(findings, e.rules)
	findings = DeduplicateFindings(findings)
	SortFindings(findings)
	if e.cfg.MaxFindings > 0 && len(findings) > e.cfg.MaxFindings {
		findings = findings[:e.cfg.MaxFindings]
	}

	if data, err := json.Marshal(findings); err == nil {
		if err := e.cache.Put(key, string(data)); err != nil {
			e.log.Errorf("caching review result: %v", err)
		}
	}

	result.Findings = findings
	result.Summary = ComputeSummary(findings)
	result.TokensUsed = tokens
	result.DurationMs = time.Since(start).Milliseconds()
	return result, nil
}

// generate runs the model over the diff, chunked when the diff is large.
func (e *Engine) generate(ctx context.Context, redacted string, files []string, mr *gitlab.MRInfo) ([]Finding, int, error) {
	mrCtx := MRContext{Title: mr.Title, Description: mr.Description}

	if NeedsChunking(redacted) {
		chunks := SplitIntoChunks(redacted, ChunkThreshold)
		e.log.Infof("diff is %d bytes, reviewing in %d chunks", len(redacted), len(chunks))
		return e.runChunked(ctx, chunks, mrCtx)
	}

	userPrompt := BuildUserPrompt(redacted, files, mrCtx, e.cfg.MaxFindings, e.rules)
	findings, tokens, err := e.generateFindings(ctx, userPrompt)
	if err != nil {
		return nil, tokens, err
	}
	return findings, tokens, nil
}

// generateFindings performs one generation round trip with a single repair
// pass if the response is not valid JSON.
func (e *Engine) generateFindings(ctx context.Context, userPrompt string) ([]Finding, int, error) {
	req := providers.GenerateRequest{
		SystemPrompt: SystemPrompt(),
		UserPrompt:   userPrompt,
		MaxTokens:    8192,
	}

	resp, err := e.provider.Generate(ctx, req)
	if err != nil {
		return nil, 0, wrapProviderErr(err)
	}
	tokens := resp.TokensUsed

	findings, err := parseFindings(resp.Content)
	if err == nil {
		return findings, tokens, nil
	}

	repairPrompt := fmt.Sprintf(
		"Your previous response was not valid JSON. The error was: %s\n\nPlease fix it and respond with ONLY a valid JSON array of findings.\n\nYour previous response was:\n%s",
		err.Error(), resp.Content,
	)
	resp2, err2 := e.provider.Generate(ctx, providers.GenerateRequest{
		SystemPrompt: SystemPrompt(),
		UserPrompt:   repairPrompt,
		MaxTokens:    8192,
	})
	if err2 != nil {
		return nil, tokens, wrapProviderErr(fmt.Errorf("repair pass failed: %w (original error: %v)", err2, err))
	}
	tokens += resp2.TokensUsed

	findings, err = parseFindings(resp2.Content)
	if err != nil {
		return nil, tokens, &GenerationError{Err: fmt.Errorf("response validation failed after repair: %w", err)}
	}
	return findings, tokens, nil
}

// wrapProviderErr keeps provider rate-limit errors distinguishable so the
// HTTP layer can map them to 502 instead of 500.
func wrapProviderErr(err error) error {
	if providers.IsRateLimitError(err) {
		return err
	}
	return &GenerationError{Err: err}
}

func (e *Engine) staticFindings(summary *diff.Summary) []Finding {
	issues := analyze.Run(summary.Files, nil)
	findings := make([]Finding, 0, len(issues))
	for _, iss := range issues {
		f := Finding{
			Severity:   Severity(iss.Severity),
			Category:   Category(iss.Category),
			Title:      iss.Title,
			Message:    iss.Message,
			Suggestion: iss.Suggestion,
			Confidence: 1.0,
			Path:       iss.Path,
			Line:       iss.Line,
		}
		f.ID = generateFindingID(f)
		findings = append(findings, f)
	}
	findings = ApplySeverityOverrides(findings, e.rules)
	findings = DeduplicateFindings(findings)
	SortFindings(findings)
	if e.cfg.MaxFindings > 0 && len(findings) > e.cfg.MaxFindings {
		findings = findings[:e.cfg.MaxFindings]
	}
	return findings
}

// redactedDiff renders the unified diff with secrets and path-policy files
// removed.
func (e *Engine) redactedDiff(summary *diff.Summary) string {
	if !e.cfg.Privacy.RedactSecrets && len(e.cfg.Privacy.RedactPaths) == 0 {
		return summary.Unified()
	}

	var b strings.Builder
	for _, f := range summary.Files {
		path := f.NewPath
		if path == "" {
			path = f.OldPath
		}
		text := summary.UnifiedFor(path)
		if text == "" {
			continue
		}
		b.WriteString(f.Header())
		if e.cfg.Privacy.RedactSecrets {
			text = redact.Diff(text, path, e.cfg.Privacy.RedactPaths)
		} else if redact.ShouldRedactPath(path, e.cfg.Privacy.RedactPaths) {
			text = redact.Diff(text, path, e.cfg.Privacy.RedactPaths)
		}
		b.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func parseFindings(content string) ([]Finding, error) {
	content = strings.TrimSpace(content)

	// Strip markdown code fences if present
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) >= 2 {
			start := 1
			end := len(lines)
			if strings.TrimSpace(lines[end-1]) == "```" {
				end = end - 1
			}
			content = strings.Join(lines[start:end], "\n")
		}
	}

	var raw []rawFinding
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON array: %w", err)
	}

	findings := make([]Finding, 0, len(raw))
	for _, r := range raw {
		f := Finding{
			Severity:   Severity(r.Severity),
			Category:   Category(r.Category),
			Title:      r.Title,
			Message:    r.Message,
			Suggestion: r.Suggestion,
			Confidence: r.Confidence,
			Path:       r.Path,
			Line:       r.Line,
			EndLine:    r.EndLine,
			Tags:       r.Tags,
		}
		f.ID = generateFindingID(f)
		findings = append(findings, f)
	}

	return findings, nil
}

func generateFindingID(f Finding) string {
	data := fmt.Sprintf("%s:%s:%d", f.Path, f.Title, f.Line)
	h := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", h[:8])
}
