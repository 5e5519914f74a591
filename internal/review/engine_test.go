package review

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mreide/reviewd/internal/cache"
	"github.com/mreide/reviewd/internal/config"
	"github.com/mreide/reviewd/internal/diff"
	"github.com/mreide/reviewd/internal/gitlab"
	"github.com/mreide/reviewd/internal/infra"
	"github.com/mreide/reviewd/internal/providers"
)

type fakeGenerator struct {
	mu        sync.Mutex
	calls     int
	responses []string
	prompts   []string
	err       error
}

func (f *fakeGenerator) Generate(_ context.Context, req providers.GenerateRequest) (providers.GenerateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, req.UserPrompt)
	if f.err != nil {
		return providers.GenerateResponse{}, f.err
	}
	resp := "[]"
	if len(f.responses) > 0 {
		resp = f.responses[0]
		if len(f.responses) > 1 {
			f.responses = f.responses[1:]
		}
	}
	return providers.GenerateResponse{Content: resp, TokensUsed: 10}, nil
}

func (f *fakeGenerator) Name() string { return "fake" }

func testEngine(t *testing.T, gen providers.Generator, cfg config.Config) *Engine {
	t.Helper()
	c, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		t.Fatalf("cache.New error: %v", err)
	}
	return &Engine{
		provider: gen,
		cache:    c,
		cfg:      cfg,
		log:      infra.NewNopLogger(),
	}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Cache.Enabled = false
	cfg.Privacy.RedactSecrets = false
	cfg.Privacy.RedactPaths = nil
	return cfg
}

func testMR() *gitlab.MRInfo {
	return &gitlab.MRInfo{
		IID:          42,
		Title:        "Add login handler",
		State:        "opened",
		Author:       gitlab.User{Name: "Dev", Username: "dev"},
		SourceBranch: "feature",
		TargetBranch: "main",
		CreatedAt:    time.Now(),
		DiffRefs:     gitlab.DiffRefs{BaseSHA: "aaa", StartSHA: "bbb", HeadSHA: "ccc"},
	}
}

func testSummary(t *testing.T) *diff.Summary {
	t.Helper()
	changes := []diff.Change{
		{
			OldPath: "handler.go",
			NewPath: "handler.go",
			Diff:    "@@ -1,3 +1,4 @@\n package main\n+var loginAttempts = 0\n func login() {\n }\n",
		},
	}
	s, err := diff.Build(changes, 0)
	if err != nil {
		t.Fatalf("diff.Build error: %v", err)
	}
	return s
}

const findingsJSON = `[
  {
    "severity": "high",
    "category": "bug",
    "title": "Unsynchronized counter",
    "message": "loginAttempts is mutated without synchronization.",
    "suggestion": "Use atomic.Int64.",
    "confidence": 0.9,
    "path": "handler.go",
    "line": 2
  }
]`

func TestEngineRun(t *testing.T) {
	gen := &fakeGenerator{responses: []string{findingsJSON}}
	e := testEngine(t, gen, testConfig())

	result, err := e.Run(context.Background(), testMR(), testSummary(t))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(result.Findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(result.Findings))
	}
	f := result.Findings[0]
	if f.Severity != SeverityHigh || f.Path != "handler.go" || f.Line != 2 {
		t.Errorf("finding = %+v", f)
	}
	if f.ID == "" {
		t.Error("finding ID not generated")
	}
	if result.Summary.Counts.High != 1 {
		t.Errorf("summary = %+v", result.Summary)
	}
	if result.TokensUsed != 10 {
		t.Errorf("TokensUsed = %d, want 10", result.TokensUsed)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d, want 1", gen.calls)
	}
}

func TestEngineRunZeroFindings(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"[]"}}
	e := testEngine(t, gen, testConfig())

	result, err := e.Run(context.Background(), testMR(), testSummary(t))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(result.Findings) != 0 {
		t.Errorf("findings = %d, want 0", len(result.Findings))
	}
	if result.Summary.HighestSeverity != "" {
		t.Errorf("HighestSeverity = %q, want empty", result.Summary.HighestSeverity)
	}
}

func TestEngineRepairPass(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"I found one issue:", findingsJSON}}
	e := testEngine(t, gen, testConfig())

	result, err := e.Run(context.Background(), testMR(), testSummary(t))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(result.Findings) != 1 {
		t.Errorf("findings = %d, want 1", len(result.Findings))
	}
	if gen.calls != 2 {
		t.Errorf("generator calls = %d, want 2 (original + repair)", gen.calls)
	}
}

func TestEngineRepairFails(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"not json", "still not json"}}
	e := testEngine(t, gen, testConfig())

	_, err := e.Run(context.Background(), testMR(), testSummary(t))
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error = %v (%T), want *GenerationError", err, err)
	}
}

func TestEngineCacheRoundTrip(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Enabled = true
	cfg.Cache.Dir = t.TempDir()
	gen := &fakeGenerator{responses: []string{findingsJSON}}
	e := testEngine(t, gen, cfg)

	first, err := e.Run(context.Background(), testMR(), testSummary(t))
	if err != nil {
		t.Fatalf("first Run error: %v", err)
	}
	if first.Cached {
		t.Error("first run should not be cached")
	}

	second, err := e.Run(context.Background(), testMR(), testSummary(t))
	if err != nil {
		t.Fatalf("second Run error: %v", err)
	}
	if !second.Cached {
		t.Error("second run should come from cache")
	}
	if len(second.Findings) != 1 {
		t.Errorf("cached findings = %d, want 1", len(second.Findings))
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d, want 1", gen.calls)
	}

	// A new head SHA invalidates the cached result.
	mr := testMR()
	mr.DiffRefs.HeadSHA = "ddd"
	third, err := e.Run(context.Background(), mr, testSummary(t))
	if err != nil {
		t.Fatalf("third Run error: %v", err)
	}
	if third.Cached {
		t.Error("new head SHA should miss the cache")
	}
}

func TestEngineStaticProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Provider = StaticProvider
	e := testEngine(t, nil, cfg)

	changes := []diff.Change{
		{
			OldPath: "main.go",
			NewPath: "main.go",
			Diff:    "@@ -1,2 +1,3 @@\n package main\n+fmt.Println(\"debug\")\n func main() {\n",
		},
	}
	summary, err := diff.Build(changes, 0)
	if err != nil {
		t.Fatalf("diff.Build error: %v", err)
	}

	result, err := e.Run(context.Background(), testMR(), summary)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(result.Findings) == 0 {
		t.Fatal("static provider produced no findings for a debug print")
	}
	if result.Findings[0].Path != "main.go" {
		t.Errorf("Path = %q", result.Findings[0].Path)
	}
}

func TestEngineRedactsSecrets(t *testing.T) {
	cfg := testConfig()
	cfg.Privacy.RedactSecrets = true
	gen := &fakeGenerator{responses: []string{"[]"}}
	e := testEngine(t, gen, cfg)

	changes := []diff.Change{
		{
			OldPath: "settings.go",
			NewPath: "settings.go",
			Diff:    "@@ -1,1 +1,2 @@\n package settings\n+var key = \"sk-ant-REDACTED\"\n",
		},
	}
	summary, err := diff.Build(changes, 0)
	if err != nil {
		t.Fatalf("diff.Build error: %v", err)
	}

	if _, err := e.Run(context.Background(), testMR(), summary); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("prompts = %d, want 1", len(gen.prompts))
	}
	if strings.Contains(gen.prompts[0], "sk-ant-") {
		t.Error("secret reached the generator prompt")
	}
	if !strings.Contains(gen.prompts[0], "[REDACTED]") {
		t.Error("prompt does not carry the redaction placeholder")
	}
}

func TestParseFindings(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{"plain array", findingsJSON, 1, false},
		{"fenced array", "```json\n" + findingsJSON + "\n```", 1, false},
		{"empty array", "[]", 0, false},
		{"prose", "There are no issues.", 0, true},
		{"object instead of array", `{"findings": []}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings, err := parseFindings(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseFindings error: %v", err)
			}
			if len(findings) != tt.want {
				t.Errorf("findings = %d, want %d", len(findings), tt.want)
			}
		})
	}
}
