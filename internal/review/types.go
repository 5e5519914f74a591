package review

// Severity represents the severity level of a finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Category represents the type of finding.
type Category string

const (
	CategoryBug             Category = "bug"
	CategorySecurity        Category = "security"
	CategoryPerformance     Category = "performance"
	CategoryCorrectness     Category = "correctness"
	CategoryStyle           Category = "style"
	CategoryMaintainability Category = "maintainability"
	CategoryTesting         Category = "testing"
	CategoryDocs            Category = "docs"
)

// Finding is a single review finding anchored to a file and line of the
// merge request diff. Line refers to the new side of the diff; 0 means the
// finding is file-level or could not be anchored.
type Finding struct {
	ID         string   `json:"id"`
	Severity   Severity `json:"severity"`
	Category   Category `json:"category"`
	Title      string   `json:"title"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
	Confidence float64  `json:"confidence"`
	Path       string   `json:"path"`
	Line       int      `json:"line"`
	EndLine    int      `json:"endLine,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// SeverityCounts holds counts by severity level.
type SeverityCounts struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// FindingsSummary provides an overview of findings.
type FindingsSummary struct {
	Counts          SeverityCounts `json:"counts"`
	HighestSeverity Severity       `json:"highestSeverity,omitempty"`
}

// ComputeSummary calculates the summary from findings.
func ComputeSummary(findings []Finding) FindingsSummary {
	var s FindingsSummary
	for _, f := range findings {
		switch f.Severity {
		case SeverityLow:
			s.Counts.Low++
		case SeverityMedium:
			s.Counts.Medium++
		case SeverityHigh:
			s.Counts.High++
		}
		if SeverityRank(f.Severity) > SeverityRank(s.HighestSeverity) {
			s.HighestSeverity = f.Severity
		}
	}
	return s
}

// Result is the outcome of generating a review for one merge request.
type Result struct {
	Provider   string          `json:"provider"`
	Model      string          `json:"model,omitempty"`
	Findings   []Finding       `json:"findings"`
	Summary    FindingsSummary `json:"summary"`
	TokensUsed int             `json:"tokensUsed,omitempty"`
	Cached     bool            `json:"cached,omitempty"`
	DurationMs int64           `json:"durationMs"`
}
