package summary

import (
	"github.com/autumnsgrove/grove-core/internal/models"
)

// ParsedSummary is the structured output of one LLM summary call. Degraded is
// set when the raw response could not be parsed and placeholder content was
// substituted.
type ParsedSummary struct {
	Brief    string              `json:"brief"`
	Detailed string              `json:"detailed"`
	Gutter   []models.GutterNote `json:"gutter"`
	Degraded bool                `json:"degraded,omitempty"`
}

// HistoricalEntry is one prior day's context, read back from storage.
type HistoricalEntry struct {
	Date         string                `json:"date"`
	Brief        *models.ContextBrief  `json:"brief,omitempty"`
	Focus        *models.DetectedFocus `json:"focus,omitempty"`
	BriefSummary string                `json:"briefSummary,omitempty"`
}

// Continuation describes a detected multi-day task streak ending today.
type Continuation struct {
	Task      string `json:"task"`
	StartDate string `json:"startDate"`
	DayCount  int    `json:"dayCount"`
}

// Result is the outcome of generating one day's summary.
type Result struct {
	Success     bool     `json:"success"`
	Date        string   `json:"date"`
	Type        string   `json:"type"` // "rest_day" | "summary"
	Message     string   `json:"message,omitempty"`
	CommitCount int      `json:"commit_count,omitempty"`
	Repos       []string `json:"repos,omitempty"`
	Brief       string   `json:"brief,omitempty"`
	Provider    string   `json:"provider,omitempty"`
	Model       string   `json:"model,omitempty"`
	Degraded    bool     `json:"degraded,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// BackfillReport aggregates per-day results of a backfill run.
type BackfillReport struct {
	Success   bool     `json:"success"`
	Processed int      `json:"processed"`
	Results   []Result `json:"results"`
}
