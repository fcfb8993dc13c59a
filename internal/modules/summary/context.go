package summary

import (
	"regexp"
	"strings"
	"time"

	"github.com/autumnsgrove/grove-core/internal/models"
	"github.com/autumnsgrove/grove-core/internal/modules/github"
	"gorm.io/gorm"
)

const defaultMainFocus = "Various development tasks"

var (
	sentenceEndRe = regexp.MustCompile(`[.!?]\s`)
	listMarkerRe  = regexp.MustCompile(`^[-*+]\s*$`)
	listPrefixRe  = regexp.MustCompile(`^[-*+]\s*`)
)

// BuildContextBrief condenses one day's summary and commits into the record
// stored for future lookback.
func BuildContextBrief(parsed ParsedSummary, commits []github.Commit) models.ContextBrief {
	repos := uniqueRepos(commits)
	linesChanged := 0
	for _, c := range commits {
		linesChanged += c.Additions + c.Deletions
	}

	return models.ContextBrief{
		MainFocus:    extractMainFocus(parsed),
		Repos:        topN(repos, 3),
		LinesChanged: linesChanged,
		CommitCount:  len(commits),
		DetectedTask: DetectTask(parsed, commits),
	}
}

// extractMainFocus pulls a 1-2 sentence focus description out of the summary.
// Prefers the brief; falls back to the first substantial line of the detailed
// timeline; defaults to a generic phrase.
func extractMainFocus(parsed ParsedSummary) string {
	if len(parsed.Brief) > 20 {
		brief := parsed.Brief
		if runes := []rune(brief); len(runes) > 200 {
			brief = string(runes[:200])
		}
		if loc := sentenceEndRe.FindStringIndex(brief); loc != nil && loc[0] > 50 {
			return strings.TrimSpace(brief[:loc[0]+1])
		}
		return strings.TrimSpace(brief)
	}

	if parsed.Detailed != "" {
		for _, line := range strings.Split(parsed.Detailed, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			if strings.HasPrefix(line, "#") {
				continue
			}
			if listMarkerRe.MatchString(line) {
				continue
			}
			if len(line) > 20 && len(line) < 200 {
				cleaned := listPrefixRe.ReplaceAllString(line, "")
				cleaned = strings.ReplaceAll(cleaned, "**", "")
				return strings.TrimSpace(cleaned)
			}
		}
	}

	return defaultMainFocus
}

// GetHistoricalContext reads back up to three prior active days within a
// 7-day window before targetDate. Rest days never qualify. A rows-level read
// failure degrades to an empty history rather than failing the pipeline.
func GetHistoricalContext(db *gorm.DB, targetDate string) (entries []HistoricalEntry, degraded bool) {
	day, err := time.Parse("2006-01-02", targetDate)
	if err != nil {
		return nil, true
	}

	dates := make([]string, 0, 7)
	for i := 1; i <= 7; i++ {
		dates = append(dates, day.AddDate(0, 0, -i).Format("2006-01-02"))
	}

	var rows []models.DailySummaryModel
	err = db.
		Select("summary_date, context_brief, detected_focus, brief_summary, commit_count").
		Where("summary_date IN ? AND commit_count > 0", dates).
		Order("summary_date DESC").
		Limit(3).
		Find(&rows).Error
	if err != nil {
		return nil, true
	}

	entries = make([]HistoricalEntry, 0, len(rows))
	for _, row := range rows {
		entry := HistoricalEntry{
			Date:  row.SummaryDate,
			Brief: row.ContextBrief.Brief,
			Focus: row.DetectedFocus.Focus,
		}
		if row.BriefSummary != nil {
			entry.BriefSummary = *row.BriefSummary
		}
		// A row with neither a context brief nor a brief summary has nothing
		// to contribute.
		if entry.Brief == nil && entry.BriefSummary == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, false
}

// DetectContinuation finds an unbroken run of the same task type in the most
// recent history entries. DayCount includes the current day.
func DetectContinuation(history []HistoricalEntry, currentFocus string) *Continuation {
	if currentFocus == "" || len(history) == 0 {
		return nil
	}

	streak := 0
	startDate := ""
	for _, ctx := range history {
		ctxFocus := ""
		if ctx.Focus != nil {
			ctxFocus = ctx.Focus.Task
		} else if ctx.Brief != nil {
			ctxFocus = ctx.Brief.DetectedTask
		}
		if ctxFocus != currentFocus {
			break
		}
		streak++
		startDate = ctx.Date
	}

	if streak < 1 {
		return nil
	}
	return &Continuation{
		Task:      currentFocus,
		StartDate: startDate,
		DayCount:  streak + 1,
	}
}

// BuildDetectedFocus packages a detected task for storage. Returns nil when no
// task was detected.
func BuildDetectedFocus(task, date string, repos []string) *models.DetectedFocus {
	if task == "" {
		return nil
	}
	return &models.DetectedFocus{
		Task:      task,
		StartDate: date,
		Repos:     topN(repos, 3),
	}
}

// uniqueRepos returns repo names in first-seen order.
func uniqueRepos(commits []github.Commit) []string {
	seen := make(map[string]struct{}, len(commits))
	repos := make([]string, 0, len(commits))
	for _, c := range commits {
		if _, ok := seen[c.Repo]; ok {
			continue
		}
		seen[c.Repo] = struct{}{}
		repos = append(repos, c.Repo)
	}
	return repos
}

func topN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
