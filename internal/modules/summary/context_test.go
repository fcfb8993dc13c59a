package summary

import (
	"strings"
	"testing"

	"github.com/autumnsgrove/grove-core/internal/models"
	"github.com/autumnsgrove/grove-core/internal/modules/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMainFocus(t *testing.T) {
	t.Run("brief cut at sentence boundary", func(t *testing.T) {
		brief := "Focused on the authentication flow today, sorting out edge cases around session expiry. Also touched up some timeline styling."
		got := extractMainFocus(ParsedSummary{Brief: brief})
		assert.Equal(t, "Focused on the authentication flow today, sorting out edge cases around session expiry.", got)
	})

	t.Run("brief without late sentence end is trimmed whole", func(t *testing.T) {
		brief := "Worked on parser internals and cleanup"
		got := extractMainFocus(ParsedSummary{Brief: brief})
		assert.Equal(t, brief, got)
	})

	t.Run("long brief capped at 200 chars", func(t *testing.T) {
		brief := strings.Repeat("a", 300)
		got := extractMainFocus(ParsedSummary{Brief: brief})
		assert.Len(t, got, 200)
	})

	t.Run("falls back to first substantial detailed line", func(t *testing.T) {
		detailed := "## Projects\n\n### site\n- **Reworked the timeline rendering pipeline**\n- ok"
		got := extractMainFocus(ParsedSummary{Brief: "short", Detailed: detailed})
		assert.Equal(t, "Reworked the timeline rendering pipeline", got)
	})

	t.Run("defaults when nothing qualifies", func(t *testing.T) {
		assert.Equal(t, "Various development tasks", extractMainFocus(ParsedSummary{}))
	})
}

func TestBuildContextBrief(t *testing.T) {
	commits := []github.Commit{
		{Repo: "alpha", Message: "refactor storage layer", Additions: 100, Deletions: 40},
		{Repo: "beta", Message: "cleanup handlers", Additions: 10, Deletions: 5},
		{Repo: "gamma", Message: "restructure modules", Additions: 1, Deletions: 0},
		{Repo: "delta", Message: "reorganize tree", Additions: 2, Deletions: 2},
	}
	parsed := ParsedSummary{Brief: "A large refactor across several repos, touching storage and handlers."}

	brief := BuildContextBrief(parsed, commits)

	assert.Equal(t, 4, brief.CommitCount)
	assert.Equal(t, 160, brief.LinesChanged)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, brief.Repos)
	assert.Equal(t, "refactoring", brief.DetectedTask)
	assert.NotEmpty(t, brief.MainFocus)
}

func TestDetectContinuation(t *testing.T) {
	migration := &models.DetectedFocus{Task: "migration"}
	testingFocus := &models.DetectedFocus{Task: "testing improvements"}
	history := []HistoricalEntry{
		{Date: "2024-01-14", Focus: migration},
		{Date: "2024-01-13", Focus: migration},
		{Date: "2024-01-11", Focus: testingFocus},
	}

	t.Run("streak detected", func(t *testing.T) {
		cont := DetectContinuation(history, "migration")
		require.NotNil(t, cont)
		assert.Equal(t, "migration", cont.Task)
		assert.Equal(t, "2024-01-13", cont.StartDate)
		assert.Equal(t, 3, cont.DayCount)
	})

	t.Run("streak broken by most recent day", func(t *testing.T) {
		assert.Nil(t, DetectContinuation(history, "testing improvements"))
	})

	t.Run("single prior day still counts", func(t *testing.T) {
		cont := DetectContinuation(history[:1], "migration")
		require.NotNil(t, cont)
		assert.Equal(t, 2, cont.DayCount)
		assert.Equal(t, "2024-01-14", cont.StartDate)
	})

	t.Run("no current focus", func(t *testing.T) {
		assert.Nil(t, DetectContinuation(history, ""))
	})

	t.Run("empty history", func(t *testing.T) {
		assert.Nil(t, DetectContinuation(nil, "migration"))
	})

	t.Run("falls back to brief detected task", func(t *testing.T) {
		hist := []HistoricalEntry{
			{Date: "2024-01-14", Brief: &models.ContextBrief{DetectedTask: "bug fixes"}},
		}
		cont := DetectContinuation(hist, "bug fixes")
		require.NotNil(t, cont)
		assert.Equal(t, 2, cont.DayCount)
	})
}

func TestBuildDetectedFocus(t *testing.T) {
	assert.Nil(t, BuildDetectedFocus("", "2024-01-15", []string{"a"}))

	focus := BuildDetectedFocus("migration", "2024-01-13", []string{"a", "b", "c", "d"})
	require.NotNil(t, focus)
	assert.Equal(t, "migration", focus.Task)
	assert.Equal(t, "2024-01-13", focus.StartDate)
	assert.Equal(t, []string{"a", "b", "c"}, focus.Repos)
}

func TestGetHistoricalContext(t *testing.T) {
	db := newTestDB(t)

	seed := func(date string, commitCount int, task string) {
		brief := "work on " + date
		row := models.DailySummaryModel{
			SummaryDate:  date,
			IsRestDay:    commitCount == 0,
			CommitCount:  commitCount,
			BriefSummary: &brief,
			ContextBrief: models.ContextBriefColumn{Brief: &models.ContextBrief{
				MainFocus:   "focus " + date,
				Repos:       []string{"site"},
				CommitCount: commitCount,
			}},
		}
		if task != "" {
			row.DetectedFocus = models.DetectedFocusColumn{Focus: &models.DetectedFocus{Task: task, StartDate: date}}
		}
		require.NoError(t, db.Create(&row).Error)
	}

	seed("2024-01-14", 5, "migration")
	seed("2024-01-13", 3, "migration")
	seed("2024-01-12", 0, "") // rest day, never qualifies
	seed("2024-01-11", 2, "")
	seed("2024-01-10", 1, "")
	seed("2024-01-01", 4, "") // outside the 7-day window

	entries, degraded := GetHistoricalContext(db, "2024-01-15")
	assert.False(t, degraded)
	require.Len(t, entries, 3)
	assert.Equal(t, "2024-01-14", entries[0].Date)
	assert.Equal(t, "2024-01-13", entries[1].Date)
	assert.Equal(t, "2024-01-11", entries[2].Date)
	require.NotNil(t, entries[0].Focus)
	assert.Equal(t, "migration", entries[0].Focus.Task)

	t.Run("corrupt context brief falls back to brief summary", func(t *testing.T) {
		require.NoError(t, db.Exec(
			"UPDATE daily_summaries SET context_brief = ? WHERE summary_date = ?",
			"{not json", "2024-01-14",
		).Error)

		entries, degraded := GetHistoricalContext(db, "2024-01-15")
		assert.False(t, degraded)
		require.Len(t, entries, 3)
		assert.Nil(t, entries[0].Brief)
		assert.Equal(t, "work on 2024-01-14", entries[0].BriefSummary)
	})

	t.Run("invalid target date degrades", func(t *testing.T) {
		entries, degraded := GetHistoricalContext(db, "not-a-date")
		assert.True(t, degraded)
		assert.Empty(t, entries)
	})
}
