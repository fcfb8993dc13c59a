package summary

import (
	"strings"
	"testing"

	"github.com/autumnsgrove/grove-core/internal/models"
	"github.com/autumnsgrove/grove-core/internal/modules/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGutterCount(t *testing.T) {
	cases := map[int]int{
		1:  1,
		2:  1,
		3:  1,
		4:  2,
		6:  2,
		7:  3,
		12: 4,
		15: 5,
		40: 5,
	}
	for commits, want := range cases {
		assert.Equal(t, want, GutterCount(commits), "commits=%d", commits)
	}
}

func TestBuildSummaryPrompt(t *testing.T) {
	commits := []github.Commit{
		{Repo: "grove", Message: "fix timeline pagination", Additions: 12, Deletions: 3},
		{Repo: "grove", Message: "tweak gutter styling", Additions: 4, Deletions: 1},
		{Repo: "dotfiles", Message: "update zsh aliases", Additions: 2, Deletions: 2},
	}

	prompt := BuildSummaryPrompt(commits, "2024-01-15", "Autumn", nil, nil)

	assert.Contains(t, prompt, "Autumn's personal coding journal on 2024-01-15")
	assert.Contains(t, prompt, "COMMITS TODAY (3 total across: grove: 2 commits, dotfiles: 1 commits)")
	assert.Contains(t, prompt, "1. [grove] fix timeline pagination (+12/-3)")
	assert.Contains(t, prompt, "3. [dotfiles] update zsh aliases (+2/-2)")
	assert.Contains(t, prompt, "GUTTER COMMENTS (1 margin notes)")
	assert.NotContains(t, prompt, "Recent Activity")
	assert.NotContains(t, prompt, "Ongoing Task Detected")
}

func TestBuildSummaryPromptWithHistory(t *testing.T) {
	commits := []github.Commit{{Repo: "grove", Message: "continue migration"}}
	history := []HistoricalEntry{
		{Date: "2024-01-14", BriefSummary: "Started the schema migration."},
	}
	cont := &Continuation{Task: "migration", StartDate: "2024-01-13", DayCount: 3}

	prompt := BuildSummaryPrompt(commits, "2024-01-15", "", history, cont)

	assert.Contains(t, prompt, "the developer's personal coding journal")
	assert.Contains(t, prompt, "## Recent Activity")
	assert.Contains(t, prompt, "**2024-01-14:**")
	assert.Contains(t, prompt, `day 3 of work on "migration"`)
	assert.Contains(t, prompt, "(started 2024-01-13)")
}

func TestFormatHistoricalContext(t *testing.T) {
	assert.Equal(t, "", FormatHistoricalContext(nil))

	history := []HistoricalEntry{
		{
			Date: "2024-01-14",
			Brief: &models.ContextBrief{
				MainFocus:    "Schema migration groundwork",
				Repos:        []string{"grove", "dotfiles"},
				LinesChanged: 240,
				DetectedTask: "migration",
			},
		},
		{Date: "2024-01-13", BriefSummary: "Light cleanup day."},
	}

	out := FormatHistoricalContext(history)
	assert.Contains(t, out, "**2024-01-14:**")
	assert.Contains(t, out, "- Focus: Schema migration groundwork")
	assert.Contains(t, out, "- Repos: grove, dotfiles")
	assert.Contains(t, out, "- Lines changed: ~240")
	assert.Contains(t, out, "- Detected task: migration")
	assert.Contains(t, out, "- Focus: Light cleanup day.")
	assert.Contains(t, out, "- Repos: multiple repos")
}

func TestParseSummaryResponse(t *testing.T) {
	t.Run("plain json", func(t *testing.T) {
		raw := `{"brief":"Steady work on the parser.","detailed":"## Projects\n\n### grove\n- parser fixes","gutter":[{"anchor":"### grove","type":"comment","content":" Slow going. "}]}`
		parsed := ParseSummaryResponse(raw)

		assert.False(t, parsed.Degraded)
		assert.Equal(t, "Steady work on the parser.", parsed.Brief)
		require.Len(t, parsed.Gutter, 1)
		assert.Equal(t, "### grove", parsed.Gutter[0].Anchor)
		assert.Equal(t, "comment", parsed.Gutter[0].Type)
		assert.Equal(t, "Slow going.", parsed.Gutter[0].Content)
	})

	t.Run("fenced json", func(t *testing.T) {
		raw := "```json\n{\"brief\":\"Fenced response.\",\"detailed\":\"## Projects\",\"gutter\":[]}\n```"
		parsed := ParseSummaryResponse(raw)
		assert.False(t, parsed.Degraded)
		assert.Equal(t, "Fenced response.", parsed.Brief)
	})

	t.Run("invalid gutter entries are dropped", func(t *testing.T) {
		raw := `{"brief":"ok brief here","detailed":"## Projects","gutter":[{"anchor":"","content":"no anchor"},{"anchor":"### x","content":""},{"anchor":"### y","content":"kept"}]}`
		parsed := ParseSummaryResponse(raw)
		require.Len(t, parsed.Gutter, 1)
		assert.Equal(t, "### y", parsed.Gutter[0].Anchor)
		assert.Equal(t, "comment", parsed.Gutter[0].Type)
	})

	t.Run("missing fields get defaults", func(t *testing.T) {
		parsed := ParseSummaryResponse(`{"gutter":[]}`)
		assert.False(t, parsed.Degraded)
		assert.Equal(t, "Worked on a few things today.", parsed.Brief)
		assert.True(t, strings.HasPrefix(parsed.Detailed, "## Projects"))
	})

	t.Run("garbage degrades to placeholder", func(t *testing.T) {
		parsed := ParseSummaryResponse("I could not produce JSON, sorry")
		assert.True(t, parsed.Degraded)
		assert.Contains(t, parsed.Brief, "the commits tell the story")
		assert.Equal(t, "## Projects\n\nWork continued across various projects.", parsed.Detailed)
		assert.Empty(t, parsed.Gutter)
	})
}
