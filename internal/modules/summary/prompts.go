package summary

import (
	"fmt"
	"strings"

	"github.com/autumnsgrove/grove-core/internal/models"
	"github.com/autumnsgrove/grove-core/internal/modules/github"
)

// systemPrompt sets the overall voice: a developer's journal, not a
// motivational poster.
const systemPrompt = `You write daily development summaries for a personal coding journal.

Your voice is:
- Clear and technically competent
- Genuinely warm but never performative
- Like a developer writing notes for their future self
- Queer-friendly, authentic, unpretentious

You never sound like a cheerleader or motivational speaker. You sound like someone who genuinely cares about their craft and finds quiet satisfaction in steady progress.

Always respond with valid JSON only.`

// placeholder content used when the model response cannot be parsed
const (
	fallbackBrief    = "Some work happened today. The summary got a bit tangled, but the commits tell the story."
	fallbackDetailed = "## Projects\n\nWork continued across various projects."
	defaultBrief     = "Worked on a few things today."
	defaultDetailed  = "## Projects\n\nSome progress was made."
)

// BuildSummaryPrompt renders the user prompt for one day's commits, including
// recent-history and continuation sections when available.
func BuildSummaryPrompt(commits []github.Commit, date, ownerName string, history []HistoricalEntry, cont *Continuation) string {
	if ownerName == "" {
		ownerName = "the developer"
	}

	commitLines := make([]string, 0, len(commits))
	for i, c := range commits {
		commitLines = append(commitLines, fmt.Sprintf("%d. [%s] %s (+%d/-%d)", i+1, c.Repo, c.Message, c.Additions, c.Deletions))
	}

	repoCounts := make(map[string]int, len(commits))
	repoOrder := uniqueRepos(commits)
	for _, c := range commits {
		repoCounts[c.Repo]++
	}
	repoSummaries := make([]string, 0, len(repoOrder))
	for _, repo := range repoOrder {
		repoSummaries = append(repoSummaries, fmt.Sprintf("%s: %d commits", repo, repoCounts[repo]))
	}

	gutterCount := GutterCount(len(commits))

	var b strings.Builder
	fmt.Fprintf(&b, `You are writing a daily development summary for %s's personal coding journal on %s.

VOICE & TONE:
- Write like a thoughtful developer reflecting on their own work
- Professional clarity (6/10) with genuine warmth (4/10)
- Factual and specific about what was done
- Quietly satisfied on productive days, understanding on light days
- NEVER use phrases like: "killing it", "crushing it", "amazing work", "fantastic", "awesome job"
- AVOID exclamation marks except sparingly when genuinely warranted
- Think: late-night reflection over tea, not motivational speech

COMMITS TODAY (%d total across: %s):
%s`, ownerName, date, len(commits), strings.Join(repoSummaries, ", "), strings.Join(commitLines, "\n"))

	if historical := FormatHistoricalContext(history); historical != "" {
		fmt.Fprintf(&b, "\n\n## Recent Activity\n\n%s", historical)
	}
	if note := FormatContinuation(cont); note != "" {
		fmt.Fprintf(&b, "\n\n%s", note)
	}

	fmt.Fprintf(&b, `

GENERATE THREE OUTPUTS:

1. BRIEF SUMMARY (2-3 sentences, no more):
   Write a grounded summary of what mattered today.
   - Start with what was actually worked on, not how you feel about it
   - Be specific about the nature of the work
   - End with a quiet observation if one feels natural
   Example tone: "Focused on the authentication flow today, sorting out edge cases around session expiry. Also touched up some timeline styling. Steady progress."

2. DETAILED BREAKDOWN (markdown):
   - Header: "## Projects"
   - Each project: "### ProjectName" (exactly as shown in commits)
   - Bullet points for key changes
   - Be factual and clear, not effusive
   - Group related commits logically

3. GUTTER COMMENTS (%d margin notes):
   These are small observations that float alongside the content.
   - Generate exactly %d comments
   - Each must have an "anchor" matching a "### ProjectName" from the detailed section
   - Keep them SHORT (10 words max, ideally under 8)
   - Thoughtful, not cheerful
   - Good: "This took longer than expected." / "Cleanup work pays off." / "Subtle but important."
   - Bad: "Great work on this!" / "You're doing amazing!" / "Keep it up!"

OUTPUT FORMAT (respond with valid JSON only):
{
  "brief": "Your 2-3 sentence summary here",
  "detailed": "## Projects\\n\\n### ProjectName\\n- Change one\\n- Change two",
  "gutter": [
    {"anchor": "### ProjectName", "type": "comment", "content": "Short observation"}
  ]
}

IMPORTANT:
- Respond with JSON only, no markdown code blocks
- Escape newlines as \\n in JSON strings
- Gutter anchors must EXACTLY match headers from detailed section
- Match the number of gutter comments to %d`, gutterCount, gutterCount, gutterCount)

	return b.String()
}

// GutterCount scales the requested margin-note count with activity: one note
// per three commits, clamped to 1..5.
func GutterCount(commitCount int) int {
	count := (commitCount + 2) / 3
	if count < 1 {
		count = 1
	}
	if count > 5 {
		count = 5
	}
	return count
}

// FormatHistoricalContext renders prior days for prompt inclusion.
func FormatHistoricalContext(history []HistoricalEntry) string {
	if len(history) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(history))
	for _, ctx := range history {
		focus := "Various work"
		repos := "multiple repos"
		loc := 0
		task := ""

		if ctx.Brief != nil {
			if ctx.Brief.MainFocus != "" {
				focus = ctx.Brief.MainFocus
			}
			if len(ctx.Brief.Repos) > 0 {
				repos = strings.Join(ctx.Brief.Repos, ", ")
			}
			loc = ctx.Brief.LinesChanged
			task = ctx.Brief.DetectedTask
		} else if ctx.BriefSummary != "" {
			focus = ctx.BriefSummary
		}
		if ctx.Focus != nil && ctx.Focus.Task != "" {
			task = ctx.Focus.Task
		}

		block := fmt.Sprintf("**%s:**\n- Focus: %s\n- Repos: %s\n- Lines changed: ~%d", ctx.Date, focus, repos, loc)
		if task != "" {
			block += "\n- Detected task: " + task
		}
		blocks = append(blocks, block)
	}

	return strings.Join(blocks, "\n\n")
}

// FormatContinuation renders a multi-day streak note for prompt inclusion.
func FormatContinuation(cont *Continuation) string {
	if cont == nil {
		return ""
	}

	return fmt.Sprintf(`## Ongoing Task Detected

This appears to be day %d of work on "%s"
(started %s).

When appropriate, acknowledge this multi-day effort naturally without being
cheerleader-y. Examples:
- "Day 3 of the auth refactor. Good progress on the session handling."
- "Still working through the migration - today focused on the API layer."
- "The security audit continues with rate limiting improvements."

Avoid: "Amazing progress!" or "You're crushing it!" or any excitement about streaks.`, cont.DayCount, cont.Task, cont.StartDate)
}

// ParseSummaryResponse turns raw model output into a ParsedSummary. Responses
// wrapped in markdown fences are unwrapped; an unparseable response degrades
// to placeholder content instead of failing the day.
func ParseSummaryResponse(raw string) ParsedSummary {
	var payload struct {
		Brief    string `json:"brief"`
		Detailed string `json:"detailed"`
		Gutter   []struct {
			Anchor  string `json:"anchor"`
			Type    string `json:"type"`
			Content string `json:"content"`
		} `json:"gutter"`
	}

	if err := unmarshalAIJSON(raw, &payload); err != nil {
		return ParsedSummary{
			Brief:    fallbackBrief,
			Detailed: fallbackDetailed,
			Gutter:   []models.GutterNote{},
			Degraded: true,
		}
	}

	gutter := make([]models.GutterNote, 0, len(payload.Gutter))
	for _, item := range payload.Gutter {
		if item.Anchor == "" || strings.TrimSpace(item.Content) == "" {
			continue
		}
		noteType := item.Type
		if noteType == "" {
			noteType = "comment"
		}
		gutter = append(gutter, models.GutterNote{
			Anchor:  item.Anchor,
			Type:    noteType,
			Content: strings.TrimSpace(item.Content),
		})
	}

	parsed := ParsedSummary{
		Brief:    payload.Brief,
		Detailed: payload.Detailed,
		Gutter:   gutter,
	}
	if parsed.Brief == "" {
		parsed.Brief = defaultBrief
	}
	if parsed.Detailed == "" {
		parsed.Detailed = defaultDetailed
	}
	return parsed
}
