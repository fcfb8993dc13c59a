package summary

import (
	"regexp"
	"sort"
	"strings"

	"github.com/autumnsgrove/grove-core/internal/modules/github"
)

// taskPattern maps a keyword pattern to a human-readable task type.
type taskPattern struct {
	re   *regexp.Regexp
	task string
}

// taskPatterns is ordered: on a score tie the earlier entry wins.
var taskPatterns = []taskPattern{
	{regexp.MustCompile(`(?i)security|audit|vulnerab|xss|csrf|auth.*fix`), "security work"},
	{regexp.MustCompile(`(?i)migration?|migrate|upgrade`), "migration"},
	{regexp.MustCompile(`(?i)refactor|cleanup|reorganize|restructur`), "refactoring"},
	{regexp.MustCompile(`(?i)test|coverage|spec|jest|vitest`), "testing improvements"},
	{regexp.MustCompile(`(?i)docs?|documentation|readme|comment`), "documentation"},
	{regexp.MustCompile(`(?i)ui|design|style|css|tailwind|layout`), "UI/UX work"},
	{regexp.MustCompile(`(?i)api|endpoint|route|graphql|rest`), "API development"},
	{regexp.MustCompile(`(?i)auth|login|session|oauth|jwt`), "authentication"},
	{regexp.MustCompile(`(?i)perf|performance|optimiz|speed|cache`), "performance optimization"},
	{regexp.MustCompile(`(?i)deploy|ci|cd|pipeline|docker|build`), "deployment/CI work"},
	{regexp.MustCompile(`(?i)database|schema|sql|d1|migration`), "database work"},
	{regexp.MustCompile(`(?i)bug|fix|patch|issue|error`), "bug fixes"},
}

// DetectTaskFromText classifies free text (e.g. joined commit messages) into a
// task type. Returns "" when nothing matches.
func DetectTaskFromText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return classify(text)
}

// DetectTask classifies a day from its commits plus the generated summary
// text. Returns "" when nothing matches.
func DetectTask(parsed ParsedSummary, commits []github.Commit) string {
	parts := make([]string, 0, len(commits)+2)
	for _, c := range commits {
		parts = append(parts, c.Message)
	}
	parts = append(parts, parsed.Brief, parsed.Detailed)
	return classify(strings.Join(parts, " "))
}

func classify(text string) string {
	type scored struct {
		task  string
		score int
	}
	scores := make([]scored, 0, len(taskPatterns))
	for _, tp := range taskPatterns {
		n := len(tp.re.FindAllStringIndex(text, -1))
		if n > 0 {
			scores = append(scores, scored{task: tp.task, score: n})
		}
	}
	if len(scores) == 0 {
		return ""
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})
	return scores[0].task
}
