package summary

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	appcfg "github.com/autumnsgrove/grove-core/internal/config"
	"github.com/autumnsgrove/grove-core/internal/models"
	"github.com/autumnsgrove/grove-core/internal/modules/github"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

const maxBackfillDays = 30

// ErrNoProvider is returned when no enabled AI provider is configured.
var ErrNoProvider = errors.New("no enabled AI provider")

// CommitSource yields one day's commits for the configured author.
type CommitSource interface {
	CommitsForDate(ctx context.Context, date string) ([]github.Commit, error)
}

// Service runs the daily summary pipeline: fetch commits, consult recent
// history, generate the summary, and upsert the per-date record.
type Service struct {
	db      *gorm.DB
	cfg     *appcfg.AppConfig
	commits CommitSource
	gen     TextGenerator // overrides the configured provider when set
	logger  *zap.Logger
	loc     *time.Location
}

func NewService(db *gorm.DB, cfg *appcfg.AppConfig, commits CommitSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("invalid timezone, falling back to UTC", zap.String("timezone", cfg.Timezone))
		loc = time.UTC
	}
	return &Service{
		db:      db,
		cfg:     cfg,
		commits: commits,
		logger:  logger.Named("SummaryService"),
		loc:     loc,
	}
}

// WithGenerator substitutes the LLM backend. Used by tests.
func (s *Service) WithGenerator(gen TextGenerator) *Service {
	s.gen = gen
	return s
}

// Location returns the site-local timezone.
func (s *Service) Location() *time.Location { return s.loc }

// TodayDate returns today's date string in the site-local timezone.
func (s *Service) TodayDate() string {
	return time.Now().In(s.loc).Format("2006-01-02")
}

// GenerateForDate runs the full pipeline for one date. An empty date means
// today in the site-local timezone. The write is a last-write-wins upsert
// keyed by summary_date, so re-running a date replaces its record.
func (s *Service) GenerateForDate(ctx context.Context, date, modelOverride string) (*Result, error) {
	if date == "" {
		date = s.TodayDate()
	}
	if !dateRe.MatchString(date) {
		return nil, fmt.Errorf("invalid date format: %s, expected YYYY-MM-DD", date)
	}

	commits, err := s.commits.CommitsForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("fetch commits for %s: %w", date, err)
	}
	s.logger.Info("commits fetched", zap.String("date", date), zap.Int("count", len(commits)))

	if len(commits) == 0 {
		if err := s.storeRestDay(date); err != nil {
			return nil, fmt.Errorf("store rest day %s: %w", date, err)
		}
		return &Result{
			Success: true,
			Date:    date,
			Type:    "rest_day",
			Message: fmt.Sprintf("No commits on %s - stored as rest day", date),
		}, nil
	}

	provider := SelectProvider(s.cfg.AI, modelOverride)
	gen := s.gen
	if gen == nil {
		if provider == nil {
			return nil, ErrNoProvider
		}
		gen = NewProviderGenerator(provider)
	}
	providerID, modelName := "unknown", "unknown"
	if provider != nil {
		providerID = provider.ID
		modelName = provider.DefaultModel
	}

	history, degraded := GetHistoricalContext(s.db, date)
	if degraded {
		s.logger.Warn("historical context unavailable, continuing without it", zap.String("date", date))
	}

	messages := make([]string, 0, len(commits))
	for _, c := range commits {
		messages = append(messages, c.Message)
	}
	preTask := DetectTaskFromText(strings.Join(messages, " "))
	cont := DetectContinuation(history, preTask)

	prompt := BuildSummaryPrompt(commits, date, s.cfg.GitHub.OwnerName, history, cont)

	started := time.Now()
	raw, genErr := gen.GenerateText(ctx, systemPrompt, prompt)
	s.recordAIRequest(providerID, modelName, date, time.Since(started), genErr)
	if genErr != nil {
		return nil, fmt.Errorf("generate summary for %s: %w", date, genErr)
	}

	parsed := ParseSummaryResponse(raw)
	if parsed.Degraded {
		s.logger.Warn("unparseable AI response, storing placeholder summary",
			zap.String("date", date),
			zap.String("raw", truncateForLog(raw, 500)),
		)
	}

	brief := BuildContextBrief(parsed, commits)
	task := brief.DetectedTask
	startDate := date
	if cont != nil && cont.Task == task {
		startDate = cont.StartDate
	}
	focus := BuildDetectedFocus(task, startDate, uniqueRepos(commits))

	if err := s.storeSummary(date, parsed, commits, brief, focus, providerID+":"+modelName); err != nil {
		return nil, fmt.Errorf("store summary %s: %w", date, err)
	}

	return &Result{
		Success:     true,
		Date:        date,
		Type:        "summary",
		CommitCount: len(commits),
		Repos:       uniqueRepos(commits),
		Brief:       parsed.Brief,
		Provider:    providerID,
		Model:       modelName,
		Degraded:    parsed.Degraded,
	}, nil
}

// RunScheduled generates today's summary. It never returns an error: the
// scheduled path logs failures and moves on so one bad day cannot wedge the
// cron loop.
func (s *Service) RunScheduled(ctx context.Context) {
	result, err := s.GenerateForDate(ctx, "", "")
	if err != nil {
		s.logger.Error("scheduled summary failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled summary generated",
		zap.String("date", result.Date),
		zap.String("type", result.Type),
		zap.Int("commits", result.CommitCount),
	)
}

// Backfill generates summaries for an inclusive date range, capped at 30
// days. Range validation happens before any day is processed; per-day
// failures are recorded in the report without aborting the rest of the range.
func (s *Service) Backfill(ctx context.Context, startDate, endDate, modelOverride string) (*BackfillReport, error) {
	if endDate == "" {
		endDate = startDate
	}
	if !dateRe.MatchString(startDate) || !dateRe.MatchString(endDate) {
		return nil, errors.New("invalid date format, use YYYY-MM-DD")
	}

	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date: %w", err)
	}
	if end.Before(start) {
		return nil, errors.New("end date is before start date")
	}

	days := int(end.Sub(start).Hours()/24) + 1
	if days > maxBackfillDays {
		return nil, fmt.Errorf("maximum %d days allowed per request", maxBackfillDays)
	}

	report := &BackfillReport{Success: true}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dateStr := d.Format("2006-01-02")
		result, err := s.GenerateForDate(ctx, dateStr, modelOverride)
		if err != nil {
			s.logger.Warn("backfill day failed", zap.String("date", dateStr), zap.Error(err))
			report.Results = append(report.Results, Result{
				Date:  dateStr,
				Error: err.Error(),
			})
			continue
		}
		report.Results = append(report.Results, *result)
	}
	report.Processed = len(report.Results)
	return report, nil
}

// PruneAIRequests deletes audit rows older than the retention window.
func (s *Service) PruneAIRequests(retention time.Duration) error {
	cutoff := time.Now().Add(-retention)
	return s.db.Where("created_at < ?", cutoff).Delete(&models.AIRequestModel{}).Error
}

func (s *Service) storeSummary(date string, parsed ParsedSummary, commits []github.Commit, brief models.ContextBrief, focus *models.DetectedFocus, modelString string) error {
	repos := uniqueRepos(commits)
	totalAdditions, totalDeletions := 0, 0
	for _, c := range commits {
		totalAdditions += c.Additions
		totalDeletions += c.Deletions
	}

	row := models.DailySummaryModel{SummaryDate: date}
	return s.db.
		Where("summary_date = ?", date).
		Assign(map[string]interface{}{
			"is_rest_day":       false,
			"brief_summary":     parsed.Brief,
			"detailed_timeline": parsed.Detailed,
			"gutter_content":    models.GutterContentColumn{Notes: parsed.Gutter},
			"commit_count":      len(commits),
			"total_additions":   totalAdditions,
			"total_deletions":   totalDeletions,
			"repos_active":      models.StringArray(repos),
			"context_brief":     models.ContextBriefColumn{Brief: &brief},
			"detected_focus":    models.DetectedFocusColumn{Focus: focus},
			"ai_model":          modelString,
		}).
		FirstOrCreate(&row).Error
}

func (s *Service) storeRestDay(date string) error {
	row := models.DailySummaryModel{SummaryDate: date}
	return s.db.
		Where("summary_date = ?", date).
		Assign(map[string]interface{}{
			"is_rest_day":       true,
			"brief_summary":     nil,
			"detailed_timeline": nil,
			"gutter_content":    models.GutterContentColumn{},
			"commit_count":      0,
			"total_additions":   0,
			"total_deletions":   0,
			"repos_active":      models.StringArray{},
			"context_brief":     models.ContextBriefColumn{},
			"detected_focus":    models.DetectedFocusColumn{},
			"ai_model":          nil,
		}).
		FirstOrCreate(&row).Error
}

// recordAIRequest writes one audit row per LLM call, best effort.
func (s *Service) recordAIRequest(providerID, model, summaryDate string, duration time.Duration, callErr error) {
	row := models.AIRequestModel{
		RequestDate: time.Now().In(s.loc).Format("2006-01-02"),
		Provider:    providerID,
		Model:       model,
		Purpose:     "daily_summary",
		SummaryDate: summaryDate,
		Success:     callErr == nil,
		DurationMS:  duration.Milliseconds(),
	}
	if callErr != nil {
		row.ErrorMessage = callErr.Error()
	}
	if err := s.db.Create(&row).Error; err != nil {
		s.logger.Warn("failed to record AI request", zap.Error(err))
	}
}

func truncateForLog(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
