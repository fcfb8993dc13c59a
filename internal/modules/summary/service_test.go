package summary

import (
	"context"
	"errors"
	"testing"

	appcfg "github.com/autumnsgrove/grove-core/internal/config"
	"github.com/autumnsgrove/grove-core/internal/models"
	"github.com/autumnsgrove/grove-core/internal/modules/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.DailySummaryModel{}, &models.AIRequestModel{}))
	return db
}

type stubSource struct {
	commits map[string][]github.Commit
	err     error
}

func (s *stubSource) CommitsForDate(_ context.Context, date string) ([]github.Commit, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.commits[date], nil
}

type stubGenerator struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (g *stubGenerator) GenerateText(_ context.Context, _, prompt string) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func testConfig() *appcfg.AppConfig {
	return &appcfg.AppConfig{
		Timezone: "UTC",
		GitHub:   appcfg.GitHubConfig{Username: "autumn", Token: "t", OwnerName: "Autumn"},
		AI: appcfg.AIConfig{
			Providers: []appcfg.AIProvider{
				{ID: "anthropic", Type: "Anthropic", APIKey: "key", DefaultModel: "claude-haiku", Enabled: true},
			},
		},
	}
}

const validResponse = `{"brief":"Continued the data migration today, finishing the gutter table move.","detailed":"## Projects\n\n### grove\n- migration steps","gutter":[{"anchor":"### grove","content":"Slow but steady."}]}`

func newTestService(t *testing.T, db *gorm.DB, src CommitSource, gen TextGenerator) *Service {
	t.Helper()
	svc := NewService(db, testConfig(), src, nil)
	if gen != nil {
		svc.WithGenerator(gen)
	}
	return svc
}

func TestGenerateRestDay(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, &stubSource{}, &stubGenerator{response: validResponse})

	result, err := svc.GenerateForDate(context.Background(), "2024-01-15", "")
	require.NoError(t, err)
	assert.Equal(t, "rest_day", result.Type)
	assert.True(t, result.Success)

	var row models.DailySummaryModel
	require.NoError(t, db.Where("summary_date = ?", "2024-01-15").First(&row).Error)
	assert.True(t, row.IsRestDay)
	assert.Nil(t, row.BriefSummary)
	assert.Nil(t, row.DetailedTimeline)
	assert.Equal(t, 0, row.CommitCount)
	assert.Equal(t, 0, row.TotalAdditions)
	assert.Empty(t, row.ReposActive)
	assert.Nil(t, row.AIModel)

	// a rest day makes no LLM call and leaves no audit row
	var audits int64
	db.Model(&models.AIRequestModel{}).Count(&audits)
	assert.Zero(t, audits)
}

func TestGenerateSummaryDay(t *testing.T) {
	db := newTestDB(t)
	commits := []github.Commit{
		{Repo: "grove", Message: "migrate timeline tables", Additions: 120, Deletions: 30},
		{Repo: "grove", Message: "migration cleanup", Additions: 10, Deletions: 4},
		{Repo: "dotfiles", Message: "run db migration", Additions: 5, Deletions: 1},
	}
	gen := &stubGenerator{response: validResponse}
	svc := newTestService(t, db, &stubSource{commits: map[string][]github.Commit{"2024-01-15": commits}}, gen)

	result, err := svc.GenerateForDate(context.Background(), "2024-01-15", "")
	require.NoError(t, err)
	assert.Equal(t, "summary", result.Type)
	assert.Equal(t, 3, result.CommitCount)
	assert.False(t, result.Degraded)
	assert.Equal(t, []string{"grove", "dotfiles"}, result.Repos)

	var row models.DailySummaryModel
	require.NoError(t, db.Where("summary_date = ?", "2024-01-15").First(&row).Error)
	assert.False(t, row.IsRestDay)
	require.NotNil(t, row.BriefSummary)
	assert.Contains(t, *row.BriefSummary, "data migration")
	assert.Equal(t, 3, row.CommitCount)
	assert.Equal(t, 135, row.TotalAdditions)
	assert.Equal(t, 35, row.TotalDeletions)
	assert.Equal(t, models.StringArray{"grove", "dotfiles"}, row.ReposActive)
	require.NotNil(t, row.AIModel)
	assert.Equal(t, "anthropic:claude-haiku", *row.AIModel)
	require.Len(t, row.GutterContent.Notes, 1)
	assert.Equal(t, "### grove", row.GutterContent.Notes[0].Anchor)
	assert.Equal(t, "comment", row.GutterContent.Notes[0].Type)
	assert.Equal(t, "Slow but steady.", row.GutterContent.Notes[0].Content)

	require.NotNil(t, row.ContextBrief.Brief)
	assert.Equal(t, 3, row.ContextBrief.Brief.CommitCount)
	assert.Equal(t, 170, row.ContextBrief.Brief.LinesChanged)
	require.NotNil(t, row.DetectedFocus.Focus)
	assert.Equal(t, "migration", row.DetectedFocus.Focus.Task)
	assert.Equal(t, "2024-01-15", row.DetectedFocus.Focus.StartDate)

	var audit models.AIRequestModel
	require.NoError(t, db.First(&audit).Error)
	assert.True(t, audit.Success)
	assert.Equal(t, "anthropic", audit.Provider)
	assert.Equal(t, "daily_summary", audit.Purpose)
	assert.Equal(t, "2024-01-15", audit.SummaryDate)
}

func TestGenerateIsIdempotentPerDate(t *testing.T) {
	db := newTestDB(t)
	commits := map[string][]github.Commit{
		"2024-01-15": {{Repo: "grove", Message: "fix bug", Additions: 1, Deletions: 1}},
	}
	src := &stubSource{commits: commits}
	svc := newTestService(t, db, src, &stubGenerator{response: validResponse})

	_, err := svc.GenerateForDate(context.Background(), "2024-01-15", "")
	require.NoError(t, err)
	_, err = svc.GenerateForDate(context.Background(), "2024-01-15", "")
	require.NoError(t, err)

	var count int64
	db.Model(&models.DailySummaryModel{}).Where("summary_date = ?", "2024-01-15").Count(&count)
	assert.EqualValues(t, 1, count)

	// the update leg of the upsert keeps the gutter notes too
	var stored models.DailySummaryModel
	require.NoError(t, db.Where("summary_date = ?", "2024-01-15").First(&stored).Error)
	require.Len(t, stored.GutterContent.Notes, 1)
	assert.Equal(t, "### grove", stored.GutterContent.Notes[0].Anchor)

	// a later re-run with no commits converts the record to a rest day
	src.commits = map[string][]github.Commit{}
	result, err := svc.GenerateForDate(context.Background(), "2024-01-15", "")
	require.NoError(t, err)
	assert.Equal(t, "rest_day", result.Type)

	var row models.DailySummaryModel
	require.NoError(t, db.Where("summary_date = ?", "2024-01-15").First(&row).Error)
	assert.True(t, row.IsRestDay)
	assert.Nil(t, row.BriefSummary)
	assert.Empty(t, row.GutterContent.Notes)
	assert.Equal(t, 0, row.CommitCount)

	db.Model(&models.DailySummaryModel{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestGenerateInvalidDate(t *testing.T) {
	svc := newTestService(t, newTestDB(t), &stubSource{}, &stubGenerator{})
	_, err := svc.GenerateForDate(context.Background(), "15-01-2024", "")
	assert.ErrorContains(t, err, "invalid date format")
}

func TestGenerateUnparseableResponse(t *testing.T) {
	db := newTestDB(t)
	commits := map[string][]github.Commit{
		"2024-01-15": {{Repo: "grove", Message: "stuff", Additions: 1}},
	}
	svc := newTestService(t, db, &stubSource{commits: commits}, &stubGenerator{response: "not json at all"})

	result, err := svc.GenerateForDate(context.Background(), "2024-01-15", "")
	require.NoError(t, err)
	assert.True(t, result.Degraded)

	var row models.DailySummaryModel
	require.NoError(t, db.Where("summary_date = ?", "2024-01-15").First(&row).Error)
	require.NotNil(t, row.BriefSummary)
	assert.Contains(t, *row.BriefSummary, "the commits tell the story")
	assert.Equal(t, 1, row.CommitCount)
}

func TestGenerateLLMFailure(t *testing.T) {
	db := newTestDB(t)
	commits := map[string][]github.Commit{
		"2024-01-15": {{Repo: "grove", Message: "stuff"}},
	}
	svc := newTestService(t, db, &stubSource{commits: commits}, &stubGenerator{err: errors.New("rate limited")})

	_, err := svc.GenerateForDate(context.Background(), "2024-01-15", "")
	require.Error(t, err)

	var audit models.AIRequestModel
	require.NoError(t, db.First(&audit).Error)
	assert.False(t, audit.Success)
	assert.Contains(t, audit.ErrorMessage, "rate limited")

	var count int64
	db.Model(&models.DailySummaryModel{}).Count(&count)
	assert.Zero(t, count)
}

func TestGenerateContinuationStartDate(t *testing.T) {
	db := newTestDB(t)

	for _, date := range []string{"2024-01-13", "2024-01-14"} {
		brief := "migration work"
		require.NoError(t, db.Create(&models.DailySummaryModel{
			SummaryDate:  date,
			CommitCount:  2,
			BriefSummary: &brief,
			ContextBrief: models.ContextBriefColumn{Brief: &models.ContextBrief{
				MainFocus:    "migration work",
				DetectedTask: "migration",
			}},
			DetectedFocus: models.DetectedFocusColumn{Focus: &models.DetectedFocus{
				Task:      "migration",
				StartDate: date,
			}},
		}).Error)
	}

	commits := map[string][]github.Commit{
		"2024-01-15": {
			{Repo: "grove", Message: "migrate remaining tables", Additions: 30},
			{Repo: "grove", Message: "migration follow-ups", Additions: 12},
		},
	}
	gen := &stubGenerator{response: validResponse}
	svc := newTestService(t, db, &stubSource{commits: commits}, gen)

	_, err := svc.GenerateForDate(context.Background(), "2024-01-15", "")
	require.NoError(t, err)

	// the streak spans both prior days, so the stored focus keeps its origin
	var row models.DailySummaryModel
	require.NoError(t, db.Where("summary_date = ?", "2024-01-15").First(&row).Error)
	require.NotNil(t, row.DetectedFocus.Focus)
	assert.Equal(t, "migration", row.DetectedFocus.Focus.Task)
	assert.Equal(t, "2024-01-13", row.DetectedFocus.Focus.StartDate)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Ongoing Task Detected")
	assert.Contains(t, gen.prompts[0], `day 3 of work on "migration"`)
	assert.Contains(t, gen.prompts[0], "## Recent Activity")
}

func TestBackfill(t *testing.T) {
	db := newTestDB(t)
	commits := map[string][]github.Commit{
		"2024-01-10": {{Repo: "grove", Message: "fix bug", Additions: 2}},
		// 2024-01-11 has no commits: rest day
		"2024-01-12": {{Repo: "grove", Message: "more fixes", Additions: 3}},
	}
	svc := newTestService(t, db, &stubSource{commits: commits}, &stubGenerator{response: validResponse})

	report, err := svc.Backfill(context.Background(), "2024-01-10", "2024-01-12", "")
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, 3, report.Processed)
	require.Len(t, report.Results, 3)
	assert.Equal(t, "summary", report.Results[0].Type)
	assert.Equal(t, "rest_day", report.Results[1].Type)
	assert.Equal(t, "summary", report.Results[2].Type)

	var count int64
	db.Model(&models.DailySummaryModel{}).Count(&count)
	assert.EqualValues(t, 3, count)
}

func TestBackfillValidation(t *testing.T) {
	gen := &stubGenerator{response: validResponse}
	svc := newTestService(t, newTestDB(t), &stubSource{}, gen)
	ctx := context.Background()

	t.Run("range over 30 days rejected before processing", func(t *testing.T) {
		_, err := svc.Backfill(ctx, "2024-01-01", "2024-01-31", "")
		assert.ErrorContains(t, err, "maximum 30 days")
		assert.Zero(t, gen.calls)
	})

	t.Run("exactly 30 days accepted", func(t *testing.T) {
		report, err := svc.Backfill(ctx, "2024-01-01", "2024-01-30", "")
		require.NoError(t, err)
		assert.Equal(t, 30, report.Processed)
	})

	t.Run("end before start rejected", func(t *testing.T) {
		_, err := svc.Backfill(ctx, "2024-01-10", "2024-01-09", "")
		assert.ErrorContains(t, err, "before start")
	})

	t.Run("bad format rejected", func(t *testing.T) {
		_, err := svc.Backfill(ctx, "Jan 1", "", "")
		assert.ErrorContains(t, err, "invalid date format")
	})

	t.Run("empty end defaults to start", func(t *testing.T) {
		report, err := svc.Backfill(ctx, "2024-02-01", "", "")
		require.NoError(t, err)
		assert.Equal(t, 1, report.Processed)
	})
}

func TestBackfillRecordsPerDayFailures(t *testing.T) {
	db := newTestDB(t)
	src := &stubSource{err: errors.New("github unreachable")}
	svc := newTestService(t, db, src, &stubGenerator{response: validResponse})

	report, err := svc.Backfill(context.Background(), "2024-01-10", "2024-01-11", "")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	for _, r := range report.Results {
		assert.False(t, r.Success)
		assert.Contains(t, r.Error, "github unreachable")
	}
}

func TestSelectProvider(t *testing.T) {
	cfg := appcfg.AIConfig{
		Providers: []appcfg.AIProvider{
			{ID: "disabled", Enabled: false},
			{ID: "openai", DefaultModel: "gpt-4o-mini", Enabled: true},
			{ID: "anthropic", DefaultModel: "claude-haiku", Enabled: true},
		},
	}

	t.Run("first enabled provider by default", func(t *testing.T) {
		p := SelectProvider(cfg, "")
		require.NotNil(t, p)
		assert.Equal(t, "openai", p.ID)
	})

	t.Run("assignment picks provider and model", func(t *testing.T) {
		cfg := cfg
		cfg.SummaryModel = &appcfg.AIModelAssignment{ProviderID: "anthropic", Model: "claude-sonnet"}
		p := SelectProvider(cfg, "")
		require.NotNil(t, p)
		assert.Equal(t, "anthropic", p.ID)
		assert.Equal(t, "claude-sonnet", p.DefaultModel)
	})

	t.Run("request override wins", func(t *testing.T) {
		cfg := cfg
		cfg.SummaryModel = &appcfg.AIModelAssignment{ProviderID: "anthropic", Model: "claude-sonnet"}
		p := SelectProvider(cfg, "claude-opus")
		require.NotNil(t, p)
		assert.Equal(t, "claude-opus", p.DefaultModel)
	})

	t.Run("nothing enabled", func(t *testing.T) {
		assert.Nil(t, SelectProvider(appcfg.AIConfig{}, ""))
	})
}
