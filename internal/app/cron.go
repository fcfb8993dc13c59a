package app

import (
	"context"
	"fmt"
	"time"

	"github.com/autumnsgrove/grove-core/internal/config"
	"github.com/autumnsgrove/grove-core/internal/modules/summary"
	pkgcron "github.com/autumnsgrove/grove-core/internal/pkg/cron"
	"github.com/autumnsgrove/grove-core/internal/pkg/taskqueue"
	"go.uber.org/zap"
)

const aiRequestRetention = 90 * 24 * time.Hour

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, summarySvc *summary.Service, taskSvc *taskqueue.Service, cfg *config.AppConfig, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:        "daily_summary",
		Description: fmt.Sprintf("generate the daily development summary at %s local time", cfg.SummaryAt),
		At:          cfg.SummaryAt,
		Location:    summarySvc.Location(),
		Fn: func(ctx context.Context) error {
			summarySvc.RunScheduled(ctx)
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "cleanup_ai_requests",
		Description: "delete AI request audit rows older than 90 days",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			if err := summarySvc.PruneAIRequests(aiRequestRetention); err != nil {
				cronLogger.Warn("AI request cleanup failed", zap.Error(err))
				return err
			}
			cronLogger.Info("AI request cleanup done")
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "cleanup_task_records",
		Description: "delete completed task run records older than 7 days",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			cutoff := time.Now().AddDate(0, 0, -7).UnixMilli()
			if err := taskSvc.DeleteCompleted(ctx, cutoff); err != nil {
				cronLogger.Warn("task record cleanup failed", zap.Error(err))
				return err
			}
			return nil
		},
	})
}
