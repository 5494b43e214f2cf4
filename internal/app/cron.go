package app

import (
	"context"
	"time"

	pkgcron "github.com/slidehub/ai-service/internal/pkg/cron"
	"github.com/slidehub/ai-service/internal/pkg/taskqueue"
	"go.uber.org/zap"
)

const (
	finishedTaskRetention = 24 * time.Hour
	staleTaskSweep        = 5 * time.Minute
	cronJobTimeout        = time.Minute
)

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, tasks *taskqueue.Service, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:        "purge_finished_tasks",
		Description: "Remove background tasks finished more than a day ago",
		Interval:    time.Hour,
		Timeout:     cronJobTimeout,
		Fn: func(ctx context.Context) error {
			n, err := tasks.DeleteFinished(ctx, time.Now().Add(-finishedTaskRetention))
			if err != nil {
				return err
			}
			if n > 0 {
				cronLogger.Info("purged finished tasks", zap.Int("count", n))
			}
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "fail_stale_tasks",
		Description: "Mark background tasks without recent progress as failed",
		Interval:    staleTaskSweep,
		Timeout:     cronJobTimeout,
		RunOnStart:  true,
		Fn: func(ctx context.Context) error {
			n, err := tasks.FailStale(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				cronLogger.Warn("marked stale tasks as failed", zap.Int("count", n))
			}
			return nil
		},
	})
}
