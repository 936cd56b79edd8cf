package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-desk/internal/service"
)

const retentionRunTimeout = 5 * time.Minute

// StartRetentionWorker schedules the retention job on the given cron
// expression and returns the running scheduler.
func StartRetentionWorker(schedule string, retention *service.RetentionService, logger *zap.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), retentionRunTimeout)
		defer cancel()

		result, err := retention.Run(ctx)
		if err != nil {
			logger.Error("scheduled retention run failed", zap.Error(err))
			return
		}
		logger.Info("scheduled retention run completed",
			zap.Int64("deleted_closed", result.DeletedClosedCount),
			zap.Int64("deleted_pending", result.DeletedPendingCount),
		)
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	logger.Info("retention worker started", zap.String("schedule", schedule))
	return c, nil
}
