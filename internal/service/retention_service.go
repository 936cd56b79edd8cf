package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/issue-desk/internal/repository"
)

// RetentionResult reports how many issues each category removed.
type RetentionResult struct {
	DeletedClosedCount  int64 `json:"deletedClosedCount"`
	DeletedPendingCount int64 `json:"deletedPendingCount"`
}

// RetentionService permanently removes issues that have aged past the
// configured windows, along with all their replies. Each category (expired
// closed, expired unresolved) is deleted in its own transaction, so a failure
// in one category does not block the other.
type RetentionService struct {
	issues   repository.IssueRepository
	settings *SettingsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewRetentionService constructs the service.
func NewRetentionService(issues repository.IssueRepository, settings *SettingsService, logger *zap.Logger) *RetentionService {
	return &RetentionService{
		issues:   issues,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes one cleanup pass and reports per-category deletion counts.
// Running it again with no new data deletes nothing.
func (s *RetentionService) Run(ctx context.Context) (*RetentionResult, error) {
	setting, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	closedCutoff := now.AddDate(0, 0, -setting.ClosedIssueDeleteDays)
	pendingCutoff := now.AddDate(0, 0, -setting.PendingIssueDeleteDays)

	s.logger.Info("retention run starting",
		zap.Time("closed_cutoff", closedCutoff),
		zap.Time("pending_cutoff", pendingCutoff),
	)

	result := &RetentionResult{}
	var errs []error

	deleted, err := s.purgeExpiredClosed(ctx, closedCutoff)
	if err != nil {
		s.logger.Error("closed-issue cleanup failed", zap.Error(err))
		errs = append(errs, err)
	}
	result.DeletedClosedCount = deleted

	deleted, err = s.purgeExpiredUnresolved(ctx, pendingCutoff)
	if err != nil {
		s.logger.Error("unresolved-issue cleanup failed", zap.Error(err))
		errs = append(errs, err)
	}
	result.DeletedPendingCount = deleted

	s.logger.Info("retention run finished",
		zap.Int64("deleted_closed", result.DeletedClosedCount),
		zap.Int64("deleted_pending", result.DeletedPendingCount),
	)
	return result, errors.Join(errs...)
}

func (s *RetentionService) purgeExpiredClosed(ctx context.Context, cutoff time.Time) (int64, error) {
	ids, err := s.issues.ListExpiredClosed(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	return s.issues.PurgeWithReplies(ctx, ids)
}

func (s *RetentionService) purgeExpiredUnresolved(ctx context.Context, cutoff time.Time) (int64, error) {
	ids, err := s.issues.ListExpiredUnresolved(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	return s.issues.PurgeWithReplies(ctx, ids)
}
