package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-desk/internal/domain"
	"github.com/spec-kit/issue-desk/internal/repository"
	apperrors "github.com/spec-kit/issue-desk/pkg/util"
)

const (
	settingCacheKey = "issue-desk:setting"
	settingCacheTTL = time.Minute
)

// SettingsInput carries the admin-editable configuration values.
type SettingsInput struct {
	ClosedIssueDeleteDays  int
	PendingIssueDeleteDays int
	DailyIssueLimit        int
}

// SettingsService serves the singleton configuration record. Reads go through
// a short-lived Redis cache; the cache is best-effort and the service falls
// back to Postgres whenever Redis is unavailable.
type SettingsService struct {
	settings repository.SettingRepository
	cache    *redis.Client
	logger   *zap.Logger
}

// NewSettingsService builds the service. cache may be nil.
func NewSettingsService(settings repository.SettingRepository, cache *redis.Client, logger *zap.Logger) *SettingsService {
	return &SettingsService{settings: settings, cache: cache, logger: logger}
}

// Get returns the singleton setting, creating it with defaults on first access.
func (s *SettingsService) Get(ctx context.Context) (*domain.Setting, error) {
	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	setting, err := s.settings.Get(ctx)
	if err == pgx.ErrNoRows {
		defaults := domain.DefaultSetting()
		if err := s.settings.Create(ctx, &defaults); err != nil {
			return nil, apperrors.MapError(err)
		}
		setting = &defaults
	} else if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.toCache(ctx, setting)
	return setting, nil
}

// Update validates and stores new configuration values, then invalidates the cache.
func (s *SettingsService) Update(ctx context.Context, input SettingsInput) (*domain.Setting, error) {
	if input.ClosedIssueDeleteDays <= 0 || input.PendingIssueDeleteDays <= 0 || input.DailyIssueLimit <= 0 {
		return nil, apperrors.NewValidationError("all setting values must be positive integers", nil)
	}

	setting, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	setting.ClosedIssueDeleteDays = input.ClosedIssueDeleteDays
	setting.PendingIssueDeleteDays = input.PendingIssueDeleteDays
	setting.DailyIssueLimit = input.DailyIssueLimit
	if err := s.settings.Update(ctx, setting); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.invalidate(ctx)
	return setting, nil
}

func (s *SettingsService) fromCache(ctx context.Context) *domain.Setting {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, settingCacheKey).Bytes()
	if err != nil {
		return nil
	}
	var setting domain.Setting
	if err := json.Unmarshal(data, &setting); err != nil {
		return nil
	}
	return &setting
}

func (s *SettingsService) toCache(ctx context.Context, setting *domain.Setting) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(setting)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, settingCacheKey, data, settingCacheTTL).Err(); err != nil && s.logger != nil {
		s.logger.Debug("setting cache write failed", zap.Error(err))
	}
}

func (s *SettingsService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, settingCacheKey).Err(); err != nil && s.logger != nil {
		s.logger.Debug("setting cache invalidation failed", zap.Error(err))
	}
}
