package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-desk/internal/api/dto"
	"github.com/spec-kit/issue-desk/internal/domain"
	"github.com/spec-kit/issue-desk/internal/service"
	apperrors "github.com/spec-kit/issue-desk/pkg/util"
)

// SettingsHandler exposes the admin configuration and dashboard endpoints.
// Routes using it sit behind RequireAdmin.
type SettingsHandler struct {
	settings *service.SettingsService
	issues   *service.IssueService
}

// NewSettingsHandler constructs handler.
func NewSettingsHandler(settingsService *service.SettingsService, issueService *service.IssueService) *SettingsHandler {
	return &SettingsHandler{settings: settingsService, issues: issueService}
}

// GetSettings GET /admin/settings.
func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	setting, err := h.settings.Get(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(settingsResponse(setting))
}

// UpdateSettings PUT /admin/settings.
func (h *SettingsHandler) UpdateSettings(c *fiber.Ctx) error {
	var req dto.UpdateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	setting, err := h.settings.Update(c.Context(), service.SettingsInput{
		ClosedIssueDeleteDays:  req.ClosedIssueDeleteDays,
		PendingIssueDeleteDays: req.PendingIssueDeleteDays,
		DailyIssueLimit:        req.DailyIssueLimit,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":        "settings saved",
		"updatedSetting": settingsResponse(setting),
	})
}

// GetStats GET /admin/stats.
func (h *SettingsHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.issues.Stats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(dto.AdminStatsResponse{
		UnresolvedCount:    stats.UnresolvedCount,
		ResolvedTodayCount: stats.ResolvedTodayCount,
	})
}

func settingsResponse(setting *domain.Setting) dto.SettingsResponse {
	return dto.SettingsResponse{
		ID:                     setting.ID,
		ClosedIssueDeleteDays:  setting.ClosedIssueDeleteDays,
		PendingIssueDeleteDays: setting.PendingIssueDeleteDays,
		DailyIssueLimit:        setting.DailyIssueLimit,
		UpdatedAt:              setting.UpdatedAt,
	}
}
