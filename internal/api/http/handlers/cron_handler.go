package handlers

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-desk/internal/service"
	apperrors "github.com/spec-kit/issue-desk/pkg/util"
)

// CronHandler lets an external scheduler trigger the retention job over HTTP,
// authenticated with a shared bearer secret.
type CronHandler struct {
	retention *service.RetentionService
	secret    string
}

// NewCronHandler constructs handler.
func NewCronHandler(retention *service.RetentionService, secret string) *CronHandler {
	return &CronHandler{retention: retention, secret: secret}
}

// CleanupIssues GET /cron/cleanup-issues.
func (h *CronHandler) CleanupIssues(c *fiber.Ctx) error {
	if h.secret == "" || !validBearer(c.Get("Authorization"), h.secret) {
		return apperrors.NewUnauthorized("invalid or missing cron secret")
	}

	result, err := h.retention.Run(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":             true,
		"deletedClosedCount":  result.DeletedClosedCount,
		"deletedPendingCount": result.DeletedPendingCount,
	})
}

func validBearer(header, secret string) bool {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(parts[1]), []byte(secret)) == 1
}
