package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/issue-desk/internal/api/dto"
	"github.com/spec-kit/issue-desk/internal/auth"
	"github.com/spec-kit/issue-desk/internal/domain"
	"github.com/spec-kit/issue-desk/internal/repository"
	"github.com/spec-kit/issue-desk/internal/service"
	apperrors "github.com/spec-kit/issue-desk/pkg/util"
)

// IssuesHandler manages issue lifecycle endpoints.
type IssuesHandler struct {
	service *service.IssueService
}

// NewIssuesHandler constructs handler.
func NewIssuesHandler(issueService *service.IssueService) *IssuesHandler {
	return &IssuesHandler{service: issueService}
}

// Create POST /issues.
func (h *IssuesHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.CreateIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	issue, err := h.service.Create(c.Context(), principal.User, req.Title, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(issueSummary(issue, principal.User.Name, principal.User.Email))
}

// List GET /issues.
func (h *IssuesHandler) List(c *fiber.Ctx) error {
	var caller *domain.User
	if principal, ok := auth.PrincipalFromContext(c); ok {
		caller = principal.User
	}

	query := service.IssueListQuery{
		Page:     parseInt(c.Query("page"), 1),
		Limit:    parseInt(c.Query("limit"), 10),
		UserOnly: c.Query("userOnly") == "true",
	}
	if statusStr := strings.TrimSpace(c.Query("status")); statusStr != "" {
		status := domain.IssueStatus(statusStr)
		if !status.Valid() {
			return apperrors.NewValidationError("invalid issue status", nil)
		}
		query.Status = &status
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		query.Search = &search
	}

	items, pagination, err := h.service.List(c.Context(), caller, query)
	if err != nil {
		return err
	}

	summaries := make([]dto.IssueSummary, 0, len(items))
	for i := range items {
		summaries = append(summaries, issueSummary(&items[i].Issue, items[i].AuthorName, items[i].AuthorEmail))
	}
	return c.JSON(dto.IssueListResponse{
		Issues: summaries,
		Pagination: dto.PaginationResponse{
			Page:       pagination.Page,
			Limit:      pagination.Limit,
			Total:      pagination.Total,
			TotalPages: pagination.TotalPages,
		},
	})
}

// Get GET /issues/:id.
func (h *IssuesHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	detail, err := h.service.Get(c.Context(), id)
	if err != nil {
		return err
	}

	replies := make([]dto.ReplyResponse, 0, len(detail.Replies))
	for i := range detail.Replies {
		replies = append(replies, replyResponse(&detail.Replies[i]))
	}
	return c.JSON(dto.IssueDetailResponse{
		IssueSummary: issueSummary(detail.Issue, detail.AuthorName, detail.AuthorEmail),
		Replies:      replies,
	})
}

// UpdateStatus PATCH /issues/:id/status.
func (h *IssuesHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateIssueStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	issue, err := h.service.UpdateStatus(c.Context(), principal.User, id, domain.IssueStatus(req.Status))
	if err != nil {
		return err
	}

	detail, err := h.service.Get(c.Context(), issue.ID)
	if err != nil {
		return err
	}
	replies := make([]dto.ReplyResponse, 0, len(detail.Replies))
	for i := range detail.Replies {
		replies = append(replies, replyResponse(&detail.Replies[i]))
	}
	return c.JSON(dto.IssueDetailResponse{
		IssueSummary: issueSummary(detail.Issue, detail.AuthorName, detail.AuthorEmail),
		Replies:      replies,
	})
}

// Delete DELETE /issues/:id.
func (h *IssuesHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Context(), principal.User, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "issue deleted"})
}

// AddReply POST /issues/:id/replies.
func (h *IssuesHandler) AddReply(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.CreateReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	reply, err := h.service.AddReply(c.Context(), principal.User, id, req.Content)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(replyResponse(reply))
}

// parseID validates the :id path segment as a UUID so malformed ids surface
// as validation errors instead of store failures.
func parseID(c *fiber.Ctx) (string, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", apperrors.NewValidationError("invalid id", nil)
	}
	return id, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func issueSummary(issue *domain.Issue, authorName, authorEmail string) dto.IssueSummary {
	return dto.IssueSummary{
		ID:          issue.ID,
		Title:       issue.Title,
		Description: issue.Description,
		Status:      issue.Status,
		User: dto.IssueAuthor{
			ID:    issue.UserID,
			Name:  authorName,
			Email: authorEmail,
		},
		CreatedAt: issue.CreatedAt,
		UpdatedAt: issue.UpdatedAt,
		ClosedAt:  issue.ClosedAt,
	}
}

func replyResponse(reply *repository.ReplyWithAuthor) dto.ReplyResponse {
	return dto.ReplyResponse{
		ID:      reply.ID,
		Content: reply.Content,
		IsAdmin: reply.IsAdmin,
		User: dto.ReplyAuthor{
			ID:    reply.UserID,
			Name:  reply.AuthorName,
			Email: reply.AuthorEmail,
			Role:  reply.AuthorRole,
		},
		CreatedAt: reply.CreatedAt,
	}
}
